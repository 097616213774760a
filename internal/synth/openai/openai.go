// Package openai implements synth.Synthesizer using the OpenAI speech API.
//
// OpenAI voices are fixed presets, so voice references are not cloned; each
// character maps to a preset voice. Emotions are expressed as speaking
// instructions.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nadzzz/scriptvoice/internal/audio"
	"github.com/nadzzz/scriptvoice/internal/audio/wav"
	"github.com/nadzzz/scriptvoice/internal/character"
	"github.com/nadzzz/scriptvoice/internal/config"
	"github.com/nadzzz/scriptvoice/internal/emotion"
	"github.com/nadzzz/scriptvoice/internal/synth"
)

const backendName = "openai"

// Speed limits accepted by the API.
const (
	minSpeed = 0.25
	maxSpeed = 4.0
)

// Synthesizer calls the OpenAI speech endpoint.
type Synthesizer struct {
	client       *openai.Client
	model        string
	defaultVoice string
	voices       map[string]string
}

// New creates an OpenAI synthesizer from config.
func New(cfg config.OpenAIConfig) *Synthesizer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = string(openai.TTSModel1)
	}
	voice := cfg.DefaultVoice
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}
	return &Synthesizer{
		client:       openai.NewClientWithConfig(clientCfg),
		model:        model,
		defaultVoice: voice,
		voices:       cfg.Voices,
	}
}

// Name returns the backend name.
func (s *Synthesizer) Name() string { return backendName }

func (s *Synthesizer) voiceFor(p *character.Profile) string {
	if p != nil {
		if v := s.voices[p.ID]; v != "" {
			return v
		}
	}
	return s.defaultVoice
}

// instructions renders the resolved emotion as a speaking direction.
func instructions(res emotion.Resolution) string {
	switch res.Mode {
	case emotion.ModeVector:
		return fmt.Sprintf("Speak with a %s tone at intensity %.2f on a scale from 0 to 1.", res.Emotion, res.Alpha)
	case emotion.ModeDescriptive:
		return fmt.Sprintf("Speak with this emotion (intensity %.2f): %s", res.Alpha, res.Payload.EngineText())
	default:
		return ""
	}
}

func speed(rate float64) float64 {
	if rate <= 0 {
		return 1
	}
	if rate < minSpeed {
		return minSpeed
	}
	if rate > maxSpeed {
		return maxSpeed
	}
	return rate
}

// Synthesize requests WAV speech and decodes it.
func (s *Synthesizer) Synthesize(ctx context.Context, req synth.Request) (*audio.Buffer, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, synth.Fatal(backendName, errors.New("empty text"))
	}

	oReq := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          req.Text,
		Voice:          openai.SpeechVoice(s.voiceFor(req.Profile)),
		Instructions:   instructions(req.Emotion),
		ResponseFormat: openai.SpeechResponseFormatWav,
		Speed:          speed(req.SpeechRate),
	}
	slog.Debug("openai synthesize", "text_length", len(req.Text), "voice", oReq.Voice, "model", oReq.Model)

	resp, err := s.client.CreateSpeech(ctx, oReq)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, synth.Transient(backendName, fmt.Errorf("reading speech: %w", err))
	}
	buf, err := wav.Decode(data)
	if err != nil {
		return nil, synth.Fatal(backendName, fmt.Errorf("decoding speech: %w", err))
	}
	return buf, nil
}

// Close is a no-op.
func (s *Synthesizer) Close() error { return nil }

func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return synth.FromStatus(backendName, apiErr.HTTPStatusCode, fmt.Errorf("openai speech: %w", err))
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return synth.FromStatus(backendName, reqErr.HTTPStatusCode, fmt.Errorf("openai speech: %w", err))
	}
	return synth.Transient(backendName, fmt.Errorf("openai speech: %w", err))
}
