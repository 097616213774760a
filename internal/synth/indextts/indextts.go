// Package indextts implements synth.Synthesizer against an IndexTTS2-style
// HTTP server: zero-shot voice cloning from a reference clip, with emotion
// given as an 8-dimension vector or as descriptive text.
//
// API: POST {endpoint}/synthesize with a JSON body, answered with audio/wav.
// GET {endpoint}/health reports readiness.
package indextts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nadzzz/scriptvoice/internal/audio"
	"github.com/nadzzz/scriptvoice/internal/audio/wav"
	"github.com/nadzzz/scriptvoice/internal/config"
	"github.com/nadzzz/scriptvoice/internal/emotion"
	"github.com/nadzzz/scriptvoice/internal/synth"
)

const backendName = "indextts"

// request is the engine's inference call. Emotion fields are omitted in
// bypass mode so the engine performs pure voice cloning.
type request struct {
	Text           string    `json:"text"`
	SpeakerPrompt  string    `json:"spk_audio_prompt"`
	EmotionVector  []float64 `json:"emo_vector,omitempty"`
	EmotionAlpha   float64   `json:"emo_alpha,omitempty"`
	UseEmotionText bool      `json:"use_emo_text,omitempty"`
	EmotionText    string    `json:"emo_text,omitempty"`
	UseRandom      bool      `json:"use_random"`
	UseSpeed       int       `json:"use_speed"` // 0 normal, 1 fast
	Pitch          float64   `json:"pitch"`
	Volume         float64   `json:"volume"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// Synthesizer calls an IndexTTS HTTP server.
type Synthesizer struct {
	endpoint string
	client   *http.Client
}

// New creates an IndexTTS synthesizer from config.
func New(cfg config.IndexTTSConfig) *Synthesizer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Synthesizer{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

// Name returns the backend name.
func (s *Synthesizer) Name() string { return backendName }

func buildRequest(req synth.Request) request {
	body := request{
		Text:     req.Text,
		Pitch:    req.Pitch,
		Volume:   req.Volume,
		UseSpeed: 0,
	}
	if req.Profile != nil {
		body.SpeakerPrompt = req.Profile.VoiceReference
	}
	if req.Fast() {
		body.UseSpeed = 1
	}

	switch req.Emotion.Mode {
	case emotion.ModeVector:
		body.EmotionVector = req.Emotion.Vector.Slice()
		body.EmotionAlpha = req.Emotion.Alpha
	case emotion.ModeDescriptive:
		body.UseEmotionText = true
		body.EmotionText = req.Emotion.Payload.EngineText()
		body.EmotionAlpha = req.Emotion.Alpha
	}
	return body
}

// Synthesize posts one inference request and decodes the WAV response.
func (s *Synthesizer) Synthesize(ctx context.Context, req synth.Request) (*audio.Buffer, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, synth.Fatal(backendName, errors.New("empty text"))
	}
	body := buildRequest(req)
	if body.SpeakerPrompt == "" {
		return nil, synth.Fatal(backendName, errors.New("no voice reference"))
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, synth.Fatal(backendName, fmt.Errorf("marshalling request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/synthesize", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, synth.Fatal(backendName, fmt.Errorf("creating request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", wav.ContentType)

	slog.Debug("indextts synthesize", "text_length", len(req.Text), "emotion_mode", req.Emotion.Mode.String(), "alpha", req.Emotion.Alpha, "use_speed", body.UseSpeed)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, synth.Transient(backendName, fmt.Errorf("indextts request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, synth.FromStatus(backendName, resp.StatusCode,
			fmt.Errorf("indextts failed (status %d): %s", resp.StatusCode, errorText(respBody)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, synth.Transient(backendName, fmt.Errorf("reading response: %w", err))
	}
	buf, err := wav.Decode(data)
	if err != nil {
		return nil, synth.Fatal(backendName, fmt.Errorf("decoding response audio: %w", err))
	}
	return buf, nil
}

// Probe checks the server's health endpoint.
func (s *Synthesizer) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("indextts health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("indextts health: status %d", resp.StatusCode)
	}
	return nil
}

// Close releases idle connections.
func (s *Synthesizer) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func errorText(body []byte) string {
	var e errorResponse
	if json.Unmarshal(body, &e) == nil {
		if e.Error != "" {
			return e.Error
		}
		if e.Detail != "" {
			return e.Detail
		}
	}
	return strings.TrimSpace(string(body))
}
