// Package wyoming implements synth.Synthesizer against a Piper server speaking
// the Wyoming protocol.
//
// Piper has no emotion control, so resolved emotions are ignored and every
// job is synthesized as plain voice output. Each character speaks with its
// configured Piper voice.
//
// Wyoming protocol format (per event):
//
//	<json_length> <payload_length>\n
//	<json_bytes>\n
//	<payload_bytes>   (if payload_length > 0)
package wyoming

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/nadzzz/scriptvoice/internal/audio"
	"github.com/nadzzz/scriptvoice/internal/config"
	"github.com/nadzzz/scriptvoice/internal/synth"
)

const backendName = "wyoming"

// Synthesizer implements synth.Synthesizer using the Wyoming protocol.
type Synthesizer struct {
	endpoint     string            // host:port of the Piper Wyoming server
	defaultVoice string            // used when a character has no voice
	voices       map[string]string // character id -> voice name
	dialTimeout  time.Duration
}

// New creates a Wyoming synthesizer from config.
func New(cfg config.WyomingConfig) *Synthesizer {
	endpoint := strings.TrimPrefix(cfg.Endpoint, "tcp://")
	endpoint = strings.TrimPrefix(endpoint, "http://")

	voices := make(map[string]string, len(cfg.Voices))
	for k, v := range cfg.Voices {
		voices[k] = v
	}

	return &Synthesizer{
		endpoint:     endpoint,
		defaultVoice: cfg.DefaultVoice,
		voices:       voices,
		dialTimeout:  10 * time.Second,
	}
}

// Name returns the backend name.
func (s *Synthesizer) Name() string { return backendName }

// voiceFor picks the configured voice for a character, then its voice
// reference when that names a model rather than an audio file.
func (s *Synthesizer) voiceFor(req synth.Request) string {
	if req.Profile == nil {
		return s.defaultVoice
	}
	if v := s.voices[req.Profile.ID]; v != "" {
		return v
	}
	ref := req.Profile.VoiceReference
	if ref != "" && !strings.ContainsAny(ref, `/\`) && !strings.Contains(ref, ".") {
		return ref
	}
	return s.defaultVoice
}

// Synthesize sends text to the Piper server and returns the decoded audio.
func (s *Synthesizer) Synthesize(ctx context.Context, req synth.Request) (*audio.Buffer, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, synth.Fatal(backendName, errors.New("empty text"))
	}
	if s.endpoint == "" {
		return nil, synth.Fatal(backendName, errors.New("no wyoming endpoint configured"))
	}

	voice := s.voiceFor(req)
	slog.Debug("wyoming synthesize", "text_length", len(req.Text), "voice", voice, "endpoint", s.endpoint, "emotion_mode", req.Emotion.Mode.String())

	conn, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	data := map[string]any{"text": req.Text}
	if voice != "" {
		data["voice"] = map[string]any{"name": voice}
	}
	if err := writeEvent(conn, event{Type: "synthesize", Data: data}, nil); err != nil {
		return nil, synth.Transient(backendName, fmt.Errorf("sending synthesize event: %w", err))
	}

	// Read response events: audio-start → audio-chunk* → audio-stop
	var (
		pcmBuf     bytes.Buffer
		sampleRate = 22050
		channels   = 1
		width      = 2
	)

	for {
		evt, payload, err := readEvent(conn)
		if err != nil {
			return nil, synth.Transient(backendName, fmt.Errorf("reading event: %w", err))
		}

		switch evt.Type {
		case "audio-start":
			if rate, ok := evt.Data["rate"].(float64); ok {
				sampleRate = int(rate)
			}
			if ch, ok := evt.Data["channels"].(float64); ok {
				channels = int(ch)
			}
			if w, ok := evt.Data["width"].(float64); ok {
				width = int(w)
			}
			slog.Debug("wyoming audio-start", "rate", sampleRate, "channels", channels, "width", width)

		case "audio-chunk":
			if len(payload) > 0 {
				pcmBuf.Write(payload)
			}

		case "audio-stop":
			slog.Debug("wyoming audio-stop", "pcm_bytes", pcmBuf.Len())
			if width != 2 {
				return nil, synth.Fatal(backendName, fmt.Errorf("unsupported sample width %d", width))
			}
			buf, err := audio.FromPCM16(pcmBuf.Bytes(), sampleRate, channels)
			if err != nil {
				return nil, synth.Fatal(backendName, err)
			}
			return buf, nil

		case "error":
			msg := "unknown error"
			if text, ok := evt.Data["text"].(string); ok {
				msg = text
			}
			return nil, synth.Fatal(backendName, fmt.Errorf("piper error: %s", msg))

		default:
			slog.Debug("wyoming unknown event", "type", evt.Type)
		}
	}
}

// Probe asks the server to describe itself.
func (s *Synthesizer) Probe(ctx context.Context) error {
	conn, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := writeEvent(conn, event{Type: "describe"}, nil); err != nil {
		return fmt.Errorf("sending describe event: %w", err)
	}
	for {
		evt, _, err := readEvent(conn)
		if err != nil {
			return fmt.Errorf("reading describe response: %w", err)
		}
		if evt.Type == "info" {
			return nil
		}
	}
}

// Close is a no-op; connections are per-request.
func (s *Synthesizer) Close() error { return nil }

func (s *Synthesizer) dial(ctx context.Context) (net.Conn, error) {
	dialer := net.Dialer{Timeout: s.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.endpoint)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, synth.Transient(backendName, fmt.Errorf("connecting to piper: %w", err))
	}

	// Set deadline from context.
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(30 * time.Second))
	}
	return conn, nil
}

// --- Wyoming protocol helpers ---

type event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// writeEvent sends a Wyoming event over the connection.
func writeEvent(w io.Writer, evt event, payload []byte) error {
	jsonBytes, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}

	// Header: <json_length> <payload_length>\n
	header := fmt.Sprintf("%d %d\n", len(jsonBytes), len(payload))
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	if _, err := w.Write(jsonBytes); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return err
		}
	}
	return nil
}

// readEvent reads a Wyoming event from the connection.
func readEvent(r io.Reader) (*event, []byte, error) {
	// Read header line: "<json_length> <payload_length>\n"
	headerBuf := make([]byte, 0, 64)
	oneByte := make([]byte, 1)
	for {
		if _, err := io.ReadFull(r, oneByte); err != nil {
			return nil, nil, fmt.Errorf("reading header: %w", err)
		}
		if oneByte[0] == '\n' {
			break
		}
		headerBuf = append(headerBuf, oneByte[0])
	}

	parts := strings.SplitN(string(headerBuf), " ", 2)
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("invalid wyoming header: %q", string(headerBuf))
	}

	jsonLen, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing json_length: %w", err)
	}
	payloadLen, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing payload_length: %w", err)
	}

	jsonBuf := make([]byte, jsonLen+1) // +1 for the \n
	if _, err := io.ReadFull(r, jsonBuf); err != nil {
		return nil, nil, fmt.Errorf("reading json: %w", err)
	}

	var evt event
	if err := json.Unmarshal(jsonBuf[:jsonLen], &evt); err != nil {
		return nil, nil, fmt.Errorf("unmarshalling event: %w", err)
	}

	var payload []byte
	if payloadLen > 0 {
		payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, nil, fmt.Errorf("reading payload: %w", err)
		}
	}
	return &evt, payload, nil
}
