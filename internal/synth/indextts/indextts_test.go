package indextts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nadzzz/scriptvoice/internal/audio"
	"github.com/nadzzz/scriptvoice/internal/audio/wav"
	"github.com/nadzzz/scriptvoice/internal/character"
	"github.com/nadzzz/scriptvoice/internal/config"
	"github.com/nadzzz/scriptvoice/internal/emotion"
	"github.com/nadzzz/scriptvoice/internal/synth"
)

func wavBody(t *testing.T) []byte {
	t.Helper()
	data, err := wav.EncodeBytes(&audio.Buffer{Samples: []float32{0, 0.5, -0.5}, SampleRate: 22050, Channels: 1})
	if err != nil {
		t.Fatalf("EncodeBytes failed: %v", err)
	}
	return data
}

func hero() *character.Profile {
	return &character.Profile{ID: "hero", VoiceReference: "voices/hero.wav", SpeechRate: 1.0, Volume: 1.0}
}

func TestBuildRequestModes(t *testing.T) {
	r := emotion.NewResolver(emotion.DefaultOptions())
	defaults := emotion.Defaults{Emotion: "calm", Intensity: 0.5}

	vec := buildRequest(synth.Request{Text: "x", Profile: hero(), Emotion: r.Resolve(emotion.Numeric("angry", 0.95), emotion.Dialogue, defaults)})
	if len(vec.EmotionVector) != 8 || vec.EmotionVector[1] != 1.0 || vec.EmotionAlpha != 1.0 || vec.UseEmotionText {
		t.Errorf("Unexpected vector request: %+v", vec)
	}

	desc := buildRequest(synth.Request{Text: "x", Profile: hero(), Emotion: r.Resolve(emotion.Descriptive("excited", "very excited"), emotion.Narration, defaults)})
	if !desc.UseEmotionText || desc.EmotionText != "excited: very excited" || desc.EmotionVector != nil {
		t.Errorf("Unexpected descriptive request: %+v", desc)
	}

	bypass := buildRequest(synth.Request{Text: "x", Profile: hero(), SpeechRate: 1.5, Emotion: r.Resolve(emotion.Numeric("calm", 0.1), emotion.Narration, defaults)})
	if bypass.EmotionVector != nil || bypass.EmotionAlpha != 0 || bypass.UseEmotionText {
		t.Errorf("Expected no emotion fields in bypass mode: %+v", bypass)
	}
	if bypass.UseSpeed != 1 {
		t.Errorf("Expected fast speed for rate 1.5, got %d", bypass.UseSpeed)
	}
}

func TestSynthesize(t *testing.T) {
	body := wavBody(t)
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/synthesize" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	s := New(config.IndexTTSConfig{Endpoint: srv.URL + "/"})
	res := emotion.NewResolver(emotion.DefaultOptions()).Resolve(emotion.Numeric("happy", 0.8), emotion.Dialogue, emotion.Defaults{})
	buf, err := s.Synthesize(context.Background(), synth.Request{Text: "Hi there!", Profile: hero(), Emotion: res, Volume: 1})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if buf.SampleRate != 22050 || buf.Frames() != 3 {
		t.Errorf("Expected 3 frames at 22050 Hz, got %d at %d", buf.Frames(), buf.SampleRate)
	}
	if got["spk_audio_prompt"] != "voices/hero.wav" || got["text"] != "Hi there!" {
		t.Errorf("Unexpected request body: %v", got)
	}
	vec, _ := got["emo_vector"].([]any)
	if len(vec) != 8 {
		t.Fatalf("Expected 8-dimension emo_vector, got %v", got["emo_vector"])
	}
	if v := vec[0].(float64); v < 0.959 || v > 0.961 {
		t.Errorf("Expected happy=0.96, got %v", v)
	}
}

func TestSynthesizeStatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusServiceUnavailable, true},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadRequest, false},
		{http.StatusUnprocessableEntity, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			}))
			defer srv.Close()

			_, err := New(config.IndexTTSConfig{Endpoint: srv.URL}).Synthesize(context.Background(), synth.Request{Text: "x", Profile: hero()})
			if err == nil {
				t.Fatal("Expected error")
			}
			if synth.IsTransient(err) != tt.transient {
				t.Errorf("Expected transient=%v, got %v", tt.transient, err)
			}
		})
	}
}

func TestSynthesizeRejectsMissingVoice(t *testing.T) {
	_, err := New(config.IndexTTSConfig{Endpoint: "http://127.0.0.1:1"}).Synthesize(context.Background(), synth.Request{Text: "x", Profile: &character.Profile{ID: "x"}})
	if err == nil || synth.IsTransient(err) {
		t.Errorf("Expected fatal error, got %v", err)
	}
}

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if err := New(config.IndexTTSConfig{Endpoint: srv.URL}).Probe(context.Background()); err != nil {
		t.Errorf("Probe failed: %v", err)
	}
}
