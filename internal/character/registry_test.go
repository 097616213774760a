package character

import (
	"errors"
	"testing"
)

func f(v float64) *float64 { return &v }

func TestLoadDefaults(t *testing.T) {
	reg, warnings, err := Load(map[string]ProfileConfig{
		"hero": {VoiceReference: "voices/hero.wav"},
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", warnings)
	}

	p, err := reg.Get("hero")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if p.Name != "hero" {
		t.Errorf("Expected name to default to id, got %q", p.Name)
	}
	if p.DefaultEmotion != DefaultEmotion || p.EmotionIntensity != DefaultIntensity {
		t.Errorf("Unexpected emotion defaults: %s %v", p.DefaultEmotion, p.EmotionIntensity)
	}
	if p.SpeechRate != 1.0 || p.Volume != 1.0 || p.Pitch != 0 {
		t.Errorf("Unexpected prosody defaults: rate=%v volume=%v pitch=%v", p.SpeechRate, p.Volume, p.Pitch)
	}
}

func TestLoadClampsWithWarnings(t *testing.T) {
	reg, warnings, err := Load(map[string]ProfileConfig{
		"villain": {
			VoiceFile:        "voices/villain.wav",
			Pitch:            f(-5),
			SpeechRate:       f(3),
			Volume:           f(0),
			EmotionIntensity: f(1.5),
		},
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(warnings) != 4 {
		t.Fatalf("Expected 4 warnings, got %d: %v", len(warnings), warnings)
	}

	p, _ := reg.Get("villain")
	if p.VoiceReference != "voices/villain.wav" {
		t.Errorf("Expected voice_file to be accepted, got %q", p.VoiceReference)
	}
	if p.Pitch != -2 || p.SpeechRate != 2 || p.Volume != 0.1 || p.EmotionIntensity != 1 {
		t.Errorf("Unexpected clamped values: %+v", p)
	}
}

func TestLoadExplicitZeroKept(t *testing.T) {
	reg, warnings, err := Load(map[string]ProfileConfig{
		"narrator": {VoiceReference: "n.wav", Pitch: f(0), EmotionIntensity: f(0)},
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", warnings)
	}
	p, _ := reg.Get("narrator")
	if p.EmotionIntensity != 0 {
		t.Errorf("Expected explicit zero intensity, got %v", p.EmotionIntensity)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		cfgs map[string]ProfileConfig
	}{
		{"empty", nil},
		{"missing voice", map[string]ProfileConfig{"hero": {}}},
		{"bad id", map[string]ProfileConfig{"bad id": {VoiceReference: "a.wav"}}},
		{"control chars", map[string]ProfileConfig{"hero": {VoiceReference: "a\n.wav"}}},
		{"directory", map[string]ProfileConfig{"hero": {VoiceReference: "voices/"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Load(tt.cfgs)
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Errorf("Expected ConfigError, got %v", err)
			}
		})
	}
}

func TestGetNotFound(t *testing.T) {
	reg, _, err := Load(map[string]ProfileConfig{"hero": {VoiceReference: "h.wav"}})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	_, err = reg.Get("ghost")
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.ID != "ghost" {
		t.Errorf("Expected NotFoundError for ghost, got %v", err)
	}
	if reg.Has("ghost") || !reg.Has("hero") {
		t.Error("Has returned unexpected results")
	}
	if ids := reg.IDs(); len(ids) != 1 || ids[0] != "hero" {
		t.Errorf("Unexpected ids %v", ids)
	}
}
