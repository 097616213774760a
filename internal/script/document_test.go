package script

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDecodeDocumentFlatJSON(t *testing.T) {
	data := []byte(`{
	"characters": {
		"hero": {"voice_reference": "hero.wav", "emotion_intensity": 0.8}
	},
	"script": "{[hero]:[happy:0.8]}Hi there!"
}`)
	doc, err := DecodeDocument(data)
	if err != nil {
		t.Fatalf("DecodeDocument failed: %v", err)
	}
	if doc.Script != "{[hero]:[happy:0.8]}Hi there!" {
		t.Errorf("Unexpected script %q", doc.Script)
	}
	hero, ok := doc.Characters["hero"]
	if !ok || hero.VoiceReference != "hero.wav" || hero.EmotionIntensity == nil || *hero.EmotionIntensity != 0.8 {
		t.Errorf("Unexpected hero config: %+v", hero)
	}
}

func TestDecodeDocumentWorkflowShape(t *testing.T) {
	data := []byte(`{
		"output": {
			"character_config": {
				"characters": {
					"narrator": {"name": "Narrator", "voice_file": "audiobook_prompt.wav", "pitch": 0.0}
				}
			},
			"script_content": "{[narrator]:[calm:0.3]}In a cozy coffee shop."
		}
	}`)
	doc, err := DecodeDocument(data)
	if err != nil {
		t.Fatalf("DecodeDocument failed: %v", err)
	}
	n, ok := doc.Characters["narrator"]
	if !ok || n.VoiceFile != "audiobook_prompt.wav" || n.Pitch == nil || *n.Pitch != 0 {
		t.Errorf("Unexpected narrator config: %+v", n)
	}
	if doc.Script != "{[narrator]:[calm:0.3]}In a cozy coffee shop." {
		t.Errorf("Unexpected script %q", doc.Script)
	}
}

func TestLoadDocumentYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "story.yaml")
	content := `characters:
  narrator:
    voice_reference: narrator.wav
    speech_rate: 0.9
script: |
  {[narrator]}It was a dark night.
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	doc, err := LoadDocument(path)
	if err != nil {
		t.Fatalf("LoadDocument failed: %v", err)
	}
	if r := doc.Characters["narrator"].SpeechRate; r == nil || *r != 0.9 {
		t.Errorf("Expected speech_rate 0.9, got %v", r)
	}
	if doc.Script != "{[narrator]}It was a dark night.\n" {
		t.Errorf("Unexpected script %q", doc.Script)
	}
}

func TestDecodeDocumentErrors(t *testing.T) {
	if _, err := DecodeDocument([]byte(`{"output": {}}`)); err == nil {
		t.Error("Expected error for document without script")
	}
	if _, err := DecodeDocument([]byte(`{not json`)); err == nil {
		t.Error("Expected error for invalid json")
	}
	if _, err := LoadDocument(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}
}
