package script

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nadzzz/scriptvoice/internal/character"
)

// Document is a self-contained render input: character profiles plus script.
type Document struct {
	Characters map[string]character.ProfileConfig `json:"characters" yaml:"characters"`
	Script     string                             `json:"script" yaml:"script"`
}

// workflowDocument is the shape emitted by script-writing workflows, where
// both parts are nested under "output".
type workflowDocument struct {
	Output struct {
		ScriptContent   string `json:"script_content" yaml:"script_content"`
		CharacterConfig struct {
			Characters map[string]character.ProfileConfig `json:"characters" yaml:"characters"`
		} `json:"character_config" yaml:"character_config"`
	} `json:"output" yaml:"output"`
}

// DecodeDocument decodes a JSON or YAML document in either the flat or the
// workflow shape.
func DecodeDocument(data []byte) (*Document, error) {
	unmarshal := yaml.Unmarshal
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		unmarshal = json.Unmarshal
	}

	var flat Document
	if err := unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	if flat.Script != "" || len(flat.Characters) > 0 {
		return &flat, nil
	}

	var wf workflowDocument
	if err := unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("decoding workflow document: %w", err)
	}
	if wf.Output.ScriptContent == "" {
		return nil, fmt.Errorf("document has neither script nor output.script_content")
	}
	return &Document{
		Characters: wf.Output.CharacterConfig.Characters,
		Script:     wf.Output.ScriptContent,
	}, nil
}

// LoadDocument reads and decodes a document file.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	return DecodeDocument(data)
}
