package script

import (
	"errors"
	"testing"

	"github.com/nadzzz/scriptvoice/internal/emotion"
)

type registry map[string]bool

func (r registry) Has(id string) bool { return r[id] }

var cast = registry{"narrator": true, "hero": true, "villain": true, "艾琳": true}

func TestParseEndToEndScenario(t *testing.T) {
	p := NewParser(ParserOptions{})
	segs, err := p.Parse("{[narrator]:[calm:0.3]}Once upon a time.\n{[hero]:[happy:0.8]}Hi there!", cast)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("Expected 2 segments, got %d", len(segs))
	}

	if segs[0].CharacterID != "narrator" || segs[0].Role != emotion.Narration || segs[0].Text != "Once upon a time." {
		t.Errorf("Unexpected first segment: %+v", segs[0])
	}
	if segs[0].Emotion != emotion.Numeric("calm", 0.3) {
		t.Errorf("Unexpected first tag: %v", segs[0].Emotion)
	}
	if segs[1].CharacterID != "hero" || segs[1].Role != emotion.Dialogue || segs[1].Text != "Hi there!" {
		t.Errorf("Unexpected second segment: %+v", segs[1])
	}
	if segs[1].Emotion != emotion.Numeric("happy", 0.8) {
		t.Errorf("Unexpected second tag: %v", segs[1].Emotion)
	}
}

func TestParseOrderIndices(t *testing.T) {
	src := "Intro text. {[hero]}One {[villain]:[angry]}Two\n{[hero]:[sad:0.2]}   \n{[narrator]}Three {[hero]:[happy:2]}Four"
	segs, err := NewParser(ParserOptions{}).Parse(src, cast)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	wantText := []string{"Intro text.", "One", "Two", "Three", "Four"}
	if len(segs) != len(wantText) {
		t.Fatalf("Expected %d segments, got %d", len(wantText), len(segs))
	}
	for i, s := range segs {
		if s.Key != (Key{Index: i}) {
			t.Errorf("Segment %d: expected key %d.0, got %s", i, i, s.Key)
		}
		if s.Text != wantText[i] {
			t.Errorf("Segment %d: expected %q, got %q", i, wantText[i], s.Text)
		}
		if i > 0 && segs[i-1].Offset >= s.Offset {
			t.Errorf("Segment %d: offsets not increasing", i)
		}
	}
	if segs[0].CharacterID != "narrator" || segs[0].Emotion.Kind != emotion.KindDefault {
		t.Errorf("Expected leading text to be default narration, got %+v", segs[0])
	}
}

func TestParseClauses(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		expected emotion.Tag
	}{
		{"no annotation", "{[hero]}Hi", emotion.Default()},
		{"empty clause", "{[hero]:[]}Hi", emotion.Default()},
		{"name only", "{[hero]:[happy]}Hi", emotion.Named("happy")},
		{"numeric", "{[hero]:[angry:0.95]}Hi", emotion.Numeric("angry", 0.95)},
		{"numeric out of range kept raw", "{[hero]:[angry:3]}Hi", emotion.Numeric("angry", 3)},
		{"descriptive", "{[hero]:[excited:very excited and enthusiastic]}Hi", emotion.Descriptive("excited", "very excited and enthusiastic")},
		{"descriptive with colon", "{[hero]:[calm:calm: almost asleep]}Hi", emotion.Descriptive("calm", "calm: almost asleep")},
		{"unicode", "{[艾琳]:[高兴:0.5]}你好", emotion.Numeric("高兴", 0.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs, err := NewParser(ParserOptions{}).Parse(tt.src, cast)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if len(segs) != 1 {
				t.Fatalf("Expected 1 segment, got %d", len(segs))
			}
			if segs[0].Emotion != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, segs[0].Emotion)
			}
		})
	}
}

func TestParseUnknownCharacter(t *testing.T) {
	_, err := NewParser(ParserOptions{}).Parse("{[hero]}Hello\n{[ghost]:[calm]}Boo", cast)

	var unknown *UnknownCharacterError
	if !errors.As(err, &unknown) {
		t.Fatalf("Expected UnknownCharacterError, got %v", err)
	}
	if unknown.ID != "ghost" {
		t.Errorf("Expected ghost, got %q", unknown.ID)
	}
	if unknown.Pos.Line != 2 || unknown.Pos.Column != 1 {
		t.Errorf("Expected line 2 column 1, got %s", unknown.Pos)
	}
}

func TestParseUnknownCharacterFallback(t *testing.T) {
	p := NewParser(ParserOptions{FallbackCharacter: "narrator"})
	segs, err := p.Parse("{[ghost]:[calm]}Boo", cast)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if segs[0].CharacterID != "narrator" || segs[0].Role != emotion.Narration {
		t.Errorf("Expected fallback to narrator, got %+v", segs[0])
	}
}

func TestParseLeadingTextNeedsNarrator(t *testing.T) {
	_, err := NewParser(ParserOptions{}).Parse("plain text", registry{"hero": true})
	var unknown *UnknownCharacterError
	if !errors.As(err, &unknown) || unknown.ID != "narrator" {
		t.Errorf("Expected unknown narrator, got %v", err)
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		line   int
		column int
	}{
		{"unterminated", "{[hero]:[happy:0.5]}ok\n{[hero", 2, 1},
		{"empty id", "text {[]:[calm]}Hi", 1, 6},
		{"blank id", "{[  ]}Hi", 1, 1},
		{"invalid id", "{[bad id]}Hi", 1, 1},
		{"mismatched brackets", "{[narrator]:[sad:melancholy}]Those were the days", 1, 1},
		{"empty emotion name", "{[hero]:[:0.5]}Hi", 1, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(ParserOptions{}).Parse(tt.src, cast)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("Expected ParseError, got %v", err)
			}
			if perr.Pos.Line != tt.line || perr.Pos.Column != tt.column {
				t.Errorf("Expected %d:%d, got %s", tt.line, tt.column, perr.Pos)
			}
		})
	}
}

func TestParseEmptyInput(t *testing.T) {
	segs, err := NewParser(ParserOptions{}).Parse("   \n\t", cast)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(segs) != 0 {
		t.Errorf("Expected no segments, got %d", len(segs))
	}
}

func TestParseCustomNarrator(t *testing.T) {
	segs, err := NewParser(ParserOptions{NarratorID: "villain"}).Parse("{[villain]}Muahaha {[narrator]}said he.", cast)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if segs[0].Role != emotion.Narration || segs[1].Role != emotion.Dialogue {
		t.Errorf("Unexpected roles: %s, %s", segs[0].Role, segs[1].Role)
	}
}
