package script

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/nadzzz/scriptvoice/internal/emotion"
)

// DefaultNarratorID is the reserved character id for narration.
const DefaultNarratorID = "narrator"

const markerOpen = "{["

var (
	// markerPattern matches a complete prefix anchored at "{[":
	// {[id]} or {[id]:[clause]}.
	markerPattern = regexp.MustCompile(`^\{\[([^\[\]{}]*)\](?::\[([^\[\]{}]*)\])?\}`)
	idPattern     = regexp.MustCompile(`^[\p{L}\p{N}_-]+$`)
)

// Lookup is the registry view the parser validates against.
type Lookup interface {
	Has(id string) bool
}

// ParserOptions configures a Parser.
type ParserOptions struct {
	// NarratorID is the character id classified as narration. Defaults to
	// DefaultNarratorID.
	NarratorID string

	// FallbackCharacter, when set, replaces unknown character ids instead of
	// failing the parse. It must itself be registered.
	FallbackCharacter string
}

// Parser turns raw script text into ordered segments. It is stateless and
// safe for concurrent use.
type Parser struct {
	narrator string
	fallback string
}

// NewParser creates a parser.
func NewParser(opts ParserOptions) *Parser {
	narrator := opts.NarratorID
	if narrator == "" {
		narrator = DefaultNarratorID
	}
	return &Parser{narrator: narrator, fallback: opts.FallbackCharacter}
}

// NarratorID returns the reserved narration id.
func (p *Parser) NarratorID() string { return p.narrator }

type marker struct {
	start, end int
	id         string
	tag        emotion.Tag
}

// Parse compiles raw into segments ordered by appearance. Whitespace-only
// spans are dropped. Text before the first prefix is attributed to the
// narrator.
func (p *Parser) Parse(raw string, reg Lookup) ([]Segment, error) {
	markers, err := p.scan(raw)
	if err != nil {
		return nil, err
	}

	var segments []Segment
	emit := func(offset int, id string, tag emotion.Tag, text string) error {
		resolved, err := p.resolveID(raw, offset, id, reg)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil
		}
		segments = append(segments, Segment{
			Key:         Key{Index: len(segments)},
			CharacterID: resolved,
			Role:        p.role(resolved),
			Emotion:     tag,
			Text:        text,
			Offset:      offset,
		})
		return nil
	}

	leadEnd := len(raw)
	if len(markers) > 0 {
		leadEnd = markers[0].start
	}
	if lead := raw[:leadEnd]; strings.TrimSpace(lead) != "" {
		if err := emit(0, p.narrator, emotion.Default(), lead); err != nil {
			return nil, err
		}
	}

	for i, m := range markers {
		textEnd := len(raw)
		if i+1 < len(markers) {
			textEnd = markers[i+1].start
		}
		if err := emit(m.start, m.id, m.tag, raw[m.end:textEnd]); err != nil {
			return nil, err
		}
	}
	return segments, nil
}

// scan locates and decodes every prefix in raw.
func (p *Parser) scan(raw string) ([]marker, error) {
	var markers []marker
	pos := 0
	for {
		rel := strings.Index(raw[pos:], markerOpen)
		if rel < 0 {
			return markers, nil
		}
		start := pos + rel
		m, err := decodeMarker(raw, start)
		if err != nil {
			return nil, err
		}
		markers = append(markers, m)
		pos = m.end
	}
}

func decodeMarker(raw string, start int) (marker, error) {
	loc := markerPattern.FindStringSubmatchIndex(raw[start:])
	if loc == nil {
		msg := "malformed character prefix"
		if !strings.Contains(raw[start:], "}") {
			msg = "unterminated character prefix"
		}
		return marker{}, &ParseError{Pos: positionOf(raw, start), Msg: msg}
	}

	id := strings.TrimSpace(raw[start+loc[2] : start+loc[3]])
	if id == "" {
		return marker{}, &ParseError{Pos: positionOf(raw, start), Msg: "empty character id"}
	}
	if !idPattern.MatchString(id) {
		return marker{}, &ParseError{Pos: positionOf(raw, start), Msg: "invalid character id " + strconv.Quote(id)}
	}

	tag := emotion.Default()
	if loc[4] >= 0 {
		var err error
		tag, err = decodeClause(raw[start+loc[4] : start+loc[5]])
		if err != nil {
			return marker{}, &ParseError{Pos: positionOf(raw, start+loc[4]), Msg: err.Error()}
		}
	}

	return marker{start: start, end: start + loc[1], id: id, tag: tag}, nil
}

// decodeClause reads "name" or "name:value". A numeric value is an alpha; any
// other value is descriptive text kept verbatim.
func decodeClause(clause string) (emotion.Tag, error) {
	clause = strings.TrimSpace(clause)
	if clause == "" {
		return emotion.Default(), nil
	}

	name, value, hasValue := strings.Cut(clause, ":")
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)
	if name == "" {
		return emotion.Tag{}, errors.New("empty emotion name")
	}
	if !hasValue || value == "" {
		return emotion.Named(name), nil
	}
	if alpha, err := strconv.ParseFloat(value, 64); err == nil && !math.IsNaN(alpha) && !math.IsInf(alpha, 0) {
		return emotion.Numeric(name, alpha), nil
	}
	return emotion.Descriptive(name, value), nil
}

func (p *Parser) resolveID(raw string, offset int, id string, reg Lookup) (string, error) {
	if reg.Has(id) {
		return id, nil
	}
	if p.fallback != "" && reg.Has(p.fallback) {
		return p.fallback, nil
	}
	return "", &UnknownCharacterError{ID: id, Pos: positionOf(raw, offset)}
}

func (p *Parser) role(id string) emotion.Role {
	if id == p.narrator {
		return emotion.Narration
	}
	return emotion.Dialogue
}
