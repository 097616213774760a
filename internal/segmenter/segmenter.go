// Package segmenter splits over-long script segments into chunks a synthesis
// engine can handle in one call.
//
// Lengths are measured in characters (runes), never bytes, and a split never
// falls inside a multi-byte character. Split points are chosen in this order:
// the last sentence end within the window, the last whitespace within the
// window, and finally a hard cut at the window edge.
package segmenter

import (
	"strings"
	"unicode"

	"github.com/nadzzz/scriptvoice/internal/script"
)

// DefaultMaxChars is the chunk size used when none is configured.
const DefaultMaxChars = 200

// Segmenter splits segments longer than a character budget.
type Segmenter struct {
	maxChars int
}

// New creates a segmenter. Non-positive maxChars selects DefaultMaxChars.
func New(maxChars int) *Segmenter {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Segmenter{maxChars: maxChars}
}

// MaxChars returns the character budget.
func (s *Segmenter) MaxChars() int { return s.maxChars }

// Segment returns segs with every over-long segment replaced by its chunks.
// Chunks keep the parent's character, role and emotion tag; their keys share
// the parent's index and number the chunks through Sub. Segments within the
// budget are returned unchanged.
func (s *Segmenter) Segment(segs []script.Segment) []script.Segment {
	out := make([]script.Segment, 0, len(segs))
	for _, seg := range segs {
		chunks := s.split(seg.Text)
		if len(chunks) <= 1 {
			out = append(out, seg)
			continue
		}
		for i, text := range chunks {
			child := seg
			child.Key = script.Key{Index: seg.Key.Index, Sub: i}
			child.Text = text
			out = append(out, child)
		}
	}
	return out
}

func (s *Segmenter) split(text string) []string {
	runes := []rune(text)
	if len(runes) <= s.maxChars {
		return []string{text}
	}

	var chunks []string
	for len(runes) > s.maxChars {
		cut, skip := sentenceCut(runes, s.maxChars), 0
		if cut <= 0 {
			cut = wordCut(runes, s.maxChars)
			skip = 1
		}
		if cut <= 0 {
			cut, skip = s.maxChars, 0
		}

		if chunk := strings.TrimSpace(string(runes[:cut])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		runes = trimLeftSpace(runes[cut+skip:])
	}
	if rest := strings.TrimSpace(string(runes)); rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}

// sentenceCut returns the largest cut <= limit that ends a sentence, or 0.
// A cut may absorb closing quotes and brackets after the punctuation. ASCII
// terminators only count when followed by whitespace or end of text.
func sentenceCut(runes []rune, limit int) int {
	for end := limit; end > 0; end-- {
		i := end - 1
		for i > 0 && isCloser(runes[i]) {
			i--
		}
		if !isTerminal(runes[i]) {
			continue
		}
		if isWideTerminal(runes[i]) || end == len(runes) || unicode.IsSpace(runes[end]) {
			return end
		}
	}
	return 0
}

// wordCut returns the index of the last whitespace rune at or before limit,
// or 0 if there is none past the first rune.
func wordCut(runes []rune, limit int) int {
	for i := limit; i > 0; i-- {
		if i < len(runes) && unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return 0
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return isWideTerminal(r)
}

func isWideTerminal(r rune) bool {
	switch r {
	case '。', '！', '？', '；':
		return true
	}
	return false
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’', '」', '』', '）':
		return true
	}
	return false
}

func trimLeftSpace(runes []rune) []rune {
	for len(runes) > 0 && unicode.IsSpace(runes[0]) {
		runes = runes[1:]
	}
	return runes
}
