// Package script compiles annotated multi-speaker scripts into ordered
// segments.
//
// A script is plain text interleaved with character prefixes:
//
//	{[hero]:[happy:0.8]}Hi there!
//	{[narrator]:[calm:slow and quiet]}The door creaks.
//	{[villain]}No annotation means the character default.
//
// Each prefix opens a segment that runs to the next prefix or the end of input.
package script

import (
	"fmt"

	"github.com/nadzzz/scriptvoice/internal/emotion"
)

// Key orders segments. Index is assigned at parse time; Sub numbers the
// chunks produced when a segment is split.
type Key struct {
	Index int `json:"index"`
	Sub   int `json:"sub"`
}

// Less reports whether k sorts before o.
func (k Key) Less(o Key) bool {
	if k.Index != o.Index {
		return k.Index < o.Index
	}
	return k.Sub < o.Sub
}

func (k Key) String() string { return fmt.Sprintf("%d.%d", k.Index, k.Sub) }

// Segment is one contiguous span of script text attributed to one character
// with one emotion intent. Segments are values and are never mutated.
type Segment struct {
	Key         Key
	CharacterID string
	Role        emotion.Role
	Emotion     emotion.Tag
	Text        string

	// Offset is the byte offset of the segment's prefix in the source.
	Offset int
}
