// Package emotion resolves script emotion tags into the canonical emotion
// representation consumed by synthesis engines.
//
// Engines accept an 8-dimensional intensity vector whose component order is
// fixed. Every lookup from an emotion name to a vector index goes through
// Index, which is backed by the canonical name table below; nothing else in
// the module is allowed to assume a position.
package emotion

import (
	"fmt"
	"math"
	"strings"
)

// Component indices of a Vector, in canonical order.
const (
	Happy = iota
	Angry
	Sad
	Afraid
	Disgusted
	Melancholic
	Surprised
	Calm

	// Dimensions is the number of components in a Vector.
	Dimensions
)

// canonicalNames is indexed by component index.
var canonicalNames = [Dimensions]string{
	Happy:       "happy",
	Angry:       "angry",
	Sad:         "sad",
	Afraid:      "afraid",
	Disgusted:   "disgusted",
	Melancholic: "melancholic",
	Surprised:   "surprised",
	Calm:        "calm",
}

// Vector is an emotion intensity vector in canonical order
// [happy, angry, sad, afraid, disgusted, melancholic, surprised, calm].
// Components are always within [0, 1].
type Vector [Dimensions]float64

// Names returns the canonical component names in vector order.
func Names() []string {
	out := make([]string, Dimensions)
	copy(out, canonicalNames[:])
	return out
}

// Index returns the vector index of an emotion name. Aliases are accepted.
func Index(name string) (int, bool) {
	canonical, ok := Canonical(name)
	if !ok {
		return 0, false
	}
	for i, n := range canonicalNames {
		if n == canonical {
			return i, true
		}
	}
	return 0, false
}

// NewVector builds a vector with the named component set to alpha (clamped)
// and every other component zero.
func NewVector(name string, alpha float64) (Vector, error) {
	var v Vector
	idx, ok := Index(name)
	if !ok {
		return v, &InvalidEmotionError{Name: name}
	}
	v[idx] = Clamp01(alpha)
	return v, nil
}

// Get returns the component for an emotion name, or 0 for unknown names.
func (v Vector) Get(name string) float64 {
	idx, ok := Index(name)
	if !ok {
		return 0
	}
	return v[idx]
}

// Slice returns the components as a slice, ready for JSON encoding.
func (v Vector) Slice() []float64 {
	out := make([]float64, Dimensions)
	copy(out, v[:])
	return out
}

// IsZero reports whether every component is zero.
func (v Vector) IsZero() bool {
	for _, c := range v {
		if c != 0 {
			return false
		}
	}
	return true
}

// String renders the non-zero components, e.g. "angry=1.00".
func (v Vector) String() string {
	var parts []string
	for i, c := range v {
		if c != 0 {
			parts = append(parts, fmt.Sprintf("%s=%.2f", canonicalNames[i], c))
		}
	}
	if len(parts) == 0 {
		return "neutral"
	}
	return strings.Join(parts, ",")
}

// Clamp01 limits x to [0, 1]. NaN maps to 0.
func Clamp01(x float64) float64 {
	switch {
	case math.IsNaN(x), x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
