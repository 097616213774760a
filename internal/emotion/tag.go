package emotion

import "fmt"

// Kind discriminates the forms an emotion tag can take.
type Kind int

const (
	// KindDefault means the script carried no emotion annotation.
	KindDefault Kind = iota
	// KindNumeric is a named emotion with an optional numeric alpha.
	KindNumeric
	// KindDescriptive is a named emotion with free-form descriptive text.
	KindDescriptive
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindDescriptive:
		return "descriptive"
	default:
		return "default"
	}
}

// Tag is the emotion annotation of a segment, decided once at parse time.
// Build it with Default, Named, Numeric or Descriptive.
type Tag struct {
	Kind Kind
	Name string

	// Alpha is the raw intensity from the script, unclamped. Only meaningful
	// when HasAlpha is set.
	Alpha    float64
	HasAlpha bool

	// Text is the verbatim description for KindDescriptive.
	Text string
}

// Default returns the tag for an unannotated segment.
func Default() Tag { return Tag{Kind: KindDefault} }

// Named returns a tag naming an emotion without an explicit intensity.
func Named(name string) Tag { return Tag{Kind: KindNumeric, Name: name} }

// Numeric returns a tag naming an emotion at intensity alpha.
func Numeric(name string, alpha float64) Tag {
	return Tag{Kind: KindNumeric, Name: name, Alpha: alpha, HasAlpha: true}
}

// Descriptive returns a tag carrying free-form emotion text.
func Descriptive(name, text string) Tag {
	return Tag{Kind: KindDescriptive, Name: name, Text: text}
}

func (t Tag) String() string {
	switch t.Kind {
	case KindNumeric:
		if t.HasAlpha {
			return fmt.Sprintf("%s:%g", t.Name, t.Alpha)
		}
		return t.Name
	case KindDescriptive:
		return t.Name + ":" + t.Text
	default:
		return "default"
	}
}

// Role classifies a segment for intensity scaling.
type Role int

const (
	Dialogue Role = iota
	Narration
)

func (r Role) String() string {
	if r == Narration {
		return "narration"
	}
	return "dialogue"
}
