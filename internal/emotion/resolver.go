package emotion

// Mode tells the synthesis layer how to apply a resolved emotion.
type Mode int

const (
	// ModeVector sends an emotion vector.
	ModeVector Mode = iota
	// ModeDescriptive sends descriptive text for the engine to map.
	ModeDescriptive
	// ModeBypass skips emotion processing and requests pure voice cloning.
	ModeBypass
)

func (m Mode) String() string {
	switch m {
	case ModeDescriptive:
		return "descriptive"
	case ModeBypass:
		return "bypass"
	default:
		return "vector"
	}
}

// Payload is a descriptive emotion forwarded to the engine unresolved.
type Payload struct {
	Name string
	Text string
}

// EngineText renders the payload the way emotion-text engines expect it.
func (p Payload) EngineText() string {
	if p.Name == "" {
		return p.Text
	}
	return p.Name + ": " + p.Text
}

// Defaults are the per-character fallbacks used when a tag is absent or invalid.
type Defaults struct {
	Emotion   string
	Intensity float64
}

// Resolution is the outcome of resolving one segment's emotion.
type Resolution struct {
	Mode Mode

	// Emotion is the canonical name applied in ModeVector, or the tag name in
	// ModeDescriptive.
	Emotion string
	Vector  Vector
	Payload Payload

	// Alpha is the effective intensity after role scaling, within [0, 1].
	Alpha float64

	// Warning is set when an unrecognized emotion name was replaced by the
	// character default.
	Warning error
}

// Options tunes resolution.
type Options struct {
	DialogueScale    float64
	NarrationScale   float64
	BypassThreshold  float64
	DescriptiveAlpha float64
}

// DefaultOptions returns the standard scaling rules.
func DefaultOptions() Options {
	return Options{
		DialogueScale:    1.2,
		NarrationScale:   0.8,
		BypassThreshold:  0.1,
		DescriptiveAlpha: 0.8,
	}
}

// Resolver applies the emotion rules. It holds no mutable state.
type Resolver struct {
	opts Options
}

// NewResolver creates a resolver.
func NewResolver(opts Options) *Resolver {
	return &Resolver{opts: opts}
}

// Resolve turns a tag into a resolution for a segment of the given role.
//
// Base intensity comes from the tag (clamped) or from the defaults; the role
// scale is applied afterwards and the result clamped again. An effective alpha
// at or below the bypass threshold yields ModeBypass.
func (r *Resolver) Resolve(tag Tag, role Role, d Defaults) Resolution {
	var res Resolution
	var base float64

	switch tag.Kind {
	case KindDescriptive:
		res.Mode = ModeDescriptive
		res.Emotion = tag.Name
		res.Payload = Payload{Name: tag.Name, Text: tag.Text}
		base = r.opts.DescriptiveAlpha

	case KindNumeric:
		res.Mode = ModeVector
		base = d.Intensity
		if tag.HasAlpha {
			base = tag.Alpha
		}
		name, ok := Canonical(tag.Name)
		if !ok {
			res.Warning = &InvalidEmotionError{Name: tag.Name}
			name = defaultEmotion(d.Emotion)
		}
		res.Emotion = name

	default:
		res.Mode = ModeVector
		res.Emotion = defaultEmotion(d.Emotion)
		base = d.Intensity
		if _, ok := Canonical(d.Emotion); !ok && d.Emotion != "" {
			res.Warning = &InvalidEmotionError{Name: d.Emotion}
		}
	}

	// Upstream clamping is not trusted here.
	res.Alpha = Clamp01(Clamp01(base) * r.scale(role))

	if res.Alpha <= r.opts.BypassThreshold {
		res.Mode = ModeBypass
		res.Payload = Payload{}
		return res
	}

	if res.Mode == ModeVector {
		// Canonical names always index.
		res.Vector, _ = NewVector(res.Emotion, res.Alpha)
	}
	return res
}

func (r *Resolver) scale(role Role) float64 {
	if role == Narration {
		return r.opts.NarrationScale
	}
	return r.opts.DialogueScale
}

func defaultEmotion(name string) string {
	if c, ok := Canonical(name); ok {
		return c
	}
	return canonicalNames[Calm]
}
