// Package character holds the validated voice profiles of the characters
// appearing in a script.
//
// A Registry is built once per run and never mutated afterwards. Downstream
// structures refer to characters by id and look profiles up here.
package character

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Documented parameter ranges. Out-of-range values are clamped with a warning.
var (
	PitchRange      = Range{Min: -2.0, Max: 2.0}
	SpeechRateRange = Range{Min: 0.1, Max: 2.0}
	VolumeRange     = Range{Min: 0.1, Max: 2.0}
	IntensityRange  = Range{Min: 0.0, Max: 1.0}
)

// Defaults applied when a profile omits a field.
const (
	DefaultEmotion    = "calm"
	DefaultIntensity  = 0.5
	DefaultSpeechRate = 1.0
	DefaultPitch      = 0.0
	DefaultVolume     = 1.0
)

// idPattern matches the character ids the script grammar can express.
var idPattern = regexp.MustCompile(`^[\p{L}\p{N}_-]+$`)

// Range is an inclusive numeric range.
type Range struct {
	Min, Max float64
}

func (r Range) clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Profile is the immutable voice configuration of one character.
type Profile struct {
	ID               string
	Name             string
	VoiceReference   string
	Pitch            float64
	SpeechRate       float64
	Volume           float64
	EmotionIntensity float64
	DefaultEmotion   string
	Description      string
}

// ProfileConfig is the on-disk shape of a profile. Numeric fields are
// pointers so an explicit zero can be told apart from an omitted value.
// VoiceFile is accepted as a legacy spelling of VoiceReference.
type ProfileConfig struct {
	Name             string   `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	VoiceReference   string   `json:"voice_reference,omitempty" yaml:"voice_reference,omitempty" mapstructure:"voice_reference"`
	VoiceFile        string   `json:"voice_file,omitempty" yaml:"voice_file,omitempty" mapstructure:"voice_file"`
	Pitch            *float64 `json:"pitch,omitempty" yaml:"pitch,omitempty" mapstructure:"pitch"`
	SpeechRate       *float64 `json:"speech_rate,omitempty" yaml:"speech_rate,omitempty" mapstructure:"speech_rate"`
	Volume           *float64 `json:"volume,omitempty" yaml:"volume,omitempty" mapstructure:"volume"`
	EmotionIntensity *float64 `json:"emotion_intensity,omitempty" yaml:"emotion_intensity,omitempty" mapstructure:"emotion_intensity"`
	DefaultEmotion   string   `json:"default_emotion,omitempty" yaml:"default_emotion,omitempty" mapstructure:"default_emotion"`
	Description      string   `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
}

// Warning records a parameter that was clamped into range during Load.
type Warning struct {
	CharacterID string
	Field       string
	Value       float64
	Clamped     float64
}

func (w Warning) String() string {
	return fmt.Sprintf("character %q: %s %g out of range, clamped to %g", w.CharacterID, w.Field, w.Value, w.Clamped)
}

// Registry is a read-only set of profiles keyed by character id.
type Registry struct {
	profiles map[string]*Profile
}

// Load validates profile configs and builds a registry.
func Load(cfgs map[string]ProfileConfig) (*Registry, []Warning, error) {
	if len(cfgs) == 0 {
		return nil, nil, &ConfigError{Reason: "no characters defined"}
	}

	ids := make([]string, 0, len(cfgs))
	for id := range cfgs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	reg := &Registry{profiles: make(map[string]*Profile, len(cfgs))}
	var warnings []Warning

	for _, id := range ids {
		p, w, err := buildProfile(id, cfgs[id])
		if err != nil {
			return nil, nil, err
		}
		warnings = append(warnings, w...)
		reg.profiles[id] = p
	}
	return reg, warnings, nil
}

func buildProfile(id string, c ProfileConfig) (*Profile, []Warning, error) {
	if !idPattern.MatchString(id) {
		return nil, nil, &ConfigError{CharacterID: id, Field: "id", Reason: "must contain only letters, digits, '_' or '-'"}
	}

	voice := strings.TrimSpace(c.VoiceReference)
	if voice == "" {
		voice = strings.TrimSpace(c.VoiceFile)
	}
	if err := validateVoiceReference(voice); err != nil {
		return nil, nil, &ConfigError{CharacterID: id, Field: "voice_reference", Reason: err.Error()}
	}

	p := &Profile{
		ID:             id,
		Name:           c.Name,
		VoiceReference: voice,
		DefaultEmotion: strings.TrimSpace(c.DefaultEmotion),
		Description:    c.Description,
	}
	if p.Name == "" {
		p.Name = id
	}
	if p.DefaultEmotion == "" {
		p.DefaultEmotion = DefaultEmotion
	}

	var warnings []Warning
	field := func(name string, v *float64, def float64, r Range) float64 {
		if v == nil {
			return def
		}
		clamped := r.clamp(*v)
		if clamped != *v {
			warnings = append(warnings, Warning{CharacterID: id, Field: name, Value: *v, Clamped: clamped})
		}
		return clamped
	}
	p.Pitch = field("pitch", c.Pitch, DefaultPitch, PitchRange)
	p.SpeechRate = field("speech_rate", c.SpeechRate, DefaultSpeechRate, SpeechRateRange)
	p.Volume = field("volume", c.Volume, DefaultVolume, VolumeRange)
	p.EmotionIntensity = field("emotion_intensity", c.EmotionIntensity, DefaultIntensity, IntensityRange)

	return p, warnings, nil
}

// validateVoiceReference checks the reference is a usable path or URL.
// Existence is left to the caller.
func validateVoiceReference(ref string) error {
	if ref == "" {
		return fmt.Errorf("voice reference is required")
	}
	for _, r := range ref {
		if unicode.IsControl(r) {
			return fmt.Errorf("voice reference contains control characters")
		}
	}
	if strings.HasSuffix(ref, "/") {
		return fmt.Errorf("voice reference %q names a directory", ref)
	}
	return nil
}

// Get returns the profile for id.
func (r *Registry) Get(id string) (*Profile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return p, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.profiles[id]
	return ok
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered characters.
func (r *Registry) Len() int { return len(r.profiles) }
