package character

import "fmt"

// ConfigError reports an invalid character configuration.
type ConfigError struct {
	CharacterID string
	Field       string
	Reason      string
}

func (e *ConfigError) Error() string {
	switch {
	case e.CharacterID == "":
		return "character config: " + e.Reason
	case e.Field == "":
		return fmt.Sprintf("character %q: %s", e.CharacterID, e.Reason)
	default:
		return fmt.Sprintf("character %q: %s: %s", e.CharacterID, e.Field, e.Reason)
	}
}

// NotFoundError is returned by Registry.Get for unknown ids.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("character %q not found", e.ID)
}
