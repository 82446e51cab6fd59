package chat

import (
	"errors"
	"fmt"
	"math"
)

// DefaultTemperature matches the slider default of the research front ends.
const DefaultTemperature = 0.2

var ErrTemperatureRange = errors.New("temperature must be within [0.0, 1.0]")

// SessionConfig is the operator-editable configuration a chat session is built from.
// Domain and Dataset are empty when nothing has been selected.
type SessionConfig struct {
	RoleDefinition string  `json:"roleDefinition"`
	Temperature    float64 `json:"temperature"`
	Domain         string  `json:"domain,omitempty"`
	Dataset        string  `json:"dataset,omitempty"`
}

// NewSessionConfig returns the process-start defaults for the given role text.
func NewSessionConfig(roleDefinition string) SessionConfig {
	return SessionConfig{
		RoleDefinition: roleDefinition,
		Temperature:    DefaultTemperature,
	}
}

// ValidateTemperature rejects values outside the supported range, NaN and infinities
// included.
func ValidateTemperature(value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 || value > 1 {
		return fmt.Errorf("%w: got %v", ErrTemperatureRange, value)
	}
	return nil
}
