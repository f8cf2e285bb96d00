// Package audiodev provides a directory of the enabled audio endpoints of the host, resolves the default endpoint for each data flow and usage role,
// and controls endpoint mute, volume and default assignment through a pluggable subsystem Binding.
package audiodev

import (
	"math"
	"strings"
	"time"
)

// Flow is the direction of audio for an endpoint.
type Flow int

const (
	// Playback is a render endpoint (speakers, headphones).
	Playback Flow = iota
	// Recording is a capture endpoint (microphones, line-in).
	Recording
	// FlowAll selects both flows when enumerating.
	FlowAll
)

// String returns the name of the flow.
func (f Flow) String() string {
	switch f {
	case Playback:
		return "Playback"
	case Recording:
		return "Recording"
	case FlowAll:
		return "All"
	}

	return "Unknown"
}

// Role is the usage context for which a default endpoint is chosen.
type Role int

const (
	// Multimedia is the role for general use.
	Multimedia Role = iota
	// Communications is the role for calls.
	Communications
)

// String returns the name of the role.
func (r Role) String() string {
	switch r {
	case Multimedia:
		return "Multimedia"
	case Communications:
		return "Communications"
	}

	return "Unknown"
}

// State is the device state reported by the subsystem.
// The values are bit flags so they can be combined into an enumeration mask.
type State uint32

const (
	StateActive     State = 1 << 0
	StateDisabled   State = 1 << 1
	StateNotPresent State = 1 << 2
	StateUnplugged  State = 1 << 3

	// StateAll matches every state.
	StateAll State = StateActive | StateDisabled | StateNotPresent | StateUnplugged
)

// String returns the name of a single state.
func (s State) String() string {
	switch s {
	case StateActive:
		return "Active"
	case StateDisabled:
		return "Disabled"
	case StateNotPresent:
		return "NotPresent"
	case StateUnplugged:
		return "Unplugged"
	}

	return "Unknown"
}

// Flows lists the two concrete flows in the order used for default lookups.
var Flows = [2]Flow{Playback, Recording}

// Roles lists the two roles in the order used for default lookups.
var Roles = [2]Role{Multimedia, Communications}

const (
	// MaxOrdinal is the largest ordinal accepted by ordinal lookups.
	MaxOrdinal = 42

	// DefaultMeterInterval is the poll interval used when streaming meter readings.
	DefaultMeterInterval = 100 * time.Millisecond

	// VolumeStep is the scalar step used when a binding cannot step volume natively.
	VolumeStep = float32(0.02)
)

// ScalarToPercent converts a 0.0-1.0 volume scalar to an integer percentage, rounding to nearest.
func ScalarToPercent(v float32) int {
	return int(math.Round(float64(v) * 100))
}

// PercentToScalar converts an integer percentage to a volume scalar.
func PercentToScalar(p int) float32 {
	return float32(p) / 100
}

// ParseFlow parses a flow name. Render and capture are accepted as aliases.
func ParseFlow(s string) (Flow, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "playback", "render":
		return Playback, nil
	case "recording", "capture":
		return Recording, nil
	}

	return 0, &InvalidArgumentError{Name: "flow", Value: s, Want: "playback or recording"}
}

// ParseRole parses a role name. Communication is accepted as an alias.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "multimedia":
		return Multimedia, nil
	case "communications", "communication":
		return Communications, nil
	}

	return 0, &InvalidArgumentError{Name: "role", Value: s, Want: "multimedia or communications"}
}
