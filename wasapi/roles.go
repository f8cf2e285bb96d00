package wasapi

import "github.com/gen2brain/audiodev"

// Windows ERole values.
const (
	eConsole        = 0
	eMultimedia     = 1
	eCommunications = 2
)

// policyRoles returns the Windows roles assigned for role.
// The Sound control panel moves eConsole together with eMultimedia, so does the binding.
func policyRoles(role audiodev.Role) []uint32 {
	if role == audiodev.Communications {
		return []uint32{eCommunications}
	}

	return []uint32{eConsole, eMultimedia}
}

// deviceState converts a DEVICE_STATE_* value. The bit values are the same as audiodev.State.
func deviceState(state uint32) audiodev.State {
	return audiodev.State(state) & audiodev.StateAll
}
