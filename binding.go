package audiodev

// RawEndpoint is one endpoint as enumerated by a Binding.
// Every accessor goes to the subsystem and can fail independently.
type RawEndpoint interface {
	ID() (string, error)
	Name() (string, error)
	Flow() (Flow, error)
	State() (State, error)
}

// Binding is the set of raw primitives of an audio subsystem.
// All calls are synchronous and may block. Errors are returned as reported by the subsystem,
// the caller wraps them into a SubsystemError.
type Binding interface {
	// Enumerate returns the endpoints of the given flow whose state matches mask, in subsystem order.
	Enumerate(flow Flow, mask State) ([]RawEndpoint, error)
	// DefaultEndpointID returns the id of the default endpoint for flow and role, or "" when the subsystem has none.
	DefaultEndpointID(flow Flow, role Role) (string, error)

	VolumeScalar(id string) (float32, error)
	SetVolumeScalar(id string, v float32) error
	Mute(id string) (bool, error)
	SetMute(id string, mute bool) error
	MeterPeak(id string) (float32, error)

	// ProbePolicy returns the default assignment backend of the given version,
	// or ErrPolicyUnavailable when the host does not implement it.
	ProbePolicy(v PolicyVersion) (PolicyBackend, error)
}

// PolicyBackend assigns the default endpoint for a role.
type PolicyBackend interface {
	SetDefaultEndpoint(id string, role Role) error
}

// VolumeStepper is implemented by bindings with native volume stepping.
type VolumeStepper interface {
	VolumeStepUp(id string) error
	VolumeStepDown(id string) error
}

// Notifier is implemented by bindings that can report endpoint changes.
// The returned Registration must be closed to stop delivery.
type Notifier interface {
	Notify(fn func(Event)) (Registration, error)
}

// Registration is an active change notification subscription.
type Registration interface {
	Close() error
}
