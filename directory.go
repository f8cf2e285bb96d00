package audiodev

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Endpoint is one enabled audio endpoint as captured in a Snapshot.
type Endpoint struct {
	ID      string
	Ordinal int
	Name    string
	Flow    Flow
	State   State

	IsMultimediaDefault     bool
	IsCommunicationsDefault bool
}

// IsDefault reports whether the endpoint was the default for role when the snapshot was built.
func (e Endpoint) IsDefault(role Role) bool {
	switch role {
	case Multimedia:
		return e.IsMultimediaDefault
	case Communications:
		return e.IsCommunicationsDefault
	}

	return false
}

// String returns a human-readable representation of the Endpoint.
func (e Endpoint) String() string {
	return fmt.Sprintf("%d: %s (%s) [%s]", e.Ordinal, e.Name, e.ID, e.Flow)
}

// Snapshot is an immutable point-in-time capture of the enabled endpoints and the default assignments.
type Snapshot struct {
	endpoints []Endpoint
	defaults  [2][2]string // indexed by Flow, then Role
	index     map[string]int
}

// Len returns the number of endpoints.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}

	return len(s.endpoints)
}

// Endpoints returns a copy of the endpoints in ordinal order.
func (s *Snapshot) Endpoints() []Endpoint {
	if s == nil {
		return nil
	}

	out := make([]Endpoint, len(s.endpoints))
	copy(out, s.endpoints)

	return out
}

// DefaultID returns the default endpoint id captured for flow and role, which may be empty
// or may name an endpoint that is not in the snapshot.
func (s *Snapshot) DefaultID(flow Flow, role Role) string {
	if s == nil || !validFlow(flow) || !validRole(role) {
		return ""
	}

	return s.defaults[flow][role]
}

// ByID returns the endpoint with the given id. Ids are compared exactly.
func (s *Snapshot) ByID(id string) (Endpoint, bool) {
	if s == nil {
		return Endpoint{}, false
	}

	i, ok := s.index[id]
	if !ok {
		return Endpoint{}, false
	}

	return s.endpoints[i], true
}

// ByOrdinal returns the endpoint at the 1-based position n.
func (s *Snapshot) ByOrdinal(n int) (Endpoint, bool) {
	if s == nil || n < 1 || n > len(s.endpoints) {
		return Endpoint{}, false
	}

	return s.endpoints[n-1], true
}

// Find returns the first endpoint, in ordinal order, for which match returns true.
func (s *Snapshot) Find(match func(Endpoint) bool) (Endpoint, bool) {
	if s == nil || match == nil {
		return Endpoint{}, false
	}

	for _, ep := range s.endpoints {
		if match(ep) {
			return ep, true
		}
	}

	return Endpoint{}, false
}

// Filter returns the endpoints of the given flow in ordinal order.
func (s *Snapshot) Filter(flow Flow) []Endpoint {
	if s == nil {
		return nil
	}

	var out []Endpoint
	for _, ep := range s.endpoints {
		if flow == FlowAll || ep.Flow == flow {
			out = append(out, ep)
		}
	}

	return out
}

// Directory builds snapshots from a Binding.
type Directory struct {
	binding Binding
	logger  zerolog.Logger
}

// NewDirectory returns a Directory reading from b.
func NewDirectory(b Binding, opts ...Option) *Directory {
	o := newOptions(opts)

	return &Directory{
		binding: b,
		logger:  o.logger,
	}
}

// Build captures the four default endpoint ids and then enumerates the active endpoints.
// Any failed subsystem call aborts the build with a SubsystemError.
func (d *Directory) Build() (*Snapshot, error) {
	if d == nil || d.binding == nil {
		return nil, fmt.Errorf("directory has no binding")
	}

	snap := &Snapshot{}

	for _, flow := range Flows {
		for _, role := range Roles {
			id, err := d.binding.DefaultEndpointID(flow, role)
			if err != nil {
				return nil, NewSubsystemError(fmt.Sprintf("get default %s %s endpoint", flow, role), err)
			}

			snap.defaults[flow][role] = id
		}
	}

	raws, err := d.binding.Enumerate(FlowAll, StateActive)
	if err != nil {
		return nil, NewSubsystemError("enumerate endpoints", err)
	}

	snap.endpoints = make([]Endpoint, 0, len(raws))
	snap.index = make(map[string]int, len(raws))

	for _, raw := range raws {
		ep, err := readEndpoint(raw)
		if err != nil {
			return nil, err
		}

		if ep.State != StateActive {
			continue
		}

		if _, dup := snap.index[ep.ID]; dup {
			d.logger.Warn().Str("id", ep.ID).Msg("skipping duplicate endpoint id")

			continue
		}

		ep.Ordinal = len(snap.endpoints) + 1
		ep.IsMultimediaDefault = ep.ID == snap.defaults[ep.Flow][Multimedia]
		ep.IsCommunicationsDefault = ep.ID == snap.defaults[ep.Flow][Communications]

		snap.index[ep.ID] = len(snap.endpoints)
		snap.endpoints = append(snap.endpoints, ep)
	}

	// A default that is not among the active endpoints is reported as no default.
	for _, flow := range Flows {
		for _, role := range Roles {
			id := snap.defaults[flow][role]
			if id == "" {
				continue
			}

			if _, ok := snap.index[id]; !ok {
				d.logger.Debug().Str("id", id).Stringer("flow", flow).Stringer("role", role).Msg("default endpoint not in active set")
			}
		}
	}

	d.logger.Debug().Int("endpoints", len(snap.endpoints)).Msg("snapshot built")

	return snap, nil
}

func readEndpoint(raw RawEndpoint) (Endpoint, error) {
	id, err := raw.ID()
	if err != nil {
		return Endpoint{}, NewSubsystemError("get endpoint id", err)
	}

	name, err := raw.Name()
	if err != nil {
		return Endpoint{}, NewSubsystemError("get endpoint name", err)
	}

	flow, err := raw.Flow()
	if err != nil {
		return Endpoint{}, NewSubsystemError("get endpoint flow", err)
	}

	if !validFlow(flow) {
		return Endpoint{}, NewSubsystemError("get endpoint flow", fmt.Errorf("endpoint %s reported flow %d", id, flow))
	}

	state, err := raw.State()
	if err != nil {
		return Endpoint{}, NewSubsystemError("get endpoint state", err)
	}

	return Endpoint{
		ID:    id,
		Name:  name,
		Flow:  flow,
		State: state,
	}, nil
}

func validFlow(f Flow) bool {
	return f == Playback || f == Recording
}

func validRole(r Role) bool {
	return r == Multimedia || r == Communications
}
