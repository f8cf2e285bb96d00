package audiodev

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// EventKind identifies the kind of endpoint change.
type EventKind int

const (
	EventDefaultChanged EventKind = iota
	EventAdded
	EventRemoved
	EventStateChanged
	EventPropertyChanged
)

// String returns the name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventDefaultChanged:
		return "DefaultChanged"
	case EventAdded:
		return "Added"
	case EventRemoved:
		return "Removed"
	case EventStateChanged:
		return "StateChanged"
	case EventPropertyChanged:
		return "PropertyChanged"
	}

	return "Unknown"
}

// Event is a change notification from the binding.
// Flow and Role are set for EventDefaultChanged, State for EventStateChanged.
type Event struct {
	Kind  EventKind
	ID    string
	Flow  Flow
	Role  Role
	State State
}

// String returns a human-readable representation of the Event.
func (e Event) String() string {
	switch e.Kind {
	case EventDefaultChanged:
		return fmt.Sprintf("%s %s %s -> %s", e.Kind, e.Flow, e.Role, e.ID)
	case EventStateChanged:
		return fmt.Sprintf("%s %s -> %s", e.Kind, e.ID, e.State)
	}

	return fmt.Sprintf("%s %s", e.Kind, e.ID)
}

// scopedRegistration releases the underlying registration exactly once.
type scopedRegistration struct {
	once   sync.Once
	reg    Registration
	err    error
	logger zerolog.Logger
}

func (s *scopedRegistration) Close() error {
	s.once.Do(func() {
		s.err = s.reg.Close()
		if s.err != nil {
			s.err = NewSubsystemError("unregister notifications", s.err)
		}

		s.logger.Debug().Err(s.err).Msg("notification registration released")
	})

	return s.err
}

// Subscribe registers fn for change notifications of b. The returned Registration is safe to close more than once.
// It fails with ErrUnsupportedPlatform when b cannot notify.
func Subscribe(b Binding, fn func(Event), opts ...Option) (Registration, error) {
	o := newOptions(opts)

	n, ok := b.(Notifier)
	if !ok {
		return nil, fmt.Errorf("%w: binding does not report changes", ErrUnsupportedPlatform)
	}

	reg, err := n.Notify(fn)
	if err != nil {
		return nil, NewSubsystemError("register notifications", err)
	}

	o.logger.Debug().Msg("notification registration acquired")

	return &scopedRegistration{reg: reg, logger: o.logger}, nil
}

// Watch delivers change notifications of b to fn until ctx is done.
// The registration is released before Watch returns, whatever the exit path.
func Watch(ctx context.Context, b Binding, fn func(Event), opts ...Option) (err error) {
	reg, err := Subscribe(b, fn, opts...)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := reg.Close(); err == nil {
			err = cerr
		}
	}()

	<-ctx.Done()

	return nil
}
