package audiodev

import (
	"errors"
	"fmt"
	"syscall"
)

var (
	// ErrNotFound is returned when no endpoint matches an id or ordinal, or when no default exists for a flow and role.
	ErrNotFound = errors.New("audio endpoint not found")

	// ErrUnsupportedPlatform is returned when none of the default assignment backends are available.
	ErrUnsupportedPlatform = errors.New("no default endpoint policy backend is available on this platform")

	// ErrInvalidArgument is matched by every InvalidArgumentError.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPolicyUnavailable is returned by a Binding when a probed policy version is not implemented by the host.
	ErrPolicyUnavailable = errors.New("policy version unavailable")
)

// SubsystemError reports a failed call into the audio subsystem.
type SubsystemError struct {
	Op   string  // Binding operation that failed, e.g. "enumerate" or "set mute".
	Code uintptr // Subsystem specific code, 0 when the underlying error carries none.
	Err  error
}

// NewSubsystemError wraps err as a SubsystemError for op, extracting the subsystem code when err carries one.
// A nil err yields nil, and an err that already is a SubsystemError is returned unchanged.
func NewSubsystemError(op string, err error) error {
	if err == nil {
		return nil
	}

	var se *SubsystemError
	if errors.As(err, &se) {
		return err
	}

	return &SubsystemError{Op: op, Code: errorCode(err), Err: err}
}

// Error implements the error interface.
func (e *SubsystemError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("audio subsystem: %s failed (code 0x%08x): %v", e.Op, uint64(e.Code), e.Err)
	}

	return fmt.Sprintf("audio subsystem: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *SubsystemError) Unwrap() error {
	return e.Err
}

// coder is implemented by COM errors (go-ole OleError) and by the pulse binding for protocol errors.
type coder interface {
	Code() uintptr
}

func errorCode(err error) uintptr {
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return uintptr(errno)
	}

	return 0
}

// InvalidArgumentError reports an argument outside its accepted range.
type InvalidArgumentError struct {
	Name  string
	Value any
	Want  string
}

// Error implements the error interface.
func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s %v: must be %s", e.Name, e.Value, e.Want)
}

// Is makes InvalidArgumentError match ErrInvalidArgument.
func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// IsNotFound reports whether err is an ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsSubsystem reports whether err is a SubsystemError and returns its code.
func IsSubsystem(err error) (uintptr, bool) {
	var se *SubsystemError
	if errors.As(err, &se) {
		return se.Code, true
	}

	return 0, false
}
