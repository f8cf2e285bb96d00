package audiodev

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// PolicyVersion tags one of the historically incompatible shapes of the default assignment primitive.
type PolicyVersion int

const (
	// PolicyNone means no backend was found.
	PolicyNone PolicyVersion = iota
	// PolicyV1 is the oldest shape (Vista era policy config).
	PolicyV1
	// PolicyV2 is the Windows 7 era policy config.
	PolicyV2
	// PolicyV3 is the Windows 10 era policy config.
	PolicyV3
)

// String returns the name of the policy version.
func (v PolicyVersion) String() string {
	switch v {
	case PolicyV1:
		return "v1"
	case PolicyV2:
		return "v2"
	case PolicyV3:
		return "v3"
	}

	return "none"
}

// probeOrder is newest first.
var probeOrder = [...]PolicyVersion{PolicyV3, PolicyV2, PolicyV1}

// policy is the selected backend together with its version tag.
type policy struct {
	version PolicyVersion
	backend PolicyBackend
}

// Gateway performs every state change: default assignment, mute and volume writes.
type Gateway struct {
	binding Binding
	dir     *Directory
	logger  zerolog.Logger

	once     sync.Once
	selected policy
}

// NewGateway returns a Gateway writing through b.
func NewGateway(b Binding, opts ...Option) *Gateway {
	o := newOptions(opts)

	return &Gateway{
		binding: b,
		dir:     NewDirectory(b, opts...),
		logger:  o.logger,
	}
}

// Policy probes the binding once and returns the selected policy version.
// It returns ErrUnsupportedPlatform when no version is available.
func (g *Gateway) Policy() (PolicyVersion, error) {
	p := g.probe()
	if p.version == PolicyNone {
		return PolicyNone, ErrUnsupportedPlatform
	}

	return p.version, nil
}

func (g *Gateway) probe() policy {
	g.once.Do(func() {
		for _, v := range probeOrder {
			backend, err := g.binding.ProbePolicy(v)
			if err != nil || backend == nil {
				if err != nil && !errors.Is(err, ErrPolicyUnavailable) {
					g.logger.Debug().Err(err).Stringer("version", v).Msg("policy probe failed")
				}

				continue
			}

			g.selected = policy{version: v, backend: backend}
			g.logger.Debug().Stringer("version", v).Msg("policy selected")

			return
		}

		g.logger.Debug().Msg("no policy backend available")
	})

	return g.selected
}

// SetDefaultEndpoint makes id the default endpoint of its flow for role.
// The id is validated against a fresh snapshot first. A call either completes or reports one error.
func (g *Gateway) SetDefaultEndpoint(id string, role Role) error {
	if g == nil || g.binding == nil {
		return fmt.Errorf("gateway has no binding")
	}

	if !validRole(role) {
		return &InvalidArgumentError{Name: "role", Value: role, Want: "Multimedia or Communications"}
	}

	g.logger.Debug().Str("id", id).Stringer("role", role).Msg("validating")

	snap, err := g.dir.Build()
	if err != nil {
		return err
	}

	if _, ok := snap.ByID(id); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	p := g.probe()

	g.logger.Debug().Str("id", id).Stringer("version", p.version).Msg("committing")

	switch p.version {
	case PolicyV3, PolicyV2, PolicyV1:
		err = p.backend.SetDefaultEndpoint(id, role)
	default:
		return ErrUnsupportedPlatform
	}

	if err != nil {
		g.logger.Debug().Err(err).Str("id", id).Msg("failed")

		return NewSubsystemError("set default endpoint", err)
	}

	g.logger.Debug().Str("id", id).Msg("done")

	return nil
}

// SetMute writes the mute flag through d.
func (g *Gateway) SetMute(d *Device, mute bool) error {
	return d.SetMute(mute)
}

// ToggleMute negates the mute flag through d and returns the new value.
func (g *Gateway) ToggleMute(d *Device) (bool, error) {
	return d.ToggleMute()
}

// SetVolume validates percent and writes it through d as a scalar.
func (g *Gateway) SetVolume(d *Device, percent int) error {
	if err := ValidatePercent(percent); err != nil {
		return err
	}

	return d.SetVolumeScalar(PercentToScalar(percent))
}

// ValidatePercent returns an InvalidArgumentError when percent is outside [0, 100].
func ValidatePercent(percent int) error {
	if percent < 0 || percent > 100 {
		return &InvalidArgumentError{Name: "volume", Value: percent, Want: "between 0 and 100"}
	}

	return nil
}

// ValidateOrdinal returns an InvalidArgumentError when n is outside [1, MaxOrdinal].
func ValidateOrdinal(n int) error {
	if n < 1 || n > MaxOrdinal {
		return &InvalidArgumentError{Name: "index", Value: n, Want: fmt.Sprintf("between 1 and %d", MaxOrdinal)}
	}

	return nil
}
