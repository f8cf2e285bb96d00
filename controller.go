package audiodev

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/rs/zerolog"
)

// DeviceView is an endpoint together with its live mute and volume, read right after an operation.
type DeviceView struct {
	Endpoint

	Mute   bool
	Volume int
}

// Controller is the entry point used by the command line. Every call builds a fresh snapshot.
type Controller struct {
	binding  Binding
	dir      *Directory
	gateway  *Gateway
	logger   zerolog.Logger
	interval time.Duration
	opts     []Option
}

// New returns a Controller over b.
func New(b Binding, opts ...Option) *Controller {
	o := newOptions(opts)

	return &Controller{
		binding:  b,
		dir:      NewDirectory(b, opts...),
		gateway:  NewGateway(b, opts...),
		logger:   o.logger,
		interval: o.interval,
		opts:     opts,
	}
}

// Close closes the binding if it holds resources.
func (c *Controller) Close() error {
	if closer, ok := c.binding.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}

// Policy returns the default assignment policy version selected for this process.
func (c *Controller) Policy() (PolicyVersion, error) {
	return c.gateway.Policy()
}

// ListDevices returns a fresh snapshot.
func (c *Controller) ListDevices() (*Snapshot, error) {
	return c.dir.Build()
}

// GetByID returns the endpoint with the given id.
func (c *Controller) GetByID(id string) (Endpoint, error) {
	snap, err := c.dir.Build()
	if err != nil {
		return Endpoint{}, err
	}

	ep, ok := snap.ByID(id)
	if !ok {
		return Endpoint{}, fmt.Errorf("%w: no endpoint with id %q", ErrNotFound, id)
	}

	return ep, nil
}

// GetByOrdinal returns the endpoint at the 1-based position n. n must be in [1, MaxOrdinal].
func (c *Controller) GetByOrdinal(n int) (Endpoint, error) {
	if err := ValidateOrdinal(n); err != nil {
		return Endpoint{}, err
	}

	snap, err := c.dir.Build()
	if err != nil {
		return Endpoint{}, err
	}

	ep, ok := snap.ByOrdinal(n)
	if !ok {
		return Endpoint{}, fmt.Errorf("%w: no endpoint at index %d (%d enabled)", ErrNotFound, n, snap.Len())
	}

	return ep, nil
}

// GetDefault returns the default endpoint for flow and role.
func (c *Controller) GetDefault(flow Flow, role Role) (Endpoint, error) {
	if err := validateFlowRole(flow, role); err != nil {
		return Endpoint{}, err
	}

	snap, err := c.dir.Build()
	if err != nil {
		return Endpoint{}, err
	}

	ep, ok := ResolveDefault(snap, flow, role)
	if !ok {
		return Endpoint{}, fmt.Errorf("%w: no default %s %s endpoint", ErrNotFound, flow, role)
	}

	return ep, nil
}

// Device returns a handle for the endpoint with the given id.
func (c *Controller) Device(id string) (*Device, error) {
	ep, err := c.GetByID(id)
	if err != nil {
		return nil, err
	}

	return NewDevice(c.binding, ep), nil
}

// DefaultDevice returns a handle for the default endpoint of flow and role.
func (c *Controller) DefaultDevice(flow Flow, role Role) (*Device, error) {
	ep, err := c.GetDefault(flow, role)
	if err != nil {
		return nil, err
	}

	return NewDevice(c.binding, ep), nil
}

// View reads the live mute and volume of d.
func (c *Controller) View(d *Device) (DeviceView, error) {
	mute, err := d.Mute()
	if err != nil {
		return DeviceView{}, err
	}

	vol, err := d.Volume()
	if err != nil {
		return DeviceView{}, err
	}

	return DeviceView{Endpoint: d.Endpoint, Mute: mute, Volume: vol}, nil
}

// SetDefault makes id the default endpoint of its flow for role and returns the endpoint as seen afterwards.
func (c *Controller) SetDefault(id string, role Role) (DeviceView, error) {
	if err := c.gateway.SetDefaultEndpoint(id, role); err != nil {
		return DeviceView{}, err
	}

	d, err := c.Device(id)
	if err != nil {
		return DeviceView{}, err
	}

	return c.View(d)
}

// SetDefaultRoles makes id the default of its flow for every role in roles, in order.
// When a role fails, the roles already assigned are put back to their previous defaults.
func (c *Controller) SetDefaultRoles(id string, roles ...Role) (DeviceView, error) {
	ep, err := c.GetByID(id)
	if err != nil {
		return DeviceView{}, err
	}

	snap, err := c.dir.Build()
	if err != nil {
		return DeviceView{}, err
	}

	prev := make([]string, len(roles))
	for i, role := range roles {
		if def, ok := ResolveDefault(snap, ep.Flow, role); ok {
			prev[i] = def.ID
		}
	}

	for i, role := range roles {
		if err := c.gateway.SetDefaultEndpoint(id, role); err != nil {
			if rerr := c.restoreDefaults(roles[:i], prev[:i]); rerr != nil {
				return DeviceView{}, errors.Join(err, rerr)
			}

			return DeviceView{}, err
		}
	}

	d, err := c.Device(id)
	if err != nil {
		return DeviceView{}, err
	}

	return c.View(d)
}

func (c *Controller) restoreDefaults(roles []Role, prev []string) error {
	var errs []error

	for i := len(roles) - 1; i >= 0; i-- {
		if prev[i] == "" {
			continue
		}

		if err := c.gateway.SetDefaultEndpoint(prev[i], roles[i]); err != nil {
			errs = append(errs, fmt.Errorf("could not restore %s default %s: %w", roles[i], prev[i], err))

			continue
		}

		c.logger.Debug().Str("id", prev[i]).Stringer("role", roles[i]).Msg("default restored")
	}

	return errors.Join(errs...)
}

// SetMute sets the mute flag of id.
func (c *Controller) SetMute(id string, mute bool) (DeviceView, error) {
	d, err := c.Device(id)
	if err != nil {
		return DeviceView{}, err
	}

	if err := c.gateway.SetMute(d, mute); err != nil {
		return DeviceView{}, err
	}

	return c.View(d)
}

// ToggleMute negates the mute flag of id.
func (c *Controller) ToggleMute(id string) (DeviceView, error) {
	d, err := c.Device(id)
	if err != nil {
		return DeviceView{}, err
	}

	if _, err := c.gateway.ToggleMute(d); err != nil {
		return DeviceView{}, err
	}

	return c.View(d)
}

// SetVolume sets the volume of id to percent, which must be in [0, 100].
func (c *Controller) SetVolume(id string, percent int) (DeviceView, error) {
	if err := ValidatePercent(percent); err != nil {
		return DeviceView{}, err
	}

	d, err := c.Device(id)
	if err != nil {
		return DeviceView{}, err
	}

	if err := c.gateway.SetVolume(d, percent); err != nil {
		return DeviceView{}, err
	}

	return c.View(d)
}

// StepVolume raises or lowers the volume of id by one step.
func (c *Controller) StepVolume(id string, up bool) (DeviceView, error) {
	d, err := c.Device(id)
	if err != nil {
		return DeviceView{}, err
	}

	if up {
		err = d.VolumeStepUp()
	} else {
		err = d.VolumeStepDown()
	}

	if err != nil {
		return DeviceView{}, err
	}

	return c.View(d)
}

// DefaultMute returns the mute flag of the default multimedia endpoint of flow.
func (c *Controller) DefaultMute(flow Flow) (bool, error) {
	d, err := c.DefaultDevice(flow, Multimedia)
	if err != nil {
		return false, err
	}

	return d.Mute()
}

// DefaultVolume returns the volume of the default multimedia endpoint of flow.
func (c *Controller) DefaultVolume(flow Flow) (int, error) {
	d, err := c.DefaultDevice(flow, Multimedia)
	if err != nil {
		return 0, err
	}

	return d.Volume()
}

// StreamMeter streams peak readings of the default endpoint of flow and role.
// The default is resolved when iteration starts, so ranging again picks up a changed default.
// A non-positive interval uses the controller's configured interval.
func (c *Controller) StreamMeter(ctx context.Context, flow Flow, role Role, interval time.Duration) iter.Seq2[int, error] {
	if interval <= 0 {
		interval = c.interval
	}

	return func(yield func(int, error) bool) {
		d, err := c.DefaultDevice(flow, role)
		if err != nil {
			yield(0, err)

			return
		}

		c.logger.Debug().Str("id", d.ID).Dur("interval", interval).Msg("streaming meter")

		for v, err := range StreamMeter(ctx, d, interval) {
			if !yield(v, err) {
				return
			}
		}
	}
}

// Subscribe registers fn for change notifications.
func (c *Controller) Subscribe(fn func(Event)) (Registration, error) {
	return Subscribe(c.binding, fn, c.opts...)
}

// Watch delivers change notifications to fn until ctx is done.
func (c *Controller) Watch(ctx context.Context, fn func(Event)) error {
	return Watch(ctx, c.binding, fn, c.opts...)
}

func validateFlowRole(flow Flow, role Role) error {
	if !validFlow(flow) {
		return &InvalidArgumentError{Name: "flow", Value: flow, Want: "Playback or Recording"}
	}

	if !validRole(role) {
		return &InvalidArgumentError{Name: "role", Value: role, Want: "Multimedia or Communications"}
	}

	return nil
}
