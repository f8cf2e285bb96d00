// Package memory implements an in-memory audio subsystem binding.
// It holds a mutable device table and is used for tests, demos and dry runs of the command line.
package memory

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-audio/wav"
	"github.com/rs/zerolog"

	"github.com/gen2brain/audiodev"
	"github.com/gen2brain/audiodev/internal/peak"
)

// ErrNoDevice is returned for an id that is unknown or not active.
var ErrNoDevice = errors.New("device not present")

// Op names a binding operation for error injection.
type Op string

const (
	OpEnumerate  Op = "enumerate"
	OpDefault    Op = "default"
	OpID         Op = "id"
	OpName       Op = "name"
	OpFlow       Op = "flow"
	OpState      Op = "state"
	OpVolume     Op = "volume"
	OpSetVolume  Op = "set-volume"
	OpMute       Op = "mute"
	OpSetMute    Op = "set-mute"
	OpMeter      Op = "meter"
	OpSetDefault Op = "set-default"
	OpNotify     Op = "notify"
)

// Device is one simulated endpoint.
type Device struct {
	ID     string
	Name   string
	Flow   audiodev.Flow
	State  audiodev.State
	Volume float32
	Mute   bool
	Peak   float32
}

// Binding is an in-memory audiodev.Binding. It is safe for concurrent use.
type Binding struct {
	mu        sync.Mutex
	devices   []*Device
	defaults  [2][2]string
	policies  map[audiodev.PolicyVersion]bool
	failures  map[Op]error
	listeners map[int]func(audiodev.Event)
	nextID    int
	meter     *peak.Window
	logger    zerolog.Logger
}

// Option configures a Binding.
type Option func(*Binding) error

// WithDevices adds devices in enumeration order. Devices are copied, a zero State means active.
func WithDevices(devices ...Device) Option {
	return func(b *Binding) error {
		for _, d := range devices {
			if b.find(d.ID) != nil {
				return fmt.Errorf("duplicate device id %q", d.ID)
			}

			if d.State == 0 {
				d.State = audiodev.StateActive
			}

			b.devices = append(b.devices, &d)
		}

		return nil
	}
}

// WithDefault sets the default id for flow and role.
func WithDefault(flow audiodev.Flow, role audiodev.Role, id string) Option {
	return func(b *Binding) error {
		if flow != audiodev.Playback && flow != audiodev.Recording {
			return fmt.Errorf("invalid flow %s", flow)
		}

		if err := checkRole(role); err != nil {
			return err
		}

		b.defaults[flow][role] = id

		return nil
	}
}

// WithPolicies sets the policy versions the binding reports as available. By default all are.
func WithPolicies(versions ...audiodev.PolicyVersion) Option {
	return func(b *Binding) error {
		b.policies = make(map[audiodev.PolicyVersion]bool, len(versions))
		for _, v := range versions {
			b.policies[v] = true
		}

		return nil
	}
}

// WithMeterWAV drives MeterPeak from the samples of a WAV file, 100 ms per reading, looping.
func WithMeterWAV(r io.ReadSeeker) Option {
	return func(b *Binding) error {
		dec := wav.NewDecoder(r)
		if !dec.IsValidFile() {
			return fmt.Errorf("invalid WAV file")
		}

		buf, err := dec.FullPCMBuffer()
		if err != nil {
			return fmt.Errorf("failed to decode WAV file: %w", err)
		}

		if len(buf.Data) == 0 {
			return fmt.Errorf("WAV file has no samples")
		}

		window := buf.Format.SampleRate / 10 * buf.Format.NumChannels
		b.meter = peak.NewWindow(buf, window)

		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *Binding) error {
		b.logger = logger

		return nil
	}
}

// New returns a Binding configured by opts.
func New(opts ...Option) (*Binding, error) {
	b := &Binding{
		policies: map[audiodev.PolicyVersion]bool{
			audiodev.PolicyV1: true,
			audiodev.PolicyV2: true,
			audiodev.PolicyV3: true,
		},
		failures:  make(map[Op]error),
		listeners: make(map[int]func(audiodev.Event)),
		logger:    zerolog.Nop(),
	}

	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// Fail makes every following call of op return err. A nil err clears the failure.
func (b *Binding) Fail(op Op, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		delete(b.failures, op)

		return
	}

	b.failures[op] = err
}

// Add appends a device and notifies listeners. A zero State means active.
func (b *Binding) Add(d Device) error {
	if d.State == 0 {
		d.State = audiodev.StateActive
	}

	b.mu.Lock()
	if b.find(d.ID) != nil {
		b.mu.Unlock()

		return fmt.Errorf("duplicate device id %q", d.ID)
	}

	b.devices = append(b.devices, &d)
	b.mu.Unlock()

	b.emit(audiodev.Event{Kind: audiodev.EventAdded, ID: d.ID})

	return nil
}

// Remove deletes a device and notifies listeners. Default ids naming it are left in place.
func (b *Binding) Remove(id string) {
	b.mu.Lock()
	for i, d := range b.devices {
		if d.ID == id {
			b.devices = append(b.devices[:i], b.devices[i+1:]...)

			break
		}
	}
	b.mu.Unlock()

	b.emit(audiodev.Event{Kind: audiodev.EventRemoved, ID: id})
}

// SetState changes the state of a device and notifies listeners.
func (b *Binding) SetState(id string, state audiodev.State) error {
	b.mu.Lock()
	d := b.find(id)
	if d == nil {
		b.mu.Unlock()

		return fmt.Errorf("%w: %s", ErrNoDevice, id)
	}

	d.State = state
	b.mu.Unlock()

	b.emit(audiodev.Event{Kind: audiodev.EventStateChanged, ID: id, State: state})

	return nil
}

// SetPeak sets the meter level reported for a device.
func (b *Binding) SetPeak(id string, p float32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	d := b.find(id)
	if d == nil {
		return fmt.Errorf("%w: %s", ErrNoDevice, id)
	}

	d.Peak = p

	return nil
}

// Devices returns a copy of the device table.
func (b *Binding) Devices() []Device {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Device, len(b.devices))
	for i, d := range b.devices {
		out[i] = *d
	}

	return out
}

// Enumerate implements audiodev.Binding.
func (b *Binding) Enumerate(flow audiodev.Flow, mask audiodev.State) ([]audiodev.RawEndpoint, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.failures[OpEnumerate]; err != nil {
		return nil, err
	}

	var out []audiodev.RawEndpoint
	for _, d := range b.devices {
		if flow != audiodev.FlowAll && d.Flow != flow {
			continue
		}

		if d.State&mask == 0 {
			continue
		}

		out = append(out, &rawEndpoint{binding: b, device: *d})
	}

	return out, nil
}

// DefaultEndpointID implements audiodev.Binding.
func (b *Binding) DefaultEndpointID(flow audiodev.Flow, role audiodev.Role) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.failures[OpDefault]; err != nil {
		return "", err
	}

	if flow != audiodev.Playback && flow != audiodev.Recording {
		return "", fmt.Errorf("invalid flow %s", flow)
	}

	if err := checkRole(role); err != nil {
		return "", err
	}

	return b.defaults[flow][role], nil
}

// VolumeScalar implements audiodev.Binding.
func (b *Binding) VolumeScalar(id string) (float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	d, err := b.active(OpVolume, id)
	if err != nil {
		return 0, err
	}

	return d.Volume, nil
}

// SetVolumeScalar implements audiodev.Binding.
func (b *Binding) SetVolumeScalar(id string, v float32) error {
	b.mu.Lock()
	d, err := b.active(OpSetVolume, id)
	if err != nil {
		b.mu.Unlock()

		return err
	}

	if v < 0 || v > 1 {
		b.mu.Unlock()

		return fmt.Errorf("volume scalar %v out of range", v)
	}

	d.Volume = v
	b.mu.Unlock()

	b.emit(audiodev.Event{Kind: audiodev.EventPropertyChanged, ID: id})

	return nil
}

// Mute implements audiodev.Binding.
func (b *Binding) Mute(id string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	d, err := b.active(OpMute, id)
	if err != nil {
		return false, err
	}

	return d.Mute, nil
}

// SetMute implements audiodev.Binding.
func (b *Binding) SetMute(id string, mute bool) error {
	b.mu.Lock()
	d, err := b.active(OpSetMute, id)
	if err != nil {
		b.mu.Unlock()

		return err
	}

	d.Mute = mute
	b.mu.Unlock()

	b.emit(audiodev.Event{Kind: audiodev.EventPropertyChanged, ID: id})

	return nil
}

// MeterPeak implements audiodev.Binding.
func (b *Binding) MeterPeak(id string) (float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	d, err := b.active(OpMeter, id)
	if err != nil {
		return 0, err
	}

	if b.meter != nil {
		return b.meter.Next(), nil
	}

	return d.Peak, nil
}

// VolumeStepUp implements audiodev.VolumeStepper.
func (b *Binding) VolumeStepUp(id string) error {
	return b.step(id, audiodev.VolumeStep)
}

// VolumeStepDown implements audiodev.VolumeStepper.
func (b *Binding) VolumeStepDown(id string) error {
	return b.step(id, -audiodev.VolumeStep)
}

func (b *Binding) step(id string, delta float32) error {
	b.mu.Lock()
	d, err := b.active(OpSetVolume, id)
	if err != nil {
		b.mu.Unlock()

		return err
	}

	d.Volume = min(max(d.Volume+delta, 0), 1)
	b.mu.Unlock()

	b.emit(audiodev.Event{Kind: audiodev.EventPropertyChanged, ID: id})

	return nil
}

// ProbePolicy implements audiodev.Binding.
func (b *Binding) ProbePolicy(v audiodev.PolicyVersion) (audiodev.PolicyBackend, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.policies[v] {
		return nil, audiodev.ErrPolicyUnavailable
	}

	return &policyBackend{binding: b, version: v}, nil
}

// Notify implements audiodev.Notifier.
func (b *Binding) Notify(fn func(audiodev.Event)) (audiodev.Registration, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.failures[OpNotify]; err != nil {
		return nil, err
	}

	id := b.nextID
	b.nextID++
	b.listeners[id] = fn

	return &registration{binding: b, id: id}, nil
}

// Listeners returns the number of active registrations.
func (b *Binding) Listeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.listeners)
}

func (b *Binding) setDefault(v audiodev.PolicyVersion, id string, role audiodev.Role) error {
	if err := checkRole(role); err != nil {
		return err
	}

	b.mu.Lock()
	d, err := b.active(OpSetDefault, id)
	if err != nil {
		b.mu.Unlock()

		return err
	}

	flow := d.Flow
	b.defaults[flow][role] = id
	b.mu.Unlock()

	b.logger.Debug().Str("id", id).Stringer("role", role).Stringer("policy", v).Msg("default endpoint set")

	b.emit(audiodev.Event{Kind: audiodev.EventDefaultChanged, ID: id, Flow: flow, Role: role})

	return nil
}

func checkRole(role audiodev.Role) error {
	if role != audiodev.Multimedia && role != audiodev.Communications {
		return &audiodev.InvalidArgumentError{Name: "role", Value: int(role), Want: "Multimedia or Communications"}
	}

	return nil
}

// emit calls the listeners without holding the lock, so they may call back into the binding.
func (b *Binding) emit(ev audiodev.Event) {
	b.mu.Lock()
	fns := make([]func(audiodev.Event), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// find must be called with the lock held.
func (b *Binding) find(id string) *Device {
	for _, d := range b.devices {
		if d.ID == id {
			return d
		}
	}

	return nil
}

// active must be called with the lock held.
func (b *Binding) active(op Op, id string) (*Device, error) {
	if err := b.failures[op]; err != nil {
		return nil, err
	}

	d := b.find(id)
	if d == nil || d.State != audiodev.StateActive {
		return nil, fmt.Errorf("%w: %s", ErrNoDevice, id)
	}

	return d, nil
}

type rawEndpoint struct {
	binding *Binding
	device  Device
}

func (r *rawEndpoint) fail(op Op) error {
	r.binding.mu.Lock()
	defer r.binding.mu.Unlock()

	return r.binding.failures[op]
}

func (r *rawEndpoint) ID() (string, error) {
	if err := r.fail(OpID); err != nil {
		return "", err
	}

	return r.device.ID, nil
}

func (r *rawEndpoint) Name() (string, error) {
	if err := r.fail(OpName); err != nil {
		return "", err
	}

	return r.device.Name, nil
}

func (r *rawEndpoint) Flow() (audiodev.Flow, error) {
	if err := r.fail(OpFlow); err != nil {
		return 0, err
	}

	return r.device.Flow, nil
}

func (r *rawEndpoint) State() (audiodev.State, error) {
	if err := r.fail(OpState); err != nil {
		return 0, err
	}

	return r.device.State, nil
}

type policyBackend struct {
	binding *Binding
	version audiodev.PolicyVersion
}

func (p *policyBackend) SetDefaultEndpoint(id string, role audiodev.Role) error {
	return p.binding.setDefault(p.version, id, role)
}

type registration struct {
	binding *Binding
	id      int
}

func (r *registration) Close() error {
	r.binding.mu.Lock()
	defer r.binding.mu.Unlock()

	delete(r.binding.listeners, r.id)

	return nil
}
