// Package pulse implements an audiodev binding over the PulseAudio native protocol.
// It works against PulseAudio and against PipeWire through pipewire-pulse.
//
// Sinks are playback endpoints and sources, except monitors, are recording endpoints.
// The server keeps a single default sink and source, so both roles resolve to it.
package pulse

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
	"github.com/rs/zerolog"

	"github.com/gen2brain/audiodev"
	"github.com/gen2brain/audiodev/internal/peak"
	"github.com/gen2brain/audiodev/internal/poll"
)

// volumeNorm is the channel volume of 100%.
const volumeNorm = 0x10000

// pollInterval is how often Notify rescans the server.
const pollInterval = 500 * time.Millisecond

// ErrNoDevice is returned for a name that is neither a sink nor a non-monitor source.
var ErrNoDevice = errors.New("no such sink or source")

var (
	_ audiodev.Binding  = (*Binding)(nil)
	_ audiodev.Notifier = (*Binding)(nil)
)

// Requester sends one protocol request and decodes its reply. *pulse.Client implements it.
type Requester interface {
	RawRequest(req proto.RequestArgs, rpl proto.Reply) error
}

// Binding is an audiodev.Binding over a PulseAudio server connection. It is safe for concurrent use.
type Binding struct {
	req    Requester
	closer io.Closer
	server string
	logger zerolog.Logger

	mu     sync.Mutex
	meters map[string]*peak.Meter
}

// Option configures a Binding.
type Option func(*Binding)

// WithServer sets the server address, e.g. "unix:/run/user/1000/pulse/native".
// The default follows PULSE_SERVER and the usual runtime directory lookup.
func WithServer(server string) Option {
	return func(b *Binding) {
		b.server = server
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *Binding) {
		b.logger = logger
	}
}

// New connects to the server.
func New(opts ...Option) (*Binding, error) {
	b := newBinding(opts)

	clientOpts := []pulse.ClientOption{pulse.ClientApplicationName("audiodev")}
	if b.server != "" {
		clientOpts = append(clientOpts, pulse.ClientServerString(b.server))
	}

	client, err := pulse.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to pulse server: %w", err)
	}

	b.req = client
	b.closer = closeFunc(func() error {
		client.Close()

		return nil
	})

	return b, nil
}

// NewWithRequester returns a binding sending its requests to r.
func NewWithRequester(r Requester, opts ...Option) *Binding {
	b := newBinding(opts)
	b.req = r

	return b
}

func newBinding(opts []Option) *Binding {
	b := &Binding{
		logger: zerolog.Nop(),
		meters: make(map[string]*peak.Meter),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Close stops the capture meters and disconnects.
func (b *Binding) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for name, m := range b.meters {
		errs = append(errs, m.Close())
		delete(b.meters, name)
	}

	if b.closer != nil {
		errs = append(errs, b.closer.Close())
		b.closer = nil
	}

	return errors.Join(errs...)
}

// endpoint is the part of a sink or source reply the binding uses.
type endpoint struct {
	name    string
	desc    string
	flow    audiodev.Flow
	volumes proto.ChannelVolumes
	mute    bool
	meter   string // Source to capture for the meter.
}

func (b *Binding) list() ([]endpoint, error) {
	var sinks proto.GetSinkInfoListReply
	if err := b.request(&proto.GetSinkInfoList{}, &sinks); err != nil {
		return nil, err
	}

	var sources proto.GetSourceInfoListReply
	if err := b.request(&proto.GetSourceInfoList{}, &sources); err != nil {
		return nil, err
	}

	out := make([]endpoint, 0, len(sinks)+len(sources))
	for _, s := range sinks {
		out = append(out, endpoint{
			name:    s.SinkName,
			desc:    s.Device,
			flow:    audiodev.Playback,
			volumes: s.ChannelVolumes,
			mute:    s.Mute,
			meter:   s.MonitorSourceName,
		})
	}

	for _, s := range sources {
		if s.MonitorSourceIndex != proto.Undefined {
			continue
		}

		out = append(out, endpoint{
			name:    s.SourceName,
			desc:    s.Device,
			flow:    audiodev.Recording,
			volumes: s.ChannelVolumes,
			mute:    s.Mute,
			meter:   s.SourceName,
		})
	}

	return out, nil
}

func (b *Binding) lookup(id string) (endpoint, error) {
	eps, err := b.list()
	if err != nil {
		return endpoint{}, err
	}

	for _, ep := range eps {
		if ep.name == id {
			return ep, nil
		}
	}

	return endpoint{}, fmt.Errorf("%w: %s", ErrNoDevice, id)
}

// Enumerate lists sinks, then sources. The server only reports present devices, all of them active.
func (b *Binding) Enumerate(flow audiodev.Flow, mask audiodev.State) ([]audiodev.RawEndpoint, error) {
	eps, err := b.list()
	if err != nil {
		return nil, err
	}

	if mask&audiodev.StateActive == 0 {
		return nil, nil
	}

	var raws []audiodev.RawEndpoint
	for _, ep := range eps {
		if flow == audiodev.FlowAll || ep.flow == flow {
			raws = append(raws, rawEndpoint(ep))
		}
	}

	return raws, nil
}

// DefaultEndpointID returns the server default sink or source for either role.
func (b *Binding) DefaultEndpointID(flow audiodev.Flow, _ audiodev.Role) (string, error) {
	var info proto.GetServerInfoReply
	if err := b.request(&proto.GetServerInfo{}, &info); err != nil {
		return "", err
	}

	if flow == audiodev.Recording {
		return info.DefaultSourceName, nil
	}

	return info.DefaultSinkName, nil
}

// VolumeScalar returns the mean channel volume. Amplified volumes report as 1.
func (b *Binding) VolumeScalar(id string) (float32, error) {
	ep, err := b.lookup(id)
	if err != nil {
		return 0, err
	}

	return scalar(ep.volumes), nil
}

// SetVolumeScalar writes v to every channel.
func (b *Binding) SetVolumeScalar(id string, v float32) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("volume scalar %v out of range [0, 1]", v)
	}

	ep, err := b.lookup(id)
	if err != nil {
		return err
	}

	volumes := channelVolumes(v, len(ep.volumes))
	if ep.flow == audiodev.Recording {
		return b.request(&proto.SetSourceVolume{SourceIndex: proto.Undefined, SourceName: id, ChannelVolumes: volumes}, nil)
	}

	return b.request(&proto.SetSinkVolume{SinkIndex: proto.Undefined, SinkName: id, ChannelVolumes: volumes}, nil)
}

// Mute returns the mute flag of the sink or source.
func (b *Binding) Mute(id string) (bool, error) {
	ep, err := b.lookup(id)
	if err != nil {
		return false, err
	}

	return ep.mute, nil
}

// SetMute sets the mute flag of the sink or source.
func (b *Binding) SetMute(id string, mute bool) error {
	ep, err := b.lookup(id)
	if err != nil {
		return err
	}

	if ep.flow == audiodev.Recording {
		return b.request(&proto.SetSourceMute{SourceIndex: proto.Undefined, SourceName: id, Mute: mute}, nil)
	}

	return b.request(&proto.SetSinkMute{SinkIndex: proto.Undefined, SinkName: id, Mute: mute}, nil)
}

// MeterPeak returns the peak captured since the previous call. Sinks are metered through their monitor source.
// The capture stream is opened on first use and kept running until Close.
func (b *Binding) MeterPeak(id string) (float32, error) {
	ep, err := b.lookup(id)
	if err != nil {
		return 0, err
	}

	if ep.meter == "" {
		return 0, fmt.Errorf("metering %s: no monitor source", id)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	m, ok := b.meters[ep.meter]
	if !ok {
		m, err = peak.Open(peak.Pulse, ep.meter)
		if err != nil {
			return 0, err
		}

		b.logger.Debug().Str("id", id).Str("source", ep.meter).Msg("capture meter started")
		b.meters[ep.meter] = m
	}

	return m.Peak(), nil
}

// ProbePolicy returns the server default writer as the only policy backend.
func (b *Binding) ProbePolicy(v audiodev.PolicyVersion) (audiodev.PolicyBackend, error) {
	if v != audiodev.PolicyV1 {
		return nil, audiodev.ErrPolicyUnavailable
	}

	return policyBackend{b: b}, nil
}

// Notify rescans the server for added and removed devices, volume and mute changes and default changes.
func (b *Binding) Notify(fn func(audiodev.Event)) (audiodev.Registration, error) {
	var mu sync.Mutex
	emit := func(ev audiodev.Event) {
		mu.Lock()
		defer mu.Unlock()

		fn(ev)
	}

	w, err := poll.Start(pollInterval, b.scan, emit, b.logger)
	if err != nil {
		return nil, err
	}

	b.logger.Debug().Msg("pulse watcher started")

	return w, nil
}

func (b *Binding) scan() (poll.Snapshot, error) {
	eps, err := b.list()
	if err != nil {
		return poll.Snapshot{}, err
	}

	snap := poll.Snapshot{Streams: make(map[string]poll.Stream, len(eps))}
	for _, ep := range eps {
		snap.Streams[ep.name] = poll.Stream{
			Flow:  ep.flow,
			Props: strconv.Itoa(audiodev.ScalarToPercent(scalar(ep.volumes))) + "/" + strconv.FormatBool(ep.mute),
		}
	}

	var info proto.GetServerInfoReply
	if err := b.request(&proto.GetServerInfo{}, &info); err != nil {
		return poll.Snapshot{}, err
	}

	for _, role := range audiodev.Roles {
		snap.Defaults[audiodev.Playback][role] = info.DefaultSinkName
		snap.Defaults[audiodev.Recording][role] = info.DefaultSourceName
	}

	return snap, nil
}

// request sends req and attaches the protocol error code to failures.
func (b *Binding) request(req proto.RequestArgs, rpl proto.Reply) error {
	err := b.req.RawRequest(req, rpl)
	if err == nil {
		return nil
	}

	var perr proto.Error
	if errors.As(err, &perr) {
		return &codeError{code: uintptr(perr), err: err}
	}

	return err
}

// scalar returns the mean of the channel volumes as a 0.0-1.0 scalar.
func scalar(volumes proto.ChannelVolumes) float32 {
	if len(volumes) == 0 {
		return 0
	}

	var sum float64
	for _, v := range volumes {
		sum += float64(v)
	}

	return float32(math.Min(sum/float64(len(volumes))/volumeNorm, 1))
}

// channelVolumes returns n channels set to v.
func channelVolumes(v float32, n int) proto.ChannelVolumes {
	if n == 0 {
		n = 1
	}

	volumes := make(proto.ChannelVolumes, n)
	for i := range volumes {
		volumes[i] = uint32(math.Round(float64(v) * volumeNorm))
	}

	return volumes
}

// codeError carries a pulse protocol error code.
type codeError struct {
	code uintptr
	err  error
}

func (e *codeError) Error() string { return e.err.Error() }
func (e *codeError) Unwrap() error { return e.err }
func (e *codeError) Code() uintptr { return e.code }

type rawEndpoint endpoint

func (r rawEndpoint) ID() (string, error) { return r.name, nil }
func (r rawEndpoint) Name() (string, error) { return r.desc, nil }
func (r rawEndpoint) Flow() (audiodev.Flow, error) { return r.flow, nil }
func (r rawEndpoint) State() (audiodev.State, error) { return audiodev.StateActive, nil }

type policyBackend struct {
	b *Binding
}

// SetDefaultEndpoint sets the server default. The role is ignored because the server keeps one default per direction.
func (p policyBackend) SetDefaultEndpoint(id string, role audiodev.Role) error {
	ep, err := p.b.lookup(id)
	if err != nil {
		return err
	}

	p.b.logger.Debug().Str("id", id).Stringer("role", role).Msg("setting server default, shared by both roles")

	if ep.flow == audiodev.Recording {
		return p.b.request(&proto.SetDefaultSource{SourceName: id}, nil)
	}

	return p.b.request(&proto.SetDefaultSink{SinkName: id}, nil)
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }
