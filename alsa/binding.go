//go:build linux

package alsa

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gen2brain/audiodev"
	"github.com/gen2brain/audiodev/internal/peak"
	"github.com/gen2brain/audiodev/internal/poll"
)

// ErrNoDevice is returned for an endpoint id that does not name a present PCM stream.
var ErrNoDevice = errors.New("no such pcm stream")

// Mixer controls tried in order when looking up the volume and mute of an endpoint.
var (
	playbackVolume = []string{"Master Playback Volume", "PCM Playback Volume", "Speaker Playback Volume", "Headphone Playback Volume"}
	playbackSwitch = []string{"Master Playback Switch", "PCM Playback Switch", "Speaker Playback Switch", "Headphone Playback Switch"}
	captureVolume  = []string{"Capture Volume", "Mic Capture Volume"}
	captureSwitch  = []string{"Capture Switch", "Mic Capture Switch"}
)

const (
	// waitTimeout bounds how long a mixer watcher blocks, so Close returns promptly.
	waitTimeout = 250 * time.Millisecond
	// pollInterval is how often the watcher rescans streams and defaults.
	pollInterval = 500 * time.Millisecond
)

var (
	_ audiodev.Binding  = (*Binding)(nil)
	_ audiodev.Notifier = (*Binding)(nil)
)

// Binding is an audiodev.Binding over the kernel ALSA interfaces. It is safe for concurrent use.
type Binding struct {
	procRoot string
	rcPath   string
	logger   zerolog.Logger

	mu     sync.Mutex
	meters map[string]*peak.Meter
}

// Option configures a Binding.
type Option func(*Binding)

// WithProcRoot sets the procfs directory listing the cards. The default is /proc/asound.
func WithProcRoot(dir string) Option {
	return func(b *Binding) {
		b.procRoot = dir
	}
}

// WithASoundRC sets the file holding the managed defaults block. The default is ~/.asoundrc.
func WithASoundRC(path string) Option {
	return func(b *Binding) {
		b.rcPath = path
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *Binding) {
		b.logger = logger
	}
}

// New returns an ALSA binding.
func New(opts ...Option) (*Binding, error) {
	b := &Binding{
		procRoot: procRoot,
		logger:   zerolog.Nop(),
		meters:   make(map[string]*peak.Meter),
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.rcPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not locate asoundrc: %w", err)
		}

		b.rcPath = filepath.Join(home, ".asoundrc")
	}

	return b, nil
}

// Close stops all running capture meters.
func (b *Binding) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for id, m := range b.meters {
		errs = append(errs, m.Close())
		delete(b.meters, id)
	}

	return errors.Join(errs...)
}

// Enumerate lists the PCM streams in card order. Streams listed by the kernel are always active.
func (b *Binding) Enumerate(flow audiodev.Flow, mask audiodev.State) ([]audiodev.RawEndpoint, error) {
	cards, err := EnumerateCards(b.procRoot)
	if err != nil {
		return nil, err
	}

	if mask&audiodev.StateActive == 0 {
		return nil, nil
	}

	var raws []audiodev.RawEndpoint
	for _, card := range cards {
		for _, dev := range card.Devices {
			if flow != audiodev.FlowAll && dev.Flow() != flow {
				continue
			}

			raws = append(raws, rawEndpoint{
				id:   EndpointID(card.ID, dev.ID, dev.Flow()),
				name: fmt.Sprintf("%s: %s", card.Description, dev.Description),
				flow: dev.Flow(),
			})
		}
	}

	return raws, nil
}

// DefaultEndpointID reads the managed block of the asoundrc.
// Communications falls back to the multimedia stream, and without any configured stream
// the first stream of the flow is the default, as ALSA itself would pick card 0.
func (b *Binding) DefaultEndpointID(flow audiodev.Flow, role audiodev.Role) (string, error) {
	d, _, err := LoadDefaults(b.rcPath)
	if err != nil {
		return "", err
	}

	pcm := d.Get(flow, role)
	if pcm == "" {
		pcm = d.Get(flow, audiodev.Multimedia)
	}

	if pcm != "" {
		return pcm + flowSuffix(flow), nil
	}

	raws, err := b.Enumerate(flow, audiodev.StateActive)
	if err != nil {
		return "", err
	}

	if len(raws) == 0 {
		return "", nil
	}

	return raws[0].ID()
}

// VolumeScalar returns the average of all channels of the volume control, scaled to 0.0-1.0.
func (b *Binding) VolumeScalar(id string) (float32, error) {
	var v float32

	err := b.withCtl(id, false, func(ctl *MixerCtl) error {
		minVal, err := ctl.RangeMin()
		if err != nil {
			return err
		}

		maxVal, err := ctl.RangeMax()
		if err != nil {
			return err
		}

		if maxVal <= minVal || ctl.NumValues() == 0 {
			return nil
		}

		var sum float64
		for i := uint(0); i < uint(ctl.NumValues()); i++ {
			value, err := ctl.Value(i)
			if err != nil {
				return err
			}

			sum += float64(value-minVal) / float64(maxVal-minVal)
		}

		v = float32(sum / float64(ctl.NumValues()))

		return nil
	})

	return v, err
}

// SetVolumeScalar sets all channels of the volume control.
func (b *Binding) SetVolumeScalar(id string, v float32) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("volume scalar %v out of range [0, 1]", v)
	}

	return b.withCtl(id, false, func(ctl *MixerCtl) error {
		minVal, err := ctl.RangeMin()
		if err != nil {
			return err
		}

		maxVal, err := ctl.RangeMax()
		if err != nil {
			return err
		}

		return ctl.SetAll(minVal + int(math.Round(float64(v)*float64(maxVal-minVal))))
	})
}

// Mute reports whether every channel of the switch control is off.
func (b *Binding) Mute(id string) (bool, error) {
	mute := true

	err := b.withCtl(id, true, func(ctl *MixerCtl) error {
		for i := uint(0); i < uint(ctl.NumValues()); i++ {
			value, err := ctl.Value(i)
			if err != nil {
				return err
			}

			if value != 0 {
				mute = false
			}
		}

		return nil
	})

	return mute, err
}

// SetMute turns all channels of the switch control off or on.
func (b *Binding) SetMute(id string, mute bool) error {
	value := 1
	if mute {
		value = 0
	}

	return b.withCtl(id, true, func(ctl *MixerCtl) error {
		return ctl.SetAll(value)
	})
}

// MeterPeak returns the peak captured since the previous call.
// The capture stream is opened on first use and kept running until Close.
// Playback streams cannot be metered.
func (b *Binding) MeterPeak(id string) (float32, error) {
	cardID, device, flow, err := ParseEndpointID(id)
	if err != nil {
		return 0, err
	}

	if flow != audiodev.Recording {
		return 0, fmt.Errorf("metering %s: playback streams have no meter", id)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	m, ok := b.meters[id]
	if !ok {
		m, err = peak.Open(peak.Alsa, PCMName(cardID, device))
		if err != nil {
			return 0, err
		}

		b.logger.Debug().Str("id", id).Msg("capture meter started")
		b.meters[id] = m
	}

	return m.Peak(), nil
}

// ProbePolicy returns the asoundrc writer as the only policy backend.
func (b *Binding) ProbePolicy(v audiodev.PolicyVersion) (audiodev.PolicyBackend, error) {
	if v != audiodev.PolicyV1 {
		return nil, audiodev.ErrPolicyUnavailable
	}

	return policyBackend{b: b}, nil
}

// Notify watches the control devices of all cards for value changes and polls
// the stream list and the managed defaults for additions, removals and default changes.
func (b *Binding) Notify(fn func(audiodev.Event)) (audiodev.Registration, error) {
	cards, err := EnumerateCards(b.procRoot)
	if err != nil {
		return nil, err
	}

	w := &watcher{b: b, fn: fn, done: make(chan struct{})}

	for _, card := range cards {
		m, err := MixerOpen(uint(card.Index))
		if err != nil {
			b.logger.Warn().Err(err).Str("card", card.ID).Msg("skipping card without control device")

			continue
		}

		if err := m.SubscribeEvents(true); err != nil {
			_ = m.Close()
			w.closeMixers()

			return nil, err
		}

		w.mixers = append(w.mixers, cardMixer{card: card.ID, mixer: m})
	}

	w.poller, err = poll.Start(pollInterval, b.scan, w.emit, b.logger)
	if err != nil {
		w.closeMixers()

		return nil, err
	}

	w.wg.Add(len(w.mixers))
	for _, cm := range w.mixers {
		go w.listen(cm)
	}

	return w, nil
}

func (b *Binding) lookup(id string) (SoundCard, SoundCardDevice, error) {
	cardID, device, flow, err := ParseEndpointID(id)
	if err != nil {
		return SoundCard{}, SoundCardDevice{}, err
	}

	cards, err := EnumerateCards(b.procRoot)
	if err != nil {
		return SoundCard{}, SoundCardDevice{}, err
	}

	for _, card := range cards {
		if card.ID != cardID {
			continue
		}

		for _, dev := range card.Devices {
			if dev.ID == device && dev.Flow() == flow {
				return card, dev, nil
			}
		}
	}

	return SoundCard{}, SoundCardDevice{}, fmt.Errorf("%w: %s", ErrNoDevice, id)
}

// withCtl opens the mixer of the card holding id and runs fn with its volume or switch control.
func (b *Binding) withCtl(id string, isSwitch bool, fn func(*MixerCtl) error) error {
	card, dev, err := b.lookup(id)
	if err != nil {
		return err
	}

	m, err := MixerOpen(uint(card.Index))
	if err != nil {
		return err
	}
	defer m.Close()

	ctl, err := m.FindCtl(controlNames(dev.Flow(), isSwitch), uint32(dev.ID))
	if err != nil {
		return err
	}

	return fn(ctl)
}

func controlNames(flow audiodev.Flow, isSwitch bool) []string {
	switch {
	case flow == audiodev.Recording && isSwitch:
		return captureSwitch
	case flow == audiodev.Recording:
		return captureVolume
	case isSwitch:
		return playbackSwitch
	}

	return playbackVolume
}

// controlFlow guesses the flow a control belongs to from its name.
func controlFlow(name string) audiodev.Flow {
	if strings.Contains(name, "Capture") || strings.HasPrefix(name, "Mic") {
		return audiodev.Recording
	}

	return audiodev.Playback
}

type rawEndpoint struct {
	id   string
	name string
	flow audiodev.Flow
}

func (r rawEndpoint) ID() (string, error) { return r.id, nil }
func (r rawEndpoint) Name() (string, error) { return r.name, nil }
func (r rawEndpoint) Flow() (audiodev.Flow, error) { return r.flow, nil }
func (r rawEndpoint) State() (audiodev.State, error) { return audiodev.StateActive, nil }

type policyBackend struct {
	b *Binding
}

// SetDefaultEndpoint rewrites the managed block so the stream becomes the default for role.
func (p policyBackend) SetDefaultEndpoint(id string, role audiodev.Role) error {
	if _, _, err := p.b.lookup(id); err != nil {
		return err
	}

	pcm, dir, _ := strings.Cut(id, "/")

	flow := audiodev.Playback
	if dir == "c" {
		flow = audiodev.Recording
	}

	d, _, err := LoadDefaults(p.b.rcPath)
	if err != nil {
		return err
	}

	// Pin every unset slot to what it resolves to now, so only the requested flow and role change.
	// Both roles and both flows are pinned, an asym block missing a flow breaks that direction.
	for _, f := range audiodev.Flows {
		for _, r := range audiodev.Roles {
			if d.Get(f, r) != "" {
				continue
			}

			current, err := p.b.DefaultEndpointID(f, r)
			if err != nil {
				return err
			}

			d.Set(f, r, strings.TrimSuffix(current, flowSuffix(f)))
		}
	}

	d.Set(flow, role, pcm)

	if err := SaveDefaults(p.b.rcPath, d); err != nil {
		return err
	}

	p.b.logger.Debug().Str("id", id).Stringer("role", role).Str("path", p.b.rcPath).Msg("asoundrc updated")

	return nil
}
