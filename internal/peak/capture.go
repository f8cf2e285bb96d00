//go:build cgo

package peak

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// Meter keeps a capture device running and tracks the peak since the last read.
type Meter struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	mu   sync.Mutex
	peak float32
}

// Open starts capturing from the device with the given backend specific id.
// For Alsa the id is a PCM name such as "hw:CARD=PCH,DEV=0", for Pulse a source name.
func Open(backend Backend, id string) (*Meter, error) {
	var backends []malgo.Backend
	switch backend {
	case Alsa:
		backends = []malgo.Backend{malgo.BackendAlsa}
	case Pulse:
		backends = []malgo.Backend{malgo.BackendPulseaudio}
	default:
		return nil, fmt.Errorf("unknown capture backend %d", backend)
	}

	ctx, err := malgo.InitContext(backends, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to init capture context: %w", err)
	}

	m := &Meter{ctx: ctx}

	var deviceID malgo.DeviceID
	copy(deviceID[:len(deviceID)-1], id)

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = sampleRate
	config.Capture.DeviceID = deviceID.Pointer()
	config.Capture.Format = malgo.FormatS16
	config.Capture.Channels = channels
	config.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			p := Of(S16LE(input, channels))

			m.mu.Lock()
			if p > m.peak {
				m.peak = p
			}
			m.mu.Unlock()
		},
	}

	m.device, err = malgo.InitDevice(ctx.Context, config, callbacks)
	if err != nil {
		m.free()

		return nil, fmt.Errorf("failed to open capture device %s: %w", id, err)
	}

	if err := m.device.Start(); err != nil {
		m.device.Uninit()
		m.free()

		return nil, fmt.Errorf("failed to start capture device %s: %w", id, err)
	}

	return m, nil
}

// Peak returns the highest level seen since the previous call and resets it.
func (m *Meter) Peak() float32 {
	if m == nil {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.peak
	m.peak = 0

	return p
}

// Close stops the device and releases the capture context.
func (m *Meter) Close() error {
	if m == nil || m.device == nil {
		return nil
	}

	m.device.Uninit()
	m.device = nil
	m.free()

	return nil
}

func (m *Meter) free() {
	_ = m.ctx.Uninit()
	m.ctx.Free()
}
