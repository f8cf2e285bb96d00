//go:build windows

package wasapi

import (
	"fmt"
	"sync"

	"github.com/moutend/go-wca/pkg/wca"

	"github.com/gen2brain/audiodev"
)

// Notify registers an IMMNotificationClient. Callbacks arrive on system threads and are serialized before fn.
func (b *Binding) Notify(fn func(audiodev.Event)) (audiodev.Registration, error) {
	reg := &registration{b: b, fn: fn}

	reg.client = wca.NewIMMNotificationClient(wca.IMMNotificationClientCallback{
		OnDefaultDeviceChanged: reg.onDefaultDeviceChanged,
		OnDeviceAdded:          reg.onDeviceAdded,
		OnDeviceRemoved:        reg.onDeviceRemoved,
		OnDeviceStateChanged:   reg.onDeviceStateChanged,
		OnPropertyValueChanged: reg.onPropertyValueChanged,
	})

	err := b.do(func() error {
		return b.mmde.RegisterEndpointNotificationCallback(reg.client)
	})
	if err != nil {
		return nil, fmt.Errorf("RegisterEndpointNotificationCallback failed: %w", err)
	}

	b.logger.Debug().Msg("endpoint notification client registered")

	return reg, nil
}

type registration struct {
	b      *Binding
	client *wca.IMMNotificationClient

	mu     sync.Mutex
	fn     func(audiodev.Event)
	closed bool
	once   sync.Once
	err    error
}

// Close unregisters the notification client. Callbacks already running finish before it returns.
func (r *registration) Close() error {
	r.once.Do(func() {
		r.err = r.b.do(func() error {
			return r.b.mmde.UnregisterEndpointNotificationCallback(r.client)
		})

		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()

		r.b.logger.Debug().Msg("endpoint notification client unregistered")
	})

	return r.err
}

func (r *registration) emit(ev audiodev.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.closed {
		r.fn(ev)
	}
}

func (r *registration) onDefaultDeviceChanged(flow wca.EDataFlow, role wca.ERole, id string) error {
	ev := audiodev.Event{Kind: audiodev.EventDefaultChanged, ID: id, Flow: toFlow(uint32(flow))}

	switch uint32(role) {
	case eMultimedia:
		ev.Role = audiodev.Multimedia
	case eCommunications:
		ev.Role = audiodev.Communications
	default:
		// eConsole always moves together with eMultimedia.
		return nil
	}

	r.emit(ev)

	return nil
}

func (r *registration) onDeviceAdded(id string) error {
	r.emit(audiodev.Event{Kind: audiodev.EventAdded, ID: id})

	return nil
}

func (r *registration) onDeviceRemoved(id string) error {
	r.emit(audiodev.Event{Kind: audiodev.EventRemoved, ID: id})

	return nil
}

func (r *registration) onDeviceStateChanged(id string, state uint64) error {
	r.emit(audiodev.Event{Kind: audiodev.EventStateChanged, ID: id, State: deviceState(uint32(state))})

	return nil
}

func (r *registration) onPropertyValueChanged(id string, _ uint64) error {
	r.emit(audiodev.Event{Kind: audiodev.EventPropertyChanged, ID: id})

	return nil
}
