//go:build linux

package alsa

import (
	"sync"

	"github.com/gen2brain/audiodev"
	"github.com/gen2brain/audiodev/internal/poll"
)

type cardMixer struct {
	card  string
	mixer *Mixer
}

// watcher delivers change events until closed. Events from all goroutines are serialized.
type watcher struct {
	b      *Binding
	fn     func(audiodev.Event)
	mixers []cardMixer

	poller *poll.Watcher

	mu   sync.Mutex
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// Close stops delivery and waits for the watcher goroutines to exit.
func (w *watcher) Close() error {
	w.once.Do(func() {
		close(w.done)
		_ = w.poller.Close()
		w.wg.Wait()
		w.closeMixers()
	})

	return nil
}

func (w *watcher) emit(ev audiodev.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}

	w.fn(ev)
}

func (w *watcher) closeMixers() {
	for _, cm := range w.mixers {
		_ = cm.mixer.Close()
	}
}

// listen turns control value changes of one card into property change events.
func (w *watcher) listen(cm cardMixer) {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		default:
		}

		ok, err := cm.mixer.WaitEvent(waitTimeout)
		if err != nil {
			w.b.logger.Warn().Err(err).Str("card", cm.card).Msg("mixer wait failed")

			return
		}

		if !ok {
			continue
		}

		events, err := cm.mixer.ReadEvents()
		if err != nil {
			continue
		}

		for _, ev := range events {
			if ev.Type == SNDRV_CTL_EVENT_MASK_REMOVE_ALL {
				// The card went away, the poller reports its streams as removed.
				return
			}

			if ev.Type&SNDRV_CTL_EVENT_MASK_VALUE != 0 {
				w.changed(cm, ev.ControlID)
			}
		}
	}
}

// changed reports the endpoint behind a changed volume or switch control.
func (w *watcher) changed(cm cardMixer, id uint32) {
	ctl, err := cm.mixer.Ctl(id)
	if err != nil {
		return
	}

	flow := controlFlow(ctl.Name())
	w.emit(audiodev.Event{
		Kind: audiodev.EventPropertyChanged,
		ID:   EndpointID(cm.card, int(ctl.Device()), flow),
		Flow: flow,
	})
}

// scan lists the present streams and the current defaults.
func (b *Binding) scan() (poll.Snapshot, error) {
	raws, err := b.Enumerate(audiodev.FlowAll, audiodev.StateActive)
	if err != nil {
		return poll.Snapshot{}, err
	}

	snap := poll.Snapshot{Streams: make(map[string]poll.Stream, len(raws))}
	for _, raw := range raws {
		r := raw.(rawEndpoint)
		// Property changes come from mixer events, so no fingerprint is kept.
		snap.Streams[r.id] = poll.Stream{Flow: r.flow}
	}

	for _, flow := range audiodev.Flows {
		for _, role := range audiodev.Roles {
			id, err := b.DefaultEndpointID(flow, role)
			if err != nil {
				return poll.Snapshot{}, err
			}

			snap.Defaults[flow][role] = id
		}
	}

	return snap, nil
}
