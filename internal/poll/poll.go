// Package poll detects endpoint changes by rescanning a subsystem at a fixed interval.
// It backs the change notifications of bindings whose subsystem has no usable event source.
package poll

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gen2brain/audiodev"
)

// Stream is the observed state of one endpoint.
// Props is an opaque fingerprint of its properties, a change is reported as EventPropertyChanged.
type Stream struct {
	Flow  audiodev.Flow
	Props string
}

// Snapshot is one scan of the subsystem.
type Snapshot struct {
	Streams  map[string]Stream
	Defaults [2][2]string
}

// Diff returns the events that turn before into after.
// Removals come first, then additions, property changes and default changes.
func Diff(before, after Snapshot) []audiodev.Event {
	var events []audiodev.Event

	for id, s := range before.Streams {
		if _, ok := after.Streams[id]; !ok {
			events = append(events, audiodev.Event{Kind: audiodev.EventRemoved, ID: id, Flow: s.Flow})
		}
	}

	for id, s := range after.Streams {
		if _, ok := before.Streams[id]; !ok {
			events = append(events, audiodev.Event{Kind: audiodev.EventAdded, ID: id, Flow: s.Flow})
		}
	}

	for id, s := range after.Streams {
		if prev, ok := before.Streams[id]; ok && prev.Props != s.Props {
			events = append(events, audiodev.Event{Kind: audiodev.EventPropertyChanged, ID: id, Flow: s.Flow})
		}
	}

	for _, flow := range audiodev.Flows {
		for _, role := range audiodev.Roles {
			if before.Defaults[flow][role] != after.Defaults[flow][role] {
				events = append(events, audiodev.Event{
					Kind: audiodev.EventDefaultChanged,
					ID:   after.Defaults[flow][role],
					Flow: flow,
					Role: role,
				})
			}
		}
	}

	return events
}

// Watcher rescans until closed.
type Watcher struct {
	scan   func() (Snapshot, error)
	emit   func(audiodev.Event)
	logger zerolog.Logger
	last   Snapshot

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// Start takes an initial scan and then rescans every interval, passing the differences to emit.
// A failed rescan is logged and skipped, the next one is compared against the last good scan.
func Start(interval time.Duration, scan func() (Snapshot, error), emit func(audiodev.Event), logger zerolog.Logger) (*Watcher, error) {
	first, err := scan()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		scan:   scan,
		emit:   emit,
		logger: logger,
		last:   first,
		done:   make(chan struct{}),
	}

	w.wg.Add(1)
	go w.run(interval)

	return w, nil
}

// Close stops the watcher and waits for the pending scan to finish. It is safe to call more than once.
func (w *Watcher) Close() error {
	if w == nil {
		return nil
	}

	w.once.Do(func() {
		close(w.done)
		w.wg.Wait()
	})

	return nil
}

func (w *Watcher) run(interval time.Duration) {
	defer w.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
		}

		next, err := w.scan()
		if err != nil {
			w.logger.Debug().Err(err).Msg("rescan failed")

			continue
		}

		for _, ev := range Diff(w.last, next) {
			select {
			case <-w.done:
				return
			default:
			}

			w.emit(ev)
		}

		w.last = next
	}
}
