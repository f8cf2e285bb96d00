package poll_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/audiodev"
	"github.com/gen2brain/audiodev/internal/poll"
)

func TestDiff(t *testing.T) {
	before := poll.Snapshot{
		Streams: map[string]poll.Stream{
			"a": {Flow: audiodev.Playback, Props: "50"},
			"b": {Flow: audiodev.Playback},
		},
	}
	before.Defaults[audiodev.Playback][audiodev.Multimedia] = "a"

	after := poll.Snapshot{
		Streams: map[string]poll.Stream{
			"a": {Flow: audiodev.Playback, Props: "60"},
			"c": {Flow: audiodev.Recording},
		},
	}
	after.Defaults[audiodev.Playback][audiodev.Multimedia] = "a"
	after.Defaults[audiodev.Recording][audiodev.Communications] = "c"

	events := poll.Diff(before, after)
	require.Len(t, events, 4)

	assert.Equal(t, audiodev.Event{Kind: audiodev.EventRemoved, ID: "b", Flow: audiodev.Playback}, events[0])
	assert.Equal(t, audiodev.Event{Kind: audiodev.EventAdded, ID: "c", Flow: audiodev.Recording}, events[1])
	assert.Equal(t, audiodev.Event{Kind: audiodev.EventPropertyChanged, ID: "a", Flow: audiodev.Playback}, events[2])
	assert.Equal(t, audiodev.Event{
		Kind: audiodev.EventDefaultChanged,
		ID:   "c",
		Flow: audiodev.Recording,
		Role: audiodev.Communications,
	}, events[3])

	assert.Empty(t, poll.Diff(after, after))
}

func TestWatcher(t *testing.T) {
	var (
		mu     sync.Mutex
		scans  int
		events []audiodev.Event
	)

	scan := func() (poll.Snapshot, error) {
		mu.Lock()
		defer mu.Unlock()

		scans++
		switch {
		case scans == 1:
			return poll.Snapshot{}, nil
		case scans == 2:
			return poll.Snapshot{}, errors.New("transient")
		}

		return poll.Snapshot{Streams: map[string]poll.Stream{"x": {Flow: audiodev.Recording}}}, nil
	}

	emit := func(ev audiodev.Event) {
		mu.Lock()
		defer mu.Unlock()

		events = append(events, ev)
	}

	w, err := poll.Start(5*time.Millisecond, scan, emit, zerolog.Nop())
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(events) > 0
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "second close must be a no-op")

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, events, 1, "an unchanged rescan must not emit")
	assert.Equal(t, audiodev.Event{Kind: audiodev.EventAdded, ID: "x", Flow: audiodev.Recording}, events[0])

	_, err = poll.Start(time.Millisecond, func() (poll.Snapshot, error) {
		return poll.Snapshot{}, errors.New("down")
	}, emit, zerolog.Nop())
	assert.Error(t, err, "a failing first scan must fail Start")
}
