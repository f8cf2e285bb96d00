package audiodev_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gen2brain/audiodev"
	"github.com/gen2brain/audiodev/memory"
)

// newScenario returns two playback endpoints A (multimedia default) and B,
// and one recording endpoint C that is default for both roles.
func newScenario(t *testing.T, opts ...memory.Option) *memory.Binding {
	t.Helper()

	base := []memory.Option{
		memory.WithDevices(
			memory.Device{ID: "A", Name: "Speakers", Flow: audiodev.Playback, Volume: 0.5},
			memory.Device{ID: "B", Name: "Headphones", Flow: audiodev.Playback, Volume: 0.2},
			memory.Device{ID: "C", Name: "Microphone", Flow: audiodev.Recording, Volume: 0.8, Peak: 0.33},
		),
		memory.WithDefault(audiodev.Playback, audiodev.Multimedia, "A"),
		memory.WithDefault(audiodev.Recording, audiodev.Multimedia, "C"),
		memory.WithDefault(audiodev.Recording, audiodev.Communications, "C"),
	}

	b, err := memory.New(append(base, opts...)...)
	require.NoError(t, err)

	return b
}

// hideOptional exposes only the Binding methods, hiding stepping and notification support.
type hideOptional struct {
	audiodev.Binding
}
