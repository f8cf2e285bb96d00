package audiodev_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/audiodev"
)

func TestResolveDefault(t *testing.T) {
	snap, err := audiodev.NewDirectory(newScenario(t)).Build()
	require.NoError(t, err)

	ep, ok := audiodev.ResolveDefault(snap, audiodev.Playback, audiodev.Multimedia)
	require.True(t, ok)
	assert.Equal(t, "A", ep.ID)

	ep, ok = audiodev.ResolveDefault(snap, audiodev.Recording, audiodev.Communications)
	require.True(t, ok)
	assert.Equal(t, "C", ep.ID)

	ep, ok = audiodev.ResolveDefault(snap, audiodev.Recording, audiodev.Multimedia)
	require.True(t, ok)
	assert.Equal(t, "C", ep.ID)

	_, ok = audiodev.ResolveDefault(snap, audiodev.Playback, audiodev.Communications)
	assert.False(t, ok)

	_, ok = audiodev.ResolveDefault(nil, audiodev.Playback, audiodev.Multimedia)
	assert.False(t, ok)
}
