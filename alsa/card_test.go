package alsa_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/audiodev"
	"github.com/gen2brain/audiodev/alsa"
)

func TestParseCards(t *testing.T) {
	cards, err := alsa.ParseCards(strings.NewReader(testCards))
	require.NoError(t, err)
	require.Len(t, cards, 3)

	assert.Equal(t, 0, cards[0].Index)
	assert.Equal(t, "PCH", cards[0].ID)
	assert.Equal(t, "HDA-Intel", cards[0].Driver)
	assert.Equal(t, "HDA Intel PCH", cards[0].Description)
	assert.Equal(t, "Device", cards[2].ID)
}

func TestParsePCM(t *testing.T) {
	cards, err := alsa.ParseCards(strings.NewReader(testCards))
	require.NoError(t, err)

	require.NoError(t, alsa.ParsePCM(strings.NewReader(testPCM), cards))

	t.Run("BothDirections", func(t *testing.T) {
		require.Len(t, cards[0].Devices, 3)
		assert.Equal(t, alsa.SoundCardDevice{ID: 0, Description: "ALC257 Analog", IsPlayback: true}, cards[0].Devices[0])
		assert.Equal(t, alsa.SoundCardDevice{ID: 0, Description: "ALC257 Analog"}, cards[0].Devices[1])
		assert.Equal(t, audiodev.Playback, cards[0].Devices[2].Flow())
	})

	t.Run("NoStreams", func(t *testing.T) {
		assert.Empty(t, cards[1].Devices)
	})

	t.Run("CaptureOnly", func(t *testing.T) {
		require.Len(t, cards[2].Devices, 1)
		assert.Equal(t, audiodev.Recording, cards[2].Devices[0].Flow())
	})
}

func TestEnumerateCards(t *testing.T) {
	cards, err := alsa.EnumerateCards(fakeProc(t, testCards, testPCM))
	require.NoError(t, err)
	assert.Len(t, cards, 3)

	_, err = alsa.EnumerateCards(t.TempDir())
	assert.Error(t, err, "missing cards file must fail")
}

func TestEndpointID(t *testing.T) {
	id := alsa.EndpointID("PCH", 3, audiodev.Playback)
	assert.Equal(t, "hw:CARD=PCH,DEV=3/p", id)

	card, dev, flow, err := alsa.ParseEndpointID(id)
	require.NoError(t, err)
	assert.Equal(t, "PCH", card)
	assert.Equal(t, 3, dev)
	assert.Equal(t, audiodev.Playback, flow)

	_, _, flow, err = alsa.ParseEndpointID("hw:CARD=Device,DEV=0/c")
	require.NoError(t, err)
	assert.Equal(t, audiodev.Recording, flow)

	for _, bad := range []string{"", "hw:CARD=PCH,DEV=0", "hw:CARD=PCH,DEV=0/x", "default/p", "hw:CARD=PCH/p"} {
		_, _, _, err := alsa.ParseEndpointID(bad)
		assert.Error(t, err, "id %q must be rejected", bad)
	}
}
