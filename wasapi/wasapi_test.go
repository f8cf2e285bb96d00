//go:build windows

package wasapi_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/audiodev"
	"github.com/gen2brain/audiodev/wasapi"
)

func newBinding(t *testing.T) *wasapi.Binding {
	t.Helper()

	b, err := wasapi.New()
	if err != nil {
		t.Skipf("Core Audio not available: %v", err)
	}

	t.Cleanup(func() { _ = b.Close() })

	return b
}

func TestSnapshot(t *testing.T) {
	b := newBinding(t)

	snap, err := audiodev.NewDirectory(b).Build()
	require.NoError(t, err)

	if snap.Len() == 0 {
		t.Skip("no active audio endpoints")
	}

	for i, ep := range snap.Endpoints() {
		assert.Equal(t, i+1, ep.Ordinal)
		assert.NotEmpty(t, ep.ID)
		assert.Equal(t, audiodev.StateActive, ep.State)
	}
}

func TestReadOnly(t *testing.T) {
	b := newBinding(t)

	c := audiodev.New(b)

	ep, err := c.GetDefault(audiodev.Playback, audiodev.Multimedia)
	if audiodev.IsNotFound(err) {
		t.Skip("no default playback endpoint")
	}
	require.NoError(t, err)

	d, err := c.Device(ep.ID)
	require.NoError(t, err)

	vol, err := d.Volume()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, vol, 0)
	assert.LessOrEqual(t, vol, 100)

	_, err = d.MeterPeak()
	assert.NoError(t, err)

	_, err = c.Device("{0.0.0.00000000}.{00000000-0000-0000-0000-000000000000}")
	assert.ErrorIs(t, err, audiodev.ErrNotFound)
}

func TestPolicy(t *testing.T) {
	b := newBinding(t)

	v, err := audiodev.NewGateway(b).Policy()
	require.NoError(t, err, "every supported Windows version has a policy interface")
	assert.NotEqual(t, audiodev.PolicyNone, v)
}

func TestClosed(t *testing.T) {
	b := newBinding(t)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	_, err := b.Enumerate(audiodev.FlowAll, audiodev.StateActive)
	assert.ErrorIs(t, err, wasapi.ErrClosed)
}

func TestDeviceLookup(t *testing.T) {
	b := newBinding(t)

	raws, err := b.Enumerate(audiodev.FlowAll, audiodev.StateActive)
	require.NoError(t, err)

	if len(raws) == 0 {
		t.Skip("no active audio endpoints")
	}

	for _, raw := range raws {
		id, err := raw.ID()
		require.NoError(t, err)

		v, err := b.VolumeScalar(id)
		require.NoError(t, err, "endpoint %s must be reachable by id", id)
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))

		_, err = b.Mute(id)
		assert.NoError(t, err)
	}

	_, err = b.VolumeScalar("{0.0.0.00000000}.{00000000-0000-0000-0000-000000000000}")
	require.Error(t, err)

	code, ok := audiodev.IsSubsystem(audiodev.NewSubsystemError("get volume", err))
	require.True(t, ok)
	assert.Equal(t, uintptr(0x80070490), code, "unknown ids report ERROR_NOT_FOUND")
}
