package audiodev_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/audiodev"
	"github.com/gen2brain/audiodev/memory"
)

// countingBinding records policy probes.
type countingBinding struct {
	*memory.Binding

	probes []audiodev.PolicyVersion
	probe  error
}

func (c *countingBinding) ProbePolicy(v audiodev.PolicyVersion) (audiodev.PolicyBackend, error) {
	c.probes = append(c.probes, v)
	if c.probe != nil {
		return nil, c.probe
	}

	return c.Binding.ProbePolicy(v)
}

func TestGatewayPolicyProbe(t *testing.T) {
	t.Run("NewestFirst", func(t *testing.T) {
		cb := &countingBinding{Binding: newScenario(t)}
		g := audiodev.NewGateway(cb)

		v, err := g.Policy()
		require.NoError(t, err)
		assert.Equal(t, audiodev.PolicyV3, v)
		assert.Equal(t, []audiodev.PolicyVersion{audiodev.PolicyV3}, cb.probes)
	})

	t.Run("FallsBack", func(t *testing.T) {
		cb := &countingBinding{Binding: newScenario(t, memory.WithPolicies(audiodev.PolicyV1))}
		g := audiodev.NewGateway(cb)

		v, err := g.Policy()
		require.NoError(t, err)
		assert.Equal(t, audiodev.PolicyV1, v)
		assert.Equal(t, []audiodev.PolicyVersion{audiodev.PolicyV3, audiodev.PolicyV2, audiodev.PolicyV1}, cb.probes)
	})

	t.Run("ProbedOnce", func(t *testing.T) {
		cb := &countingBinding{Binding: newScenario(t, memory.WithPolicies(audiodev.PolicyV2))}
		g := audiodev.NewGateway(cb)

		require.NoError(t, g.SetDefaultEndpoint("B", audiodev.Multimedia))
		require.NoError(t, g.SetDefaultEndpoint("A", audiodev.Multimedia))

		_, err := g.Policy()
		require.NoError(t, err)
		assert.Len(t, cb.probes, 2, "V3 and V2 are probed once")
	})

	t.Run("Unsupported", func(t *testing.T) {
		g := audiodev.NewGateway(newScenario(t, memory.WithPolicies()))

		v, err := g.Policy()
		assert.ErrorIs(t, err, audiodev.ErrUnsupportedPlatform)
		assert.Equal(t, audiodev.PolicyNone, v)

		assert.ErrorIs(t, g.SetDefaultEndpoint("A", audiodev.Multimedia), audiodev.ErrUnsupportedPlatform)
	})

	t.Run("ProbeErrorsAreUnavailable", func(t *testing.T) {
		cb := &countingBinding{Binding: newScenario(t), probe: errors.New("class not registered")}
		g := audiodev.NewGateway(cb)

		_, err := g.Policy()
		assert.ErrorIs(t, err, audiodev.ErrUnsupportedPlatform)
		assert.Len(t, cb.probes, 3)
	})
}

func TestGatewaySetDefaultEndpoint(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		b := newScenario(t)
		g := audiodev.NewGateway(b)

		require.NoError(t, g.SetDefaultEndpoint("B", audiodev.Communications))

		snap, err := audiodev.NewDirectory(b).Build()
		require.NoError(t, err)

		ep, ok := audiodev.ResolveDefault(snap, audiodev.Playback, audiodev.Communications)
		require.True(t, ok)
		assert.Equal(t, "B", ep.ID)

		ep, ok = audiodev.ResolveDefault(snap, audiodev.Playback, audiodev.Multimedia)
		require.True(t, ok)
		assert.Equal(t, "A", ep.ID, "other role must be untouched")
	})

	t.Run("NotFound", func(t *testing.T) {
		b := newScenario(t)
		g := audiodev.NewGateway(b)

		err := g.SetDefaultEndpoint("missing", audiodev.Multimedia)
		assert.ErrorIs(t, err, audiodev.ErrNotFound)

		require.NoError(t, b.SetState("B", audiodev.StateDisabled))
		assert.ErrorIs(t, g.SetDefaultEndpoint("B", audiodev.Multimedia), audiodev.ErrNotFound)
	})

	t.Run("InvalidRole", func(t *testing.T) {
		g := audiodev.NewGateway(newScenario(t))
		assert.ErrorIs(t, g.SetDefaultEndpoint("A", audiodev.Role(7)), audiodev.ErrInvalidArgument)
	})

	t.Run("CommitFailure", func(t *testing.T) {
		b := newScenario(t)
		b.Fail(memory.OpSetDefault, errors.New("access denied"))

		err := audiodev.NewGateway(b).SetDefaultEndpoint("B", audiodev.Multimedia)
		assertSubsystem(t, err)

		id, err := b.DefaultEndpointID(audiodev.Playback, audiodev.Multimedia)
		require.NoError(t, err)
		assert.Equal(t, "A", id)
	})

	t.Run("ValidationFailure", func(t *testing.T) {
		b := newScenario(t)
		b.Fail(memory.OpEnumerate, errors.New("enumeration failed"))

		assertSubsystem(t, audiodev.NewGateway(b).SetDefaultEndpoint("B", audiodev.Multimedia))
	})
}

func TestGatewayWrites(t *testing.T) {
	b := newScenario(t)
	g := audiodev.NewGateway(b)
	d := deviceFor(t, b, "A")

	require.NoError(t, g.SetVolume(d, 100))
	v, err := d.Volume()
	require.NoError(t, err)
	assert.Contains(t, []int{99, 100}, v)

	require.NoError(t, g.SetVolume(d, 0))
	v, err = d.Volume()
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	for _, p := range []int{-1, 101} {
		assert.ErrorIs(t, g.SetVolume(d, p), audiodev.ErrInvalidArgument)
	}

	require.NoError(t, g.SetMute(d, true))
	mute, err := g.ToggleMute(d)
	require.NoError(t, err)
	assert.False(t, mute)
}

func TestPolicyVersionString(t *testing.T) {
	assert.Equal(t, "v1", audiodev.PolicyV1.String())
	assert.Equal(t, "v3", audiodev.PolicyV3.String())
	assert.Equal(t, "none", audiodev.PolicyNone.String())
}
