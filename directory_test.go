package audiodev_test

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/audiodev"
	"github.com/gen2brain/audiodev/memory"
)

func TestDirectoryBuild(t *testing.T) {
	t.Run("DenseOrdinals", func(t *testing.T) {
		b := newScenario(t, memory.WithDevices(
			memory.Device{ID: "gone", Flow: audiodev.Playback, State: audiodev.StateNotPresent},
			memory.Device{ID: "D", Flow: audiodev.Recording},
		))

		snap, err := audiodev.NewDirectory(b).Build()
		require.NoError(t, err)
		require.Equal(t, 4, snap.Len(), "inactive endpoints must be excluded")

		for i, ep := range snap.Endpoints() {
			assert.Equal(t, i+1, ep.Ordinal)
		}

		ep, ok := snap.ByOrdinal(4)
		require.True(t, ok)
		assert.Equal(t, "D", ep.ID)
	})

	t.Run("UniqueIDs", func(t *testing.T) {
		snap, err := audiodev.NewDirectory(newScenario(t)).Build()
		require.NoError(t, err)

		seen := make(map[string]bool)
		for _, ep := range snap.Endpoints() {
			assert.False(t, seen[ep.ID], "duplicate id %s", ep.ID)
			seen[ep.ID] = true
		}
	})

	t.Run("AtMostOneDefaultPerPair", func(t *testing.T) {
		snap, err := audiodev.NewDirectory(newScenario(t)).Build()
		require.NoError(t, err)

		for _, flow := range audiodev.Flows {
			for _, role := range audiodev.Roles {
				n := 0
				for _, ep := range snap.Filter(flow) {
					if ep.IsDefault(role) {
						n++
					}
				}

				assert.LessOrEqual(t, n, 1, "%s %s", flow, role)
			}
		}
	})

	t.Run("DefaultFlagsFollowFlow", func(t *testing.T) {
		// A recording default with the same id as a playback endpoint must not flag it.
		b := newScenario(t, memory.WithDefault(audiodev.Recording, audiodev.Communications, "B"))

		snap, err := audiodev.NewDirectory(b).Build()
		require.NoError(t, err)

		ep, ok := snap.ByID("B")
		require.True(t, ok)
		assert.False(t, ep.IsCommunicationsDefault)
		assert.Equal(t, "B", snap.DefaultID(audiodev.Recording, audiodev.Communications))
	})

	t.Run("StaleDefault", func(t *testing.T) {
		b := newScenario(t, memory.WithDefault(audiodev.Playback, audiodev.Communications, "removed"))

		snap, err := audiodev.NewDirectory(b).Build()
		require.NoError(t, err, "a default outside the active set is not an error")

		_, ok := audiodev.ResolveDefault(snap, audiodev.Playback, audiodev.Communications)
		assert.False(t, ok)
	})

	t.Run("CaseSensitiveIDs", func(t *testing.T) {
		b := newScenario(t, memory.WithDefault(audiodev.Playback, audiodev.Multimedia, "a"))

		snap, err := audiodev.NewDirectory(b).Build()
		require.NoError(t, err)

		_, ok := audiodev.ResolveDefault(snap, audiodev.Playback, audiodev.Multimedia)
		assert.False(t, ok)

		_, ok = snap.ByID("a")
		assert.False(t, ok)
	})

	t.Run("FreshValuesPerBuild", func(t *testing.T) {
		b := newScenario(t)
		dir := audiodev.NewDirectory(b)

		first, err := dir.Build()
		require.NoError(t, err)

		b.Remove("A")

		second, err := dir.Build()
		require.NoError(t, err)

		assert.Equal(t, 3, first.Len(), "earlier snapshots must not change")
		assert.Equal(t, 2, second.Len())

		ep, ok := second.ByOrdinal(1)
		require.True(t, ok)
		assert.Equal(t, "B", ep.ID, "ordinals are positional")
	})
}

func TestDirectoryBuildFailures(t *testing.T) {
	for _, op := range []memory.Op{memory.OpDefault, memory.OpEnumerate, memory.OpID, memory.OpName, memory.OpFlow, memory.OpState} {
		t.Run(string(op), func(t *testing.T) {
			b := newScenario(t)
			b.Fail(op, syscall.ENODEV)

			snap, err := audiodev.NewDirectory(b).Build()
			assert.Nil(t, snap)

			var se *audiodev.SubsystemError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, uintptr(syscall.ENODEV), se.Code)
			assert.ErrorIs(t, err, syscall.ENODEV)
		})
	}

	t.Run("NoBinding", func(t *testing.T) {
		var dir *audiodev.Directory
		_, err := dir.Build()
		assert.Error(t, err)
	})
}

func TestSnapshotLookups(t *testing.T) {
	snap, err := audiodev.NewDirectory(newScenario(t)).Build()
	require.NoError(t, err)

	t.Run("ByID", func(t *testing.T) {
		ep, ok := snap.ByID("C")
		require.True(t, ok)
		assert.Equal(t, "Microphone", ep.Name)
		assert.Equal(t, 3, ep.Ordinal)

		_, ok = snap.ByID("missing")
		assert.False(t, ok)
	})

	t.Run("ByOrdinal", func(t *testing.T) {
		for _, n := range []int{-1, 0, 4, 42} {
			_, ok := snap.ByOrdinal(n)
			assert.False(t, ok, fmt.Sprint(n))
		}
	})

	t.Run("Find", func(t *testing.T) {
		ep, ok := snap.Find(func(ep audiodev.Endpoint) bool { return ep.Flow == audiodev.Recording })
		require.True(t, ok)
		assert.Equal(t, "C", ep.ID)

		_, ok = snap.Find(nil)
		assert.False(t, ok)
	})

	t.Run("Filter", func(t *testing.T) {
		assert.Len(t, snap.Filter(audiodev.Playback), 2)
		assert.Len(t, snap.Filter(audiodev.FlowAll), 3)
	})

	t.Run("EndpointsIsACopy", func(t *testing.T) {
		eps := snap.Endpoints()
		eps[0].ID = "changed"

		ep, _ := snap.ByOrdinal(1)
		assert.Equal(t, "A", ep.ID)
	})

	t.Run("NilSnapshot", func(t *testing.T) {
		var nilSnap *audiodev.Snapshot

		assert.NotPanics(t, func() {
			assert.Equal(t, 0, nilSnap.Len())
			assert.Nil(t, nilSnap.Endpoints())
			assert.Equal(t, "", nilSnap.DefaultID(audiodev.Playback, audiodev.Multimedia))

			_, ok := nilSnap.ByID("A")
			assert.False(t, ok)
		})
	})
}

func TestDuplicateIDsFromBinding(t *testing.T) {
	snap, err := audiodev.NewDirectory(dupBinding{newScenario(t)}).Build()
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Len(), "a repeated id must be kept once")
}

// dupBinding enumerates every endpoint twice.
type dupBinding struct {
	*memory.Binding
}

func (d dupBinding) Enumerate(flow audiodev.Flow, mask audiodev.State) ([]audiodev.RawEndpoint, error) {
	raws, err := d.Binding.Enumerate(flow, mask)
	if err != nil {
		return nil, errors.New("unexpected")
	}

	return append(raws, raws...), nil
}
