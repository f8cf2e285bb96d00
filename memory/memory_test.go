package memory_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/audiodev"
	"github.com/gen2brain/audiodev/memory"
)

func newBinding(t *testing.T, opts ...memory.Option) *memory.Binding {
	t.Helper()

	base := []memory.Option{
		memory.WithDevices(
			memory.Device{ID: "spk", Name: "Speakers", Flow: audiodev.Playback, Volume: 0.5},
			memory.Device{ID: "hdmi", Name: "HDMI", Flow: audiodev.Playback, State: audiodev.StateUnplugged},
			memory.Device{ID: "mic", Name: "Microphone", Flow: audiodev.Recording, Mute: true, Peak: 0.25},
		),
		memory.WithDefault(audiodev.Playback, audiodev.Multimedia, "spk"),
	}

	b, err := memory.New(append(base, opts...)...)
	require.NoError(t, err)

	return b
}

func TestEnumerate(t *testing.T) {
	b := newBinding(t)

	t.Run("ActiveOnly", func(t *testing.T) {
		raws, err := b.Enumerate(audiodev.FlowAll, audiodev.StateActive)
		require.NoError(t, err)
		require.Len(t, raws, 2)

		id, err := raws[0].ID()
		require.NoError(t, err)
		assert.Equal(t, "spk", id)

		flow, err := raws[1].Flow()
		require.NoError(t, err)
		assert.Equal(t, audiodev.Recording, flow)
	})

	t.Run("ByFlowAndMask", func(t *testing.T) {
		raws, err := b.Enumerate(audiodev.Playback, audiodev.StateAll)
		require.NoError(t, err)
		assert.Len(t, raws, 2)
	})

	t.Run("InjectedFailure", func(t *testing.T) {
		boom := errors.New("boom")
		b.Fail(memory.OpName, boom)
		defer b.Fail(memory.OpName, nil)

		raws, err := b.Enumerate(audiodev.FlowAll, audiodev.StateActive)
		require.NoError(t, err)

		_, err = raws[0].Name()
		assert.ErrorIs(t, err, boom)
	})
}

func TestVolumeAndMute(t *testing.T) {
	b := newBinding(t)

	require.NoError(t, b.SetVolumeScalar("spk", 0.75))
	v, err := b.VolumeScalar("spk")
	require.NoError(t, err)
	assert.Equal(t, float32(0.75), v)

	assert.Error(t, b.SetVolumeScalar("spk", 1.5), "out of range scalar must be rejected")

	mute, err := b.Mute("mic")
	require.NoError(t, err)
	assert.True(t, mute)

	require.NoError(t, b.SetMute("mic", false))
	mute, err = b.Mute("mic")
	require.NoError(t, err)
	assert.False(t, mute)

	_, err = b.Mute("hdmi")
	assert.ErrorIs(t, err, memory.ErrNoDevice, "inactive device must fail")

	_, err = b.VolumeScalar("nope")
	assert.ErrorIs(t, err, memory.ErrNoDevice)
}

func TestStep(t *testing.T) {
	b := newBinding(t)

	require.NoError(t, b.SetVolumeScalar("spk", 0.99))
	require.NoError(t, b.VolumeStepUp("spk"))

	v, err := b.VolumeScalar("spk")
	require.NoError(t, err)
	assert.Equal(t, float32(1), v, "step up must clamp at 1")

	require.NoError(t, b.SetVolumeScalar("spk", 0))
	require.NoError(t, b.VolumeStepDown("spk"))

	v, err = b.VolumeScalar("spk")
	require.NoError(t, err)
	assert.Equal(t, float32(0), v, "step down must clamp at 0")
}

func TestPolicy(t *testing.T) {
	b := newBinding(t, memory.WithPolicies(audiodev.PolicyV1))

	_, err := b.ProbePolicy(audiodev.PolicyV3)
	assert.ErrorIs(t, err, audiodev.ErrPolicyUnavailable)

	p, err := b.ProbePolicy(audiodev.PolicyV1)
	require.NoError(t, err)

	require.NoError(t, p.SetDefaultEndpoint("mic", audiodev.Communications))

	id, err := b.DefaultEndpointID(audiodev.Recording, audiodev.Communications)
	require.NoError(t, err)
	assert.Equal(t, "mic", id)

	assert.ErrorIs(t, p.SetDefaultEndpoint("hdmi", audiodev.Multimedia), memory.ErrNoDevice)
}

func TestInvalidRole(t *testing.T) {
	bad := audiodev.Role(7)

	_, err := memory.New(memory.WithDefault(audiodev.Playback, bad, "spk"))
	assert.ErrorIs(t, err, audiodev.ErrInvalidArgument)

	b := newBinding(t)

	assert.NotPanics(t, func() {
		_, err = b.DefaultEndpointID(audiodev.Playback, bad)
	})
	assert.ErrorIs(t, err, audiodev.ErrInvalidArgument)

	p, err := b.ProbePolicy(audiodev.PolicyV1)
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		err = p.SetDefaultEndpoint("spk", bad)
	})
	assert.ErrorIs(t, err, audiodev.ErrInvalidArgument)
}

func TestNotify(t *testing.T) {
	b := newBinding(t)

	var events []audiodev.Event
	reg, err := b.Notify(func(ev audiodev.Event) {
		events = append(events, ev)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, b.Listeners())

	require.NoError(t, b.SetMute("spk", true))
	b.Remove("mic")
	require.NoError(t, b.Add(memory.Device{ID: "usb", Flow: audiodev.Recording}))

	require.NoError(t, reg.Close())
	assert.Equal(t, 0, b.Listeners())

	require.NoError(t, b.SetMute("spk", false))

	require.Len(t, events, 3)
	assert.Equal(t, audiodev.EventPropertyChanged, events[0].Kind)
	assert.Equal(t, audiodev.Event{Kind: audiodev.EventRemoved, ID: "mic"}, events[1])
	assert.Equal(t, audiodev.EventAdded, events[2].Kind)
}

func TestMeterWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")

	f, err := os.Create(path)
	require.NoError(t, err)

	// 200 ms of mono audio at 1 kHz: a half scale window followed by a quarter scale window.
	data := make([]int, 200)
	for i := range data {
		if i < 100 {
			data[i] = 16384
		} else {
			data[i] = -8192
		}
	}

	enc := wav.NewEncoder(f, 1000, 16, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 1000},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	r, err := os.Open(path)
	require.NoError(t, err)
	defer r.Close()

	b := newBinding(t, memory.WithMeterWAV(r))

	p, err := b.MeterPeak("mic")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p, 0.001)

	p, err = b.MeterPeak("mic")
	require.NoError(t, err)
	assert.InDelta(t, 0.25, p, 0.001)

	p, err = b.MeterPeak("mic")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p, 0.001, "meter must loop")

	_, err = memory.New(memory.WithMeterWAV(strings.NewReader("not a wav")))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	const fixture = `{
		"devices": [
			{"id": "spk", "name": "Speakers", "flow": "playback", "volume": 0.4},
			{"id": "mic", "name": "Mic", "flow": "capture", "state": "active", "mute": true},
			{"id": "old", "name": "Old", "flow": "recording", "state": "notpresent"}
		],
		"defaults": {
			"playback": {"multimedia": "spk", "communications": "spk"},
			"recording": {"communication": "mic"}
		},
		"policies": ["v2"]
	}`

	b, err := memory.Load(strings.NewReader(fixture))
	require.NoError(t, err)

	devs := b.Devices()
	require.Len(t, devs, 3)
	assert.Equal(t, audiodev.Recording, devs[1].Flow)
	assert.Equal(t, audiodev.StateNotPresent, devs[2].State)

	id, err := b.DefaultEndpointID(audiodev.Recording, audiodev.Communications)
	require.NoError(t, err)
	assert.Equal(t, "mic", id)

	_, err = b.ProbePolicy(audiodev.PolicyV3)
	assert.ErrorIs(t, err, audiodev.ErrPolicyUnavailable)

	_, err = b.ProbePolicy(audiodev.PolicyV2)
	assert.NoError(t, err)

	t.Run("Invalid", func(t *testing.T) {
		_, err := memory.Load(strings.NewReader(`{"devices": [{"id": "x", "flow": "sideways"}]}`))
		assert.ErrorIs(t, err, audiodev.ErrInvalidArgument)

		_, err = memory.Load(strings.NewReader(`{"policies": ["v9"]}`))
		assert.Error(t, err)

		_, err = memory.Load(strings.NewReader(`{`))
		assert.Error(t, err)

		_, err = memory.Load(strings.NewReader(`{"devices": [{"id": "x", "flow": "playback"}, {"id": "x", "flow": "playback"}]}`))
		assert.Error(t, err, "duplicate ids must be rejected")
	})
}
