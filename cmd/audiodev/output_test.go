package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/audiodev"
)

var testEndpoint = audiodev.Endpoint{
	Ordinal:             2,
	ID:                  "spk",
	Name:                "Speakers",
	Flow:                audiodev.Playback,
	State:               audiodev.StateActive,
	IsMultimediaDefault: true,
}

func TestPrinterText(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, "text")

	require.NoError(t, p.View(audiodev.DeviceView{Endpoint: testEndpoint, Mute: true, Volume: 34}))
	assert.Equal(t, "Index:   2\nName:    Speakers\nID:      spk\nFlow:    Playback\nDefault: multimedia\nMute:    true\nVolume:  34%\n", buf.String())

	buf.Reset()
	require.NoError(t, p.Event(audiodev.Event{Kind: audiodev.EventRemoved, ID: "spk"}))
	assert.Equal(t, "Removed spk\n", buf.String())

	buf.Reset()
	require.NoError(t, p.Level(100))
	assert.Equal(t, "100% "+strings.Repeat("#", 50)+"\n", buf.String())
}

func TestPrinterJSON(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, "json")

	require.NoError(t, p.Endpoint(testEndpoint))
	assert.JSONEq(t, `{"index": 2, "id": "spk", "name": "Speakers", "flow": "Playback", "state": "Active",
		"default": true, "default_communications": false}`, buf.String())

	buf.Reset()
	require.NoError(t, p.Event(audiodev.Event{Kind: audiodev.EventDefaultChanged, Flow: audiodev.Recording, Role: audiodev.Communications, ID: "mic"}))
	assert.JSONEq(t, `{"kind": "DefaultChanged", "id": "mic", "flow": "Recording", "role": "Communications"}`, buf.String())

	buf.Reset()
	require.NoError(t, p.Event(audiodev.Event{Kind: audiodev.EventStateChanged, ID: "mic", State: audiodev.StateUnplugged}))
	assert.JSONEq(t, `{"kind": "StateChanged", "id": "mic", "state": "Unplugged"}`, buf.String())
}

func TestDefaultMarks(t *testing.T) {
	ep := testEndpoint
	assert.Equal(t, "multimedia", defaultMarks(ep))

	ep.IsCommunicationsDefault = true
	assert.Equal(t, "both", defaultMarks(ep))

	ep.IsMultimediaDefault = false
	assert.Equal(t, "communications", defaultMarks(ep))

	ep.IsCommunicationsDefault = false
	assert.Equal(t, "-", defaultMarks(ep))
}

func TestBar(t *testing.T) {
	assert.Equal(t, strings.Repeat(".", 50), bar(-5))
	assert.Equal(t, "#####"+strings.Repeat(".", 45), bar(10))
	assert.Equal(t, strings.Repeat("#", 50), bar(150))
}
