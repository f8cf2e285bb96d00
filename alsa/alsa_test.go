package alsa_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// findCard searches /proc/asound/cards for the passed device name and returns its card number. Returns -1 if not found.
func findCard(name string) int {
	content, err := os.ReadFile("/proc/asound/cards")
	if err != nil {
		return -1
	}

	lines := strings.Split(string(content), "\n")
	for _, line := range lines {
		if strings.Contains(line, name) {
			var card int
			// The format is " 0 [Dummy          ]: Dummy - Dummy 1"
			_, err := fmt.Sscanf(line, " %d", &card)
			if err == nil {
				return card
			}
		}
	}

	return -1
}

// requireCard skips the test unless the named virtual card is loaded.
func requireCard(t *testing.T, name, module string) int {
	t.Helper()

	card := findCard(name)
	if card == -1 {
		t.Skipf("ALSA %s device not found, run: sudo modprobe %s", name, module)
	}

	return card
}

const (
	testCards = ` 0 [PCH            ]: HDA-Intel - HDA Intel PCH
                      HDA Intel PCH at 0xf7f10000 irq 33
 1 [Loopback       ]: Loopback - Loopback
                      Loopback 1
 2 [Device         ]: USB-Audio - USB Audio Device
                      C-Media Electronics Inc. USB Audio Device at usb-0000:00:14.0-2, full speed
`
	testPCM = `00-00: ALC257 Analog : ALC257 Analog : playback 1 : capture 1
00-03: HDMI 0 : HDMI 0 : playback 1
02-00: USB Audio : USB Audio : capture 1
05-00: Orphan : Orphan : playback 1
`
)

// fakeProc writes a procfs directory with the given cards and pcm listings.
func fakeProc(t *testing.T, cards, pcm string) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cards"), []byte(cards), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pcm"), []byte(pcm), 0o644))

	return dir
}
