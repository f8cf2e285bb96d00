// Package peak measures peak levels of PCM audio, either from buffers or from a live capture device.
package peak

import (
	"encoding/binary"
	"errors"

	"github.com/go-audio/audio"
)

// ErrUnavailable is returned by Open when the binary was built without capture support.
var ErrUnavailable = errors.New("live metering is not available in this build")

// Backend selects the capture backend used by Open.
type Backend int

const (
	Alsa Backend = iota
	Pulse
)

const (
	sampleRate = 48000
	channels   = 2
)

// Of returns the absolute peak of buf scaled to [0, 1] by the maximum value of its bit depth.
func Of(buf *audio.IntBuffer) float32 {
	if buf == nil || len(buf.Data) == 0 {
		return 0
	}

	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = 16
	}

	// Full scale is 2^(depth-1), so the most negative sample maps to exactly 1.
	full := float64(audio.IntMaxSignedValue(depth)) + 1

	var peak int
	for _, s := range buf.Data {
		if s < 0 {
			s = -s
		}

		if s > peak {
			peak = s
		}
	}

	return float32(min(float64(peak)/full, 1))
}

// S16LE converts interleaved little-endian 16-bit samples to an IntBuffer.
// A trailing odd byte is ignored.
func S16LE(b []byte, numChannels int) *audio.IntBuffer {
	data := make([]int, len(b)/2)
	for i := range data {
		data[i] = int(int16(binary.LittleEndian.Uint16(b[i*2:])))
	}

	return &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: numChannels,
			SampleRate:  sampleRate,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
}

// Window returns successive peaks of buf over windows of n samples, wrapping at the end.
type Window struct {
	buf *audio.IntBuffer
	n   int
	pos int
}

// NewWindow returns a Window over buf. A non-positive n uses the whole buffer.
func NewWindow(buf *audio.IntBuffer, n int) *Window {
	if n <= 0 || n > len(buf.Data) {
		n = len(buf.Data)
	}

	return &Window{buf: buf, n: n}
}

// Next returns the peak of the next window.
func (w *Window) Next() float32 {
	if w == nil || w.n == 0 {
		return 0
	}

	end := min(w.pos+w.n, len(w.buf.Data))
	part := &audio.IntBuffer{Format: w.buf.Format, Data: w.buf.Data[w.pos:end], SourceBitDepth: w.buf.SourceBitDepth}

	w.pos = end
	if w.pos >= len(w.buf.Data) {
		w.pos = 0
	}

	return Of(part)
}
