//go:build linux && (386 || arm)

package alsa

// clong is the C long of 32-bit targets.
type clong = int32
