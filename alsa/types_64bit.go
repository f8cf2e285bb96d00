//go:build linux && (amd64 || arm64)

package alsa

// clong is the C long of 64-bit targets.
type clong = int64
