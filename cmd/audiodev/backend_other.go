//go:build !linux && !windows

package main

import (
	"github.com/rs/zerolog"

	"github.com/gen2brain/audiodev"
)

func openNative(_ *Config, _ zerolog.Logger) (audiodev.Binding, error) {
	return nil, audiodev.ErrUnsupportedPlatform
}
