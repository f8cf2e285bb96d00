package main

import (
	"github.com/rs/zerolog"

	"github.com/gen2brain/audiodev"
	"github.com/gen2brain/audiodev/wasapi"
)

func openNative(cfg *Config, logger zerolog.Logger) (audiodev.Binding, error) {
	switch cfg.Backend {
	case "auto", "wasapi":
		return wasapi.New(wasapi.WithLogger(logger))
	}

	return nil, audiodev.ErrUnsupportedPlatform
}
