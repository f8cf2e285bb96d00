package main

import (
	"github.com/rs/zerolog"

	"github.com/gen2brain/audiodev"
	"github.com/gen2brain/audiodev/alsa"
	"github.com/gen2brain/audiodev/pulse"
)

// openNative prefers a sound server and falls back to the kernel interfaces.
func openNative(cfg *Config, logger zerolog.Logger) (audiodev.Binding, error) {
	switch cfg.Backend {
	case "alsa":
		return openALSA(cfg, logger)
	case "pulse":
		return pulse.New(pulse.WithServer(cfg.PulseServer), pulse.WithLogger(logger))
	case "auto":
		b, err := pulse.New(pulse.WithServer(cfg.PulseServer), pulse.WithLogger(logger))
		if err == nil {
			return b, nil
		}

		logger.Debug().Err(err).Msg("no sound server, using alsa")

		return openALSA(cfg, logger)
	}

	return nil, audiodev.ErrUnsupportedPlatform
}

func openALSA(cfg *Config, logger zerolog.Logger) (audiodev.Binding, error) {
	opts := []alsa.Option{alsa.WithLogger(logger)}
	if cfg.ASoundRC != "" {
		opts = append(opts, alsa.WithASoundRC(cfg.ASoundRC))
	}

	return alsa.New(opts...)
}
