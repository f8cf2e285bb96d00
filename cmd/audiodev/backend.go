package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/gen2brain/audiodev"
	"github.com/gen2brain/audiodev/memory"
)

// openBinding opens the backend named in cfg.
func openBinding(cfg *Config, logger zerolog.Logger) (audiodev.Binding, error) {
	if cfg.Backend == "memory" {
		return openMemory(cfg, logger)
	}

	b, err := openNative(cfg, logger)
	if err != nil {
		return nil, err
	}

	logger.Debug().Str("backend", cfg.Backend).Msgf("opened %T", b)

	return b, nil
}

// openMemory builds the in-memory binding from the configured fixture, or a small demo set.
func openMemory(cfg *Config, logger zerolog.Logger) (audiodev.Binding, error) {
	opts := []memory.Option{memory.WithLogger(logger)}

	if cfg.MeterWAV != "" {
		f, err := os.Open(cfg.MeterWAV)
		if err != nil {
			return nil, err
		}
		// The decoder reads the whole file while the option is applied.
		defer f.Close()

		opts = append(opts, memory.WithMeterWAV(f))
	}

	if cfg.Fixture == "" {
		return memory.New(append(demoDevices(), opts...)...)
	}

	f, err := os.Open(cfg.Fixture)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b, err := memory.Load(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading fixture %s: %w", cfg.Fixture, err)
	}

	return b, nil
}

func demoDevices() []memory.Option {
	return []memory.Option{
		memory.WithDevices(
			memory.Device{ID: "speakers", Name: "Speakers (Demo Audio)", Flow: audiodev.Playback, Volume: 0.5},
			memory.Device{ID: "headset", Name: "Headset Earphone (Demo Audio)", Flow: audiodev.Playback, Volume: 0.3},
			memory.Device{ID: "microphone", Name: "Microphone (Demo Audio)", Flow: audiodev.Recording, Volume: 0.8, Peak: 0.1},
		),
		memory.WithDefault(audiodev.Playback, audiodev.Multimedia, "speakers"),
		memory.WithDefault(audiodev.Playback, audiodev.Communications, "headset"),
		memory.WithDefault(audiodev.Recording, audiodev.Multimedia, "microphone"),
		memory.WithDefault(audiodev.Recording, audiodev.Communications, "microphone"),
	}
}
