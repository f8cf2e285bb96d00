package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gen2brain/audiodev"
)

// Config is the resolved configuration of one invocation.
type Config struct {
	Backend     string
	Interval    time.Duration
	LogLevel    string
	Output      string
	ASoundRC    string
	PulseServer string
	Fixture     string
	MeterWAV    string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", "auto")
	v.SetDefault("interval", audiodev.DefaultMeterInterval)
	v.SetDefault("log.level", "info")
	v.SetDefault("output", "text")
	v.SetDefault("alsa.asoundrc", "")
	v.SetDefault("pulse.server", "")
	v.SetDefault("memory.fixture", "")
	v.SetDefault("memory.meter_wav", "")
}

// globalFlags registers the flags accepted before and after every command.
func globalFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("global", pflag.ContinueOnError)
	fs.String("config", "", "Path of the config file (default: audiodev.yaml in the user config dir or the working dir).")
	fs.String("backend", "auto", "Audio backend: auto, alsa, pulse, wasapi or memory.")
	fs.StringP("output", "o", "text", "Output format: text or json.")
	fs.String("log-level", "info", "Log level: trace, debug, info, warn or error.")

	return fs
}

// loadConfig merges defaults, the config file, AUDIODEV_* environment variables and flags, in increasing precedence.
func loadConfig(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("AUDIODEV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, flag := range map[string]string{"backend": "backend", "output": "output", "log.level": "log-level"} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, err
		}
	}

	path, _ := fs.GetString("config")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("audiodev")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "audiodev"))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error during config read: %w", err)
		}
	}

	cfg := &Config{
		Backend:     strings.ToLower(v.GetString("backend")),
		Interval:    v.GetDuration("interval"),
		LogLevel:    v.GetString("log.level"),
		Output:      strings.ToLower(v.GetString("output")),
		ASoundRC:    v.GetString("alsa.asoundrc"),
		PulseServer: v.GetString("pulse.server"),
		Fixture:     v.GetString("memory.fixture"),
		MeterWAV:    v.GetString("memory.meter_wav"),
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.Output {
	case "text", "json":
	default:
		return &audiodev.InvalidArgumentError{Name: "output", Value: c.Output, Want: "text or json"}
	}

	switch c.Backend {
	case "auto", "alsa", "pulse", "wasapi", "memory":
	default:
		return &audiodev.InvalidArgumentError{Name: "backend", Value: c.Backend, Want: "auto, alsa, pulse, wasapi or memory"}
	}

	if c.Interval <= 0 {
		return &audiodev.InvalidArgumentError{Name: "interval", Value: c.Interval, Want: "a positive duration"}
	}

	return nil
}
