package audiodev

import (
	"time"

	"github.com/rs/zerolog"
)

// Option configures a Directory, Gateway or Controller.
type Option func(*options)

type options struct {
	logger   zerolog.Logger
	interval time.Duration
}

func newOptions(opts []Option) options {
	o := options{
		logger:   zerolog.Nop(),
		interval: DefaultMeterInterval,
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMeterInterval sets the default poll interval for meter streaming.
// Non-positive values are ignored.
func WithMeterInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}
