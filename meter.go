package audiodev

import (
	"context"
	"iter"
	"time"
)

// StreamMeter returns an infinite sequence of peak readings of d as percentages, one every interval.
// Cancellation of ctx is observed between readings, never during one. A failed reading is yielded
// with its error and ends the sequence. The sequence can be ranged over again to restart it.
func StreamMeter(ctx context.Context, d *Device, interval time.Duration) iter.Seq2[int, error] {
	if interval <= 0 {
		interval = DefaultMeterInterval
	}

	return func(yield func(int, error) bool) {
		timer := time.NewTimer(0)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}

			if ctx.Err() != nil {
				return
			}

			peak, err := d.MeterPeak()
			if err != nil {
				yield(0, err)

				return
			}

			if !yield(ScalarToPercent(peak), nil) {
				return
			}

			timer.Reset(interval)
		}
	}
}
