package driver

import "time"

type DriverOpt func(*Driver)

// WithTickLength sets the interval between ticks
func WithTickLength(tickLength time.Duration) DriverOpt {
	return func(d *Driver) {
		d.tickLength = tickLength
	}
}
