package driver

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	DefaultTickLength = time.Second
)

// Manager is anything with periodic housekeeping: the user reaper, access
// rule reloads and so on.
type Manager interface {
	Tick(context.Context) error
}

// Driver ticks its managers in order on a fixed interval.
type Driver struct {
	tickLength time.Duration
	managers   map[string]Manager
	order      []string
}

func NewDriver(opts ...DriverOpt) *Driver {
	d := &Driver{
		tickLength: DefaultTickLength,
		managers:   map[string]Manager{},
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Add registers m under name. Managers tick in the order they were added.
func (d *Driver) Add(name string, m Manager) error {
	if _, ok := d.managers[name]; ok {
		return fmt.Errorf("manager %q already registered", name)
	}
	d.managers[name] = m
	d.order = append(d.order, name)
	return nil
}

func (d *Driver) Start(ctx context.Context) error {
	ticker := time.NewTicker(d.tickLength)
	defer ticker.Stop()

	slog.InfoContext(ctx, "driver running", "tick", d.tickLength, "managers", d.order)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := d.Tick(ctx); err != nil {
				return err
			}
		}
	}
}

// Tick runs every manager once and stops at the first error.
func (d *Driver) Tick(ctx context.Context) error {
	for _, name := range d.order {
		if err := d.managers[name].Tick(ctx); err != nil {
			return fmt.Errorf("ticking %s: %w", name, err)
		}
	}
	return nil
}
