package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-kaillera/internal/driver"
)

type ReaperConfig struct {
	TickInterval string `json:"tick_interval"`
}

func (c *ReaperConfig) Validate() error {
	d, err := parseDuration("reaper tick_interval", c.TickInterval, driver.DefaultTickLength)
	if err != nil {
		return err
	}
	if d < 100*time.Millisecond {
		return fmt.Errorf("reaper tick_interval must be at least 100ms")
	}
	return nil
}

func (c *ReaperConfig) BuildDriver() (*driver.Driver, error) {
	d, err := parseDuration("reaper tick_interval", c.TickInterval, driver.DefaultTickLength)
	if err != nil {
		return nil, err
	}
	return driver.NewDriver(driver.WithTickLength(d)), nil
}
