package command

import (
	"fmt"

	"github.com/pixil98/go-kaillera/internal/messaging"
)

type GatewayConfig struct {
	HistorySize int `json:"history_size"`
}

func (c *GatewayConfig) Validate() error {
	if c.HistorySize < 0 {
		return fmt.Errorf("gateway history_size must not be negative")
	}
	return nil
}

func (c *GatewayConfig) historySize() int {
	if c.HistorySize == 0 {
		return messaging.DefaultHistorySize
	}
	return c.HistorySize
}
