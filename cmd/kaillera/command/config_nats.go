package command

import (
	"fmt"

	"github.com/pixil98/go-errors"

	"github.com/pixil98/go-kaillera/internal/messaging"
)

type NatsConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	StartTimeout string `json:"start_timeout"`
}

func (c *NatsConfig) Validate() error {
	el := errors.NewErrorList()

	if _, err := parseDuration("nats start_timeout", c.StartTimeout, 0); err != nil {
		el.Add(err)
	}
	// -1 asks for a random port.
	if c.Port < -1 || c.Port > 65535 {
		el.Add(fmt.Errorf("nats port must be between -1 and 65535"))
	}

	return el.Err()
}

func (c *NatsConfig) buildNatsServer() (*messaging.NatsServer, error) {
	var opts []messaging.NatsServerOpt
	if c.StartTimeout != "" {
		d, err := parseDuration("nats start_timeout", c.StartTimeout, 0)
		if err != nil {
			return nil, err
		}
		opts = append(opts, messaging.WithStartTimeout(d))
	}
	if c.Host != "" {
		opts = append(opts, messaging.WithHost(c.Host))
	}
	if c.Port != 0 {
		opts = append(opts, messaging.WithPort(c.Port))
	}

	return messaging.NewNatsServer(opts...)
}
