package command

import (
	"github.com/pixil98/go-errors"
)

type Config struct {
	Server  ServerConfig  `json:"server"`
	Access  AccessConfig  `json:"access"`
	Lang    LangConfig    `json:"lang"`
	Nats    NatsConfig    `json:"nats"`
	Reaper  ReaperConfig  `json:"reaper"`
	Gateway GatewayConfig `json:"gateway"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	el.Add(c.Server.Validate())
	el.Add(c.Access.Validate())
	el.Add(c.Lang.Validate())
	el.Add(c.Nats.Validate())
	el.Add(c.Reaper.Validate())
	el.Add(c.Gateway.Validate())

	return el.Err()
}
