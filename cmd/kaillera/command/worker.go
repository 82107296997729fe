package command

import (
	"fmt"

	"github.com/pixil98/go-service"

	"github.com/pixil98/go-kaillera/internal/controller"
	"github.com/pixil98/go-kaillera/internal/gateway"
	"github.com/pixil98/go-kaillera/internal/relay"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	flags, err := cfg.Server.BuildFlags()
	if err != nil {
		return nil, err
	}

	nats, err := cfg.Nats.buildNatsServer()
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}

	catalog, err := cfg.Lang.BuildCatalog()
	if err != nil {
		return nil, fmt.Errorf("creating message catalog: %w", err)
	}

	accessManager, err := cfg.Access.BuildManager()
	if err != nil {
		return nil, fmt.Errorf("creating access manager: %w", err)
	}

	opts := []relay.ServerOpt{
		relay.WithFlags(flags),
		relay.WithLocalizer(catalog),
		relay.WithPublisher(nats),
		relay.WithWelcomeMessages(cfg.Server.Welcome...),
	}
	if accessManager != nil {
		opts = append(opts, relay.WithAccessManager(accessManager))
	}
	server, err := relay.NewServer(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating relay server: %w", err)
	}

	gw := gateway.NewGateway(nats, server, controller.NewDispatcher(), catalog,
		gateway.WithMaxPlayers(flags.MaxPlayersPerGame),
		gateway.WithHistorySize(cfg.Gateway.historySize()),
		gateway.WithReady(nats.Ready()),
	)

	// Setup the driver that reaps users and raises game timeouts
	d, err := cfg.Reaper.BuildDriver()
	if err != nil {
		return nil, fmt.Errorf("creating driver: %w", err)
	}
	if err := d.Add("reaper", server); err != nil {
		return nil, err
	}
	if accessManager != nil {
		if err := d.Add("access", accessManager); err != nil {
			return nil, err
		}
	}

	return service.WorkerList{
		"nats":    nats,
		"relay":   server,
		"gateway": gw,
		"driver":  d,
	}, nil
}
