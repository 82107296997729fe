package gateway

type GatewayOpt func(*Gateway)

// WithMaxPlayers sets the game capacity reported in status notifications
func WithMaxPlayers(n int) GatewayOpt {
	return func(g *Gateway) {
		g.maxPlayers = n
	}
}

// WithHistorySize sets how many outbound messages each session keeps for
// resends
func WithHistorySize(n int) GatewayOpt {
	return func(g *Gateway) {
		g.historySize = n
	}
}

// WithReady delays serving until ready is closed, for buses that start
// alongside the gateway
func WithReady(ready <-chan struct{}) GatewayOpt {
	return func(g *Gateway) {
		g.ready = ready
	}
}
