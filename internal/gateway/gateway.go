package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"sync"

	"github.com/pixil98/go-kaillera/internal/controller"
	"github.com/pixil98/go-kaillera/internal/messaging"
	"github.com/pixil98/go-kaillera/internal/relay"
)

// SubjectConnect is where a protocol frontend registers new connections.
const SubjectConnect = "kaillera.gateway.connect"

// ActionSubject is where a frontend sends the actions of one connection.
func ActionSubject(userID int) string {
	return fmt.Sprintf("kaillera.gateway.action.%d", userID)
}

// Bus is the request/reply message bus shared with protocol frontends.
type Bus interface {
	messaging.Publisher
	Handle(subject string, handler func(data []byte) []byte) (func(), error)
}

type ConnectRequest struct {
	Protocol       string `json:"protocol"`
	Address        string `json:"address"`
	Name           string `json:"name"`
	ClientType     string `json:"client_type"`
	ConnectionType string `json:"connection_type"`
	Ping           int    `json:"ping"`
}

type ConnectReply struct {
	UserID  int    `json:"user_id,omitempty"`
	Events  string `json:"events,omitempty"`
	Actions string `json:"actions,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Gateway lets out-of-process protocol frontends drive relay users over a
// message bus. Each connection gets a session transport for outbound
// messages and an action subject for inbound ones.
type Gateway struct {
	bus         Bus
	server      *relay.Server
	dispatcher  *controller.Dispatcher
	lang        relay.Localizer
	maxPlayers  int
	historySize int
	ready       <-chan struct{}

	actionsMu sync.RWMutex
	actions   map[string]ActionFunc

	mu    sync.Mutex
	conns map[int]*Conn
}

func NewGateway(bus Bus, server *relay.Server, d *controller.Dispatcher, lang relay.Localizer, opts ...GatewayOpt) *Gateway {
	g := &Gateway{
		bus:         bus,
		server:      server,
		dispatcher:  d,
		lang:        lang,
		maxPlayers:  server.Flags().MaxPlayersPerGame,
		historySize: messaging.DefaultHistorySize,
		actions:     map[string]ActionFunc{},
		conns:       map[int]*Conn{},
	}

	for name, fn := range builtinActions {
		g.actions[name] = fn
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// RegisterAction adds an action frontends can invoke by name.
func (g *Gateway) RegisterAction(name string, fn ActionFunc) error {
	if name == "" {
		return fmt.Errorf("action name cannot be empty")
	}
	if fn == nil {
		return fmt.Errorf("action %q cannot be nil", name)
	}

	g.actionsMu.Lock()
	defer g.actionsMu.Unlock()
	if _, exists := g.actions[name]; exists {
		return fmt.Errorf("action %q already registered", name)
	}
	g.actions[name] = fn
	return nil
}

func (g *Gateway) Start(ctx context.Context) error {
	if g.ready != nil {
		select {
		case <-g.ready:
		case <-ctx.Done():
			return nil
		}
	}

	unsubscribe, err := g.bus.Handle(SubjectConnect, func(data []byte) []byte {
		return g.handleConnect(ctx, data)
	})
	if err != nil {
		return fmt.Errorf("serving %s: %w", SubjectConnect, err)
	}
	slog.InfoContext(ctx, "gateway accepting connections", "subject", SubjectConnect)

	<-ctx.Done()
	unsubscribe()

	for _, c := range g.connections() {
		c.closeActions()
	}
	return nil
}

// Connect registers a new user for a frontend connection. The user still has
// to log in through the login action.
func (g *Gateway) Connect(ctx context.Context, req ConnectRequest) (*Conn, error) {
	addr, err := netip.ParseAddrPort(req.Address)
	if err != nil {
		return nil, fmt.Errorf("parsing address: %w", err)
	}
	ct, err := relay.ParseConnectionType(req.ConnectionType)
	if err != nil {
		return nil, err
	}

	var c *Conn
	u, err := g.server.NewUser(req.Protocol, addr, func(u *relay.User) relay.EventListener {
		tr := messaging.NewSessionTransport(g.bus, u.ID(), messaging.WithHistorySize(g.historySize))
		c = &Conn{
			user:    u,
			session: controller.NewSession(u, tr, g.dispatcher, g.lang, g.maxPlayers),
			gateway: g,
		}
		return c
	})
	if err != nil {
		return nil, err
	}

	u.SetName(req.Name)
	u.SetClientType(req.ClientType)
	u.SetConnectionType(ct)
	u.SetPing(req.Ping)

	unsubscribe, err := g.bus.Handle(ActionSubject(u.ID()), func(data []byte) []byte {
		return g.handleAction(ctx, c, data)
	})
	if err != nil {
		if qErr := u.Quit(""); qErr != nil {
			slog.WarnContext(ctx, "removing unreachable user", "user", u.String(), "error", qErr)
		}
		return nil, fmt.Errorf("serving %s: %w", ActionSubject(u.ID()), err)
	}
	c.setUnsubscribe(unsubscribe)

	g.mu.Lock()
	g.conns[u.ID()] = c
	g.mu.Unlock()

	slog.DebugContext(ctx, "gateway connection", "user", u.String(), "protocol", req.Protocol)
	return c, nil
}

// Conn returns the connection for a user id, or nil.
func (g *Gateway) Conn(userID int) *Conn {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.conns[userID]
}

func (g *Gateway) connections() []*Conn {
	g.mu.Lock()
	defer g.mu.Unlock()
	conns := make([]*Conn, 0, len(g.conns))
	for _, c := range g.conns {
		conns = append(conns, c)
	}
	return conns
}

func (g *Gateway) remove(userID int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.conns, userID)
}

func (g *Gateway) handleConnect(ctx context.Context, data []byte) []byte {
	var req ConnectRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return marshalReply(ConnectReply{Error: fmt.Sprintf("decoding request: %s", err)})
	}

	c, err := g.Connect(ctx, req)
	if err != nil {
		slog.WarnContext(ctx, "rejecting connection", "address", req.Address, "error", err)
		return marshalReply(ConnectReply{Error: errorText(err)})
	}

	id := c.user.ID()
	return marshalReply(ConnectReply{
		UserID:  id,
		Events:  messaging.SessionSubject(id),
		Actions: ActionSubject(id),
	})
}

func (g *Gateway) handleAction(ctx context.Context, c *Conn, data []byte) []byte {
	var req ActionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return marshalReply(ActionReply{Error: fmt.Sprintf("decoding request: %s", err)})
	}

	g.actionsMu.RLock()
	fn, ok := g.actions[req.Action]
	g.actionsMu.RUnlock()
	if !ok {
		return marshalReply(ActionReply{Error: fmt.Sprintf("unknown action: %s", req.Action)})
	}

	if err := fn(ctx, c, req); err != nil {
		slog.DebugContext(ctx, "action failed", "user", c.user.String(), "action", req.Action, "error", err)
		return marshalReply(ActionReply{Error: errorText(err)})
	}
	return marshalReply(ActionReply{})
}

// errorText is what a frontend shows its user: the localized message when
// there is one.
func errorText(err error) string {
	var ae *relay.ActionError
	if errors.As(err, &ae) {
		return ae.Msg
	}
	var gde *relay.GameDataError
	if errors.As(err, &gde) {
		return gde.Msg
	}
	return err.Error()
}

func marshalReply(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshalling reply", "error", err)
		return nil
	}
	return data
}
