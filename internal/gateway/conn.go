package gateway

import (
	"context"
	"sync"

	"github.com/pixil98/go-kaillera/internal/controller"
	"github.com/pixil98/go-kaillera/internal/relay"
)

// Conn is one frontend connection: a relay user and its session.
type Conn struct {
	user    *relay.User
	session *controller.Session
	gateway *Gateway

	mu          sync.Mutex
	unsubscribe func()
}

func (c *Conn) User() *relay.User {
	return c.user
}

func (c *Conn) Session() *controller.Session {
	return c.session
}

func (c *Conn) HandleEvent(ctx context.Context, ev relay.Event) error {
	return c.session.HandleEvent(ctx, ev)
}

// Stop tears down the session and stops serving the connection's actions.
func (c *Conn) Stop() {
	c.session.Stop()
	c.closeActions()
	c.gateway.remove(c.user.ID())
}

func (c *Conn) setUnsubscribe(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsubscribe = fn
}

func (c *Conn) closeActions() {
	c.mu.Lock()
	fn := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}
