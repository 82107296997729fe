package relay

import (
	"context"
	"net/netip"
	"time"
)

// EventListener receives the events dequeued by a user's loop. It is the
// protocol layer's side of the session.
type EventListener interface {
	HandleEvent(ctx context.Context, ev Event) error
	// Stop tears down the listener's side of the connection.
	Stop()
}

// AccessManager answers access control questions about a client address.
type AccessManager interface {
	AccessLevel(addr netip.Addr) AccessLevel
	IsSilenced(addr netip.Addr) bool
}

// Localizer produces user-facing text.
type Localizer interface {
	String(key string, args ...any) string
}

// Publisher provides the ability to publish messages to subjects
type Publisher interface {
	Publish(subject string, data []byte) error
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type openAccess struct{}

func (openAccess) AccessLevel(netip.Addr) AccessLevel { return AccessNormal }
func (openAccess) IsSilenced(netip.Addr) bool         { return false }

type keyLocalizer struct{}

func (keyLocalizer) String(key string, _ ...any) string { return key }
