package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pixil98/go-kaillera/internal/relay"
)

var ErrCacheMiss = errors.New("game data cache miss")

type keyLocalizer struct{}

func (keyLocalizer) String(key string, _ ...any) string { return key }

// Session binds one user to its transport. It is the user's event listener
// and the entry point for the frames its client sends.
type Session struct {
	user       *relay.User
	transport  Transport
	dispatcher *Dispatcher
	lang       relay.Localizer
	log        *slog.Logger
	maxPlayers int

	serverCache *GameDataCache
	clientCache *GameDataCache

	closeOnce sync.Once
}

// NewSession builds the session for u. A nil lang renders message keys as-is.
func NewSession(u *relay.User, t Transport, d *Dispatcher, lang relay.Localizer, maxPlayers int) *Session {
	if lang == nil {
		lang = keyLocalizer{}
	}
	return &Session{
		user:        u,
		transport:   t,
		dispatcher:  d,
		lang:        lang,
		log:         slog.Default().With("user_id", u.ID()),
		maxPlayers:  maxPlayers,
		serverCache: NewGameDataCache(),
		clientCache: NewGameDataCache(),
	}
}

// Listener returns a constructor suitable for relay.Server.NewUser.
func Listener(t Transport, d *Dispatcher, lang relay.Localizer, maxPlayers int) func(*relay.User) relay.EventListener {
	return func(u *relay.User) relay.EventListener {
		return NewSession(u, t, d, lang, maxPlayers)
	}
}

func (s *Session) User() *relay.User {
	return s.user
}

func (s *Session) HandleEvent(ctx context.Context, ev relay.Event) error {
	if err := s.dispatcher.dispatch(ctx, s, ev); err != nil {
		return fmt.Errorf("dispatching %s: %w", ev.Kind(), err)
	}
	return nil
}

// Stop closes the transport. Only the first call has any effect.
func (s *Session) Stop() {
	s.closeOnce.Do(func() {
		if err := s.transport.Close(); err != nil {
			s.log.Warn("closing transport", "error", err)
		}
	})
}

// GameData relays a full frame from the client and remembers it for later
// CachedGameData references.
func (s *Session) GameData(ctx context.Context, data []byte) error {
	s.clientCache.Add(data)
	return s.relayGameData(ctx, data)
}

// CachedGameData relays a frame the client sent earlier by its cache key.
func (s *Session) CachedGameData(ctx context.Context, key int) error {
	data, ok := s.clientCache.Get(key)
	if !ok {
		return fmt.Errorf("key %d: %w", key, ErrCacheMiss)
	}
	return s.relayGameData(ctx, data)
}

func (s *Session) relayGameData(ctx context.Context, data []byte) error {
	err := s.user.AddGameData(data)
	if err == nil {
		return nil
	}

	var gde *relay.GameDataError
	if !errors.As(err, &gde) {
		return err
	}
	s.log.DebugContext(ctx, "game data error", "error", err)

	if gde.Response == nil {
		return err
	}
	if err := s.transport.Send(GameData{Data: gde.Response}); err != nil {
		return fmt.Errorf("reflecting game data: %w", err)
	}
	return nil
}
