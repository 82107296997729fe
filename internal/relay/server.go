package relay

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"slices"
	"strconv"
	"sync"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/patrickmn/go-cache"
)

// Server owns every user and game. It is the only place either is created or
// destroyed.
type Server struct {
	flags     Flags
	clock     Clock
	access    AccessManager
	lang      Localizer
	publisher Publisher

	welcomeText []string
	welcome     []*template.Template
	floods      *cache.Cache

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.RWMutex
	users      map[int]*User
	games      map[int]*Game
	nextUserID int
	nextGameID int
}

type ServerOpt func(*Server)

// WithFlags sets the runtime tunables
func WithFlags(f Flags) ServerOpt {
	return func(s *Server) {
		s.flags = f
	}
}

// WithClock sets the time source
func WithClock(c Clock) ServerOpt {
	return func(s *Server) {
		s.clock = c
	}
}

// WithAccessManager sets the access control list consulted on login and chat
func WithAccessManager(a AccessManager) ServerOpt {
	return func(s *Server) {
		s.access = a
	}
}

// WithLocalizer sets the source of user-facing text
func WithLocalizer(l Localizer) ServerOpt {
	return func(s *Server) {
		s.lang = l
	}
}

// WithPublisher sets where server lifecycle notices are published
func WithPublisher(p Publisher) ServerOpt {
	return func(s *Server) {
		s.publisher = p
	}
}

// WithWelcomeMessages sets templates rendered to each user on login
func WithWelcomeMessages(msgs ...string) ServerOpt {
	return func(s *Server) {
		s.welcomeText = msgs
	}
}

func NewServer(opts ...ServerOpt) (*Server, error) {
	s := &Server{
		flags:      DefaultFlags(),
		clock:      systemClock{},
		access:     openAccess{},
		lang:       keyLocalizer{},
		floods:     cache.New(cache.NoExpiration, time.Minute),
		users:      map[int]*User{},
		games:      map[int]*Game{},
		nextUserID: 1,
		nextGameID: 1,
	}

	for _, opt := range opts {
		opt(s)
	}

	for i, text := range s.welcomeText {
		t, err := parseWelcome(fmt.Sprintf("welcome-%d", i), text)
		if err != nil {
			return nil, fmt.Errorf("parsing welcome message %d: %w", i, err)
		}
		s.welcome = append(s.welcome, t)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

func (s *Server) Flags() Flags {
	return s.flags
}

// NewUser registers a connection and starts its event loop. The listener is
// built for the new user before any event can reach it.
func (s *Server) NewUser(protocol string, addr netip.AddrPort, newListener func(*User) EventListener) (*User, error) {
	s.mu.Lock()
	if s.flags.MaxUsers > 0 && len(s.users) >= s.flags.MaxUsers {
		s.mu.Unlock()
		return nil, ErrServerFull
	}
	id := s.nextUserID
	s.nextUserID++
	s.mu.Unlock()

	u := newUser(id, protocol, addr, s)
	u.listener = newListener(u)
	u.setAccessLevel(s.access.AccessLevel(addr.Addr()))

	s.mu.Lock()
	s.users[id] = u
	s.mu.Unlock()

	u.start(s.ctx)
	slog.Debug("user connected", "user", u.String(), "protocol", protocol)
	return u, nil
}

// User returns the user with the given id, or nil.
func (s *Server) User(id int) *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[id]
}

// Game returns the game with the given id, or nil.
func (s *Server) Game(id int) *Game {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.games[id]
}

// Users returns a snapshot of every user ordered by id.
func (s *Server) Users() []*User {
	s.mu.RLock()
	users := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	s.mu.RUnlock()

	slices.SortFunc(users, func(a, b *User) int { return a.id - b.id })
	return users
}

// Games returns a snapshot of every open game ordered by id.
func (s *Server) Games() []*Game {
	s.mu.RLock()
	games := make([]*Game, 0, len(s.games))
	for _, g := range s.games {
		games = append(games, g)
	}
	s.mu.RUnlock()

	slices.SortFunc(games, func(a, b *Game) int { return a.id - b.id })
	return games
}

// broadcast delivers ev to every logged-in user.
func (s *Server) broadcast(ev Event, skip func(*User) bool) {
	for _, u := range s.Users() {
		if u.Status() == UserConnecting {
			continue
		}
		if skip != nil && skip(u) {
			continue
		}
		u.QueueEvent(ev)
	}
}

func (s *Server) login(u *User) error {
	name := u.Name()
	switch {
	case name == "":
		return newActionError(OpLogin, ErrPolicyDenied, s.lang.String(MsgLoginErrorNameEmpty))
	case utf8.RuneCountInString(name) > s.flags.MaxUserNameLength:
		return newActionError(OpLogin, ErrPolicyDenied, s.lang.String(MsgLoginErrorNameTooLong))
	case utf8.RuneCountInString(u.ClientType()) > s.flags.MaxClientNameLength:
		return newActionError(OpLogin, ErrPolicyDenied, s.lang.String(MsgLoginErrorClientTooLong))
	case u.ConnectionType().ByteValue() == 0:
		return newActionError(OpLogin, ErrPolicyDenied, s.lang.String(MsgLoginErrorConnectionType))
	}

	level := s.access.AccessLevel(u.addr.Addr())
	if level == AccessBanned {
		slog.Warn("banned user refused", "user", u.String())
		return newActionError(OpLogin, ErrPolicyDenied, s.lang.String(MsgLoginErrorBanned))
	}
	u.setAccessLevel(level)

	if s.User(u.id) != u {
		return newActionError(OpLogin, ErrNotFound, s.lang.String(MsgQuitErrorNotFound))
	}

	u.setStatus(UserIdle)
	s.broadcast(UserJoinedEvent{User: u}, nil)
	s.publishUser(subjectUserJoined, u, "")
	slog.Info("user logged in", "user", u.String(), "client", u.ClientType(), "connection", u.ConnectionType().String())

	s.sendWelcome(u)
	return nil
}

func (s *Server) chat(u *User, message string) error {
	if s.access.IsSilenced(u.addr.Addr()) {
		return newActionError(OpChat, ErrPolicyDenied, s.lang.String(MsgChatErrorSilenced))
	}
	if utf8.RuneCountInString(message) > s.flags.MaxChatLength {
		return newActionError(OpChat, ErrPolicyDenied, s.lang.String(MsgChatErrorTooLong))
	}
	if err := s.checkFlood("chat", u, s.flags.ChatFloodTime); err != nil {
		e := newActionError(OpChat, ErrPolicyDenied, s.lang.String(MsgChatErrorFlood))
		e.Err = err
		return e
	}

	s.broadcast(ChatEvent{User: u, Message: message}, func(r *User) bool { return r.IsIgnoring(u) })
	return nil
}

// checkFlood fails if the user performed the same kind of action within d.
func (s *Server) checkFlood(kind string, u *User, d time.Duration) error {
	if d <= 0 || u.AccessLevel() >= AccessModerator {
		return nil
	}
	if err := s.floods.Add(kind+":"+strconv.Itoa(u.id), struct{}{}, d); err != nil {
		return fmt.Errorf("%s within %s: %w", kind, d, ErrFlood)
	}
	return nil
}

func (s *Server) createGame(u *User, romName string) (*Game, error) {
	switch {
	case romName == "":
		return nil, newActionError(OpCreateGame, ErrPolicyDenied, s.lang.String(MsgCreateGameErrorEmptyName))
	case utf8.RuneCountInString(romName) > s.flags.MaxGameNameLength:
		return nil, newActionError(OpCreateGame, ErrPolicyDenied, s.lang.String(MsgCreateGameErrorNameTooLong))
	}
	if err := s.checkFlood("create", u, s.flags.CreateGameFloodTime); err != nil {
		e := newActionError(OpCreateGame, ErrPolicyDenied, s.lang.String(MsgCreateGameErrorFlood))
		e.Err = err
		return nil, e
	}

	s.mu.Lock()
	if s.flags.MaxGames > 0 && len(s.games) >= s.flags.MaxGames {
		s.mu.Unlock()
		return nil, newActionError(OpCreateGame, ErrPolicyDenied, s.lang.String(MsgCreateGameErrorTooManyGames))
	}
	g := newGame(s.nextGameID, romName, u, s)
	s.nextGameID++
	s.games[g.id] = g
	s.mu.Unlock()

	slog.Info("game created", "game", g.String(), "owner", u.String())
	s.broadcast(GameCreatedEvent{Game: g}, nil)
	s.publishGame(subjectGameCreated, g)
	return g, nil
}

// closeGame removes g from the server. Closing an unknown game is a no-op.
func (s *Server) closeGame(g *Game) {
	s.mu.Lock()
	_, ok := s.games[g.id]
	delete(s.games, g.id)
	s.mu.Unlock()

	g.close()
	if !ok {
		return
	}

	slog.Info("game closed", "game", g.String())
	s.broadcast(GameClosedEvent{Game: g}, nil)
	s.publishGame(subjectGameClosed, g)
}

func (s *Server) broadcastGameStatus(g *Game) {
	if s.Game(g.id) != g {
		return
	}
	s.broadcast(GameStatusChangedEvent{Game: g}, nil)
	s.publishGame(subjectGameStatus, g)
}

// quit removes u. Everyone is told about users that had logged in; u itself
// is always told so its loop can stop.
func (s *Server) quit(u *User, message string, loggedIn bool) error {
	s.mu.Lock()
	_, ok := s.users[u.id]
	delete(s.users, u.id)
	s.mu.Unlock()

	if !ok {
		return newActionError(OpQuit, ErrNotFound, s.lang.String(MsgQuitErrorNotFound))
	}

	ev := UserQuitEvent{User: u, Message: message}
	if loggedIn {
		s.broadcast(ev, func(r *User) bool { return r == u })
		s.publishUser(subjectUserQuit, u, message)
	}
	u.QueueEvent(ev)

	slog.Info("user quit", "user", u.String(), "message", message)
	return nil
}

// Tick quits users that stopped responding or idled too long and raises game
// timeouts.
func (s *Server) Tick(ctx context.Context) error {
	for _, u := range s.Users() {
		switch {
		case u.IsDead():
			slog.InfoContext(ctx, "reaping dead user", "user", u.String())
			if err := u.Quit(s.lang.String(MsgQuitPingTimeout)); err != nil {
				slog.WarnContext(ctx, "quitting dead user", "user", u.String(), "error", err)
			}
		case u.IsIdleForTooLong() && u.AccessLevel() < AccessModerator:
			slog.InfoContext(ctx, "reaping idle user", "user", u.String())
			if err := u.Quit(s.lang.String(MsgQuitInactivity)); err != nil {
				slog.WarnContext(ctx, "quitting idle user", "user", u.String(), "error", err)
			}
		}
	}

	for _, g := range s.Games() {
		g.checkTimeouts()
	}
	return nil
}

// Start blocks until ctx ends and then shuts the server down.
func (s *Server) Start(ctx context.Context) error {
	slog.InfoContext(ctx, "relay server running", "name", s.flags.ServerName)
	select {
	case <-ctx.Done():
	case <-s.ctx.Done():
	}
	s.Shutdown()
	return nil
}

// Shutdown stops every user loop and closes every game.
func (s *Server) Shutdown() {
	for _, u := range s.Users() {
		u.Stop()
	}
	for _, g := range s.Games() {
		s.closeGame(g)
	}
	s.cancel()
}
