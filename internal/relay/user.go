package relay

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"slices"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/eapache/queue"
	"github.com/muesli/reflow/truncate"

	"github.com/pixil98/go-kaillera/internal/lag"
)

const displayNameLength = 15

// User is a connected client. Actions are called from the goroutine reading
// the client's protocol traffic; events are delivered by the user's own loop.
//
// Lock order: User.mu, then Game.mu, then User.infoMu. Game code never takes
// a user's mu.
type User struct {
	id       int
	protocol string
	addr     netip.AddrPort
	server   *Server
	listener EventListener
	flags    Flags
	clock    Clock
	lang     Localizer
	log      *slog.Logger

	mu                 sync.Mutex
	loggedIn           bool
	game               *Game
	playerNumber       int
	connectTime        time.Time
	lastActivity       time.Time
	lastKeepAlive      time.Time
	lastChatTime       time.Time
	lastCreateGameTime time.Time
	lastUpdate         time.Time
	lastMessageID      int
	frameCount         int
	tempDelay          int
	totalDelay         int
	bytesPerAction     int
	arraySize          int
	muted              bool
	lostInput          *queue.Queue
	gameDataErrorTime  time.Time
	lag                lag.Classifier

	// Profile fields are read by games and the server while they hold their
	// own locks, so they live behind a leaf lock.
	infoMu         sync.RWMutex
	name           string
	clientType     string
	connectionType ConnectionType
	ping           int
	frameDelay     int
	accessLevel    AccessLevel
	ignored        []string
	ignoreAll      bool
	acceptingDMs   bool

	status          atomic.Int32
	reducedActivity atomic.Bool

	// events is unbounded so delivery never blocks a game or the server.
	eventsMu sync.Mutex
	events   *queue.Queue
	backlog  bool
	signal   chan struct{}
	lifeMu   sync.Mutex
	running  bool
	stopping bool
	done     chan struct{}
}

func newUser(id int, protocol string, addr netip.AddrPort, s *Server) *User {
	now := s.clock.Now()
	u := &User{
		id:             id,
		protocol:       protocol,
		addr:           addr,
		server:         s,
		flags:          s.flags,
		clock:          s.clock,
		lang:           s.lang,
		log:            slog.Default().With("user_id", id, "addr", addr.String()),
		playerNumber:   -1,
		connectTime:    now,
		lastActivity:   now,
		lastKeepAlive:  now,
		lastUpdate:     now,
		lostInput:      queue.New(),
		accessLevel:    AccessNormal,
		connectionType: ConnectionDisabled,
		acceptingDMs:   true,
		events:         queue.New(),
		signal:         make(chan struct{}, 1),
		done:           make(chan struct{}),
	}
	u.status.Store(int32(UserConnecting))
	return u
}

func (u *User) ID() int                 { return u.id }
func (u *User) Protocol() string        { return u.protocol }
func (u *User) Address() netip.AddrPort { return u.addr }
func (u *User) ConnectTime() time.Time  { return u.connectTime }

func (u *User) String() string {
	name := u.Name()
	if name == "" {
		return fmt.Sprintf("User%d(%s)", u.id, u.addr.Addr())
	}
	if utf8.RuneCountInString(name) > displayNameLength {
		name = truncate.String(name, displayNameLength) + "..."
	}
	return fmt.Sprintf("User%d(%s/%s)", u.id, name, u.addr.Addr())
}

func (u *User) Status() UserStatus {
	return UserStatus(u.status.Load())
}

func (u *User) setStatus(s UserStatus) {
	u.status.Store(int32(s))
}

func (u *User) Name() string {
	u.infoMu.RLock()
	defer u.infoMu.RUnlock()
	return u.name
}

func (u *User) SetName(name string) {
	u.infoMu.Lock()
	defer u.infoMu.Unlock()
	u.name = name
}

// ClientType is the emulator's self-reported name, e.g.
// "Project 64k 0.13 (01 Aug 2003)".
func (u *User) ClientType() string {
	u.infoMu.RLock()
	defer u.infoMu.RUnlock()
	return u.clientType
}

func (u *User) SetClientType(clientType string) {
	u.infoMu.Lock()
	defer u.infoMu.Unlock()
	u.clientType = clientType
}

func (u *User) ConnectionType() ConnectionType {
	u.infoMu.RLock()
	defer u.infoMu.RUnlock()
	return u.connectionType
}

func (u *User) SetConnectionType(c ConnectionType) {
	u.infoMu.Lock()
	defer u.infoMu.Unlock()
	u.connectionType = c
	u.frameDelay = frameDelayFor(u.ping, c)
}

func (u *User) Ping() int {
	u.infoMu.RLock()
	defer u.infoMu.RUnlock()
	return u.ping
}

// SetPing records the measured round trip in milliseconds and derives the
// user's frame delay from it.
func (u *User) SetPing(ms int) {
	u.infoMu.Lock()
	defer u.infoMu.Unlock()
	u.ping = ms
	u.frameDelay = frameDelayFor(ms, u.connectionType)
}

func frameDelayFor(ping int, c ConnectionType) int {
	if ping < 0 {
		ping = 0
	}
	return ping*c.UpdatesPerSecond()/1000 + 1
}

func (u *User) FrameDelay() int {
	u.infoMu.RLock()
	defer u.infoMu.RUnlock()
	return u.frameDelay
}

func (u *User) AccessLevel() AccessLevel {
	u.infoMu.RLock()
	defer u.infoMu.RUnlock()
	return u.accessLevel
}

func (u *User) setAccessLevel(a AccessLevel) {
	u.infoMu.Lock()
	defer u.infoMu.Unlock()
	u.accessLevel = a
}

func (u *User) TempDelay() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tempDelay
}

func (u *User) SetTempDelay(frames int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.tempDelay = frames
}

func (u *User) IsLoggedIn() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.loggedIn
}

// Game returns the game the user is in, or nil.
func (u *User) Game() *Game {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.game
}

// PlayerNumber returns the user's 1-based slot, or -1 outside a game.
func (u *User) PlayerNumber() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.playerNumber
}

func (u *User) FrameCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.frameCount
}

func (u *User) TotalDelay() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.totalDelay
}

func (u *User) IsMuted() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.muted
}

func (u *User) SetMuted(muted bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.muted = muted
}

func (u *User) LastChatTime() time.Time {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastChatTime
}

func (u *User) LastCreateGameTime() time.Time {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastCreateGameTime
}

// SetReducedActivity toggles p2p mode, in which informational server notices
// are not delivered while the user is in a game.
func (u *User) SetReducedActivity(on bool) {
	u.reducedActivity.Store(on)
}

func (u *User) ReducedActivity() bool {
	return u.reducedActivity.Load()
}

func (u *User) SetIgnoreAll(on bool) {
	u.infoMu.Lock()
	defer u.infoMu.Unlock()
	u.ignoreAll = on
}

func (u *User) AddIgnoredUser(addr string) {
	u.infoMu.Lock()
	defer u.infoMu.Unlock()
	u.ignored = append(u.ignored, addr)
}

func (u *User) FindIgnoredUser(addr string) bool {
	u.infoMu.RLock()
	defer u.infoMu.RUnlock()
	return slices.Contains(u.ignored, addr)
}

// RemoveIgnoredUser removes every entry for addr, or the whole list when all
// is set. It reports whether anything was removed.
func (u *User) RemoveIgnoredUser(addr string, all bool) bool {
	u.infoMu.Lock()
	defer u.infoMu.Unlock()
	if all {
		u.ignored = nil
		return true
	}
	n := len(u.ignored)
	u.ignored = slices.DeleteFunc(u.ignored, func(a string) bool { return a == addr })
	return len(u.ignored) != n
}

func (u *User) AcceptingDirectMessages() bool {
	u.infoMu.RLock()
	defer u.infoMu.RUnlock()
	return u.acceptingDMs
}

func (u *User) SetAcceptingDirectMessages(on bool) {
	u.infoMu.Lock()
	defer u.infoMu.Unlock()
	u.acceptingDMs = on
}

// IsIgnoring reports whether chat from sender should be hidden from u.
func (u *User) IsIgnoring(sender *User) bool {
	if sender == u {
		return false
	}
	u.infoMu.RLock()
	defer u.infoMu.RUnlock()
	return u.ignoreAll || slices.Contains(u.ignored, sender.addr.Addr().String())
}

func (u *User) updateLastActivityLocked() {
	now := u.clock.Now()
	u.lastKeepAlive = now
	u.lastActivity = now
}

// UpdateLastKeepAlive records a keepalive without counting it as activity.
func (u *User) UpdateLastKeepAlive() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.lastKeepAlive = u.clock.Now()
}

// IsDead reports that nothing has been heard from the client for longer than
// the keepalive timeout.
func (u *User) IsDead() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	now := u.clock.Now()
	return now.Sub(u.lastKeepAlive) > u.flags.KeepAliveTimeout &&
		now.Sub(u.lastUpdate) > u.flags.KeepAliveTimeout
}

// IsIdleForTooLong reports a connected client that has neither acted nor sent
// game data for longer than the idle timeout.
func (u *User) IsIdleForTooLong() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	now := u.clock.Now()
	return now.Sub(u.lastActivity) > u.flags.IdleTimeout &&
		now.Sub(u.lastUpdate) > u.flags.IdleTimeout
}

func (u *User) LagSummary() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lag.String()
}

// LagCounts returns the small and big lag spikes this user has caused.
func (u *User) LagCounts() (small, big int64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lag.Counts()
}

func (u *User) ResetLag() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.lag.Reset()
}

// resetRoundLocked clears per-round relay state.
func (u *User) resetRoundLocked() {
	u.frameCount = 0
	u.gameDataErrorTime = time.Time{}
	for u.lostInput.Length() > 0 {
		u.lostInput.Remove()
	}
}

func (u *User) detachLocked() {
	u.game = nil
	u.playerNumber = -1
	u.totalDelay = 0
	u.resetRoundLocked()
}

// QueueEvent delivers ev to the user's loop. Informational notices are shed
// while the user is in a game with reduced activity on.
func (u *User) QueueEvent(ev Event) {
	if ev.Kind() == KindInfoMessage && u.Status() != UserIdle && u.reducedActivity.Load() {
		return
	}
	u.enqueue(ev)
}

func (u *User) enqueue(ev Event) {
	u.eventsMu.Lock()
	u.events.Add(ev)
	n := u.events.Length()
	warn := !u.backlog && u.flags.EventBacklogWarn > 0 && n > u.flags.EventBacklogWarn
	if warn {
		u.backlog = true
	}
	u.eventsMu.Unlock()

	if warn {
		u.log.Warn("event backlog growing", "pending", n, "event", ev.Kind())
	}

	select {
	case u.signal <- struct{}{}:
	default:
	}
}

// nextEvent pops the oldest pending event.
func (u *User) nextEvent() (Event, bool) {
	u.eventsMu.Lock()
	defer u.eventsMu.Unlock()
	if u.events.Length() == 0 {
		u.backlog = false
		return nil, false
	}
	return u.events.Remove().(Event), true
}

// Done is closed when the user's loop has exited.
func (u *User) Done() <-chan struct{} {
	return u.done
}

func (u *User) start(ctx context.Context) {
	u.lifeMu.Lock()
	u.running = true
	u.lifeMu.Unlock()

	go u.run(ctx)
}

// Stop asks the user's loop to exit and tears down the listener. It is safe
// to call from any goroutine and only acts once.
func (u *User) Stop() {
	u.lifeMu.Lock()
	if !u.running {
		u.lifeMu.Unlock()
		u.log.Debug("stop request ignored: not running")
		return
	}
	if u.stopping {
		u.lifeMu.Unlock()
		u.log.Debug("stop request ignored: already stopping")
		return
	}
	u.stopping = true
	u.lifeMu.Unlock()

	u.enqueue(StopFlagEvent{})
	u.listener.Stop()
}

func (u *User) isStopping() bool {
	u.lifeMu.Lock()
	defer u.lifeMu.Unlock()
	return u.stopping
}

func (u *User) run(ctx context.Context) {
	u.log.DebugContext(ctx, "user loop running")
	defer func() {
		u.lifeMu.Lock()
		u.running = false
		u.lifeMu.Unlock()
		close(u.done)
		u.log.DebugContext(ctx, "user loop exiting")
	}()

	ticker := time.NewTicker(u.flags.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-u.signal:
			for {
				ev, ok := u.nextEvent()
				if !ok {
					break
				}
				if ev.Kind() == KindStopFlag {
					return
				}
				u.dispatch(ctx, ev)
			}

		case <-ticker.C:
			if u.isStopping() {
				return
			}
		}
	}
}

func (u *User) dispatch(ctx context.Context, ev Event) {
	u.deliver(ctx, ev)

	switch e := ev.(type) {
	case GameStartedEvent:
		u.mu.Lock()
		// The round may already have fallen back to waiting.
		if u.game != nil && (e.Game == nil || e.Game == u.game) && u.game.Status() == GamePlaying {
			u.setStatus(UserPlaying)
			u.lastUpdate = u.clock.Now()
		}
		u.mu.Unlock()
	case UserQuitEvent:
		if e.User == u {
			u.Stop()
		}
	}
}

func (u *User) deliver(ctx context.Context, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			u.log.ErrorContext(ctx, "event listener panicked", "event", ev.Kind(), "panic", r)
		}
	}()

	if err := u.listener.HandleEvent(ctx, ev); err != nil {
		u.log.ErrorContext(ctx, "handling event", "event", ev.Kind(), "error", err)
	}
}
