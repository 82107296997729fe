package relay

import (
	"context"
	"net/netip"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingListener captures everything a user loop delivers.
type recordingListener struct {
	mu     sync.Mutex
	events []Event
	stops  int
}

func (l *recordingListener) HandleEvent(_ context.Context, ev Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	return nil
}

func (l *recordingListener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stops++
}

func (l *recordingListener) stopCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stops
}

func (l *recordingListener) seen(kind EventKind) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ev := range l.events {
		if ev.Kind() == kind {
			return true
		}
	}
	return false
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	data     [][]byte
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	p.data = append(p.data, data)
	return nil
}

type staticAccess struct {
	levels   map[netip.Addr]AccessLevel
	silenced map[netip.Addr]bool
}

func (a *staticAccess) AccessLevel(addr netip.Addr) AccessLevel {
	if l, ok := a.levels[addr]; ok {
		return l
	}
	return AccessNormal
}

func (a *staticAccess) IsSilenced(addr netip.Addr) bool {
	return a.silenced[addr]
}

func testFlags() Flags {
	f := DefaultFlags()
	f.ServerName = "test"
	f.ChatFloodTime = 0
	f.CreateGameFloodTime = 0
	f.PollInterval = 10 * time.Millisecond
	return f
}

func newTestServer(t *testing.T, opts ...ServerOpt) (*Server, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	opts = append([]ServerOpt{WithFlags(testFlags()), WithClock(clock)}, opts...)
	s, err := NewServer(opts...)
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}
	t.Cleanup(s.Shutdown)
	return s, clock
}

func testAddr(id int) netip.AddrPort {
	return netip.AddrPortFrom(netip.AddrFrom4([4]byte{10, 0, 0, byte(id)}), 27888)
}

// connectUser registers a user whose loop is not running, so the events it is
// sent stay in its queue for drainEvents.
func connectUser(t *testing.T, s *Server, name string, ct ConnectionType) *User {
	t.Helper()
	s.mu.Lock()
	id := s.nextUserID
	s.nextUserID++
	s.mu.Unlock()

	u := newUser(id, "v086", testAddr(id), s)
	u.listener = &recordingListener{}
	u.SetName(name)
	u.SetClientType("Project 64k 0.13")
	u.SetConnectionType(ct)

	s.mu.Lock()
	s.users[id] = u
	s.mu.Unlock()
	return u
}

func loginUser(t *testing.T, s *Server, name string, ct ConnectionType) *User {
	t.Helper()
	u := connectUser(t, s, name, ct)
	if err := u.Login(); err != nil {
		t.Fatalf("Login(%s) error: %v", name, err)
	}
	return u
}

func drainEvents(u *User) []Event {
	var evs []Event
	for {
		ev, ok := u.nextEvent()
		if !ok {
			return evs
		}
		evs = append(evs, ev)
	}
}

func eventsOf[T Event](evs []Event) []T {
	var out []T
	for _, ev := range evs {
		if e, ok := ev.(T); ok {
			out = append(out, e)
		}
	}
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// startedGame creates a game owned by the first user, joins the rest and
// readies everyone so the game is playing.
func startedGame(t *testing.T, users ...*User) *Game {
	t.Helper()
	g, err := users[0].CreateGame("Super Street Fighter II Turbo")
	if err != nil {
		t.Fatalf("CreateGame() error: %v", err)
	}
	for _, u := range users[1:] {
		if _, err := u.JoinGame(g.ID()); err != nil {
			t.Fatalf("JoinGame() error: %v", err)
		}
	}
	for _, u := range users {
		if err := u.PlayerReady(); err != nil {
			t.Fatalf("PlayerReady() error: %v", err)
		}
	}
	if g.Status() != GamePlaying {
		t.Fatalf("game status %s, expected playing", g.Status())
	}
	for _, u := range users {
		drainEvents(u)
	}
	return g
}
