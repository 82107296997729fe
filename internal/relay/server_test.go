package relay

import (
	"encoding/json"
	"errors"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
)

func TestServer_EndToEnd(t *testing.T) {
	s, _ := newTestServer(t)

	listeners := map[int]*recordingListener{}
	newListener := func(u *User) EventListener {
		l := &recordingListener{}
		listeners[u.ID()] = l
		return l
	}

	connect := func(name string) *User {
		u, err := s.NewUser("v086", testAddr(len(listeners)+1), newListener)
		if err != nil {
			t.Fatalf("NewUser() error: %v", err)
		}
		u.SetName(name)
		u.SetClientType("Project 64k 0.13")
		u.SetConnectionType(ConnectionLAN)
		if err := u.Login(); err != nil {
			t.Fatalf("Login() error: %v", err)
		}
		return u
	}
	a := connect("alice")
	b := connect("bob")

	g, err := a.CreateGame("Super Mario Kart")
	if err != nil {
		t.Fatalf("CreateGame() error: %v", err)
	}
	testutil.AssertEqual(t, "creator status", a.Status(), UserIdle)
	testutil.AssertEqual(t, "game status", g.Status(), GameWaiting)

	g2, err := b.JoinGame(g.ID())
	if err != nil {
		t.Fatalf("JoinGame() error: %v", err)
	}
	testutil.AssertEqual(t, "joined game", g2 == g, true)
	testutil.AssertEqual(t, "joiner slot", b.PlayerNumber(), 2)

	for _, u := range []*User{a, b} {
		if err := u.PlayerReady(); err != nil {
			t.Fatalf("PlayerReady() error: %v", err)
		}
	}
	testutil.AssertEqual(t, "game playing", g.Status(), GamePlaying)

	for _, u := range []*User{a, b} {
		l := listeners[u.ID()]
		waitFor(t, u.Name()+" game started", func() bool { return l.seen(KindGameStarted) })
	}
	waitFor(t, "alice playing", func() bool { return a.Status() == UserPlaying })
}

func TestServer_QuitStopsLoop(t *testing.T) {
	s, _ := newTestServer(t)

	var l *recordingListener
	u, err := s.NewUser("v086", testAddr(1), func(*User) EventListener {
		l = &recordingListener{}
		return l
	})
	if err != nil {
		t.Fatalf("NewUser() error: %v", err)
	}
	u.SetName("alice")
	u.SetConnectionType(ConnectionLAN)
	if err := u.Login(); err != nil {
		t.Fatalf("Login() error: %v", err)
	}

	if err := u.Quit("bye"); err != nil {
		t.Fatalf("Quit() error: %v", err)
	}

	select {
	case <-u.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("user loop did not exit")
	}
	testutil.AssertEqual(t, "listener stops", l.stopCount(), 1)
	testutil.AssertEqual(t, "saw own quit", l.seen(KindUserQuit), true)
	testutil.AssertEqual(t, "removed", s.User(u.ID()) == nil, true)
	testutil.AssertEqual(t, "logged in", u.IsLoggedIn(), false)

	err = u.Quit("again")
	testutil.AssertEqual(t, "second quit", errors.Is(err, ErrNotFound), true)
}

func TestServer_Login(t *testing.T) {
	tests := map[string]struct {
		name       string
		connection ConnectionType
		banned     bool
		twice      bool
		expKind    error
		expMsg     string
	}{
		"ok": {
			name:       "alice",
			connection: ConnectionLAN,
		},
		"empty name": {
			name:       "",
			connection: ConnectionLAN,
			expKind:    ErrPolicyDenied,
			expMsg:     MsgLoginErrorNameEmpty,
		},
		"long name": {
			name:       strings.Repeat("x", 32),
			connection: ConnectionLAN,
			expKind:    ErrPolicyDenied,
			expMsg:     MsgLoginErrorNameTooLong,
		},
		"disabled connection": {
			name:       "alice",
			connection: ConnectionDisabled,
			expKind:    ErrPolicyDenied,
			expMsg:     MsgLoginErrorConnectionType,
		},
		"banned": {
			name:       "alice",
			connection: ConnectionLAN,
			banned:     true,
			expKind:    ErrPolicyDenied,
			expMsg:     MsgLoginErrorBanned,
		},
		"already logged in": {
			name:       "alice",
			connection: ConnectionLAN,
			twice:      true,
			expKind:    ErrStateViolation,
			expMsg:     MsgLoginErrorAlreadyLoggedIn,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			access := &staticAccess{levels: map[netip.Addr]AccessLevel{}}
			if tt.banned {
				access.levels[testAddr(1).Addr()] = AccessBanned
			}
			s, _ := newTestServer(t, WithAccessManager(access))
			u := connectUser(t, s, tt.name, tt.connection)

			err := u.Login()
			if tt.twice {
				if err != nil {
					t.Fatalf("first Login() error: %v", err)
				}
				err = u.Login()
			}

			if tt.expKind != nil {
				testutil.AssertErrorContains(t, err, tt.expMsg)
				testutil.AssertEqual(t, "error kind", errors.Is(err, tt.expKind), true)
				return
			}
			if err != nil {
				t.Fatalf("Login() error: %v", err)
			}
			testutil.AssertEqual(t, "status", u.Status(), UserIdle)
			testutil.AssertEqual(t, "joined event", len(eventsOf[UserJoinedEvent](drainEvents(u))), 1)
		})
	}
}

func TestServer_ChatFlood(t *testing.T) {
	flags := testFlags()
	flags.ChatFloodTime = time.Minute
	s, _ := newTestServer(t, WithFlags(flags))
	a := loginUser(t, s, "alice", ConnectionLAN)
	b := loginUser(t, s, "bob", ConnectionLAN)
	drainEvents(b)

	if err := a.Chat("hi"); err != nil {
		t.Fatalf("Chat() error: %v", err)
	}
	first := a.LastChatTime()

	err := a.Chat("hi again")
	testutil.AssertEqual(t, "flood", errors.Is(err, ErrFlood), true)
	testutil.AssertEqual(t, "policy", errors.Is(err, ErrPolicyDenied), true)
	testutil.AssertEqual(t, "last chat unchanged", a.LastChatTime(), first)

	chats := eventsOf[ChatEvent](drainEvents(b))
	testutil.AssertEqual(t, "delivered", len(chats), 1)
	testutil.AssertEqual(t, "message", chats[0].Message, "hi")
}

func TestServer_ChatSilenced(t *testing.T) {
	access := &staticAccess{silenced: map[netip.Addr]bool{testAddr(1).Addr(): true}}
	s, _ := newTestServer(t, WithAccessManager(access))
	a := loginUser(t, s, "alice", ConnectionLAN)

	err := a.Chat("hi")
	testutil.AssertErrorContains(t, err, MsgChatErrorSilenced)
	testutil.AssertEqual(t, "policy", errors.Is(err, ErrPolicyDenied), true)
}

func TestServer_Full(t *testing.T) {
	flags := testFlags()
	flags.MaxUsers = 1
	s, _ := newTestServer(t, WithFlags(flags))

	newListener := func(*User) EventListener { return &recordingListener{} }
	if _, err := s.NewUser("v086", testAddr(1), newListener); err != nil {
		t.Fatalf("NewUser() error: %v", err)
	}
	_, err := s.NewUser("v086", testAddr(2), newListener)
	testutil.AssertEqual(t, "full", errors.Is(err, ErrServerFull), true)
}

func TestServer_TickReaps(t *testing.T) {
	tests := map[string]struct {
		access  AccessLevel
		advance func(f Flags) time.Duration
		expGone bool
	}{
		"fresh user kept": {
			access:  AccessNormal,
			advance: func(Flags) time.Duration { return time.Second },
			expGone: false,
		},
		"dead user reaped": {
			access:  AccessNormal,
			advance: func(f Flags) time.Duration { return f.KeepAliveTimeout + time.Second },
			expGone: true,
		},
		"moderator never idles out": {
			access:  AccessModerator,
			advance: func(f Flags) time.Duration { return f.IdleTimeout + time.Second },
			expGone: false,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			access := &staticAccess{levels: map[netip.Addr]AccessLevel{testAddr(1).Addr(): tt.access}}
			s, clock := newTestServer(t, WithAccessManager(access))
			u := loginUser(t, s, "alice", ConnectionLAN)

			clock.Advance(tt.advance(s.flags))
			if tt.access >= AccessModerator {
				// Keepalives still arrive, only activity has stopped.
				u.UpdateLastKeepAlive()
			}

			if err := s.Tick(t.Context()); err != nil {
				t.Fatalf("Tick() error: %v", err)
			}
			testutil.AssertEqual(t, "gone", s.User(u.ID()) == nil, tt.expGone)
		})
	}
}

func TestServer_WelcomeMessages(t *testing.T) {
	s, _ := newTestServer(t, WithWelcomeMessages(
		"Welcome {{ .UserName | upper }} to {{ .ServerName }}",
		"{{ .Users }} {{ plural \"user\" \"users\" .Users }} online",
	))
	u := loginUser(t, s, "alice", ConnectionLAN)

	infos := eventsOf[InfoMessageEvent](drainEvents(u))
	testutil.AssertEqual(t, "messages", len(infos), 2)
	testutil.AssertEqual(t, "first", infos[0].Message, "Welcome ALICE to test")
	testutil.AssertEqual(t, "second", infos[1].Message, "1 user online")
}

func TestServer_BadWelcomeTemplate(t *testing.T) {
	_, err := NewServer(WithWelcomeMessages("{{ .UserName "))
	testutil.AssertErrorContains(t, err, "parsing welcome message 0")
}

func TestServer_Publishes(t *testing.T) {
	pub := &recordingPublisher{}
	s, _ := newTestServer(t, WithPublisher(pub))
	a := loginUser(t, s, "alice", ConnectionLAN)

	g, err := a.CreateGame("Pokemon Stadium")
	if err != nil {
		t.Fatalf("CreateGame() error: %v", err)
	}
	if err := a.QuitGame(); err != nil {
		t.Fatalf("QuitGame() error: %v", err)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()

	exp := []string{subjectUserJoined, subjectGameCreated, subjectGameStatus, subjectGameClosed}
	testutil.AssertEqual(t, "published", strings.Join(pub.subjects, ","), strings.Join(exp, ","))

	var n Notice
	if err := json.Unmarshal(pub.data[1], &n); err != nil {
		t.Fatalf("unmarshal notice: %v", err)
	}
	testutil.AssertEqual(t, "game id", n.GameID, g.ID())
	testutil.AssertEqual(t, "rom", n.RomName, "Pokemon Stadium")
	testutil.AssertEqual(t, "owner", n.UserName, "alice")
	testutil.AssertEqual(t, "has id", n.ID != "", true)
}
