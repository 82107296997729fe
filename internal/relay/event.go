package relay

import "fmt"

// EventKind tags every event variant. Filters compare kinds by value.
type EventKind int

const (
	KindStopFlag EventKind = iota

	// Server events
	KindUserJoined
	KindUserQuit
	KindGameCreated
	KindGameClosed
	KindGameStatusChanged
	KindChat
	KindInfoMessage

	// Game events
	KindGameStarting
	KindGameStarted
	KindGameData
	KindGameChat
	KindGameInfo
	KindUserJoinedGame
	KindUserQuitGame
	KindUserDroppedGame

	// User events
	KindGameTimeout
	KindPlayerDesynch
)

var eventKindNames = map[EventKind]string{
	KindStopFlag:          "StopFlagEvent",
	KindUserJoined:        "UserJoinedEvent",
	KindUserQuit:          "UserQuitEvent",
	KindGameCreated:       "GameCreatedEvent",
	KindGameClosed:        "GameClosedEvent",
	KindGameStatusChanged: "GameStatusChangedEvent",
	KindChat:              "ChatEvent",
	KindInfoMessage:       "InfoMessageEvent",
	KindGameStarting:      "GameStartingEvent",
	KindGameStarted:       "GameStartedEvent",
	KindGameData:          "GameDataEvent",
	KindGameChat:          "GameChatEvent",
	KindGameInfo:          "GameInfoEvent",
	KindUserJoinedGame:    "UserJoinedGameEvent",
	KindUserQuitGame:      "UserQuitGameEvent",
	KindUserDroppedGame:   "UserDroppedGameEvent",
	KindGameTimeout:       "GameTimeoutEvent",
	KindPlayerDesynch:     "PlayerDesynchEvent",
}

func (k EventKind) String() string {
	if n, ok := eventKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Scope groups event kinds by the entity that raised them.
type Scope int

const (
	ScopeServer Scope = iota
	ScopeGame
	ScopeUser
)

func (k EventKind) Scope() Scope {
	switch {
	case k >= KindGameTimeout:
		return ScopeUser
	case k >= KindGameStarting:
		return ScopeGame
	default:
		return ScopeServer
	}
}

// Event is an immutable notification delivered to a user's queue.
type Event interface {
	Kind() EventKind
}

type StopFlagEvent struct{}

func (StopFlagEvent) Kind() EventKind { return KindStopFlag }

type UserJoinedEvent struct {
	User *User
}

func (UserJoinedEvent) Kind() EventKind { return KindUserJoined }

type UserQuitEvent struct {
	User    *User
	Message string
}

func (UserQuitEvent) Kind() EventKind { return KindUserQuit }

type GameCreatedEvent struct {
	Game *Game
}

func (GameCreatedEvent) Kind() EventKind { return KindGameCreated }

type GameClosedEvent struct {
	Game *Game
}

func (GameClosedEvent) Kind() EventKind { return KindGameClosed }

type GameStatusChangedEvent struct {
	Game *Game
}

func (GameStatusChangedEvent) Kind() EventKind { return KindGameStatusChanged }

type ChatEvent struct {
	User    *User
	Message string
}

func (ChatEvent) Kind() EventKind { return KindChat }

// InfoMessageEvent is a purely informational server notice. These are the
// events shed for users in reduced activity mode.
type InfoMessageEvent struct {
	User    *User
	Message string
}

func (InfoMessageEvent) Kind() EventKind { return KindInfoMessage }

type GameStartingEvent struct {
	Game *Game
}

func (GameStartingEvent) Kind() EventKind { return KindGameStarting }

type GameStartedEvent struct {
	Game *Game
}

func (GameStartedEvent) Kind() EventKind { return KindGameStarted }

type GameDataEvent struct {
	Game *Game
	Data []byte
}

func (GameDataEvent) Kind() EventKind { return KindGameData }

type GameChatEvent struct {
	Game    *Game
	User    *User
	Message string
}

func (GameChatEvent) Kind() EventKind { return KindGameChat }

// GameInfoEvent is an announcement from the server inside a game. Target is
// nil when it is addressed to every player.
type GameInfoEvent struct {
	Game    *Game
	Message string
	Target  *User
}

func (GameInfoEvent) Kind() EventKind { return KindGameInfo }

type UserJoinedGameEvent struct {
	Game *Game
	User *User
}

func (UserJoinedGameEvent) Kind() EventKind { return KindUserJoinedGame }

type UserQuitGameEvent struct {
	Game *Game
	User *User
}

func (UserQuitGameEvent) Kind() EventKind { return KindUserQuitGame }

type UserDroppedGameEvent struct {
	Game         *Game
	User         *User
	PlayerNumber int
}

func (UserDroppedGameEvent) Kind() EventKind { return KindUserDroppedGame }

// GameTimeoutEvent reports that the game has been waiting on User for
// TimeoutNumber multiples of the game timeout.
type GameTimeoutEvent struct {
	Game          *Game
	User          *User
	TimeoutNumber int
}

func (GameTimeoutEvent) Kind() EventKind { return KindGameTimeout }

type PlayerDesynchEvent struct {
	Game    *Game
	User    *User
	Message string
}

func (PlayerDesynchEvent) Kind() EventKind { return KindPlayerDesynch }
