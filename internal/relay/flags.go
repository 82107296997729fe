package relay

import "time"

// Flags are the runtime tunables shared by the server, its users and games.
type Flags struct {
	ServerName string

	MaxUsers          int
	MaxGames          int
	MaxPlayersPerGame int
	MinPlayersToStart int

	MaxUserNameLength   int
	MaxClientNameLength int
	MaxChatLength       int
	MaxGameChatLength   int
	MaxGameNameLength   int

	ChatFloodTime       time.Duration
	CreateGameFloodTime time.Duration

	KeepAliveTimeout time.Duration
	IdleTimeout      time.Duration

	// GameDataGrace is how long relay failures are suppressed before they
	// surface to the caller.
	GameDataGrace time.Duration
	// GameTimeout is how long a game waits on a player's frame before it
	// raises a timeout.
	GameTimeout    time.Duration
	GameBufferSize int

	// WarmupFrames is added to every player's computed delay.
	WarmupFrames int

	// EventBacklogWarn is the pending event count above which a user's
	// backlog is logged. Events are never dropped.
	EventBacklogWarn int
	PollInterval     time.Duration
}

func DefaultFlags() Flags {
	return Flags{
		ServerName:          "go-kaillera",
		MaxUsers:            100,
		MaxGames:            50,
		MaxPlayersPerGame:   8,
		MinPlayersToStart:   1,
		MaxUserNameLength:   31,
		MaxClientNameLength: 127,
		MaxChatLength:       150,
		MaxGameChatLength:   320,
		MaxGameNameLength:   127,
		ChatFloodTime:       2 * time.Second,
		CreateGameFloodTime: 5 * time.Second,
		KeepAliveTimeout:    3 * time.Minute,
		IdleTimeout:         time.Hour,
		GameDataGrace:       30 * time.Second,
		GameTimeout:         time.Second,
		GameBufferSize:      256,
		WarmupFrames:        5,
		EventBacklogWarn:    1024,
		PollInterval:        200 * time.Millisecond,
	}
}
