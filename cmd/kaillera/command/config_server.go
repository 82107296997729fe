package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"

	"github.com/pixil98/go-kaillera/internal/relay"
)

// ServerConfig overrides the relay defaults. Zero values keep the default.
type ServerConfig struct {
	Name              string   `json:"name"`
	MaxUsers          int      `json:"max_users"`
	MaxGames          int      `json:"max_games"`
	MaxPlayersPerGame int      `json:"max_players_per_game"`
	MinPlayersToStart int      `json:"min_players_to_start"`
	MaxChatLength     int      `json:"max_chat_length"`
	MaxGameChatLength int      `json:"max_game_chat_length"`
	GameBufferSize    int      `json:"game_buffer_size"`
	WarmupFrames      int      `json:"warmup_frames"`
	EventBacklogWarn  int      `json:"event_backlog_warn"`
	Welcome           []string `json:"welcome_messages"`

	ChatFloodTime       string `json:"chat_flood_time"`
	CreateGameFloodTime string `json:"create_game_flood_time"`
	KeepAliveTimeout    string `json:"keep_alive_timeout"`
	IdleTimeout         string `json:"idle_timeout"`
	GameDataGrace       string `json:"game_data_grace"`
	GameTimeout         string `json:"game_timeout"`
	PollInterval        string `json:"poll_interval"`
}

func (c *ServerConfig) Validate() error {
	el := errors.NewErrorList()

	counts := map[string]int{
		"max_users":            c.MaxUsers,
		"max_games":            c.MaxGames,
		"max_players_per_game": c.MaxPlayersPerGame,
		"min_players_to_start": c.MinPlayersToStart,
		"max_chat_length":      c.MaxChatLength,
		"max_game_chat_length": c.MaxGameChatLength,
		"game_buffer_size":     c.GameBufferSize,
		"warmup_frames":        c.WarmupFrames,
		"event_backlog_warn":   c.EventBacklogWarn,
	}
	for name, v := range counts {
		if v < 0 {
			el.Add(fmt.Errorf("server %s must not be negative", name))
		}
	}
	if c.MaxPlayersPerGame > 0 && c.MinPlayersToStart > c.MaxPlayersPerGame {
		el.Add(fmt.Errorf("server min_players_to_start exceeds max_players_per_game"))
	}

	if _, err := c.BuildFlags(); err != nil {
		el.Add(err)
	}

	return el.Err()
}

// BuildFlags applies the configured overrides to relay.DefaultFlags.
func (c *ServerConfig) BuildFlags() (relay.Flags, error) {
	f := relay.DefaultFlags()

	if c.Name != "" {
		f.ServerName = c.Name
	}
	setInt(&f.MaxUsers, c.MaxUsers)
	setInt(&f.MaxGames, c.MaxGames)
	setInt(&f.MaxPlayersPerGame, c.MaxPlayersPerGame)
	setInt(&f.MinPlayersToStart, c.MinPlayersToStart)
	setInt(&f.MaxChatLength, c.MaxChatLength)
	setInt(&f.MaxGameChatLength, c.MaxGameChatLength)
	setInt(&f.GameBufferSize, c.GameBufferSize)
	setInt(&f.WarmupFrames, c.WarmupFrames)
	setInt(&f.EventBacklogWarn, c.EventBacklogWarn)

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"chat_flood_time", c.ChatFloodTime, &f.ChatFloodTime},
		{"create_game_flood_time", c.CreateGameFloodTime, &f.CreateGameFloodTime},
		{"keep_alive_timeout", c.KeepAliveTimeout, &f.KeepAliveTimeout},
		{"idle_timeout", c.IdleTimeout, &f.IdleTimeout},
		{"game_data_grace", c.GameDataGrace, &f.GameDataGrace},
		{"game_timeout", c.GameTimeout, &f.GameTimeout},
		{"poll_interval", c.PollInterval, &f.PollInterval},
	}
	for _, d := range durations {
		v, err := parseDuration("server "+d.name, d.raw, *d.dst)
		if err != nil {
			return relay.Flags{}, err
		}
		*d.dst = v
	}
	if f.PollInterval == 0 {
		return relay.Flags{}, fmt.Errorf("server poll_interval must be positive")
	}

	return f, nil
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}
