package relay

import (
	"fmt"
	"strings"
)

// ConnectionType is the client-selected connection quality. Its byte value is
// the number of emulator actions carried by each game data message.
type ConnectionType int

const (
	ConnectionDisabled ConnectionType = iota
	ConnectionLAN
	ConnectionExcellent
	ConnectionGood
	ConnectionAverage
	ConnectionLow
	ConnectionBad
)

var connectionTypeNames = map[ConnectionType]string{
	ConnectionDisabled:  "disabled",
	ConnectionLAN:       "lan",
	ConnectionExcellent: "excellent",
	ConnectionGood:      "good",
	ConnectionAverage:   "average",
	ConnectionLow:       "low",
	ConnectionBad:       "bad",
}

// ByteValue returns the byte multiplier (actions per message).
func (c ConnectionType) ByteValue() int {
	if c < ConnectionDisabled || c > ConnectionBad {
		return 0
	}
	return int(c)
}

// UpdatesPerSecond returns the nominal number of game data messages a client
// sends per second on this connection type.
func (c ConnectionType) UpdatesPerSecond() int {
	if c.ByteValue() == 0 {
		return 0
	}
	return 60 / c.ByteValue()
}

func (c ConnectionType) String() string {
	if n, ok := connectionTypeNames[c]; ok {
		return n
	}
	return fmt.Sprintf("connection(%d)", int(c))
}

// ParseConnectionType converts a configured name to a ConnectionType.
func ParseConnectionType(s string) (ConnectionType, error) {
	for c, n := range connectionTypeNames {
		if strings.EqualFold(n, s) {
			return c, nil
		}
	}
	return ConnectionDisabled, fmt.Errorf("unknown connection type: %s", s)
}

type UserStatus int32

const (
	UserConnecting UserStatus = iota
	UserIdle
	UserPlaying
)

func (s UserStatus) String() string {
	switch s {
	case UserConnecting:
		return "connecting"
	case UserIdle:
		return "idle"
	case UserPlaying:
		return "playing"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

type GameStatus int

const (
	GameWaiting GameStatus = iota
	GamePlaying
	GameEnded
)

func (s GameStatus) String() string {
	switch s {
	case GameWaiting:
		return "waiting"
	case GamePlaying:
		return "playing"
	case GameEnded:
		return "ended"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// AccessLevel orders the privileges a connecting address can have.
type AccessLevel int

const (
	AccessBanned AccessLevel = iota
	AccessNormal
	AccessElevated
	AccessModerator
	AccessAdmin
	AccessSuperAdmin
)

var accessLevelNames = []string{"banned", "normal", "elevated", "moderator", "admin", "superadmin"}

func (a AccessLevel) String() string {
	if a < AccessBanned || int(a) >= len(accessLevelNames) {
		return fmt.Sprintf("access(%d)", int(a))
	}
	return accessLevelNames[a]
}

// ParseAccessLevel converts a configured name to an AccessLevel.
func ParseAccessLevel(s string) (AccessLevel, error) {
	for i, n := range accessLevelNames {
		if strings.EqualFold(n, s) {
			return AccessLevel(i), nil
		}
	}
	return AccessNormal, fmt.Errorf("unknown access level: %s", s)
}
