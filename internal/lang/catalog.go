package lang

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/pixil98/go-kaillera/internal/relay"
)

var defaults = map[string]string{
	relay.MsgLoginErrorAlreadyLoggedIn: "You are already logged in.",
	relay.MsgLoginErrorBanned:          "You are banned from this server.",
	relay.MsgLoginErrorNameEmpty:       "A user name is required.",
	relay.MsgLoginErrorNameTooLong:     "Your user name is too long.",
	relay.MsgLoginErrorClientTooLong:   "Your client name is too long.",
	relay.MsgLoginErrorConnectionType:  "Your connection type is not supported.",

	relay.MsgChatErrorNotLoggedIn: "You must be logged in to chat.",
	relay.MsgChatErrorSilenced:    "You are silenced.",
	relay.MsgChatErrorTooLong:     "Your message is too long.",
	relay.MsgChatErrorFlood:       "You are chatting too fast.",

	relay.MsgCreateGameErrorAlreadyInGame:     "You are already in a game.",
	relay.MsgCreateGameErrorNotFullyConnected: "You are not fully connected yet.",
	relay.MsgCreateGameErrorEmptyName:         "A game name is required.",
	relay.MsgCreateGameErrorNameTooLong:       "The game name is too long.",
	relay.MsgCreateGameErrorFlood:             "You are creating games too fast.",
	relay.MsgCreateGameErrorTooManyGames:      "The server has too many games.",

	relay.MsgJoinGameErrorAlreadyInGame:      "You are already in this game.",
	relay.MsgJoinGameErrorAnotherGameRunning: "You are already in another game.",
	relay.MsgJoinGameErrorNotFullyConnected:  "You are not fully connected yet.",
	relay.MsgJoinGameErrorDoesNotExist:       "That game does not exist.",
	relay.MsgJoinGameErrorAlreadyStarted:     "That game has already started.",
	relay.MsgJoinGameErrorFull:               "That game is full.",
	relay.MsgJoinGameErrorKicked:             "You were kicked from that game.",

	relay.MsgKickErrorNotInGame:    "You are not in a game.",
	relay.MsgKickErrorNotOwner:     "Only the game owner can kick players.",
	relay.MsgKickErrorUserNotFound: "That player is not in the game.",
	relay.MsgKickErrorSelf:         "You cannot kick yourself.",
	relay.MsgGameKicked:            "You have been kicked from %s.",

	relay.MsgGameChatErrorNotInGame: "You are not in a game.",
	relay.MsgGameChatErrorTooLong:   "Your message is too long.",
	relay.MsgGameChatMuted:          "You are muted in this game.",
	relay.MsgGameChatSilenced:       "You are silenced.",

	relay.MsgDropGameErrorNotInGame: "You are not in a game.",
	relay.MsgQuitGameErrorNotInGame: "You are not in a game.",

	relay.MsgStartGameErrorNotInGame:          "You are not in a game.",
	relay.MsgStartGameErrorNotOwner:           "Only the game owner can start the game.",
	relay.MsgStartGameErrorAlreadyStarted:     "The game has already started.",
	relay.MsgStartGameErrorNotEnoughPlayers:   "At least %d players are needed to start.",
	relay.MsgStartGameErrorConnectionMismatch: "%s is using a %s connection, all players must match.",

	relay.MsgReadyErrorNotInGame:          "You are not in a game.",
	relay.MsgReadyErrorNotWaiting:         "The game is not waiting for players.",
	relay.MsgReadyErrorConnectionMismatch: "Your %s connection does not match the owner's %s connection.",

	relay.MsgGameDataErrorNotInGame:  "Game data received outside of a game.",
	relay.MsgGameDataErrorNotPlaying: "The game is not playing.",
	relay.MsgGameDataErrorNotSynced:  "You are not synced.",
	relay.MsgGameDataErrorBadSlot:    "Game data from an unknown player slot.",
	relay.MsgGameDataErrorDesynch:    "You are desynched.",
	relay.MsgGameDataErrorOverflow:   "Game data buffer overflow.",
	relay.MsgGameDataErrorTimeout:    "Game data errors persisted for too long.",

	relay.MsgQuitErrorNotFound: "User not found.",
	relay.MsgQuitPingTimeout:   "Ping timeout",
	relay.MsgQuitInactivity:    "Inactivity timeout",
	relay.MsgDesynchDetected:   "%s (player %d) is desynched.",
	relay.MsgServerAnnouncer:   "Server",
}

// Catalog is a relay.Localizer backed by an x/text message catalog. Keys
// without a translation render as themselves.
type Catalog struct {
	tag     language.Tag
	printer *message.Printer
}

// NewCatalog builds a catalog for tag seeded with the English defaults and
// then the given per-key overrides.
func NewCatalog(tag language.Tag, overrides map[string]string) (*Catalog, error) {
	b := catalog.NewBuilder(catalog.Fallback(language.English))

	tags := []language.Tag{language.English}
	if tag != language.English {
		tags = append(tags, tag)
	}
	for _, t := range tags {
		for key, msg := range defaults {
			if err := b.SetString(t, key, msg); err != nil {
				return nil, fmt.Errorf("setting default %q: %w", key, err)
			}
		}
	}
	for key, msg := range overrides {
		if err := b.SetString(tag, key, msg); err != nil {
			return nil, fmt.Errorf("setting override %q: %w", key, err)
		}
	}

	return &Catalog{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(b)),
	}, nil
}

func (c *Catalog) Tag() language.Tag {
	return c.tag
}

func (c *Catalog) String(key string, args ...any) string {
	return c.printer.Sprintf(key, args...)
}
