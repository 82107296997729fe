package controller

import (
	"context"

	"github.com/pixil98/go-kaillera/internal/relay"
)

type builtin struct {
	name string
	fn   HandlerFunc
}

var builtinHandlers = map[relay.EventKind]builtin{
	relay.KindGameData:          {"GameDataAction", handleGameData},
	relay.KindGameStarted:       {"GameStartedAction", handleGameStarted},
	relay.KindGameStarting:      {"StartGameAction", handleGameStarting},
	relay.KindGameChat:          {"GameChatAction", handleGameChat},
	relay.KindChat:              {"ChatAction", handleChat},
	relay.KindGameInfo:          {"GameInfoAction", handleGameInfo},
	relay.KindInfoMessage:       {"InfoMessageAction", handleInfoMessage},
	relay.KindPlayerDesynch:     {"PlayerDesynchAction", handlePlayerDesynch},
	relay.KindGameTimeout:       {"GameTimeoutAction", handleGameTimeout},
	relay.KindUserJoined:        {"UserJoinedAction", handleUserJoined},
	relay.KindUserQuit:          {"QuitAction", handleUserQuit},
	relay.KindUserJoinedGame:    {"JoinGameAction", handleUserJoinedGame},
	relay.KindUserQuitGame:      {"QuitGameAction", handleUserQuitGame},
	relay.KindUserDroppedGame:   {"DropGameAction", handleUserDroppedGame},
	relay.KindGameCreated:       {"CreateGameAction", handleGameCreated},
	relay.KindGameClosed:        {"CloseGameAction", handleGameClosed},
	relay.KindGameStatusChanged: {"GameStatusAction", handleGameStatusChanged},
}

// handleGameData sends a frame the client already holds as its cache key.
func handleGameData(_ context.Context, s *Session, ev relay.Event) error {
	e := ev.(relay.GameDataEvent)
	if key := s.serverCache.IndexOf(e.Data); key >= 0 {
		return s.transport.Send(CachedGameData{Key: key})
	}
	s.serverCache.Add(e.Data)
	return s.transport.Send(GameData{Data: e.Data})
}

func handleGameStarted(_ context.Context, s *Session, _ relay.Event) error {
	s.serverCache.Clear()
	s.clientCache.Clear()
	return s.transport.Send(AllReady{})
}

func handleGameStarting(_ context.Context, s *Session, ev relay.Event) error {
	e := ev.(relay.GameStartingEvent)
	return s.transport.Send(StartGameNotification{
		FrameDelay:   s.user.FrameDelay(),
		PlayerNumber: s.user.PlayerNumber(),
		NumPlayers:   e.Game.PlayerCount(),
	})
}

func handleGameChat(_ context.Context, s *Session, ev relay.Event) error {
	e := ev.(relay.GameChatEvent)
	return s.transport.Send(GameChatNotification{UserName: e.User.Name(), Message: e.Message})
}

func handleChat(_ context.Context, s *Session, ev relay.Event) error {
	e := ev.(relay.ChatEvent)
	return s.transport.Send(ChatNotification{UserName: e.User.Name(), Message: e.Message})
}

func handleGameInfo(_ context.Context, s *Session, ev relay.Event) error {
	e := ev.(relay.GameInfoEvent)
	if e.Target != nil && e.Target != s.user {
		return nil
	}
	return s.transport.Send(GameChatNotification{
		UserName: s.lang.String(relay.MsgServerAnnouncer),
		Message:  e.Message,
	})
}

func handleInfoMessage(_ context.Context, s *Session, ev relay.Event) error {
	e := ev.(relay.InfoMessageEvent)
	if e.User != nil && e.User != s.user {
		return nil
	}
	return s.transport.Send(InformationMessage{
		Source:  s.lang.String(relay.MsgServerAnnouncer),
		Message: e.Message,
	})
}

func handlePlayerDesynch(_ context.Context, s *Session, ev relay.Event) error {
	e := ev.(relay.PlayerDesynchEvent)
	return s.transport.Send(GameChatNotification{
		UserName: s.lang.String(relay.MsgServerAnnouncer),
		Message:  e.Message,
	})
}

// handleGameTimeout asks the transport to resend when the game is waiting on
// this session's own user.
func handleGameTimeout(ctx context.Context, s *Session, ev relay.Event) error {
	e := ev.(relay.GameTimeoutEvent)
	if e.User != s.user {
		s.log.DebugContext(ctx, "player timed out", "player", e.User.String(), "timeout", e.TimeoutNumber)
		return nil
	}
	s.log.DebugContext(ctx, "timed out, resending", "timeout", e.TimeoutNumber)
	return s.transport.Resend(e.TimeoutNumber)
}

func handleUserJoined(_ context.Context, s *Session, ev relay.Event) error {
	e := ev.(relay.UserJoinedEvent)
	return s.transport.Send(UserJoinedNotification{
		UserName:       e.User.Name(),
		UserID:         e.User.ID(),
		Ping:           e.User.Ping(),
		ConnectionType: byte(e.User.ConnectionType()),
	})
}

func handleUserQuit(_ context.Context, s *Session, ev relay.Event) error {
	e := ev.(relay.UserQuitEvent)
	return s.transport.Send(QuitNotification{
		UserName: e.User.Name(),
		UserID:   e.User.ID(),
		Message:  e.Message,
	})
}

func handleUserJoinedGame(_ context.Context, s *Session, ev relay.Event) error {
	e := ev.(relay.UserJoinedGameEvent)
	return s.transport.Send(JoinGameNotification{
		GameID:         e.Game.ID(),
		UserName:       e.User.Name(),
		Ping:           e.User.Ping(),
		UserID:         e.User.ID(),
		ConnectionType: byte(e.User.ConnectionType()),
	})
}

func handleUserQuitGame(_ context.Context, s *Session, ev relay.Event) error {
	e := ev.(relay.UserQuitGameEvent)
	return s.transport.Send(QuitGameNotification{UserName: e.User.Name(), UserID: e.User.ID()})
}

func handleUserDroppedGame(_ context.Context, s *Session, ev relay.Event) error {
	e := ev.(relay.UserDroppedGameEvent)
	return s.transport.Send(PlayerDropNotification{UserName: e.User.Name(), PlayerNumber: e.PlayerNumber})
}

func handleGameCreated(_ context.Context, s *Session, ev relay.Event) error {
	e := ev.(relay.GameCreatedEvent)
	msg := CreateGameNotification{RomName: e.Game.RomName(), GameID: e.Game.ID()}
	if owner := e.Game.Owner(); owner != nil {
		msg.UserName = owner.Name()
		msg.ClientType = owner.ClientType()
	}
	return s.transport.Send(msg)
}

func handleGameClosed(_ context.Context, s *Session, ev relay.Event) error {
	e := ev.(relay.GameClosedEvent)
	return s.transport.Send(CloseGameNotification{GameID: e.Game.ID()})
}

func handleGameStatusChanged(_ context.Context, s *Session, ev relay.Event) error {
	e := ev.(relay.GameStatusChangedEvent)
	return s.transport.Send(GameStatusNotification{
		GameID:     e.Game.ID(),
		Status:     e.Game.Status().String(),
		NumPlayers: e.Game.PlayerCount(),
		MaxPlayers: s.maxPlayers,
	})
}
