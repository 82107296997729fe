package gateway

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// ActionRequest is one inbound client action. Args are the textual
// parameters, Data carries game data frames.
type ActionRequest struct {
	Action    string   `json:"action"`
	Args      []string `json:"args,omitempty"`
	MessageID int      `json:"message_id,omitempty"`
	Data      []byte   `json:"data,omitempty"`
}

type ActionReply struct {
	Error string `json:"error,omitempty"`
}

// ActionFunc performs one named action for a connection.
type ActionFunc func(ctx context.Context, c *Conn, req ActionRequest) error

var builtinActions = map[string]ActionFunc{
	"login":            actionLogin,
	"keepalive":        actionKeepAlive,
	"chat":             actionChat,
	"create_game":      actionCreateGame,
	"join_game":        actionJoinGame,
	"kick":             actionKick,
	"game_chat":        actionGameChat,
	"start_game":       actionStartGame,
	"ready":            actionReady,
	"drop_game":        actionDropGame,
	"quit_game":        actionQuitGame,
	"quit":             actionQuit,
	"game_data":        actionGameData,
	"cached_game_data": actionCachedGameData,
	"dropped_packet":   actionDroppedPacket,
}

func intArg(req ActionRequest, i int) (int, error) {
	if i >= len(req.Args) {
		return 0, fmt.Errorf("%s: missing argument %d", req.Action, i+1)
	}
	n, err := strconv.Atoi(req.Args[i])
	if err != nil {
		return 0, fmt.Errorf("%s: argument %d must be a number", req.Action, i+1)
	}
	return n, nil
}

func text(req ActionRequest) string {
	return strings.Join(req.Args, " ")
}

func actionLogin(_ context.Context, c *Conn, _ ActionRequest) error {
	return c.user.Login()
}

func actionKeepAlive(_ context.Context, c *Conn, _ ActionRequest) error {
	c.user.UpdateLastKeepAlive()
	return nil
}

func actionChat(_ context.Context, c *Conn, req ActionRequest) error {
	return c.user.Chat(text(req))
}

func actionCreateGame(_ context.Context, c *Conn, req ActionRequest) error {
	_, err := c.user.CreateGame(text(req))
	return err
}

func actionJoinGame(_ context.Context, c *Conn, req ActionRequest) error {
	id, err := intArg(req, 0)
	if err != nil {
		return err
	}
	_, err = c.user.JoinGame(id)
	return err
}

func actionKick(_ context.Context, c *Conn, req ActionRequest) error {
	id, err := intArg(req, 0)
	if err != nil {
		return err
	}
	return c.user.GameKick(id)
}

func actionGameChat(_ context.Context, c *Conn, req ActionRequest) error {
	return c.user.GameChat(text(req), req.MessageID)
}

func actionStartGame(_ context.Context, c *Conn, _ ActionRequest) error {
	return c.user.StartGame()
}

func actionReady(_ context.Context, c *Conn, _ ActionRequest) error {
	return c.user.PlayerReady()
}

func actionDropGame(_ context.Context, c *Conn, _ ActionRequest) error {
	return c.user.DropGame()
}

func actionQuitGame(_ context.Context, c *Conn, _ ActionRequest) error {
	return c.user.QuitGame()
}

func actionQuit(_ context.Context, c *Conn, req ActionRequest) error {
	return c.user.Quit(text(req))
}

func actionGameData(ctx context.Context, c *Conn, req ActionRequest) error {
	return c.session.GameData(ctx, req.Data)
}

func actionCachedGameData(ctx context.Context, c *Conn, req ActionRequest) error {
	key, err := intArg(req, 0)
	if err != nil {
		return err
	}
	return c.session.CachedGameData(ctx, key)
}

func actionDroppedPacket(_ context.Context, c *Conn, _ ActionRequest) error {
	c.user.DroppedPacket()
	return nil
}
