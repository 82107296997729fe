package relay

import (
	"bytes"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

func (u *User) actionError(op Op, kind ErrorKind, key string, args ...any) *ActionError {
	return newActionError(op, kind, u.lang.String(key, args...))
}

// Login registers the user with the server and moves it to Idle.
func (u *User) Login() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.updateLastActivityLocked()

	if u.loggedIn {
		u.log.Warn("login failed: already logged in")
		return u.actionError(OpLogin, ErrStateViolation, MsgLoginErrorAlreadyLoggedIn)
	}

	if err := u.server.login(u); err != nil {
		return err
	}
	u.loggedIn = true
	return nil
}

func (u *User) Chat(message string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.updateLastActivityLocked()

	if !u.loggedIn {
		return u.actionError(OpChat, ErrStateViolation, MsgChatErrorNotLoggedIn)
	}

	if err := u.server.chat(u, message); err != nil {
		return err
	}
	u.lastChatTime = u.clock.Now()
	return nil
}

// CreateGame opens a new game for romName with the user in slot 1. It returns
// a nil game and no error if the user is no longer known to the server.
func (u *User) CreateGame(romName string) (*Game, error) {
	u.mu.Lock()
	u.updateLastActivityLocked()
	inGame := u.game != nil
	u.mu.Unlock()

	if u.server.User(u.id) != u {
		u.log.Error("create game failed: user no longer exists")
		return nil, nil
	}

	switch u.Status() {
	case UserPlaying:
		u.log.Warn("create game failed: user is playing")
		return nil, u.actionError(OpCreateGame, ErrStateViolation, MsgCreateGameErrorAlreadyInGame)
	case UserConnecting:
		u.log.Warn("create game failed: user is connecting")
		return nil, u.actionError(OpCreateGame, ErrStateViolation, MsgCreateGameErrorNotFullyConnected)
	}
	if inGame {
		return nil, u.actionError(OpCreateGame, ErrStateViolation, MsgCreateGameErrorAlreadyInGame)
	}

	g, err := u.server.createGame(u, romName)
	if err != nil {
		return nil, err
	}

	if _, err := u.JoinGame(g.ID()); err != nil {
		u.server.closeGame(g)
		return nil, fmt.Errorf("joining created game: %w", err)
	}

	u.mu.Lock()
	u.lastCreateGameTime = u.clock.Now()
	u.mu.Unlock()

	return g, nil
}

func (u *User) JoinGame(gameID int) (*Game, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.updateLastActivityLocked()

	if u.game != nil {
		u.log.Warn("join game failed: already in a game", "game", u.game.ID())
		return nil, u.actionError(OpJoinGame, ErrStateViolation, MsgJoinGameErrorAlreadyInGame)
	}

	switch u.Status() {
	case UserPlaying:
		return nil, u.actionError(OpJoinGame, ErrStateViolation, MsgJoinGameErrorAnotherGameRunning)
	case UserConnecting:
		return nil, u.actionError(OpJoinGame, ErrStateViolation, MsgJoinGameErrorNotFullyConnected)
	}

	g := u.server.Game(gameID)
	if g == nil {
		u.log.Warn("join game failed: game does not exist", "game", gameID)
		return nil, u.actionError(OpJoinGame, ErrNotFound, MsgJoinGameErrorDoesNotExist)
	}

	slot, err := g.join(u)
	if err != nil {
		return nil, err
	}

	u.game = g
	u.playerNumber = slot
	u.totalDelay = 0
	u.resetRoundLocked()
	return g, nil
}

func (u *User) GameKick(userID int) error {
	u.mu.Lock()
	u.updateLastActivityLocked()
	g := u.game
	u.mu.Unlock()

	if g == nil {
		u.log.Warn("game kick failed: not in a game")
		return u.actionError(OpGameKick, ErrStateViolation, MsgKickErrorNotInGame)
	}
	return g.kick(u, userID)
}

// GameChat sends message to the user's game. A muted or silenced user only
// sees a private notice instead.
func (u *User) GameChat(message string, messageID int) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.updateLastActivityLocked()

	g := u.game
	if g == nil {
		u.log.Warn("game chat failed: not in a game")
		return u.actionError(OpGameChat, ErrStateViolation, MsgGameChatErrorNotInGame)
	}
	u.lastMessageID = messageID

	if u.muted {
		g.Announce(u.lang.String(MsgGameChatMuted), u)
		return nil
	}
	if u.server.access.IsSilenced(u.addr.Addr()) {
		g.Announce(u.lang.String(MsgGameChatSilenced), u)
		return nil
	}

	if utf8.RuneCountInString(message) > u.flags.MaxGameChatLength {
		return u.actionError(OpGameChat, ErrPolicyDenied, MsgGameChatErrorTooLong)
	}
	return g.chat(u, message)
}

// DropGame stops the user's participation in the running round.
func (u *User) DropGame() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.updateLastActivityLocked()

	if u.Status() == UserIdle {
		return nil
	}

	u.setStatus(UserIdle)
	if u.game == nil {
		u.log.Debug("drop game failed: not in a game")
		return u.actionError(OpDropGame, ErrStateViolation, MsgDropGameErrorNotInGame)
	}
	return u.game.drop(u, u.playerNumber)
}

// QuitGame leaves the user's game. It does nothing outside a game.
func (u *User) QuitGame() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.updateLastActivityLocked()

	g := u.game
	if g == nil {
		u.log.Debug("quit game ignored: not in a game")
		return nil
	}

	// Idle must be set before the drop so the game sees no active player left
	// and falls back to waiting.
	if u.Status() == UserPlaying {
		u.setStatus(UserIdle)
		if err := g.drop(u, u.playerNumber); err != nil {
			u.log.Warn("dropping game on quit", "game", g.ID(), "error", err)
		}
	}

	err := g.quit(u, u.playerNumber)

	u.setStatus(UserIdle)
	u.muted = false
	u.detachLocked()
	u.QueueEvent(UserQuitGameEvent{Game: g, User: u})
	return err
}

func (u *User) StartGame() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.updateLastActivityLocked()

	if u.game == nil {
		u.log.Warn("start game failed: not in a game")
		return u.actionError(OpStartGame, ErrStateViolation, MsgStartGameErrorNotInGame)
	}
	return u.game.start(u)
}

// PlayerReady marks the user synced for the next round and computes its
// warm-up delay and lag thresholds.
func (u *User) PlayerReady() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.updateLastActivityLocked()

	g := u.game
	if g == nil {
		u.log.Warn("player ready failed: not in a game")
		return u.actionError(OpUserReady, ErrStateViolation, MsgReadyErrorNotInGame)
	}
	if u.playerNumber > g.SlotCount() || g.IsSynced(u.playerNumber) {
		return nil
	}

	u.totalDelay = g.HighestUserFrameDelay() + u.tempDelay + u.flags.WarmupFrames
	u.lag.Arm(u.ConnectionType().UpdatesPerSecond())
	u.resetRoundLocked()

	return g.ready(u, u.playerNumber)
}

// AddGameData relays one frame of the user's input. The first totalDelay
// frames of a round are held back and answered with zero-filled frames.
func (u *User) AddGameData(data []byte) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	start := u.clock.Now()
	err := u.relayGameDataLocked(data)
	end := u.clock.Now()

	u.lag.Record(end.Sub(u.lastUpdate) - end.Sub(start))
	u.lastUpdate = end
	return err
}

func (u *User) relayGameDataLocked(data []byte) error {
	g := u.game
	if g == nil {
		return newGameDataError(u.lang.String(MsgGameDataErrorNotInGame), data, u.ConnectionType().ByteValue(), 1, 1)
	}

	err := u.forwardGameDataLocked(g, data)
	if err == nil {
		u.gameDataErrorTime = time.Time{}
		return nil
	}

	var gde *GameDataError
	if !errors.As(err, &gde) {
		return err
	}
	u.log.Debug("add game data failed", "game", g.ID(), "error", err)

	now := u.clock.Now()
	if u.gameDataErrorTime.IsZero() {
		u.gameDataErrorTime = now
	} else if now.Sub(u.gameDataErrorTime) > u.flags.GameDataGrace {
		u.log.Debug("game data errors exceeded grace period", "game", g.ID())
		return &GameDataError{Msg: u.lang.String(MsgGameDataErrorTimeout), Err: err}
	}

	// Reflect the frame back so the client keeps running while it has time
	// to leave the game.
	if gde.Response != nil {
		u.QueueEvent(GameDataEvent{Game: g, Data: gde.Response})
	}
	return nil
}

func (u *User) forwardGameDataLocked(g *Game, data []byte) error {
	if u.frameCount < u.totalDelay {
		actions := u.ConnectionType().ByteValue()
		if actions <= 0 {
			return newGameDataError(u.lang.String(MsgGameDataErrorNotSynced), data, 1, 1, 1)
		}
		u.bytesPerAction = len(data) / actions
		u.arraySize = g.SlotCount() * actions * u.bytesPerAction

		u.lostInput.Add(bytes.Clone(data))
		u.QueueEvent(GameDataEvent{Game: g, Data: make([]byte, u.arraySize)})
		u.frameCount++
		return nil
	}

	if u.lostInput.Length() > 0 {
		frame := u.lostInput.Peek().([]byte)
		if err := g.addData(u, u.playerNumber, frame); err != nil {
			return err
		}
		u.lostInput.Remove()
		return nil
	}
	return g.addData(u, u.playerNumber, data)
}

// Quit leaves any game and removes the user from the server. The user's loop
// stops once it sees its own quit event.
func (u *User) Quit(message string) error {
	if err := u.QuitGame(); err != nil {
		u.log.Warn("quitting game on server quit", "error", err)
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	u.updateLastActivityLocked()

	err := u.server.quit(u, message, u.loggedIn)
	u.loggedIn = false
	return err
}

// DroppedPacket records a lost packet against the user's slot.
func (u *User) DroppedPacket() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.game != nil {
		u.game.droppedPacket(u)
	}
}
