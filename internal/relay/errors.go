package relay

import "errors"

// ErrorKind classifies why an action failed. Each kind is itself an error so
// callers can match with errors.Is.
type ErrorKind string

const (
	ErrStateViolation ErrorKind = "invalid for current state"
	ErrNotFound       ErrorKind = "not found"
	ErrPolicyDenied   ErrorKind = "denied by policy"
	ErrProtocolData   ErrorKind = "bad game data"
	ErrTransient      ErrorKind = "transient failure"
)

func (k ErrorKind) Error() string {
	return string(k)
}

var (
	ErrFlood      = errors.New("flood control")
	ErrServerFull = errors.New("server is full")
)

// Op names the user action that failed.
type Op string

const (
	OpLogin      Op = "login"
	OpChat       Op = "chat"
	OpCreateGame Op = "create game"
	OpJoinGame   Op = "join game"
	OpGameKick   Op = "game kick"
	OpGameChat   Op = "game chat"
	OpDropGame   Op = "drop game"
	OpQuitGame   Op = "quit game"
	OpStartGame  Op = "start game"
	OpUserReady  Op = "player ready"
	OpQuit       Op = "quit"
)

// ActionError is returned by user actions. Msg is localized and safe to show
// to the user.
type ActionError struct {
	Op   Op
	Kind ErrorKind
	Msg  string
	Err  error
}

func newActionError(op Op, kind ErrorKind, msg string) *ActionError {
	return &ActionError{Op: op, Kind: kind, Msg: msg}
}

func (e *ActionError) Error() string {
	if e.Err != nil {
		return string(e.Op) + ": " + e.Msg + ": " + e.Err.Error()
	}
	return string(e.Op) + ": " + e.Msg
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

func (e *ActionError) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}

// GameDataError is a failure while relaying game data. Response, when set, is
// a frame the protocol layer may reflect back to keep the client running.
type GameDataError struct {
	Msg      string
	Response []byte
	Err      error
}

// newGameDataError builds the reflect response by placing data in the
// player's column of an otherwise zero-filled merged frame.
func newGameDataError(msg string, data []byte, actionsPerMessage, playerNumber, numPlayers int) *GameDataError {
	e := &GameDataError{Msg: msg}
	if actionsPerMessage <= 0 || numPlayers <= 0 || playerNumber < 1 || playerNumber > numPlayers {
		return e
	}
	if len(data)%actionsPerMessage != 0 {
		return e
	}

	bytesPerAction := len(data) / actionsPerMessage
	e.Response = make([]byte, len(data)*numPlayers)
	for a := 0; a < actionsPerMessage; a++ {
		dst := (a*numPlayers + playerNumber - 1) * bytesPerAction
		copy(e.Response[dst:dst+bytesPerAction], data[a*bytesPerAction:(a+1)*bytesPerAction])
	}
	return e
}

func (e *GameDataError) Error() string {
	if e.Err != nil {
		return "game data: " + e.Msg + ": " + e.Err.Error()
	}
	return "game data: " + e.Msg
}

func (e *GameDataError) Unwrap() error {
	return e.Err
}

func (e *GameDataError) Is(target error) bool {
	return target == ErrProtocolData
}
