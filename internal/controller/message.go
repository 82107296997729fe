package controller

import "fmt"

// MessageID is the v086 message type carried in every outbound message.
type MessageID byte

const (
	IDQuit               MessageID = 0x01
	IDUserJoined         MessageID = 0x02
	IDChat               MessageID = 0x07
	IDGameChat           MessageID = 0x08
	IDCreateGame         MessageID = 0x0A
	IDQuitGame           MessageID = 0x0B
	IDJoinGame           MessageID = 0x0C
	IDGameStatus         MessageID = 0x0E
	IDCloseGame          MessageID = 0x10
	IDStartGame          MessageID = 0x11
	IDGameData           MessageID = 0x12
	IDCachedGameData     MessageID = 0x13
	IDPlayerDrop         MessageID = 0x14
	IDAllReady           MessageID = 0x15
	IDInformationMessage MessageID = 0x17
)

var messageNames = map[MessageID]string{
	IDQuit:               "Quit",
	IDUserJoined:         "UserJoined",
	IDChat:               "Chat",
	IDGameChat:           "GameChat",
	IDCreateGame:         "CreateGame",
	IDQuitGame:           "QuitGame",
	IDJoinGame:           "JoinGame",
	IDGameStatus:         "GameStatus",
	IDCloseGame:          "CloseGame",
	IDStartGame:          "StartGame",
	IDGameData:           "GameData",
	IDCachedGameData:     "CachedGameData",
	IDPlayerDrop:         "PlayerDrop",
	IDAllReady:           "AllReady",
	IDInformationMessage: "InformationMessage",
}

func (id MessageID) String() string {
	if n, ok := messageNames[id]; ok {
		return n
	}
	return fmt.Sprintf("Message(0x%02X)", byte(id))
}

// Message is an outbound notification. Framing and numbering are left to the
// Transport.
type Message interface {
	ID() MessageID
}

type QuitNotification struct {
	UserName string `json:"user_name"`
	UserID   int    `json:"user_id"`
	Message  string `json:"message"`
}

func (QuitNotification) ID() MessageID { return IDQuit }

type UserJoinedNotification struct {
	UserName       string `json:"user_name"`
	UserID         int    `json:"user_id"`
	Ping           int    `json:"ping"`
	ConnectionType byte   `json:"connection_type"`
}

func (UserJoinedNotification) ID() MessageID { return IDUserJoined }

type ChatNotification struct {
	UserName string `json:"user_name"`
	Message  string `json:"message"`
}

func (ChatNotification) ID() MessageID { return IDChat }

type GameChatNotification struct {
	UserName string `json:"user_name"`
	Message  string `json:"message"`
}

func (GameChatNotification) ID() MessageID { return IDGameChat }

type CreateGameNotification struct {
	UserName   string `json:"user_name"`
	RomName    string `json:"rom_name"`
	ClientType string `json:"client_type"`
	GameID     int    `json:"game_id"`
}

func (CreateGameNotification) ID() MessageID { return IDCreateGame }

type QuitGameNotification struct {
	UserName string `json:"user_name"`
	UserID   int    `json:"user_id"`
}

func (QuitGameNotification) ID() MessageID { return IDQuitGame }

type JoinGameNotification struct {
	GameID         int    `json:"game_id"`
	UserName       string `json:"user_name"`
	Ping           int    `json:"ping"`
	UserID         int    `json:"user_id"`
	ConnectionType byte   `json:"connection_type"`
}

func (JoinGameNotification) ID() MessageID { return IDJoinGame }

type GameStatusNotification struct {
	GameID     int    `json:"game_id"`
	Status     string `json:"status"`
	NumPlayers int    `json:"num_players"`
	MaxPlayers int    `json:"max_players"`
}

func (GameStatusNotification) ID() MessageID { return IDGameStatus }

type CloseGameNotification struct {
	GameID int `json:"game_id"`
}

func (CloseGameNotification) ID() MessageID { return IDCloseGame }

type StartGameNotification struct {
	FrameDelay   int `json:"frame_delay"`
	PlayerNumber int `json:"player_number"`
	NumPlayers   int `json:"num_players"`
}

func (StartGameNotification) ID() MessageID { return IDStartGame }

type GameData struct {
	Data []byte `json:"data"`
}

func (GameData) ID() MessageID { return IDGameData }

type CachedGameData struct {
	Key int `json:"key"`
}

func (CachedGameData) ID() MessageID { return IDCachedGameData }

type PlayerDropNotification struct {
	UserName     string `json:"user_name"`
	PlayerNumber int    `json:"player_number"`
}

func (PlayerDropNotification) ID() MessageID { return IDPlayerDrop }

type AllReady struct{}

func (AllReady) ID() MessageID { return IDAllReady }

type InformationMessage struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

func (InformationMessage) ID() MessageID { return IDInformationMessage }
