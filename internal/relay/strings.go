package relay

// Localization keys for every user-facing string the relay produces.
const (
	MsgLoginErrorAlreadyLoggedIn = "login.error.already_logged_in"
	MsgLoginErrorBanned          = "login.error.banned"
	MsgLoginErrorNameEmpty       = "login.error.name_empty"
	MsgLoginErrorNameTooLong     = "login.error.name_too_long"
	MsgLoginErrorClientTooLong   = "login.error.client_too_long"
	MsgLoginErrorConnectionType  = "login.error.connection_type"

	MsgChatErrorNotLoggedIn = "chat.error.not_logged_in"
	MsgChatErrorSilenced    = "chat.error.silenced"
	MsgChatErrorTooLong     = "chat.error.too_long"
	MsgChatErrorFlood       = "chat.error.flood"

	MsgCreateGameErrorAlreadyInGame       = "create_game.error.already_in_game"
	MsgCreateGameErrorNotFullyConnected   = "create_game.error.not_fully_connected"
	MsgCreateGameErrorEmptyName           = "create_game.error.empty_name"
	MsgCreateGameErrorNameTooLong         = "create_game.error.name_too_long"
	MsgCreateGameErrorFlood               = "create_game.error.flood"
	MsgCreateGameErrorTooManyGames        = "create_game.error.too_many_games"
	MsgJoinGameErrorAlreadyInGame         = "join_game.error.already_in_game"
	MsgJoinGameErrorAnotherGameRunning    = "join_game.error.another_game_running"
	MsgJoinGameErrorNotFullyConnected     = "join_game.error.not_fully_connected"
	MsgJoinGameErrorDoesNotExist          = "join_game.error.does_not_exist"
	MsgJoinGameErrorAlreadyStarted        = "join_game.error.already_started"
	MsgJoinGameErrorFull                  = "join_game.error.full"
	MsgJoinGameErrorKicked                = "join_game.error.kicked"
	MsgKickErrorNotInGame                 = "kick.error.not_in_game"
	MsgKickErrorNotOwner                  = "kick.error.not_owner"
	MsgKickErrorUserNotFound              = "kick.error.user_not_found"
	MsgKickErrorSelf                      = "kick.error.self"
	MsgGameKicked                         = "game.kicked"
	MsgGameChatErrorNotInGame             = "game_chat.error.not_in_game"
	MsgGameChatErrorTooLong               = "game_chat.error.too_long"
	MsgGameChatMuted                      = "game_chat.muted"
	MsgGameChatSilenced                   = "game_chat.silenced"
	MsgDropGameErrorNotInGame             = "drop_game.error.not_in_game"
	MsgQuitGameErrorNotInGame             = "quit_game.error.not_in_game"
	MsgStartGameErrorNotInGame            = "start_game.error.not_in_game"
	MsgStartGameErrorNotOwner             = "start_game.error.not_owner"
	MsgStartGameErrorAlreadyStarted       = "start_game.error.already_started"
	MsgStartGameErrorNotEnoughPlayers     = "start_game.error.not_enough_players"
	MsgStartGameErrorConnectionMismatch   = "start_game.error.connection_mismatch"
	MsgReadyErrorNotInGame                = "ready.error.not_in_game"
	MsgReadyErrorNotWaiting               = "ready.error.not_waiting"
	MsgReadyErrorConnectionMismatch       = "ready.error.connection_mismatch"
	MsgGameDataErrorNotInGame             = "game_data.error.not_in_game"
	MsgGameDataErrorNotPlaying            = "game_data.error.not_playing"
	MsgGameDataErrorNotSynced             = "game_data.error.not_synced"
	MsgGameDataErrorBadSlot               = "game_data.error.bad_slot"
	MsgGameDataErrorDesynch               = "game_data.error.desynch"
	MsgGameDataErrorOverflow              = "game_data.error.overflow"
	MsgGameDataErrorTimeout               = "game_data.error.timeout"
	MsgQuitErrorNotFound                  = "quit.error.not_found"
	MsgQuitPingTimeout                    = "quit.ping_timeout"
	MsgQuitInactivity                     = "quit.inactivity"
	MsgDesynchDetected                    = "desynch.detected"
	MsgServerAnnouncer                    = "server.announcer"
)
