package relay

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	subjectUserJoined  = "kaillera.user.joined"
	subjectUserQuit    = "kaillera.user.quit"
	subjectGameCreated = "kaillera.game.created"
	subjectGameClosed  = "kaillera.game.closed"
	subjectGameStatus  = "kaillera.game.status"
)

// Notice is the JSON envelope published for server lifecycle changes.
type Notice struct {
	ID       string    `json:"id"`
	Time     time.Time `json:"time"`
	Server   string    `json:"server"`
	UserID   int       `json:"user_id,omitempty"`
	UserName string    `json:"user_name,omitempty"`
	GameID   int       `json:"game_id,omitempty"`
	RomName  string    `json:"rom_name,omitempty"`
	Status   string    `json:"status,omitempty"`
	Players  int       `json:"players,omitempty"`
	Message  string    `json:"message,omitempty"`
}

func (s *Server) newNotice() Notice {
	return Notice{
		ID:     uuid.NewString(),
		Time:   s.clock.Now().UTC(),
		Server: s.flags.ServerName,
	}
}

func (s *Server) publishUser(subject string, u *User, message string) {
	n := s.newNotice()
	n.UserID = u.id
	n.UserName = u.Name()
	n.Message = message
	s.publish(subject, n)
}

func (s *Server) publishGame(subject string, g *Game) {
	n := s.newNotice()
	n.GameID = g.id
	n.RomName = g.romName
	n.Status = g.Status().String()
	n.Players = g.PlayerCount()
	if owner := g.Owner(); owner != nil {
		n.UserID = owner.id
		n.UserName = owner.Name()
	}
	s.publish(subject, n)
}

func (s *Server) publish(subject string, n Notice) {
	if s.publisher == nil {
		return
	}

	data, err := json.Marshal(n)
	if err != nil {
		slog.Error("marshalling notice", "subject", subject, "error", err)
		return
	}
	if err := s.publisher.Publish(subject, data); err != nil {
		slog.Warn("publishing notice", "subject", subject, "error", err)
	}
}
