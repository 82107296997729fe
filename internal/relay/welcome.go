package relay

import (
	"bytes"
	"log/slog"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// welcomeData is what welcome templates can reference.
type welcomeData struct {
	ServerName string
	UserName   string
	UserID     int
	Users      int
	Games      int
	Access     string
}

func parseWelcome(name string, text string) (*template.Template, error) {
	return template.New(name).Funcs(sprig.TxtFuncMap()).Parse(text)
}

func (s *Server) sendWelcome(u *User) {
	if len(s.welcome) == 0 {
		return
	}

	s.mu.RLock()
	data := welcomeData{
		ServerName: s.flags.ServerName,
		UserName:   u.Name(),
		UserID:     u.id,
		Users:      len(s.users),
		Games:      len(s.games),
		Access:     u.AccessLevel().String(),
	}
	s.mu.RUnlock()

	for _, t := range s.welcome {
		var buf bytes.Buffer
		if err := t.Execute(&buf, data); err != nil {
			slog.Warn("rendering welcome message", "template", t.Name(), "error", err)
			continue
		}
		u.QueueEvent(InfoMessageEvent{User: u, Message: buf.String()})
	}
}
