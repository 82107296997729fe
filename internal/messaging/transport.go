package messaging

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/eapache/queue"

	"github.com/pixil98/go-kaillera/internal/controller"
)

const DefaultHistorySize = 64

var ErrTransportClosed = errors.New("transport closed")

// Publisher provides the ability to publish messages to subjects
type Publisher interface {
	Publish(subject string, data []byte) error
}

// SessionSubject is the subject carrying one user's outbound messages.
func SessionSubject(userID int) string {
	return fmt.Sprintf("kaillera.session.%d", userID)
}

// Envelope is the JSON form of an outbound message on a session subject.
type Envelope struct {
	Seq    uint64          `json:"seq"`
	Type   string          `json:"type"`
	ID     byte            `json:"id"`
	Resend bool            `json:"resend,omitempty"`
	Body   json.RawMessage `json:"body"`
}

// SessionTransport publishes a session's messages to its own subject and
// keeps the most recent ones for Resend.
type SessionTransport struct {
	bus         Publisher
	subject     string
	historySize int

	mu      sync.Mutex
	seq     uint64
	history *queue.Queue
	closed  bool
}

type SessionTransportOpt func(*SessionTransport)

// WithHistorySize sets how many sent messages are kept for Resend
func WithHistorySize(n int) SessionTransportOpt {
	return func(t *SessionTransport) {
		t.historySize = n
	}
}

func NewSessionTransport(bus Publisher, userID int, opts ...SessionTransportOpt) *SessionTransport {
	t := &SessionTransport{
		bus:         bus,
		subject:     SessionSubject(userID),
		historySize: DefaultHistorySize,
		history:     queue.New(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *SessionTransport) Subject() string {
	return t.subject
}

func (t *SessionTransport) Send(msg controller.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshalling %s: %w", msg.ID(), err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTransportClosed
	}

	t.seq++
	env := Envelope{Seq: t.seq, Type: msg.ID().String(), ID: byte(msg.ID()), Body: body}

	t.history.Add(env)
	for t.history.Length() > t.historySize {
		t.history.Remove()
	}

	return t.publishLocked(env)
}

// Resend publishes the last n messages again, oldest first.
func (t *SessionTransport) Resend(n int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTransportClosed
	}

	start := t.history.Length() - n
	if start < 0 {
		start = 0
	}
	for i := start; i < t.history.Length(); i++ {
		env := t.history.Get(i).(Envelope)
		env.Resend = true
		if err := t.publishLocked(env); err != nil {
			return err
		}
	}
	return nil
}

func (t *SessionTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *SessionTransport) publishLocked(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshalling envelope: %w", err)
	}
	if err := t.bus.Publish(t.subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", t.subject, err)
	}
	return nil
}
