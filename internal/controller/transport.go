package controller

// Transport is the connection side of a session. Implementations own message
// numbering, framing and retransmission.
type Transport interface {
	Send(msg Message) error
	// Resend retransmits recent messages. It may be called repeatedly for
	// the same range.
	Resend(from int) error
	Close() error
}
