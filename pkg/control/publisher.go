package control

import "github.com/nats-io/nats.go"

// Publisher fans out a control-plane parameter snapshot to an external
// subscriber after a successful update (spec.md's live-update path has no
// such requirement, but SPEC_FULL.md §1.6 adds it as an optional,
// off-by-default convenience). Implementations must not block the config
// thread for long and are never called from the audio thread.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes snapshots to a NATS subject, grounded on the
// pack's event-bus usage of github.com/nats-io/nats.go.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to url (e.g. "nats://localhost:4222").
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: conn}, nil
}

// Publish sends data on subject.
func (p *NATSPublisher) Publish(subject string, data []byte) error {
	return p.conn.Publish(subject, data)
}

// Close drains and closes the underlying NATS connection.
func (p *NATSPublisher) Close() {
	p.conn.Close()
}
