package suite

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/room"
)

var ErrConnClosed = errors.New("connection closed")

// RecordingConn keeps every envelope it is sent.
type RecordingConn struct {
	id string

	mu        sync.Mutex
	envelopes []room.Envelope
	closed    bool
}

func NewRecordingConn(id string) *RecordingConn {
	return &RecordingConn{id: id}
}

func (that *RecordingConn) ID() string {
	return that.id
}

func (that *RecordingConn) Send(envelope room.Envelope) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return ErrConnClosed
	}

	that.envelopes = append(that.envelopes, envelope)

	return nil
}

func (that *RecordingConn) Close() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.closed = true
}

func (that *RecordingConn) Envelopes() []room.Envelope {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]room.Envelope(nil), that.envelopes...)
}

// Events returns the event names in delivery order.
func (that *RecordingConn) Events() []string {
	envelopes := that.Envelopes()

	events := make([]string, 0, len(envelopes))
	for _, envelope := range envelopes {
		events = append(events, envelope.Event)
	}

	return events
}

// Last returns the most recent envelope with the given event name.
func (that *RecordingConn) Last(event string) (room.Envelope, bool) {
	envelopes := that.Envelopes()

	for i := len(envelopes) - 1; i >= 0; i-- {
		if envelopes[i].Event == event {
			return envelopes[i], true
		}
	}

	return room.Envelope{}, false
}

// Decode re-encodes a payload into out, so tests can read it as the client would.
func Decode(payload any, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return json.Unmarshal(raw, out)
}

func (that *RecordingConn) Reset() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.envelopes = nil
}
