package amqp

import (
	"encoding/json"
	"time"
)

// StateChangedMessage notifies the worker that the aggregate changed. It
// carries only the revision; the worker reads the snapshot itself from local
// storage, so a burst of edits collapses into one upload of the latest state.
type StateChangedMessage struct {
	Revision  int64     `json:"revision"`
	ChangedAt time.Time `json:"changedAt"`
}

// NewStateChangedMessage builds a message for the given store revision.
func NewStateChangedMessage(revision int64) *StateChangedMessage {
	return &StateChangedMessage{
		Revision:  revision,
		ChangedAt: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *StateChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// StateChangedMessageFromJSON parses a message from JSON bytes.
func StateChangedMessageFromJSON(data []byte) (*StateChangedMessage, error) {
	var msg StateChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
