package amqp

import (
	"testing"
	"time"
)

func TestStateChangedMessageRoundTrip(t *testing.T) {
	msg := &StateChangedMessage{
		Revision:  42,
		ChangedAt: time.Date(2024, 3, 10, 18, 30, 0, 0, time.UTC),
	}

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	got, err := StateChangedMessageFromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}

	if got.Revision != msg.Revision {
		t.Errorf("revision = %d, want %d", got.Revision, msg.Revision)
	}
	if !got.ChangedAt.Equal(msg.ChangedAt) {
		t.Errorf("changedAt = %v, want %v", got.ChangedAt, msg.ChangedAt)
	}
}

func TestStateChangedMessageFromJSONInvalid(t *testing.T) {
	if _, err := StateChangedMessageFromJSON([]byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestNewStateChangedMessage(t *testing.T) {
	before := time.Now()
	msg := NewStateChangedMessage(7)
	after := time.Now()

	if msg.Revision != 7 {
		t.Errorf("revision = %d, want 7", msg.Revision)
	}
	if msg.ChangedAt.Before(before) || msg.ChangedAt.After(after) {
		t.Errorf("changedAt %v not in [%v, %v]", msg.ChangedAt, before, after)
	}
}
