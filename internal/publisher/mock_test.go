package publisher

import (
	"context"
	"errors"
	"testing"
)

func TestMockRecordsMessages(t *testing.T) {
	m := NewMockPublisher()

	if err := m.Publish(context.Background(), "live/call/state", []byte(`{"status":"IDLE"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs := m.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Topic != "live/call/state" {
		t.Errorf("expected topic live/call/state, got %s", msgs[0].Topic)
	}

	m.Reset()
	if len(m.Messages()) != 0 {
		t.Error("expected no messages after Reset")
	}
}

func TestMockSetError(t *testing.T) {
	m := NewMockPublisher()
	wantErr := errors.New("broker down")
	m.SetError(wantErr)

	if err := m.Publish(context.Background(), "t", nil); !errors.Is(err, wantErr) {
		t.Errorf("expected %v, got %v", wantErr, err)
	}
	if len(m.Messages()) != 0 {
		t.Error("expected failed publish not to be recorded")
	}
}

func TestMockClosed(t *testing.T) {
	m := NewMockPublisher()
	if m.Closed() {
		t.Error("expected not closed")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.Closed() {
		t.Error("expected closed")
	}
}
