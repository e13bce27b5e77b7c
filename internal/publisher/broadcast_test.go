package publisher

import (
	"encoding/json"
	"testing"
	"time"
)

func TestBroadcastTopicAndOrder(t *testing.T) {
	mock := NewMockPublisher()
	b := NewBroadcaster(mock, "live")

	b.Broadcast(EventState, map[string]string{"status": "ANALYZING"})
	b.Broadcast(EventTranscript, map[string]string{"text": "hello"})
	b.Broadcast(EventState, map[string]string{"status": "CHALLENGING"})
	b.Close()

	msgs := mock.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Topic != "live/call/state" {
		t.Errorf("expected topic live/call/state, got %s", msgs[0].Topic)
	}
	if msgs[1].Topic != "live/call/transcript" {
		t.Errorf("expected topic live/call/transcript, got %s", msgs[1].Topic)
	}

	var first map[string]string
	if err := json.Unmarshal(msgs[0].Payload, &first); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if first["status"] != "ANALYZING" {
		t.Errorf("expected first status=ANALYZING, got %s", first["status"])
	}

	var last map[string]string
	if err := json.Unmarshal(msgs[2].Payload, &last); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if last["status"] != "CHALLENGING" {
		t.Errorf("expected last status=CHALLENGING, got %s", last["status"])
	}
}

func TestBroadcastNeverBlocksOnStalledPublisher(t *testing.T) {
	mock := NewMockPublisher()
	unblock := make(chan struct{})
	mock.SetBlock(unblock)

	b := NewBroadcaster(mock, "live")

	// Overflow the queue while the publisher is parked. Every call must
	// return promptly; overflow is dropped, not waited on.
	start := time.Now()
	for i := 0; i < defaultQueueSize*2; i++ {
		b.Broadcast(EventTranscript, map[string]int{"i": i})
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("broadcasting took %v with a stalled publisher", elapsed)
	}

	close(unblock)
	b.Close()

	msgs := mock.Messages()
	if len(msgs) == 0 {
		t.Fatal("expected queued messages to be delivered after unblocking")
	}
	if len(msgs) > defaultQueueSize+1 {
		t.Errorf("expected overflow to be dropped, got %d messages", len(msgs))
	}
}

func TestBroadcastUnmarshalablePayload(t *testing.T) {
	mock := NewMockPublisher()
	b := NewBroadcaster(mock, "live")

	b.Broadcast(EventState, make(chan int)) // not JSON-marshalable
	b.Close()

	if n := len(mock.Messages()); n != 0 {
		t.Errorf("expected no messages, got %d", n)
	}
}

func TestCloseFlushesQueue(t *testing.T) {
	mock := NewMockPublisher()
	b := NewBroadcaster(mock, "live")

	for i := 0; i < 10; i++ {
		b.Broadcast(EventState, map[string]int{"i": i})
	}
	b.Close()

	if n := len(mock.Messages()); n != 10 {
		t.Errorf("expected 10 messages after Close, got %d", n)
	}
}

func TestBroadcastAfterCloseIsDropped(t *testing.T) {
	mock := NewMockPublisher()
	b := NewBroadcaster(mock, "live")

	b.Broadcast(EventState, map[string]string{"status": "ANALYZING"})
	b.Close()

	// Shutdown can close the broadcaster while call pumps are still
	// publishing; late events must be dropped, never panic the process.
	b.Broadcast(EventTranscript, map[string]string{"text": "late"})
	b.Close()

	if n := len(mock.Messages()); n != 1 {
		t.Errorf("expected 1 message, got %d", n)
	}
}
