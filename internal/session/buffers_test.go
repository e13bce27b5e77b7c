package session

import "testing"

func TestBuffersAccumulateInOrder(t *testing.T) {
	b := newResponseBuffers()

	b.Append("resp_1", "every ")
	b.Append("resp_2", "other ")
	b.Append("resp_1", "good ")
	b.Append("resp_1", "boy")
	b.Append("resp_2", "stream")

	if got := b.Take("resp_1"); got != "every good boy" {
		t.Errorf("resp_1: got %q", got)
	}
	if got := b.Take("resp_2"); got != "other stream" {
		t.Errorf("resp_2: got %q", got)
	}
}

func TestBuffersTakeClearsEntry(t *testing.T) {
	b := newResponseBuffers()

	b.Append("resp_1", "once")
	if got := b.Take("resp_1"); got != "once" {
		t.Fatalf("got %q", got)
	}
	if got := b.Take("resp_1"); got != "" {
		t.Errorf("expected cleared entry, got %q", got)
	}
}

func TestBuffersIgnoreEmptyInput(t *testing.T) {
	b := newResponseBuffers()

	b.Append("", "orphan")
	b.Append("resp_1", "")

	if got := b.Take("resp_1"); got != "" {
		t.Errorf("expected nothing buffered, got %q", got)
	}
	if len(b) != 0 {
		t.Errorf("expected no entries, got %d", len(b))
	}
}
