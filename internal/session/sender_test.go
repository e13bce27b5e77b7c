package session

import (
	"fmt"
	"testing"
)

func TestSenderDeliversInOrder(t *testing.T) {
	leg := &mockTelephonyLeg{}
	s := newSender(leg)
	defer s.Close()

	want := make([]string, 5)
	for i := range want {
		want[i] = fmt.Sprintf("frame-%d", i)
		s.Enqueue([]byte(want[i]))
	}

	if !waitFor(func() bool { return len(leg.Frames()) == len(want) }) {
		t.Fatalf("expected %d frames delivered, got %d", len(want), len(leg.Frames()))
	}
	for i, f := range leg.Frames() {
		if string(f) != want[i] {
			t.Errorf("frame %d: got %q, want %q", i, f, want[i])
		}
	}
	if !s.Idle() {
		t.Error("expected sender idle after delivery")
	}
}

func TestSenderInterruptDiscardsQueuedFrames(t *testing.T) {
	leg := &mockTelephonyLeg{}
	release := make(chan struct{})
	leg.SetBlock(release)
	s := newSender(leg)
	defer s.Close()

	s.Enqueue([]byte("a1"))
	if !waitFor(func() bool { return leg.Attempts() == 1 }) {
		t.Fatal("expected first frame in flight")
	}
	s.Enqueue([]byte("a2"))
	s.Enqueue([]byte("a3"))

	interrupted := make(chan error, 1)
	go func() {
		interrupted <- s.Interrupt([]byte("clear"))
	}()
	if !waitFor(func() bool { return leg.Attempts() == 2 }) {
		t.Fatal("expected clear frame in flight")
	}

	// Release the in-flight frame and the clear; the stale queued
	// frames must be skipped without reaching the leg.
	release <- struct{}{}
	release <- struct{}{}
	if err := <-interrupted; err != nil {
		t.Fatalf("interrupt: %v", err)
	}
	if !waitFor(s.Idle) {
		t.Fatal("expected queue drained")
	}

	frames := leg.Frames()
	if len(frames) != 2 {
		t.Fatalf("expected 2 delivered frames, got %d", len(frames))
	}
	for _, f := range frames {
		if string(f) == "a2" || string(f) == "a3" {
			t.Errorf("stale frame %q delivered after interrupt", f)
		}
	}
}

func TestSenderCloseIsIdempotent(t *testing.T) {
	leg := &mockTelephonyLeg{}
	s := newSender(leg)

	s.Enqueue([]byte("f1"))
	s.Close()
	s.Close()

	s.Enqueue([]byte("late"))
	for _, f := range leg.Frames() {
		if string(f) == "late" {
			t.Error("frame enqueued after close was delivered")
		}
	}
	if !s.Idle() {
		t.Error("expected sender idle after close")
	}
}
