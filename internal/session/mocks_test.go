package session

import (
	"context"
	"sync"
	"time"

	"github.com/sweeney/callsentry/internal/publisher"
)

type mockModelLeg struct {
	mu            sync.Mutex
	audio         []string
	continuations []string
	closed        bool
	err           error
}

func (m *mockModelLeg) AppendAudio(b64 string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.audio = append(m.audio, b64)
	return nil
}

func (m *mockModelLeg) ForceContinuation(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.continuations = append(m.continuations, text)
	return nil
}

func (m *mockModelLeg) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockModelLeg) Audio() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.audio...)
}

func (m *mockModelLeg) Continuations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.continuations...)
}

func (m *mockModelLeg) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

type mockTelephonyLeg struct {
	mu       sync.Mutex
	frames   [][]byte
	closed   bool
	block    chan struct{}
	attempts int
}

// SetBlock makes every Send wait on ch, simulating a slow socket.
func (m *mockTelephonyLeg) SetBlock(ch chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.block = ch
}

func (m *mockTelephonyLeg) Send(data []byte) error {
	m.mu.Lock()
	m.attempts++
	block := m.block
	m.mu.Unlock()
	if block != nil {
		<-block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f := make([]byte, len(data))
	copy(f, data)
	m.frames = append(m.frames, f)
	return nil
}

func (m *mockTelephonyLeg) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockTelephonyLeg) Frames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.frames))
	copy(out, m.frames)
	return out
}

// Attempts counts Send calls, including ones still parked on the block
// channel.
func (m *mockTelephonyLeg) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

func (m *mockTelephonyLeg) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

type scriptUpdate struct {
	CallSID string
	TwiML   string
}

type mockCallControl struct {
	mu      sync.Mutex
	updates []scriptUpdate
	err     error
}

func (m *mockCallControl) UpdateCall(_ context.Context, callSID, twiml string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.updates = append(m.updates, scriptUpdate{CallSID: callSID, TwiML: twiml})
	return nil
}

func (m *mockCallControl) Updates() []scriptUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]scriptUpdate(nil), m.updates...)
}

type recordedEvent struct {
	Kind    publisher.EventKind
	Payload any
}

// mockEvents captures broadcasts synchronously, so tests see them in order
// without waiting for a queue.
type mockEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (m *mockEvents) Broadcast(kind publisher.EventKind, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, recordedEvent{Kind: kind, Payload: payload})
}

func (m *mockEvents) Events() []recordedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recordedEvent(nil), m.events...)
}

func (m *mockEvents) States() []StatePayload {
	var states []StatePayload
	for _, e := range m.Events() {
		if e.Kind == publisher.EventState {
			states = append(states, e.Payload.(StatePayload))
		}
	}
	return states
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
