package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
)

// EventKind distinguishes the outward event streams.
type EventKind string

const (
	EventState      EventKind = "state"
	EventTranscript EventKind = "transcript"
)

// defaultQueueSize bounds how many events may sit unsent before new ones
// are dropped. Dropping beats blocking here: the broadcast stream is a
// best-effort mirror of the call, and the pumps must never wait on it.
const defaultQueueSize = 64

type queued struct {
	topic   string
	payload []byte
}

// Broadcaster serializes events onto topics of the form <prefix>/call/<kind>
// and hands them to a Publisher from a single background goroutine, so
// enqueue order is delivery order and a stalled publisher never blocks the
// calling pump.
type Broadcaster struct {
	pub    Publisher
	prefix string
	queue  chan queued
	done   chan struct{}

	// mu guards closed and the queue send: call pumps may still be
	// publishing while shutdown closes the queue.
	mu     sync.Mutex
	closed bool
}

// NewBroadcaster starts a Broadcaster on top of pub.
func NewBroadcaster(pub Publisher, prefix string) *Broadcaster {
	b := &Broadcaster{
		pub:    pub,
		prefix: prefix,
		queue:  make(chan queued, defaultQueueSize),
		done:   make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Broadcaster) run() {
	defer close(b.done)
	for m := range b.queue {
		if err := b.pub.Publish(context.Background(), m.topic, m.payload); err != nil {
			log.Printf("broadcast %s: %v", m.topic, err)
		}
	}
}

// Broadcast enqueues an event without waiting for delivery. Events are
// dropped with a log when the queue is full.
func (b *Broadcaster) Broadcast(kind EventKind, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("broadcast %s: marshaling payload: %v", kind, err)
		return
	}

	m := queued{
		topic:   fmt.Sprintf("%s/call/%s", b.prefix, kind),
		payload: data,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		log.Printf("broadcast %s: broadcaster closed, dropping event", kind)
		return
	}

	select {
	case b.queue <- m:
	default:
		log.Printf("broadcast %s: queue full, dropping event", kind)
	}
}

// Close stops accepting events and waits for queued ones to be handed to
// the publisher. Events broadcast after Close are dropped. Idempotent.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()
	<-b.done
}
