package session

import (
	"log"
	"sync"
	"sync/atomic"
)

// senderQueueSize bounds outbound telephony frames: roughly a minute of
// 20ms media chunks. Enqueue blocks when the queue is full; synthesized
// speech must arrive complete and in order, so backpressure is preferred
// over dropping frames.
const senderQueueSize = 3072

type outFrame struct {
	epoch uint64
	data  []byte
}

// sender serializes outbound frames to the telephony leg through a single
// writer goroutine. A barge-in bumps the epoch so media queued before the
// clear is discarded instead of being played over the caller.
type sender struct {
	leg     TelephonyLeg
	frames  chan outFrame
	epoch   atomic.Uint64
	pending atomic.Int64
	done    chan struct{}

	// mu guards closed and the frames send, so an Enqueue racing Close
	// can never hit the closed channel.
	mu     sync.Mutex
	closed bool
}

func newSender(leg TelephonyLeg) *sender {
	s := &sender{
		leg:    leg,
		frames: make(chan outFrame, senderQueueSize),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *sender) run() {
	defer close(s.done)
	for f := range s.frames {
		if f.epoch == s.epoch.Load() {
			if err := s.leg.Send(f.data); err != nil {
				log.Printf("telephony send: %v", err)
			}
		}
		s.pending.Add(-1)
	}
}

// Enqueue queues a frame behind any pending audio. Blocks when the queue
// is full; dropped after Close.
func (s *sender) Enqueue(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.pending.Add(1)
	s.frames <- outFrame{epoch: s.epoch.Load(), data: data}
}

// Interrupt discards queued media and sends frame (the clear) directly,
// ahead of anything still in flight.
func (s *sender) Interrupt(frame []byte) error {
	s.epoch.Add(1)
	return s.leg.Send(frame)
}

// Idle reports whether every enqueued frame has been handed to the leg.
func (s *sender) Idle() bool {
	return s.pending.Load() == 0
}

// Close stops the writer goroutine after the queue drains. Idempotent.
func (s *sender) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.frames)
	s.mu.Unlock()
	<-s.done
}
