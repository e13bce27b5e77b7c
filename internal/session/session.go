// Package session coordinates one intercepted call: the relay between the
// telephony leg and the speech-model leg, and the tool-driven verification
// state machine between them.
package session

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/callsentry/internal/identity"
	"github.com/sweeney/callsentry/internal/publisher"
	"github.com/sweeney/callsentry/internal/realtime"
	"github.com/sweeney/callsentry/internal/twilio"
)

// ModelLeg is the outbound surface of the speech-model connection.
type ModelLeg interface {
	AppendAudio(b64 string) error
	ForceContinuation(text string) error
	Close() error
}

// TelephonyLeg is the outbound surface of the telephony connection.
type TelephonyLeg interface {
	Send(data []byte) error
	Close() error
}

// CallControl replaces a live call's script (transfer or hangup).
type CallControl interface {
	UpdateCall(ctx context.Context, callSID, twiml string) error
}

// Broadcaster publishes state and transcript events, best-effort.
type Broadcaster interface {
	Broadcast(kind publisher.EventKind, payload any)
}

// MessageReader delivers raw messages from one leg's connection.
type MessageReader interface {
	ReadMessage() ([]byte, error)
}

// StatePayload is the body of a published state event.
type StatePayload struct {
	Status State          `json:"status"`
	Data   map[string]any `json:"data,omitempty"`
}

type transcriptPayload struct {
	Text string `json:"text"`
}

// endOfCallMark names the playback marker used as the drain acknowledgment
// before tearing down the telephony leg.
const endOfCallMark = "end-of-call"

const defaultGracePeriod = 4 * time.Second

// Config wires a Session to its collaborators.
type Config struct {
	Model      ModelLeg
	Telephony  TelephonyLeg
	Control    CallControl
	Events     Broadcaster
	Challenges identity.Store

	// TransferNumber is dialed when the caller passes verification.
	TransferNumber string

	// GracePeriod bounds how long pending audio may drain before the
	// telephony leg is hard-closed. Defaults to 4s.
	GracePeriod time.Duration

	// MuteDuringPlayback drops caller media while synthesized speech is
	// draining. Needed when playback can leak back into capture (local
	// speaker deployments); leave off for phone calls, where barge-in
	// depends on the model hearing the caller mid-playback.
	MuteDuringPlayback bool
}

// Session is the per-call coordinator. One instance serves exactly one
// call; the telephony pump and the model pump run on separate goroutines
// and share the CallSession.
type Session struct {
	id string
	cs *CallSession

	ctx        context.Context
	model      ModelLeg
	phone      TelephonyLeg
	control    CallControl
	events     Broadcaster
	challenges identity.Store
	sender     *sender

	transferNumber     string
	gracePeriod        time.Duration
	muteDuringPlayback bool

	// after is time.After, injectable in tests.
	after func(time.Duration) <-chan time.Time

	markCh chan struct{}

	// Delta accumulation, touched only from the model pump.
	buffers     responseBuffers
	transcripts responseBuffers
}

// New creates a Session for one accepted call.
func New(ctx context.Context, cfg Config) *Session {
	grace := cfg.GracePeriod
	if grace <= 0 {
		grace = defaultGracePeriod
	}
	return &Session{
		id:                 uuid.NewString(),
		cs:                 NewCallSession(),
		ctx:                ctx,
		model:              cfg.Model,
		phone:              cfg.Telephony,
		control:            cfg.Control,
		events:             cfg.Events,
		challenges:         cfg.Challenges,
		sender:             newSender(cfg.Telephony),
		transferNumber:     cfg.TransferNumber,
		gracePeriod:        grace,
		muteDuringPlayback: cfg.MuteDuringPlayback,
		after:              time.After,
		markCh:             make(chan struct{}, 1),
		buffers:            newResponseBuffers(),
		transcripts:        newResponseBuffers(),
	}
}

// ID returns the session's log correlation id.
func (s *Session) ID() string {
	return s.id
}

// Call returns the shared per-call state.
func (s *Session) Call() *CallSession {
	return s.cs
}

// PublishState broadcasts a bare state event with no data payload.
func (s *Session) PublishState(state State) {
	s.events.Broadcast(publisher.EventState, StatePayload{Status: state})
}

// Close tears down both legs and the outbound sender. Safe to call after
// either pump has already closed its side.
func (s *Session) Close() {
	s.sender.Close()
	_ = s.model.Close()
	_ = s.phone.Close()
}

// PumpTelephony consumes the telephony leg until the stream stops or the
// connection drops, then closes the model leg so its pump unwinds too.
func (s *Session) PumpTelephony(r MessageReader) {
	defer func() {
		_ = s.model.Close()
	}()

	for {
		data, err := r.ReadMessage()
		if err != nil {
			// Disconnect is how calls end; this is not an error path.
			log.Printf("[%s] telephony stream closed: %v", s.id, err)
			return
		}
		if s.HandleTelephonyFrame(data) {
			return
		}
	}
}

// HandleTelephonyFrame processes one inbound telephony frame. Returns true
// when the pump should stop. Malformed frames are dropped with a log.
func (s *Session) HandleTelephonyFrame(data []byte) bool {
	f, err := twilio.ParseFrame(data)
	if err != nil {
		log.Printf("[%s] dropping telephony frame: %v", s.id, err)
		return false
	}

	switch f.Event {
	case twilio.EventConnected:
		log.Printf("[%s] connected to telephony media stream", s.id)

	case twilio.EventStart:
		if f.Start == nil {
			log.Printf("[%s] dropping start frame without start block", s.id)
			return false
		}
		s.cs.SetStart(f.Start.StreamSID, f.Start.CallSID)
		s.cs.SetState(StateAnalyzing)
		log.Printf("[%s] stream started: stream=%s call=%s", s.id, f.Start.StreamSID, f.Start.CallSID)
		s.PublishState(StateAnalyzing)

	case twilio.EventMedia:
		if f.Media == nil {
			return false
		}
		// Media before start is dropped, never queued: a well-formed
		// stream always delivers start first.
		if s.cs.StreamSID() == "" {
			return false
		}
		if s.muteDuringPlayback && s.cs.MuteCapture() {
			return false
		}
		if err := s.model.AppendAudio(f.Media.Payload); err != nil {
			log.Printf("[%s] forwarding audio to model: %v", s.id, err)
		}

	case twilio.EventMark:
		if f.Mark != nil && f.Mark.Name == endOfCallMark {
			select {
			case s.markCh <- struct{}{}:
			default:
			}
		}

	case twilio.EventStop:
		log.Printf("[%s] telephony stream stopped", s.id)
		return true

	default:
		log.Printf("[%s] ignoring telephony frame %q", s.id, f.Event)
	}
	return false
}

// PumpModel consumes the model leg until the session ends or the
// connection drops, then closes the telephony leg.
func (s *Session) PumpModel(r MessageReader) {
	defer func() {
		_ = s.phone.Close()
	}()

	for {
		data, err := r.ReadMessage()
		if err != nil {
			log.Printf("[%s] model stream closed: %v", s.id, err)
			return
		}
		if s.HandleModelMessage(data) {
			return
		}
	}
}

// HandleModelMessage processes one inbound model event. Returns true when
// the session is over and the pump should stop. No event is acted on
// before the telephony start frame has assigned a stream id.
func (s *Session) HandleModelMessage(data []byte) bool {
	e, err := realtime.ParseEvent(data)
	if err != nil {
		log.Printf("[%s] dropping model event: %v", s.id, err)
		return false
	}

	streamSID := s.cs.StreamSID()
	if streamSID == "" {
		return false
	}

	switch e.Type {
	case realtime.TypeSpeechStarted:
		// Barge-in: stop in-flight playback immediately.
		log.Printf("[%s] caller speech detected", s.id)
		s.cs.SetMuteCapture(false)
		frame, err := twilio.ClearFrame(streamSID)
		if err == nil {
			err = s.sender.Interrupt(frame)
		}
		if err != nil {
			log.Printf("[%s] clearing playback: %v", s.id, err)
		}

	case realtime.TypeSpeechStopped:
		log.Printf("[%s] caller silence detected", s.id)

	case realtime.TypeTranscriptionDelta:
		s.transcripts.Append(e.ItemID, e.Delta)

	case realtime.TypeTranscriptionCompleted:
		buffered := s.transcripts.Take(e.ItemID)
		text := strings.TrimSpace(e.Transcript)
		if text == "" {
			text = strings.TrimSpace(buffered)
		}
		if text != "" {
			log.Printf("[%s] caller: %s", s.id, text)
			s.events.Broadcast(publisher.EventTranscript, transcriptPayload{Text: text})
		}

	case realtime.TypeAudioDelta:
		if e.Delta == "" {
			return false
		}
		frame, err := twilio.MediaFrame(streamSID, e.Delta)
		if err != nil {
			log.Printf("[%s] building media frame: %v", s.id, err)
			return false
		}
		s.cs.SetMuteCapture(true)
		s.sender.Enqueue(frame)

	case realtime.TypeAudioTranscriptDelta, realtime.TypeTextDelta:
		s.buffers.Append(e.ResponseID, e.Delta)

	case realtime.TypeResponseDone:
		if s.handleResponseDone(e) {
			s.waitForDrain(streamSID)
			_ = s.phone.Close()
			return true
		}

	case realtime.TypeError:
		// Protocol errors from the model leg are not fatal.
		log.Printf("[%s] model error: %s", s.id, e.Raw)
	}
	return false
}

// handleResponseDone surfaces the completed assistant turn and dispatches
// its tool call, if any. Returns true when the call should end.
func (s *Session) handleResponseDone(e realtime.Event) bool {
	resp := e.Response
	if resp == nil || resp.ID == "" {
		return false
	}

	s.cs.SetMuteCapture(false)

	if text := strings.TrimSpace(s.buffers.Take(resp.ID)); text != "" {
		log.Printf("[%s] assistant: %s", s.id, text)
	}

	call, ok := resp.FirstFunctionCall()
	if !ok {
		return false
	}
	calls := 0
	for _, item := range resp.Output {
		if item.IsFunctionCall() {
			calls++
		}
	}
	if calls > 1 {
		// At most one tool call per turn is acted on.
		log.Printf("[%s] response %s has %d tool calls, dispatching first only", s.id, resp.ID, calls)
	}
	return s.dispatchTool(call)
}

// waitForDrain lets the caller hear the final utterance before the hard
// close: a playback mark is queued behind any pending audio and its echo
// is the acknowledgment, with the grace period as timeout fallback. An
// empty send queue is not enough to skip the wait: frames handed to the
// transport are still buffered and playing on the far side, and the mark
// echoes back only once that playback finishes.
func (s *Session) waitForDrain(streamSID string) {
	mark, err := twilio.MarkFrame(streamSID, endOfCallMark)
	if err == nil {
		s.sender.Enqueue(mark)
	}

	select {
	case <-s.markCh:
		log.Printf("[%s] playback drained", s.id)
	case <-s.after(s.gracePeriod):
		log.Printf("[%s] grace period elapsed, closing", s.id)
	}
}
