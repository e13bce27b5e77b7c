package session

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/sweeney/callsentry/internal/publisher"
	"github.com/sweeney/callsentry/internal/realtime"
	"github.com/sweeney/callsentry/internal/twilio"
)

// Tool calls as a tagged union: every variant the model may invoke is a
// distinct type, and unknown names are a handled case of their own rather
// than a fallthrough.
type toolCall interface {
	isToolCall()
}

type reportThreat struct {
	Confidence int    `json:"confidence"`
	Reason     string `json:"reason"`
	Transcript string `json:"transcript"`
}

type lookupIdentity struct {
	Name string `json:"name"`
}

type connectCall struct{}

type hangupCall struct{}

type unknownTool struct {
	name string
}

func (reportThreat) isToolCall()   {}
func (lookupIdentity) isToolCall() {}
func (connectCall) isToolCall()    {}
func (hangupCall) isToolCall()     {}
func (unknownTool) isToolCall()    {}

// decodeToolCall maps a completed function-call output item to its typed
// variant, decoding the JSON arguments against the declared schema.
func decodeToolCall(item realtime.OutputItem) (toolCall, error) {
	args := item.Arguments
	if args == "" {
		args = "{}"
	}

	switch item.Name {
	case "report_threat":
		var c reportThreat
		if err := json.Unmarshal([]byte(args), &c); err != nil {
			return nil, fmt.Errorf("decoding report_threat arguments: %w", err)
		}
		return c, nil
	case "lookup_identity":
		var c lookupIdentity
		if err := json.Unmarshal([]byte(args), &c); err != nil {
			return nil, fmt.Errorf("decoding lookup_identity arguments: %w", err)
		}
		return c, nil
	case "connect_call":
		return connectCall{}, nil
	case "hangup":
		return hangupCall{}, nil
	default:
		return unknownTool{name: item.Name}, nil
	}
}

// dispatchTool runs the verification state machine for one completed tool
// call. Returns true when the call should end after pending audio drains.
// Malformed arguments and precondition misses are logged no-ops: a bad
// tool call never disconnects the caller by itself.
func (s *Session) dispatchTool(item realtime.OutputItem) bool {
	call, err := decodeToolCall(item)
	if err != nil {
		log.Printf("[%s] dispatch: %v", s.id, err)
		return false
	}

	switch c := call.(type) {
	case reportThreat:
		return s.handleReportThreat(c)
	case lookupIdentity:
		return s.handleLookupIdentity(c)
	case connectCall:
		return s.handleConnectCall()
	case hangupCall:
		return s.handleHangup()
	case unknownTool:
		log.Printf("[%s] dispatch: unrecognized tool %q, ignoring", s.id, c.name)
		return false
	}
	return false
}

func (s *Session) handleReportThreat(c reportThreat) bool {
	state := s.cs.State()
	if state.Terminal() {
		log.Printf("[%s] report_threat in state %s, ignoring", s.id, state)
		return false
	}

	s.cs.SetConfidence(c.Confidence)
	// A repeat report while already challenging keeps the later state;
	// the machine only moves forward.
	if state != StateChallenging {
		s.cs.SetState(StateThreatDetected)
	}
	log.Printf("[%s] threat detected: confidence=%d reason=%q", s.id, c.Confidence, c.Reason)

	s.events.Broadcast(publisher.EventState, StatePayload{
		Status: StateThreatDetected,
		Data: map[string]any{
			"confidence": c.Confidence,
			"reason":     c.Reason,
			"transcript": c.Transcript,
		},
	})

	if err := s.model.ForceContinuation("Threat successfully reported."); err != nil {
		log.Printf("[%s] requesting continuation: %v", s.id, err)
	}
	return false
}

func (s *Session) handleLookupIdentity(c lookupIdentity) bool {
	state := s.cs.State()
	if state != StateThreatDetected && state != StateChallenging {
		log.Printf("[%s] lookup_identity in state %s, ignoring", s.id, state)
		return false
	}

	name := c.Name
	if name == "" {
		name = "unknown"
	}
	s.cs.SetCallerName(name)
	log.Printf("[%s] looking up identity for %q", s.id, name)

	challenge, err := s.challenges.Lookup(s.ctx, name)
	if err != nil {
		// Stores degrade to the default challenge themselves; this is
		// only reachable with a badly-behaved implementation.
		log.Printf("[%s] challenge lookup: %v", s.id, err)
		return false
	}
	s.cs.SetPendingQuestion(challenge.Question)
	s.cs.SetState(StateChallenging)

	s.events.Broadcast(publisher.EventState, StatePayload{
		Status: StateChallenging,
		Data: map[string]any{
			"name":       name,
			"confidence": s.cs.Confidence(),
			"question":   challenge.Question,
		},
	})

	payload, err := json.Marshal(challenge)
	if err != nil {
		log.Printf("[%s] marshaling challenge: %v", s.id, err)
		return false
	}
	if err := s.model.ForceContinuation(string(payload)); err != nil {
		log.Printf("[%s] requesting continuation: %v", s.id, err)
	}
	return false
}

func (s *Session) handleConnectCall() bool {
	if state := s.cs.State(); state != StateChallenging {
		log.Printf("[%s] connect_call in state %s, ignoring", s.id, state)
		return false
	}

	s.cs.SetState(StateVerified)
	log.Printf("[%s] verified, connecting caller", s.id)

	s.events.Broadcast(publisher.EventState, StatePayload{
		Status: StateVerified,
		Data:   map[string]any{"name": s.cs.CallerName()},
	})

	// The transfer replaces the call's script; Twilio then stops the
	// media stream on its own, which ends the session normally.
	if callSID := s.cs.CallSID(); callSID != "" {
		if err := s.control.UpdateCall(s.ctx, callSID, twilio.TransferTwiML(s.transferNumber)); err != nil {
			log.Printf("[%s] transferring call: %v", s.id, err)
		}
	}
	return false
}

func (s *Session) handleHangup() bool {
	if state := s.cs.State(); state != StateChallenging {
		log.Printf("[%s] hangup in state %s, ignoring", s.id, state)
		return false
	}

	s.cs.SetState(StateFailed)
	log.Printf("[%s] verification failed, hanging up", s.id)

	s.events.Broadcast(publisher.EventState, StatePayload{
		Status: StateFailed,
		Data:   map[string]any{"name": s.cs.CallerName()},
	})

	if callSID := s.cs.CallSID(); callSID != "" {
		if err := s.control.UpdateCall(s.ctx, callSID, twilio.FailureTwiML()); err != nil {
			log.Printf("[%s] replacing call script: %v", s.id, err)
		}
	}
	return true
}
