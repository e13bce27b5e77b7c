package session

import "sync"

// State is the verification lifecycle state of a call.
type State string

const (
	StateIdle           State = "IDLE"
	StateRinging        State = "RINGING"
	StateAnalyzing      State = "ANALYZING"
	StateThreatDetected State = "THREAT_DETECTED"
	StateChallenging    State = "CHALLENGING"
	StateVerified       State = "VERIFIED"
	StateFailed         State = "FAILED"
)

// Terminal reports whether no further transitions are allowed.
func (s State) Terminal() bool {
	return s == StateVerified || s == StateFailed
}

// CallSession is the mutable per-call context shared by the two pumps and
// the tool dispatcher. All access goes through the locked methods; the
// pumps run on separate goroutines.
type CallSession struct {
	mu sync.Mutex

	streamSID string
	callSID   string
	state     State

	callerName      string
	confidence      int
	pendingQuestion string

	// muteCapture is set while synthesized speech is draining to the
	// caller, for deployments where playback can leak back into capture.
	muteCapture bool
}

// NewCallSession returns a session in the initial state.
func NewCallSession() *CallSession {
	return &CallSession{state: StateIdle}
}

// SetStart records the identifiers from the telephony start frame.
func (c *CallSession) SetStart(streamSID, callSID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.streamSID = streamSID
	c.callSID = callSID
}

// StreamSID returns the stream identifier, or "" before the start frame.
func (c *CallSession) StreamSID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streamSID
}

// CallSID returns the call identifier, or "" before the start frame.
func (c *CallSession) CallSID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.callSID
}

// State returns the current verification state.
func (c *CallSession) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetState transitions to next. Terminal states are absorbing: once
// VERIFIED or FAILED is reached the transition is refused.
func (c *CallSession) SetState(next State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Terminal() {
		return false
	}
	c.state = next
	return true
}

// SetCallerName records the name given during verification.
func (c *CallSession) SetCallerName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callerName = name
}

// CallerName returns the recorded caller name, or "".
func (c *CallSession) CallerName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.callerName
}

// SetConfidence records the threat confidence score.
func (c *CallSession) SetConfidence(confidence int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confidence = confidence
}

// Confidence returns the recorded threat confidence, or 0.
func (c *CallSession) Confidence() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confidence
}

// SetPendingQuestion records the challenge issued to the caller.
func (c *CallSession) SetPendingQuestion(q string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingQuestion = q
}

// PendingQuestion returns the outstanding challenge question, or "".
func (c *CallSession) PendingQuestion() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingQuestion
}

// SetMuteCapture flips the playback-echo mute flag.
func (c *CallSession) SetMuteCapture(mute bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.muteCapture = mute
}

// MuteCapture reports whether capture is muted for echo avoidance.
func (c *CallSession) MuteCapture() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muteCapture
}
