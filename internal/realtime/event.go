package realtime

import (
	"encoding/json"
	"fmt"
)

// Inbound event kinds the session acts on. Anything else is ignored.
const (
	TypeSpeechStarted          = "input_audio_buffer.speech_started"
	TypeSpeechStopped          = "input_audio_buffer.speech_stopped"
	TypeTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"
	TypeTranscriptionDelta     = "conversation.item.input_audio_transcription.delta"
	TypeAudioDelta             = "response.output_audio.delta"
	TypeAudioTranscriptDelta   = "response.output_audio_transcript.delta"
	TypeTextDelta              = "response.output_text.delta"
	TypeResponseDone           = "response.done"
	TypeError                  = "error"
)

// Event is one inbound message from the realtime API. The envelope is a
// union over all event kinds; only the fields for Type are meaningful.
type Event struct {
	Type       string    `json:"type"`
	ItemID     string    `json:"item_id,omitempty"`
	ResponseID string    `json:"response_id,omitempty"`
	Delta      string    `json:"delta,omitempty"`
	Transcript string    `json:"transcript,omitempty"`
	Response   *Response `json:"response,omitempty"`

	// Raw preserves the full message for error logging.
	Raw json.RawMessage `json:"-"`
}

// Response is the completed-turn descriptor carried by response.done.
type Response struct {
	ID     string       `json:"id"`
	Status string       `json:"status,omitempty"`
	Output []OutputItem `json:"output,omitempty"`
}

// OutputItem is one output entry of a completed response. Function calls
// carry a name and JSON-encoded arguments.
type OutputItem struct {
	Type      string `json:"type"`
	Name      string `json:"name,omitempty"`
	CallID    string `json:"call_id,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// IsFunctionCall reports whether this output item is an invocable tool call.
func (o OutputItem) IsFunctionCall() bool {
	return o.Type == "function_call" || (o.Type == "" && o.Name != "")
}

// ParseEvent decodes one inbound model-leg message.
func ParseEvent(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("parsing event: %w", err)
	}
	if e.Type == "" {
		return Event{}, fmt.Errorf("event has no type")
	}
	e.Raw = append(json.RawMessage(nil), data...)
	return e, nil
}

// FirstFunctionCall returns the first tool call in a completed response, if
// any. A turn is expected to carry at most one actionable call; extra calls
// are the caller's problem to ignore.
func (r *Response) FirstFunctionCall() (OutputItem, bool) {
	if r == nil {
		return OutputItem{}, false
	}
	for _, item := range r.Output {
		if item.IsFunctionCall() {
			return item, true
		}
	}
	return OutputItem{}, false
}
