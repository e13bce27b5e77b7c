package twilio

import (
	"encoding/json"
	"fmt"
)

// Media-stream frame discriminators, as sent over the websocket leg.
const (
	EventConnected = "connected"
	EventStart     = "start"
	EventMedia     = "media"
	EventStop      = "stop"
	EventMark      = "mark"
	EventClear     = "clear"
)

// Frame is one JSON message on a Twilio media stream. Only the fields for
// the frame's event kind are populated; unknown fields are ignored so new
// protocol additions never break parsing.
type Frame struct {
	Event     string `json:"event"`
	StreamSID string `json:"streamSid,omitempty"`
	Start     *Start `json:"start,omitempty"`
	Media     *Media `json:"media,omitempty"`
	Mark      *Mark  `json:"mark,omitempty"`
}

// Start carries the identifiers assigned when the stream begins. A
// well-formed stream always delivers start before any media.
type Start struct {
	StreamSID  string   `json:"streamSid"`
	CallSID    string   `json:"callSid"`
	AccountSID string   `json:"accountSid"`
	Tracks     []string `json:"tracks,omitempty"`
}

// Media carries one base64-encoded chunk of narrowband (PCMU) audio.
type Media struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"`
}

// Mark echoes a named playback marker back from Twilio.
type Mark struct {
	Name string `json:"name"`
}

// ParseFrame decodes a single inbound frame.
func ParseFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("parsing frame: %w", err)
	}
	if f.Event == "" {
		return Frame{}, fmt.Errorf("frame has no event discriminator")
	}
	return f, nil
}

// MediaFrame builds an outbound media frame carrying base64 audio for the
// given stream.
func MediaFrame(streamSID, payload string) ([]byte, error) {
	return json.Marshal(Frame{
		Event:     EventMedia,
		StreamSID: streamSID,
		Media:     &Media{Payload: payload},
	})
}

// ClearFrame builds the frame that tells Twilio to discard buffered
// playback audio (barge-in).
func ClearFrame(streamSID string) ([]byte, error) {
	return json.Marshal(Frame{
		Event:     EventClear,
		StreamSID: streamSID,
	})
}

// MarkFrame builds an outbound playback marker. Twilio echoes a mark event
// with the same name once audio sent before it has finished playing, which
// makes it a drain acknowledgment.
func MarkFrame(streamSID, name string) ([]byte, error) {
	return json.Marshal(Frame{
		Event:     EventMark,
		StreamSID: streamSID,
		Mark:      &Mark{Name: name},
	})
}
