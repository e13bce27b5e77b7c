package twilio

import (
	"fmt"
	"strings"
)

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// StreamTwiML returns the voice-webhook document that connects an incoming
// call to the media-stream websocket on host.
func StreamTwiML(host string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<Response>
    <Connect>
        <Stream url="wss://%s/audio-stream" />
    </Connect>
</Response>`, xmlEscaper.Replace(host))
}

// TransferTwiML returns the document that announces a passed verification
// and dials the protected party's real number.
func TransferTwiML(number string) string {
	return fmt.Sprintf(`<Response>
    <Say>Identity verified. Connecting you now.</Say>
    <Dial>%s</Dial>
</Response>`, xmlEscaper.Replace(number))
}

// FailureTwiML returns the document played when verification fails.
func FailureTwiML() string {
	return `<Response>
    <Say>Verification failed. Goodbye.</Say>
</Response>`
}
