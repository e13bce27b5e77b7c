// callsim replays a scripted scam call over MQTT: the same state and
// transcript events the interception service publishes, without needing a
// phone line or a model connection. Useful for driving dashboards.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sweeney/callsentry/internal/publisher"
	"github.com/sweeney/callsentry/internal/session"
)

const liveTranscript = `(Sobbing) Hi... it's Mom. I don't have much time.
I'm at the police station. My phone was stolen, so I'm using the officer's phone.
I need you to wire bail money immediately. Please, I'm scared.
Don't call dad, just send the money to this account number...`

// threatAfterWords is where the scripted analysis trips: mid-sentence, the
// way a live detection lands.
const threatAfterWords = 20

func main() {
	broker := flag.String("broker", "tcp://localhost:1883", "MQTT broker URL")
	clientID := flag.String("client-id", "callsim", "MQTT client id")
	prefix := flag.String("prefix", "live", "MQTT topic prefix")
	wordDelay := flag.Duration("word-delay", 150*time.Millisecond, "Delay between transcript words")
	flag.Parse()

	pub, err := publisher.NewMQTTPublisher(publisher.MQTTOptions{
		Broker:   *broker,
		ClientID: *clientID,
		QoS:      1,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer pub.Close()

	events := publisher.NewBroadcaster(pub, *prefix)
	defer events.Close()

	run(events, *wordDelay)
}

func run(events *publisher.Broadcaster, wordDelay time.Duration) {
	state := func(s session.State, data map[string]any) {
		events.Broadcast(publisher.EventState, session.StatePayload{Status: s, Data: data})
	}

	fmt.Println("resetting state...")
	state(session.StateIdle, nil)
	time.Sleep(1 * time.Second)

	fmt.Println("incoming call...")
	state(session.StateRinging, nil)
	time.Sleep(1 * time.Second)

	fmt.Println("call intercepted...")
	state(session.StateAnalyzing, nil)

	// Stream the transcript the way the live service does: cumulative
	// text, batched a few words at a time, paced to reading speed.
	var transcript strings.Builder
	for i, word := range strings.Fields(liveTranscript) {
		transcript.WriteString(" ")
		transcript.WriteString(word)
		if i%5 == 0 {
			events.Broadcast(publisher.EventTranscript, map[string]string{
				"text": strings.TrimSpace(transcript.String()),
			})
		}
		time.Sleep(wordDelay)
		if i == threatAfterWords {
			break
		}
	}

	fmt.Println("threat detected")
	state(session.StateThreatDetected, map[string]any{
		"confidence": 75,
		"reason":     "Financial Urgency",
		"question":   "Where did we go for childhood holidays?",
	})
}
