package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sweeney/callsentry/internal/config"
	"github.com/sweeney/callsentry/internal/identity"
	"github.com/sweeney/callsentry/internal/publisher"
	"github.com/sweeney/callsentry/internal/realtime"
	"github.com/sweeney/callsentry/internal/session"
	"github.com/sweeney/callsentry/internal/twilio"
)

func main() {
	configPath := flag.String("config", "/etc/callsentry/callsentry.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, shutting down", sig)
		cancel()
	}()

	pub, err := publisher.NewMQTTPublisher(publisher.MQTTOptions{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		QoS:      1,
	})
	if err != nil {
		log.Fatalf("connecting to MQTT: %v", err)
	}
	defer pub.Close()

	log.Printf("connected to MQTT broker %s", cfg.MQTT.Broker)

	events := publisher.NewBroadcaster(pub, cfg.MQTT.TopicPrefix)
	defer events.Close()

	challenges, closeStore, err := newChallengeStore(ctx, cfg.Identity)
	if err != nil {
		log.Fatalf("opening challenge store: %v", err)
	}
	defer closeStore()

	app := &app{
		cfg:        cfg,
		events:     events,
		challenges: challenges,
		control:    twilio.NewClient(cfg.Twilio.AccountSID, cfg.Twilio.APISID, cfg.Twilio.SecretKey),
	}

	if err := serve(ctx, cfg.HTTP.Listen, app.routes()); err != nil {
		log.Fatalf("error: %v", err)
	}

	log.Println("shutdown complete")
}

// newChallengeStore picks Postgres when a database URL is configured,
// falling back to the static table otherwise.
func newChallengeStore(ctx context.Context, cfg config.IdentityConfig) (identity.Store, func(), error) {
	if cfg.DatabaseURL != "" {
		store, err := identity.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		log.Println("challenge store: postgres")
		return store, store.Close, nil
	}

	extra := make(map[string]identity.Challenge, len(cfg.Challenges))
	for name, c := range cfg.Challenges {
		extra[name] = identity.Challenge{Question: c.Question, Answer: c.Answer}
	}
	log.Println("challenge store: static")
	return identity.NewStaticStore(extra), func() {}, nil
}

func serve(ctx context.Context, listen string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

type app struct {
	cfg        *config.Config
	events     *publisher.Broadcaster
	challenges identity.Store
	control    *twilio.Client
}

func (a *app) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", a.handleHealth)
	mux.HandleFunc("/voice", a.handleVoice)
	mux.HandleFunc("/audio-stream", a.handleAudioStream)
	return mux
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Write([]byte("ok"))
}

// handleVoice answers Twilio's incoming-call webhook with the TwiML that
// connects the call's media stream back to this server.
func (a *app) handleVoice(w http.ResponseWriter, r *http.Request) {
	host := a.cfg.HTTP.PublicHost
	if host == "" {
		host = r.Host
	}
	log.Printf("incoming call webhook, streaming via %s", host)

	w.Header().Set("Content-Type", "application/xml")
	w.Write([]byte(twilio.StreamTwiML(host)))
}

var upgrader = websocket.Upgrader{
	// Twilio's media stream client sends no browser origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleAudioStream owns one call end to end: it upgrades the telephony
// websocket, dials the model, and runs the two pumps until either leg
// closes.
func (a *app) handleAudioStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrading media stream: %v", err)
		return
	}
	phone := newWSConn(conn)
	defer phone.Close()

	ctx := r.Context()
	a.events.Broadcast(publisher.EventState, session.StatePayload{Status: session.StateIdle})

	model, err := realtime.Dial(ctx, a.cfg.OpenAI.APIKey, a.cfg.OpenAI.Model)
	if err != nil {
		log.Printf("dialing model: %v", err)
		return
	}
	defer model.Close()

	if err := model.SendSessionUpdate(realtime.TelephonySession(realtime.Options{
		Instructions:       realtime.DefaultInstructions,
		Voice:              a.cfg.OpenAI.Voice,
		VADThreshold:       a.cfg.OpenAI.VADThreshold,
		SilenceDurationMs:  a.cfg.OpenAI.SilenceDurationMs,
		PrefixPaddingMs:    a.cfg.OpenAI.PrefixPaddingMs,
		TranscriptionModel: a.cfg.OpenAI.TranscriptionModel,
		IdleTimeoutMs:      a.cfg.OpenAI.IdleTimeoutMs,
	})); err != nil {
		log.Printf("configuring model session: %v", err)
		return
	}

	sess := session.New(ctx, session.Config{
		Model:          model,
		Telephony:      phone,
		Control:        a.control,
		Events:         a.events,
		Challenges:     a.challenges,
		TransferNumber: a.cfg.Twilio.TransferNumber,
		GracePeriod:    time.Duration(a.cfg.Session.GracePeriodSeconds) * time.Second,
	})
	defer sess.Close()

	log.Printf("[%s] call accepted", sess.ID())
	a.events.Broadcast(publisher.EventState, session.StatePayload{Status: session.StateRinging})

	done := make(chan struct{})
	go func() {
		defer close(done)
		sess.PumpModel(model)
	}()
	sess.PumpTelephony(phone)
	<-done

	log.Printf("[%s] call finished", sess.ID())
}

// wsConn adapts a gorilla websocket connection to the session's leg
// interfaces. Gorilla allows one concurrent writer, so Send and Close are
// serialized with a mutex.
type wsConn struct {
	conn *websocket.Conn

	writeMu sync.Mutex
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn}
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.Close()
}
