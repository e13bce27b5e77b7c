package realtime

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

const defaultBaseURL = "wss://api.openai.com/v1/realtime"

// Client is the websocket connection to the realtime API. Writes are
// serialized with a mutex; reads happen from a single pump goroutine.
type Client struct {
	conn *websocket.Conn

	writeMu sync.Mutex
}

// Dial connects to the realtime API for the given model.
func Dial(ctx context.Context, apiKey, model string) (*Client, error) {
	return DialURL(ctx, fmt.Sprintf("%s?model=%s", defaultBaseURL, model), apiKey)
}

// DialURL connects to an explicit realtime endpoint. Used in tests with a
// local websocket server.
func DialURL(ctx context.Context, url, apiKey string) (*Client, error) {
	header := http.Header{}
	if apiKey != "" {
		header.Set("Authorization", "Bearer "+apiKey)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dialing realtime API: %w", err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an established websocket connection.
func NewClient(conn *websocket.Conn) *Client {
	return &Client{conn: conn}
}

// ReadMessage blocks for the next raw message from the model leg.
func (c *Client) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *Client) send(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// SendSessionUpdate performs the handshake built by the session builder.
func (c *Client) SendSessionUpdate(s SessionUpdate) error {
	return c.send(s)
}

// AppendAudio forwards a base64-encoded audio chunk into the model's input
// buffer.
func (c *Client) AppendAudio(b64 string) error {
	return c.send(map[string]string{
		"type":  "input_audio_buffer.append",
		"audio": b64,
	})
}

// ForceContinuation injects text as a system turn and asks the model to
// respond to it, keeping the conversation moving after a tool call.
func (c *Client) ForceContinuation(text string) error {
	item := map[string]any{
		"type": "conversation.item.create",
		"item": map[string]any{
			"type": "message",
			"role": "system",
			"content": []map[string]string{
				{"type": "input_text", "text": text},
			},
		},
	}
	if err := c.send(item); err != nil {
		return err
	}
	return c.send(map[string]string{"type": "response.create"})
}

// Close tears down the websocket.
func (c *Client) Close() error {
	return c.conn.Close()
}
