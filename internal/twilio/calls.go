package twilio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultAPIBaseURL = "https://api.twilio.com/2010-04-01"

// Client updates live calls through the Twilio REST API.
type Client struct {
	accountSID string
	apiSID     string
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a REST client authenticated with an API key pair.
func NewClient(accountSID, apiSID, secretKey string) *Client {
	return &Client{
		accountSID: accountSID,
		apiSID:     apiSID,
		secretKey:  secretKey,
		baseURL:    defaultAPIBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL overrides the API endpoint. Used in tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

// UpdateCall replaces the active script of an in-progress call with new
// TwiML. Twilio interrupts whatever the call is doing and executes the new
// document immediately.
func (c *Client) UpdateCall(ctx context.Context, callSID, twiml string) error {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls/%s.json", c.baseURL, c.accountSID, callSID)

	form := url.Values{}
	form.Set("Twiml", twiml)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building call update request: %w", err)
	}
	req.SetBasicAuth(c.apiSID, c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("updating call %s: %w", callSID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("updating call %s: status %d: %s", callSID, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
