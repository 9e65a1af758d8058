package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a thin Twilio REST client. Form-encoded POSTs with basic
// auth; no provider SDK dependency.
type Client struct {
	accountSID string
	authToken  string
	baseURL    string
	httpClient *http.Client
}

func NewClient(accountSID, authToken string) *Client {
	return &Client{
		accountSID: accountSID,
		authToken:  authToken,
		baseURL:    "https://api.twilio.com/2010-04-01",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Message is the subset of the provider's message resource we use.
type Message struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// CompleteCall tells the provider to hang up a live call. The terminal
// status webhook follows through the normal path.
func (c *Client) CompleteCall(ctx context.Context, callSID string) error {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls/%s.json", c.baseURL, c.accountSID, callSID)

	form := url.Values{}
	form.Set("Status", "completed")

	_, err := c.postForm(ctx, endpoint, form)
	return err
}

// SendMessage sends one SMS and returns the provider's message SID.
func (c *Client) SendMessage(ctx context.Context, from, to, body string) (Message, error) {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.baseURL, c.accountSID)

	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Body", body)

	raw, err := c.postForm(ctx, endpoint, form)
	if err != nil {
		return Message{}, err
	}
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, fmt.Errorf("telephony: decode message response: %w", err)
	}
	return msg, nil
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	if c.accountSID == "" || c.authToken == "" {
		return nil, fmt.Errorf("telephony: provider credentials not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telephony: provider request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("telephony: provider error (%d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
