package ringlinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Ringline HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults. baseURL includes the API base
// path, e.g. http://127.0.0.1:8080/api.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 30 * time.Second,
	}
}

// CallRequest is the body of a call submission.
type CallRequest struct {
	CallerName      string `json:"callerName"`
	CallerNumber    string `json:"callerNumber,omitempty"`
	RecipientName   string `json:"recipientName"`
	RecipientNumber string `json:"recipientNumber"`
	Objective       string `json:"objective"`
	Notes           string `json:"notes,omitempty"`
}

// CallResponse is the envelope returned for every call submission, whatever
// the status code.
type CallResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	CallSID string `json:"callSid,omitempty"`
}

// Event represents an audit log entry.
type Event struct {
	ID        int64          `json:"id"`
	TS        string         `json:"ts"`
	Type      string         `json:"type"`
	RequestID string         `json:"request_id"`
	Recipient string         `json:"recipient,omitempty"`
	Payload   map[string]any `json:"payload"`
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// EventQuery narrows an event listing.
type EventQuery struct {
	Type      string
	RequestID string
	Limit     int
	Cursor    string
}

// APIError wraps non-2xx responses that carry no call envelope.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// PlaceCall submits a call request. Validation, configuration and provider
// failures come back as a CallResponse with Success false; the error is only
// set when no envelope could be read.
func (c *Client) PlaceCall(ctx context.Context, req CallRequest) (CallResponse, error) {
	res, err := c.send(ctx, http.MethodPost, "call", req)
	if err != nil {
		return CallResponse{}, err
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return CallResponse{}, err
	}
	var out CallResponse
	if err := json.Unmarshal(data, &out); err != nil || out.Message == "" {
		return CallResponse{}, &APIError{StatusCode: res.StatusCode, Body: string(data)}
	}
	if res.StatusCode >= 300 {
		out.Success = false
	}
	return out, nil
}

// Events returns recent events, newest first.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	page, err := c.EventsPage(ctx, EventQuery{Limit: limit})
	return page.Items, err
}

// EventsPage returns a paginated event listing.
func (c *Client) EventsPage(ctx context.Context, q EventQuery) (PaginatedEvents, error) {
	params := url.Values{}
	if q.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", q.Limit))
	}
	if q.Cursor != "" {
		params.Set("cursor", q.Cursor)
	}
	if q.Type != "" {
		params.Set("type", q.Type)
	}
	if q.RequestID != "" {
		params.Set("request_id", q.RequestID)
	}
	endpoint := "events"
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Event fetches a single event by id.
func (c *Client) Event(ctx context.Context, id int64) (Event, error) {
	var resp Event
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("events/%d", id), nil, &resp)
	return resp, err
}

// Health reports the server status string.
func (c *Client) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	err := c.do(ctx, http.MethodGet, "health", nil, &resp)
	return resp.Status, err
}

// DevLogin mints a development token for subject and stores it on the client.
func (c *Client) DevLogin(ctx context.Context, subject string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "auth/dev/login", map[string]string{"subject": subject}, &resp); err != nil {
		return "", err
	}
	c.BearerToken = resp.Token
	return resp.Token, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	resp, err := c.send(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, endpoint string, body any) (*http.Response, error) {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	return c.HTTPClient.Do(req)
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
