// Package client talks to the chat HTTP API
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"batepapo/backend/internal/models"

	"github.com/hashicorp/go-retryablehttp"
)

// identityHeader carries the caller's display name
const identityHeader = "User"

// MessageRequest is the body of a post or edit
type MessageRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
	Type string `json:"type"`
}

// APIError is a non-2xx response decoded from the error envelope
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    any    `json:"details"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("chat api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("chat api: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Client calls the chat API. Reads retry transient failures; writes are sent
// once so a post is never duplicated.
type Client struct {
	baseURL string
	reads   *retryablehttp.Client
	writes  *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithRetries sets how many times a read is retried and the minimum wait between attempts
func WithRetries(max int, wait time.Duration) Option {
	return func(c *Client) {
		c.reads.RetryMax = max
		c.reads.RetryWaitMin = wait
		c.reads.RetryWaitMax = 4 * wait
	}
}

// WithTimeout bounds every request
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.reads.HTTPClient.Timeout = d
		c.writes.Timeout = d
	}
}

// New creates a client for the API rooted at baseURL
func New(baseURL string, opts ...Option) *Client {
	reads := retryablehttp.NewClient()
	reads.Logger = nil
	reads.RetryMax = 3
	// Hand the last response to decode so the error envelope survives
	reads.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		reads:   reads,
		writes:  &http.Client{Timeout: 10 * time.Second},
	}
	c.reads.HTTPClient.Timeout = 10 * time.Second
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Join enters the room under name
func (c *Client) Join(ctx context.Context, name string) (*models.Participant, error) {
	var p models.Participant
	if err := c.write(ctx, http.MethodPost, "/participants", "", map[string]string{"name": name}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Participants lists everyone present
func (c *Client) Participants(ctx context.Context) ([]models.Participant, error) {
	var out []models.Participant
	if err := c.read(ctx, "/participants", "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Heartbeat keeps name in the room
func (c *Client) Heartbeat(ctx context.Context, name string) error {
	return c.write(ctx, http.MethodPost, "/status", name, nil, nil)
}

// Messages returns what user may read. A positive limit keeps only the latest entries.
func (c *Client) Messages(ctx context.Context, user string, limit int) ([]models.Message, error) {
	path := "/messages"
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	var out []models.Message
	if err := c.read(ctx, path, user, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Send posts a message as user
func (c *Client) Send(ctx context.Context, user string, req MessageRequest) (*models.Message, error) {
	var m models.Message
	if err := c.write(ctx, http.MethodPost, "/messages", user, req, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Edit rewrites a message user wrote
func (c *Client) Edit(ctx context.Context, user, id string, req MessageRequest) (*models.Message, error) {
	var m models.Message
	if err := c.write(ctx, http.MethodPut, "/messages/"+url.PathEscape(id), user, req, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Delete removes a message user wrote
func (c *Client) Delete(ctx context.Context, user, id string) error {
	return c.write(ctx, http.MethodDelete, "/messages/"+url.PathEscape(id), user, nil, nil)
}

// KeepAlive sends a heartbeat for name every interval until ctx is done.
// Failures are passed to onError and do not stop the loop.
func (c *Client) KeepAlive(ctx context.Context, name string, interval time.Duration, onError func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Heartbeat(ctx, name); err != nil && ctx.Err() == nil && onError != nil {
				onError(err)
			}
		}
	}
}

func (c *Client) read(ctx context.Context, path, user string, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if user != "" {
		req.Header.Set(identityHeader, user)
	}

	resp, err := c.reads.Do(req)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func (c *Client) write(ctx context.Context, method, path, user string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(identityHeader, user)
	}

	resp, err := c.writes.Do(req)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func decode(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			Error *APIError `json:"error"`
		}
		envelope.Error = apiErr
		// Bodies that are not an error envelope still yield the status code
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
