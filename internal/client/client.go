// Package client talks to a running bridge over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultBaseURL = "http://127.0.0.1:5000"

// APIError is a failure reported by the bridge.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bridge returned %d: %s", e.StatusCode, e.Message)
}

// IsBusy reports whether err is the bridge refusing a request because another
// exchange is running.
func IsBusy(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// New returns a client for the bridge at baseURL. The default HTTP client has
// no timeout; bound calls with the context.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type exchangeReply struct {
	Status   string `json:"status"`
	Response string `json:"response"`
	Message  string `json:"message"`
}

// Ask sends a text query and returns the reply.
func (c *Client) Ask(ctx context.Context, query string) (string, error) {
	return c.post(ctx, "/receive", map[string]string{"query": query})
}

// AskWithImage sends a query with an image given as base64, a data URI or a
// path on the bridge host.
func (c *Client) AskWithImage(ctx context.Context, query, image string) (string, error) {
	return c.post(ctx, "/img", map[string]string{"query": query, "image": image})
}

func (c *Client) post(ctx context.Context, path string, body any) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var reply exchangeReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return "", &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	if resp.StatusCode != http.StatusOK || reply.Status != "success" {
		return "", &APIError{StatusCode: resp.StatusCode, Message: reply.Message}
	}
	return reply.Response, nil
}
