// Package clienttransport implements the client-side push/pull transport
// (C5): plain HTTP calls against the sync server's five endpoints, with
// no retry logic of its own. A failed call simply surfaces an error;
// the next cycle tries again (§4.5).
package clienttransport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/marcus/todosync/internal/syncwire"
)

// Sentinel errors for common HTTP error classes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// Client is an HTTP client for the sync server.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// New creates a new sync client with a 30s request timeout.
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Health hits GET /health to verify server reachability. No token
// required.
func (c *Client) Health() (*syncwire.HealthResponse, error) {
	var resp syncwire.HealthResponse
	if err := c.doRequest("GET", "/health", nil, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// State fetches the full server state, for bootstrap cycles.
func (c *Client) State() (*syncwire.State, error) {
	var resp syncwire.State
	if err := c.doRequest("GET", "/state", nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Delta fetches everything changed since the given cursor, for
// incremental cycles.
func (c *Client) Delta(since time.Time) (*syncwire.DeltaResponse, error) {
	params := url.Values{}
	params.Set("since", since.UTC().Format(time.RFC3339Nano))
	var resp syncwire.DeltaResponse
	if err := c.doRequest("GET", "/delta?"+params.Encode(), nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Push sends local changes to the server and returns the merge result.
func (c *Client) Push(req syncwire.PushRequest) (*syncwire.PushResponse, error) {
	var resp syncwire.PushResponse
	if err := c.doRequest("POST", "/push", req, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Reset wipes all server-side state. Intended for test harnesses and
// the "todosync reset" command, never called by a normal sync cycle.
func (c *Client) Reset() (*syncwire.ResetResponse, error) {
	var resp syncwire.ResetResponse
	if err := c.doRequest("DELETE", "/reset", nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

type apiErrorEnvelope struct {
	Error apiError `json:"error"`
}

func (c *Client) doRequest(method, path string, body, result any, auth bool) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth && c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var envelope apiErrorEnvelope
		if json.Unmarshal(respBody, &envelope) == nil && envelope.Error.Code != "" {
			apiErr := envelope.Error
			switch resp.StatusCode {
			case http.StatusUnauthorized:
				return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
			case http.StatusNotFound:
				return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
			default:
				return &apiErr
			}
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
