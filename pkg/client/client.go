// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package client provides a Go client library for the arbor API.
//
// Create a client pointing to a running daemon:
//
//	c := client.New("http://127.0.0.1:7420")
//
// Resources are reached through sub-clients:
//
//	res, err := c.Workspaces.Open(ctx, "/src/shop")
//	tg, err := c.Workspaces.CreateTabGroup(ctx, wsID, wtID, "servers")
//	pid, err := c.Terminals.Start(ctx, client.TerminalSpec{TerminalID: tabID, WorktreeID: wtID, Command: "npm run dev"})
//	ports, err := c.Ports.Map(ctx, wtID)
//
// # Error Handling
//
// API errors are returned as *APIError values carrying the HTTP status, a
// machine-readable code and a message:
//
//	_, err := c.Workspaces.Get(ctx, "unknown")
//	if client.IsNotFound(err) {
//	    ...
//	}
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
	"time"
)

// Client is an arbor API client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// Workspaces covers workspaces and everything nested in them: worktrees,
	// tab groups, tabs and selections.
	Workspaces *WorkspaceClient

	// Terminals starts and stops terminal processes.
	Terminals *TerminalClient

	// Ports reads the detected-port overlay.
	Ports *PortClient

	// Events reads the event history.
	Events *EventClient
}

// Option configures a [Client].
type Option func(*Client)

// New creates a client for the daemon at baseURL. Any trailing slash is
// removed. Requests time out after 30 seconds unless configured otherwise.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.Workspaces = &WorkspaceClient{c: c}
	c.Terminals = &TerminalClient{c: c}
	c.Ports = &PortClient{c: c}
	c.Events = &EventClient{c: c}
	return c
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// BaseURL returns the base URL of the API.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type apiResponse struct {
	Data  json.RawMessage `json:"data"`
	Error *APIError       `json:"error"`
}

// APIError is an error response from the API.
//
// Codes: NOT_FOUND, BAD_REQUEST, CONFLICT, EXTERNAL_TOOL_ERROR (git failed
// or the path is not a repository), TERMINAL_ERROR and INTERNAL_ERROR.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// IsNotFound reports whether err is a NOT_FOUND API error.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == "NOT_FOUND"
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.send(ctx, http.MethodGet, path, nil, out)
}

// send performs a request with an optional JSON body and decodes the data
// field of the response into out when out is non-nil.
func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := parseResponse(resp)
	if err != nil || out == nil || data == nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func parseResponse(resp *http.Response) (json.RawMessage, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		if resp.StatusCode >= 400 {
			return nil, &APIError{Status: resp.StatusCode, Message: resp.Status}
		}
		return nil, nil
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		}
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if apiResp.Error != nil {
		apiResp.Error.Status = resp.StatusCode
		return nil, apiResp.Error
	}
	if resp.StatusCode >= 400 {
		return nil, &APIError{Status: resp.StatusCode, Message: resp.Status}
	}
	return apiResp.Data, nil
}
