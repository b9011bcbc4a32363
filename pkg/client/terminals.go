// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// TerminalClient starts and stops terminal processes.
type TerminalClient struct {
	c *Client
}

// List returns the running terminals.
func (t *TerminalClient) List(ctx context.Context) ([]Terminal, error) {
	var out []Terminal
	err := t.c.get(ctx, "/api/v1/terminals", &out)
	return out, err
}

// Start launches a terminal and returns its pid.
func (t *TerminalClient) Start(ctx context.Context, spec TerminalSpec) (int, error) {
	var out struct {
		Pid int `json:"pid"`
	}
	if err := t.c.send(ctx, http.MethodPost, "/api/v1/terminals", spec, &out); err != nil {
		return 0, err
	}
	return out.Pid, nil
}

// Stop terminates a terminal.
func (t *TerminalClient) Stop(ctx context.Context, terminalID string) error {
	return t.c.send(ctx, http.MethodDelete, "/api/v1/terminals/"+url.PathEscape(terminalID), nil, nil)
}

// Output returns the last n lines a terminal printed; n <= 0 uses the
// server default.
func (t *TerminalClient) Output(ctx context.Context, terminalID string, n int) ([]string, error) {
	path := "/api/v1/terminals/" + url.PathEscape(terminalID) + "/output"
	if n > 0 {
		path += "?lines=" + strconv.Itoa(n)
	}
	var out struct {
		Lines []string `json:"lines"`
	}
	err := t.c.get(ctx, path, &out)
	return out.Lines, err
}
