// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"net/url"
)

// PortClient reads ports detected in monitored terminals.
type PortClient struct {
	c *Client
}

// List returns the ports detected in a worktree.
func (p *PortClient) List(ctx context.Context, worktreeID string) ([]DetectedPort, error) {
	var out []DetectedPort
	err := p.c.get(ctx, "/api/v1/worktrees/"+url.PathEscape(worktreeID)+"/ports", &out)
	return out, err
}

// Map returns service name to port for a worktree.
func (p *PortClient) Map(ctx context.Context, worktreeID string) (map[string]int, error) {
	var out map[string]int
	err := p.c.get(ctx, "/api/v1/worktrees/"+url.PathEscape(worktreeID)+"/ports/map", &out)
	return out, err
}
