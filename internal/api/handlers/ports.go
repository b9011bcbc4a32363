// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/wingedpig/arbor/internal/ports"
)

// PortHandler serves the detected-port overlay.
type PortHandler struct {
	monitor *ports.Monitor
}

// NewPortHandler creates a port handler.
func NewPortHandler(monitor *ports.Monitor) *PortHandler {
	return &PortHandler{monitor: monitor}
}

// List returns the ports detected in a worktree.
func (h *PortHandler) List(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.monitor.GetDetectedPorts(mux.Vars(r)["wt"]))
}

// Map returns service name to port for a worktree.
func (h *PortHandler) Map(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.monitor.GetDetectedPortsMap(mux.Vars(r)["wt"]))
}
