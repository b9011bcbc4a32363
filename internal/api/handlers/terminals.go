// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/wingedpig/arbor/internal/terminal"
)

// TerminalHandler starts and stops terminal processes.
type TerminalHandler struct {
	launcher *terminal.Launcher
}

// NewTerminalHandler creates a terminal handler.
func NewTerminalHandler(launcher *terminal.Launcher) *TerminalHandler {
	return &TerminalHandler{launcher: launcher}
}

// List returns the running terminals.
func (h *TerminalHandler) List(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.launcher.List())
}

// Start launches a terminal and begins monitoring its ports.
func (h *TerminalHandler) Start(w http.ResponseWriter, r *http.Request) {
	var spec terminal.Spec
	if !decodeOrFail(w, r, &spec) {
		return
	}
	if spec.TerminalID == "" {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "terminalId is required")
		return
	}
	p, err := h.launcher.Start(r.Context(), spec)
	switch {
	case errors.Is(err, terminal.ErrAlreadyRunning):
		WriteError(w, http.StatusConflict, ErrConflict, err.Error())
		return
	case err != nil:
		WriteError(w, http.StatusInternalServerError, ErrTerminalError, err.Error())
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"terminalId": spec.TerminalID, "pid": p.Pid()})
}

// Stop terminates a terminal's process group.
func (h *TerminalHandler) Stop(w http.ResponseWriter, r *http.Request) {
	err := h.launcher.Stop(r.Context(), mux.Vars(r)["id"])
	switch {
	case errors.Is(err, terminal.ErrNotRunning):
		WriteError(w, http.StatusNotFound, ErrNotFound, err.Error())
		return
	case err != nil:
		WriteError(w, http.StatusInternalServerError, ErrTerminalError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Output returns the last ?lines= (default 100) lines a terminal printed.
func (h *TerminalHandler) Output(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	n := 100
	if s := r.URL.Query().Get("lines"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid lines")
			return
		}
		n = v
	}
	p, ok := h.launcher.Get(id)
	if !ok {
		WriteError(w, http.StatusNotFound, ErrNotFound, "terminal not running: "+id)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"lines":    p.Output().Lines(n),
		"sequence": p.Output().Sequence(),
	})
}
