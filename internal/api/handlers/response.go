// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package handlers implements the /api/v1 endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/wingedpig/arbor/internal/workspace"
)

// Response is the standard API response wrapper.
type Response struct {
	Data  any        `json:"data,omitempty"`
	Error *ErrorInfo `json:"error,omitempty"`
	Meta  *MetaInfo  `json:"meta,omitempty"`
}

// ErrorInfo contains error details.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo contains response metadata.
type MetaInfo struct {
	Timestamp time.Time `json:"timestamp"`
}

// Error codes.
const (
	ErrNotFound      = "NOT_FOUND"
	ErrBadRequest    = "BAD_REQUEST"
	ErrConflict      = "CONFLICT"
	ErrExternalTool  = "EXTERNAL_TOOL_ERROR"
	ErrInternalError = "INTERNAL_ERROR"
	ErrTerminalError = "TERMINAL_ERROR"
)

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Response{Data: data, Meta: &MetaInfo{Timestamp: time.Now()}})
}

// WriteError writes an error response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	write(w, status, Response{
		Error: &ErrorInfo{Code: code, Message: message},
		Meta:  &MetaInfo{Timestamp: time.Now()},
	})
}

// WriteFailure maps a model error to its status and code.
func WriteFailure(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, ErrInternalError
	switch workspace.KindOf(err) {
	case workspace.NotFound:
		status, code = http.StatusNotFound, ErrNotFound
	case workspace.Validation:
		status, code = http.StatusBadRequest, ErrBadRequest
	case workspace.Conflict:
		status, code = http.StatusConflict, ErrConflict
	case workspace.ExternalTool:
		status, code = http.StatusUnprocessableEntity, ErrExternalTool
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "component", "api", "error", err)
	}
	WriteError(w, status, code, err.Error())
}

func write(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// decodeOrFail decodes the body and writes a 400 on failure.
func decodeOrFail(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decode(r, v); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, err.Error())
		return false
	}
	return true
}
