// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config loads the daemon configuration.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the daemon configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Session  SessionConfig  `koanf:"session"`
	Ports    PortsConfig    `koanf:"ports"`
	Events   EventsConfig   `koanf:"events"`
	Logging  LoggingConfig  `koanf:"logging"`
	Terminal TerminalConfig `koanf:"terminal"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// TLS from a certificate pair, or from the local Tailscale daemon.
	TLSCert      string `koanf:"tls_cert"`
	TLSKey       string `koanf:"tls_key"`
	TLSTailscale bool   `koanf:"tls_tailscale"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SessionConfig configures the session file.
type SessionConfig struct {
	Path     string        `koanf:"path"`
	Watch    bool          `koanf:"watch"`    // reload on external edits
	Debounce time.Duration `koanf:"debounce"` // quiet period before reloading
}

// PortsConfig configures the port monitor.
type PortsConfig struct {
	PollInterval time.Duration `koanf:"poll_interval"`
	LsofPath     string        `koanf:"lsof_path"`
}

// EventsConfig configures the event bus.
type EventsConfig struct {
	History HistoryConfig `koanf:"history"`
}

// HistoryConfig bounds the event history.
type HistoryConfig struct {
	MaxEvents int           `koanf:"max_events"`
	MaxAge    time.Duration `koanf:"max_age"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `koanf:"level"`
}

// TerminalConfig configures terminal processes.
type TerminalConfig struct {
	Shell string `koanf:"shell"`
}

// ValidationError contains every invalid field.
type ValidationError struct {
	Errors []FieldError
}

// FieldError is a single invalid field.
type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

var levels = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}

// Validate checks field ranges.
func (c *Config) Validate() error {
	errs := &ValidationError{}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs.add("server.port", "must be between 1 and 65535, got %d", c.Server.Port)
	}
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		errs.add("server.tls_cert", "tls_cert and tls_key must be set together")
	}
	if c.Server.TLSTailscale && c.Server.TLSCert != "" {
		errs.add("server.tls_tailscale", "cannot be combined with tls_cert")
	}
	if c.Session.Path == "" {
		errs.add("session.path", "is required")
	}
	if c.Session.Debounce <= 0 {
		errs.add("session.debounce", "must be positive")
	}
	if c.Ports.PollInterval <= 0 {
		errs.add("ports.poll_interval", "must be positive")
	}
	if c.Ports.LsofPath == "" {
		errs.add("ports.lsof_path", "is required")
	}
	if c.Events.History.MaxEvents < 0 {
		errs.add("events.history.max_events", "must not be negative")
	}
	if c.Events.History.MaxAge < 0 {
		errs.add("events.history.max_age", "must not be negative")
	}
	if !levels[strings.ToLower(c.Logging.Level)] {
		errs.add("logging.level", "unknown level %q", c.Logging.Level)
	}

	if len(errs.Errors) == 0 {
		return nil
	}
	return errs
}
