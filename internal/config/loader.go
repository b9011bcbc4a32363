// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/wingedpig/arbor/internal/session"
)

// EnvPrefix prefixes environment overrides: ARBOR_SERVER_PORT sets server.port.
const EnvPrefix = "ARBOR_"

// FileName is the config file looked up by FindConfig.
const FileName = "arbor.hjson"

// Defaults returns the built-in configuration values keyed by koanf path.
func Defaults() map[string]any {
	sessionPath, err := session.DefaultPath()
	if err != nil {
		sessionPath = filepath.Join(".arbor", "config.json")
	}
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return map[string]any{
		"server.host":               "127.0.0.1",
		"server.port":               7420,
		"server.tls_cert":           "",
		"server.tls_key":            "",
		"server.tls_tailscale":      false,
		"session.path":              sessionPath,
		"session.watch":             true,
		"session.debounce":          "100ms",
		"ports.poll_interval":       "2s",
		"ports.lsof_path":           "lsof",
		"events.history.max_events": 10000,
		"events.history.max_age":    "1h",
		"logging.level":             "info",
		"terminal.shell":            shell,
	}
}

// Load layers defaults, the HJSON file at path and ARBOR_* environment
// variables, in that order. An empty path or a missing file means defaults
// plus environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	defaults := Defaults()
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		_, err := os.Stat(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("stat %s: %w", path, err)
		default:
			if err := k.Load(file.Provider(path), HJSON{}); err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey(defaults)), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Session.Path = expandHome(cfg.Session.Path)
	cfg.Server.TLSCert = expandHome(cfg.Server.TLSCert)
	cfg.Server.TLSKey = expandHome(cfg.Server.TLSKey)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// envKey maps ARBOR_EVENTS_HISTORY_MAX_AGE to events.history.max_age by
// matching against the known keys; unknown variables are ignored.
func envKey(known map[string]any) func(string) string {
	byEnv := make(map[string]string, len(known))
	for key := range known {
		byEnv[strings.ToUpper(strings.ReplaceAll(key, ".", "_"))] = key
	}
	return func(name string) string {
		return byEnv[strings.TrimPrefix(name, EnvPrefix)]
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// FindConfig returns ./arbor.hjson if it exists, else ~/.arbor/arbor.hjson
// if that exists, else "".
func FindConfig() string {
	candidates := []string{FileName}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".arbor", FileName))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}
