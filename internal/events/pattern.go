// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"errors"
	"strings"
)

// ErrEmptyPattern is returned when subscribing with an empty pattern.
var ErrEmptyPattern = errors.New("empty pattern")

// Match reports whether eventType matches pattern. Supported forms:
//
//	"*"            every event
//	"port.*"       port.detected, port.closed
//	"*.exited"     terminal.exited
//	"port.closed"  exact
func Match(eventType, pattern string) bool {
	switch {
	case pattern == "" || eventType == "":
		return false
	case pattern == "*", pattern == eventType:
		return true
	case strings.HasSuffix(pattern, ".*"):
		return strings.HasPrefix(eventType, strings.TrimSuffix(pattern, "*"))
	case strings.HasPrefix(pattern, "*."):
		return strings.HasSuffix(eventType, strings.TrimPrefix(pattern, "*"))
	}
	return false
}

// MatchAny reports whether eventType matches one of patterns. An empty list
// matches everything.
func MatchAny(eventType string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if Match(eventType, p) {
			return true
		}
	}
	return false
}

// Pattern is a validated subscription pattern.
type Pattern string

// ParsePattern validates p.
func ParsePattern(p string) (Pattern, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", ErrEmptyPattern
	}
	return Pattern(p), nil
}

// Match reports whether eventType matches the pattern.
func (p Pattern) Match(eventType string) bool {
	return Match(eventType, string(p))
}
