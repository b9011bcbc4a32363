// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"fmt"

	"github.com/hjson/hjson-go/v4"
)

// HJSON is a koanf parser for HJSON documents. Plain JSON is valid HJSON.
type HJSON struct{}

// Unmarshal parses b into a nested map.
func (HJSON) Unmarshal(b []byte) (map[string]any, error) {
	var out map[string]any
	if len(bytes.TrimSpace(b)) == 0 {
		return map[string]any{}, nil
	}
	if err := hjson.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("parse hjson: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// Marshal renders m as HJSON.
func (HJSON) Marshal(m map[string]any) ([]byte, error) {
	return hjson.Marshal(m)
}
