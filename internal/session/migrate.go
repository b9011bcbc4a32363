// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// LegacyDocument is the shape accepted on load: the current document plus
// the global selection fields that older versions kept at the root.
// It is consumed only by Migrate.
type LegacyDocument struct {
	Document
	ActiveWorktreeID json.RawMessage `json:"activeWorktreeId,omitempty"`
	ActiveTabGroupID json.RawMessage `json:"activeTabGroupId,omitempty"`
	ActiveTabID      json.RawMessage `json:"activeTabId,omitempty"`
}

// HasGlobalSelection reports whether any root-level selection field is present.
func (l *LegacyDocument) HasGlobalSelection() bool {
	return len(l.ActiveWorktreeID) > 0 || len(l.ActiveTabGroupID) > 0 || len(l.ActiveTabID) > 0
}

// globalSelection decodes the root-level triple. Each field must be a
// string or null; anything else is reported as an error.
func (l *LegacyDocument) globalSelection() (Selection, error) {
	var sel Selection
	fields := []struct {
		name string
		raw  json.RawMessage
		dst  **string
	}{
		{"activeWorktreeId", l.ActiveWorktreeID, &sel.WorktreeID},
		{"activeTabGroupId", l.ActiveTabGroupID, &sel.TabGroupID},
		{"activeTabId", l.ActiveTabID, &sel.TabID},
	}
	for _, f := range fields {
		if len(f.raw) == 0 || bytes.Equal(bytes.TrimSpace(f.raw), []byte("null")) {
			continue
		}
		var s string
		if err := json.Unmarshal(f.raw, &s); err != nil {
			return Selection{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = StringPtr(s)
	}
	return sel, nil
}

// rawSelection returns the root-level fields that are present, verbatim.
func (l *LegacyDocument) rawSelection() map[string]json.RawMessage {
	raw := make(map[string]json.RawMessage, 3)
	for name, v := range map[string]json.RawMessage{
		"activeWorktreeId": l.ActiveWorktreeID,
		"activeTabGroupId": l.ActiveTabGroupID,
		"activeTabId":      l.ActiveTabID,
	} {
		if len(v) > 0 {
			raw[name] = v
		}
	}
	return raw
}

// MigrationResult describes what Migrate did.
type MigrationResult struct {
	// LegacySelection is true when root-level selection fields were found
	// and removed.
	LegacySelection bool
	// AppliedTo names the workspace that received the legacy selection.
	AppliedTo string
	// Skipped explains why a found legacy selection was not applied.
	Skipped string
}

// Changed reports whether migration altered the document.
func (r MigrationResult) Changed() bool {
	return r.LegacySelection
}

// Migrate upgrades a legacy document to the current per-workspace selection
// shape. The global triple is moved onto the workspace named by
// lastOpenedWorkspaceId, overwriting that workspace's own selection. Without a
// last-opened workspace the triple is dropped. A triple holding a value that
// is neither a string nor null is left at the root untouched. Missing
// per-workspace fields decode as nil. Running Migrate on an already migrated document is a no-op.
func Migrate(legacy *LegacyDocument) (*Document, MigrationResult) {
	var res MigrationResult
	doc := legacy.Document.Clone()

	if legacy.HasGlobalSelection() {
		res.LegacySelection = true
		switch target := StringValue(doc.LastOpenedWorkspaceID); {
		case target == "":
			res.Skipped = "no last opened workspace"
		default:
			sel, err := legacy.globalSelection()
			if err != nil {
				res.Skipped = "unrecognized selection value: " + err.Error()
				doc.UnmigratedSelection = legacy.rawSelection()
				break
			}
			ws := doc.Workspace(target)
			if ws == nil {
				res.Skipped = "last opened workspace " + target + " does not exist"
				break
			}
			ws.SetSelection(sel)
			res.AppliedTo = target
		}
	}

	doc.Normalize()
	return doc, res
}

// Decode parses a session file and returns the migrated document.
func Decode(data []byte) (*Document, MigrationResult, error) {
	var legacy LegacyDocument
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, MigrationResult{}, fmt.Errorf("parse session: %w", err)
	}
	doc, res := Migrate(&legacy)
	return doc, res, nil
}

// Encode serializes a document in the canonical on-disk form.
func Encode(doc *Document) ([]byte, error) {
	out := doc.Clone()
	out.Normalize()
	var v any = out
	if raw := out.UnmigratedSelection; len(raw) > 0 {
		v = &LegacyDocument{
			Document:         *out,
			ActiveWorktreeID: raw["activeWorktreeId"],
			ActiveTabGroupID: raw["activeTabGroupId"],
			ActiveTabID:      raw["activeTabId"],
		}
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	return data, nil
}
