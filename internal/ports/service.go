// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package ports

import "strings"

// serviceMarkers are monorepo directories whose child names a service, in
// priority order.
var serviceMarkers = []string{"apps", "packages"}

// InferService guesses a display name for the service running in cwd:
// the directory after the last "apps" segment, else after the last
// "packages" segment, else the last segment. It returns "" for an empty cwd.
//
//	/home/u/wt/main/apps/website -> website
//	/a/b/packages/core           -> core
//	/a/b/c                       -> c
func InferService(cwd string) string {
	parts := strings.FieldsFunc(cwd, func(r rune) bool { return r == '/' || r == '\\' })
	if len(parts) == 0 {
		return ""
	}
	for _, marker := range serviceMarkers {
		if i := lastIndex(parts, marker); i >= 0 && i < len(parts)-1 {
			return parts[i+1]
		}
	}
	return parts[len(parts)-1]
}

func lastIndex(parts []string, s string) int {
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] == s {
			return i
		}
	}
	return -1
}
