// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scan

import "strings"

// transientTrackerErrors are tracker failure fragments that resolve on their
// own and must not put a torrent on a report card.
var transientTrackerErrors = []string{
	"bad gateway",
	"overloaded",
	"maintenance",
	"stream truncated",
	"timed out",
	"timeout",
	"rate limit",
	"service unavailable",
	"temporarily unavailable",
	"could not resolve host",
}

// isTransientTrackerError reports whether a tracker error message matches
// the transient vocabulary, case-insensitively.
func isTransientTrackerError(msg string) bool {
	lower := strings.ToLower(msg)
	for _, frag := range transientTrackerErrors {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}
