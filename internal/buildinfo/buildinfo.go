// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package buildinfo holds build-time version metadata, injected with
// -ldflags at release time.
package buildinfo

var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)
