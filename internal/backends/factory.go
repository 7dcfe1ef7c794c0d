// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package backends

import "github.com/thenunner/orphanage/internal/domain"

// Factory builds adapters for the backends a config enables, keyed by
// backend name. Injected so scans and relationship lookups can run against
// fakes in tests.
type Factory func(cfg *domain.Config) map[string]Adapter
