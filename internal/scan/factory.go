// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scan

import (
	"github.com/thenunner/orphanage/internal/backends"
	"github.com/thenunner/orphanage/internal/backends/deluge"
	"github.com/thenunner/orphanage/internal/backends/qbit"
	"github.com/thenunner/orphanage/internal/domain"
)

// DefaultAdapterFactory builds live adapters for every enabled backend.
// Adapters are created fresh per run so stale sessions never leak between
// scans.
func DefaultAdapterFactory(cfg *domain.Config) map[string]backends.Adapter {
	adapters := make(map[string]backends.Adapter)
	if cfg.EnableDeluge {
		adapters[backends.NameDeluge] = deluge.NewClient(cfg.DelugeURL, cfg.DelugePass)
	}
	if cfg.EnableQbit {
		adapters[backends.NameQbit] = qbit.NewClient(cfg.QbitURL, cfg.QbitUser, cfg.QbitPass)
	}
	return adapters
}
