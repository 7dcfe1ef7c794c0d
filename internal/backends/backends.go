// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package backends defines the capability contract a torrent daemon must
// expose to the scan engine. Wire protocols live in the per-daemon
// subpackages; retry policy lives in the engine, never in an adapter.
package backends

import (
	"context"
	"fmt"
)

// Backend identifiers as they appear in config, output files, and findings.
const (
	NameDeluge = "deluge"
	NameQbit   = "qbit"
)

// TrackerHealth categorizes a tracker's announce state.
type TrackerHealth int

const (
	TrackerUnknown TrackerHealth = iota
	TrackerWorking
	TrackerError
)

// TorrentRecord is a fresh snapshot of one torrent. Records are produced
// per phase and never cached across phases; client state can change between
// phases.
type TorrentRecord struct {
	Backend  string
	ID       string
	Name     string
	Label    string
	Tags     []string
	SavePath string
}

// FileEntry is a file within a torrent, relative to the torrent's save path.
type FileEntry struct {
	Path string
	Size int64
}

// TrackerStatus is one tracker's announce state with an optional message.
type TrackerStatus struct {
	URL     string
	Health  TrackerHealth
	Message string
}

// Adapter is the capability contract implemented once per torrent daemon.
type Adapter interface {
	// Name returns the backend identifier (NameDeluge or NameQbit).
	Name() string

	// Login authenticates against the daemon. Bad credentials or an
	// unreachable host fail with *AuthError.
	Login(ctx context.Context) error

	// Torrents enumerates torrents, optionally filtered by id/hash.
	Torrents(ctx context.Context, hashes []string) ([]TorrentRecord, error)

	// Files enumerates the files of one torrent.
	Files(ctx context.Context, id string) ([]FileEntry, error)

	// Trackers enumerates the trackers of one torrent.
	Trackers(ctx context.Context, id string) ([]TrackerStatus, error)
}

// AuthError indicates the daemon rejected credentials or could not be
// reached during login.
type AuthError struct {
	Backend string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %v", e.Backend, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NetworkError indicates a transport failure on any adapter operation.
type NetworkError struct {
	Backend string
	Op      string
	Err     error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
