// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenunner/orphanage/internal/backends"
	"github.com/thenunner/orphanage/internal/domain"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func workingTracker() []backends.TrackerStatus {
	return []backends.TrackerStatus{{URL: "https://tracker.example/announce", Health: backends.TrackerWorking}}
}

// One qbit torrent owns movie.mkv (present) and missing.srt (gone); a stray
// extra.nfo sits next to it. The scan must report exactly the stray as an
// orphan and exactly the gone file as a runaway.
func TestScanEndToEnd(t *testing.T) {
	dataDir := t.TempDir()
	logsDir := t.TempDir()

	movie := filepath.Join("Some.Movie.2021.1080p.BluRay", "movie.mkv")
	writeFile(t, filepath.Join(dataDir, movie))
	writeFile(t, filepath.Join(dataDir, "extra.nfo"))

	adapter := &fakeAdapter{
		name: backends.NameQbit,
		torrents: []backends.TorrentRecord{{
			Backend:  backends.NameQbit,
			ID:       "h1",
			Name:     "Some.Movie.2021.1080p.BluRay",
			Label:    "movies",
			SavePath: dataDir,
		}},
		files: map[string][]backends.FileEntry{
			"h1": {
				{Path: movie, Size: 1},
				{Path: filepath.Join("Some.Movie.2021.1080p.BluRay", "missing.srt"), Size: 1},
			},
		},
		trackers: map[string][]backends.TrackerStatus{"h1": workingTracker()},
	}

	cfg := &domain.Config{
		EnableQbit:        true,
		QbitTorrentFolder: dataDir,
		LogsDir:           logsDir,
	}

	s := NewSupervisor(fakeFactory(adapter))
	require.NoError(t, s.Start(cfg))
	s.Wait()

	status := s.Status()
	assert.False(t, status.Running)
	assert.Empty(t, status.LastError)
	assert.NotEmpty(t, status.LastTimestamp)
	assert.Equal(t, IdleProgress, status.Progress)

	orphans, err := ReadLines(OutputPath(logsDir, backends.NameQbit, PhaseOrphans))
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.True(t, strings.HasSuffix(orphans[0], "extra.nfo"))
	assert.NotContains(t, orphans[0], "|")

	runaways, err := ReadLines(OutputPath(logsDir, backends.NameQbit, PhaseRunaways))
	require.NoError(t, err)
	require.Len(t, runaways, 1)
	attr, path, err := ParseAttributedLine(runaways[0])
	require.NoError(t, err)
	assert.Equal(t, "h1", attr.TorrentID)
	assert.True(t, strings.HasSuffix(path, "missing.srt"))

	cards, err := ReadLines(OutputPath(logsDir, backends.NameQbit, PhaseReportCards))
	require.NoError(t, err)
	assert.Empty(t, cards)
}

// A file owned by deluge but sitting under qbit's folder must come out of
// qbit's orphan walk attributed to the deluge torrent, not bare.
func TestScanAttributesCrossBackendOrphans(t *testing.T) {
	dataDir := t.TempDir()
	logsDir := t.TempDir()

	shared := filepath.Join(dataDir, "shared.mkv")
	writeFile(t, shared)

	delugeAdapter := &fakeAdapter{
		name: backends.NameDeluge,
		torrents: []backends.TorrentRecord{{
			Backend:  backends.NameDeluge,
			ID:       "d1",
			Name:     "shared",
			Label:    "cross",
			SavePath: dataDir,
		}},
		files: map[string][]backends.FileEntry{
			"d1": {{Path: "shared.mkv", Size: 1}},
		},
		trackers: map[string][]backends.TrackerStatus{"d1": workingTracker()},
	}
	qbitAdapter := &fakeAdapter{name: backends.NameQbit}

	cfg := &domain.Config{
		EnableDeluge:        true,
		DelugeTorrentFolder: t.TempDir(),
		EnableQbit:          true,
		QbitTorrentFolder:   dataDir,
		LogsDir:             logsDir,
	}

	s := NewSupervisor(fakeFactory(delugeAdapter, qbitAdapter))
	require.NoError(t, s.Start(cfg))
	s.Wait()
	require.Empty(t, s.Status().LastError)

	// deluge owns the file, so its own section is clean
	delugeOrphans, err := ReadLines(OutputPath(logsDir, backends.NameDeluge, PhaseOrphans))
	require.NoError(t, err)
	assert.Empty(t, delugeOrphans)

	qbitOrphans, err := ReadLines(OutputPath(logsDir, backends.NameQbit, PhaseOrphans))
	require.NoError(t, err)
	require.Len(t, qbitOrphans, 1)
	attr, path, err := ParseAttributedLine(qbitOrphans[0])
	require.NoError(t, err)
	assert.Equal(t, backends.NameDeluge, attr.Backend)
	assert.Equal(t, "d1", attr.TorrentID)
	assert.True(t, strings.HasSuffix(path, "shared.mkv"))
}

func TestScanReportCardWritten(t *testing.T) {
	logsDir := t.TempDir()

	adapter := &fakeAdapter{
		name: backends.NameQbit,
		torrents: []backends.TorrentRecord{{
			Backend:  backends.NameQbit,
			ID:       "h1",
			Name:     "Dead.Torrent",
			Label:    "misc",
			SavePath: "/downloads",
		}},
		trackers: map[string][]backends.TrackerStatus{
			"h1": {{URL: "https://tracker.example/announce", Health: backends.TrackerError, Message: "unregistered torrent"}},
		},
	}

	cfg := &domain.Config{
		EnableQbit:        true,
		QbitTorrentFolder: t.TempDir(),
		LogsDir:           logsDir,
	}

	s := NewSupervisor(fakeFactory(adapter))
	require.NoError(t, s.Start(cfg))
	s.Wait()
	require.Empty(t, s.Status().LastError)

	cards, err := ReadLines(OutputPath(logsDir, backends.NameQbit, PhaseReportCards))
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "qbit|h1|Dead.Torrent|misc||unregistered torrent|/downloads", cards[0])
}

func TestStartRejectsNoBackends(t *testing.T) {
	t.Parallel()

	s := NewSupervisor(fakeFactory())
	err := s.Start(&domain.Config{LogsDir: t.TempDir()})
	assert.ErrorIs(t, err, ErrNoBackendsEnabled)
}

func TestStartRejectsConcurrentRuns(t *testing.T) {
	adapter := &fakeAdapter{name: backends.NameQbit, blockTorrents: true}
	cfg := &domain.Config{
		EnableQbit:        true,
		QbitTorrentFolder: t.TempDir(),
		LogsDir:           t.TempDir(),
	}

	s := NewSupervisor(fakeFactory(adapter))
	require.NoError(t, s.Start(cfg))
	assert.ErrorIs(t, s.Start(cfg), ErrScanInProgress)

	s.Stop()
	s.Wait()

	status := s.Status()
	assert.False(t, status.Running)
	assert.Empty(t, status.LastError)
	assert.Equal(t, IdleProgress, status.Progress)

	// idle again, so a new run is accepted
	adapter.blockTorrents = false
	require.NoError(t, s.Start(cfg))
	s.Wait()
}

func TestWatchdogCancelsWedgedRun(t *testing.T) {
	adapter := &fakeAdapter{name: backends.NameQbit, blockTorrents: true}
	cfg := &domain.Config{
		EnableQbit:        true,
		QbitTorrentFolder: t.TempDir(),
		LogsDir:           t.TempDir(),
	}

	s := NewSupervisor(fakeFactory(adapter), WithWatchdogTimeout(50*time.Millisecond))
	require.NoError(t, s.Start(cfg))
	s.Wait()

	status := s.Status()
	assert.False(t, status.Running)
	assert.Empty(t, status.LastError)
}

func TestAuthFailureFailsRun(t *testing.T) {
	adapter := &fakeAdapter{
		name:     backends.NameQbit,
		loginErr: &backends.AuthError{Backend: backends.NameQbit, Err: os.ErrPermission},
	}
	cfg := &domain.Config{
		EnableQbit:        true,
		QbitTorrentFolder: t.TempDir(),
		LogsDir:           t.TempDir(),
	}

	s := NewSupervisor(fakeFactory(adapter))
	require.NoError(t, s.Start(cfg))
	s.Wait()

	status := s.Status()
	assert.False(t, status.Running)
	assert.NotEmpty(t, status.LastError)
	assert.Empty(t, status.LastTimestamp)
}

func TestFileListingFailureTreatedAsEmpty(t *testing.T) {
	dataDir := t.TempDir()
	logsDir := t.TempDir()
	writeFile(t, filepath.Join(dataDir, "owned.mkv"))

	adapter := &fakeAdapter{
		name: backends.NameQbit,
		torrents: []backends.TorrentRecord{{
			Backend:  backends.NameQbit,
			ID:       "h1",
			Name:     "Broken",
			SavePath: dataDir,
		}},
		filesErr: map[string]error{"h1": os.ErrDeadlineExceeded},
		trackers: map[string][]backends.TrackerStatus{"h1": workingTracker()},
	}

	cfg := &domain.Config{
		EnableQbit:        true,
		QbitTorrentFolder: dataDir,
		LogsDir:           logsDir,
	}

	s := NewSupervisor(fakeFactory(adapter))
	require.NoError(t, s.Start(cfg))
	s.Wait()
	require.Empty(t, s.Status().LastError)

	// with zero owned files, everything on disk is an orphan
	orphans, err := ReadLines(OutputPath(logsDir, backends.NameQbit, PhaseOrphans))
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.True(t, strings.HasSuffix(orphans[0], "owned.mkv"))
}
