// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scan

import (
	"context"

	"github.com/thenunner/orphanage/internal/backends"
	"github.com/thenunner/orphanage/internal/domain"
)

type fakeAdapter struct {
	name     string
	torrents []backends.TorrentRecord
	files    map[string][]backends.FileEntry
	trackers map[string][]backends.TrackerStatus

	loginErr    error
	torrentsErr error
	filesErr    map[string]error

	// blockTorrents makes Torrents hang until the context is cancelled.
	blockTorrents bool
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Login(_ context.Context) error { return f.loginErr }

func (f *fakeAdapter) Torrents(ctx context.Context, hashes []string) ([]backends.TorrentRecord, error) {
	if f.blockTorrents {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.torrentsErr != nil {
		return nil, f.torrentsErr
	}
	if len(hashes) == 0 {
		return f.torrents, nil
	}
	want := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		want[h] = struct{}{}
	}
	var out []backends.TorrentRecord
	for _, t := range f.torrents {
		if _, ok := want[t.ID]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeAdapter) Files(_ context.Context, id string) ([]backends.FileEntry, error) {
	if err := f.filesErr[id]; err != nil {
		return nil, err
	}
	return f.files[id], nil
}

func (f *fakeAdapter) Trackers(_ context.Context, id string) ([]backends.TrackerStatus, error) {
	return f.trackers[id], nil
}

func fakeFactory(adapters ...*fakeAdapter) backends.Factory {
	return func(_ *domain.Config) map[string]backends.Adapter {
		out := make(map[string]backends.Adapter, len(adapters))
		for _, a := range adapters {
			out[a.name] = a
		}
		return out
	}
}
