// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package qbit

import (
	"testing"

	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/stretchr/testify/assert"

	"github.com/thenunner/orphanage/internal/backends"
)

func TestSplitTags(t *testing.T) {
	t.Parallel()

	assert.Nil(t, splitTags(""))
	assert.Nil(t, splitTags("   "))
	assert.Equal(t, []string{"keep"}, splitTags("keep"))
	assert.Equal(t, []string{"keep", "archive"}, splitTags("keep, archive"))
	assert.Equal(t, []string{"a", "b"}, splitTags("a,,b, "))
}

func TestTrackerHealth(t *testing.T) {
	t.Parallel()

	assert.Equal(t, backends.TrackerWorking, trackerHealth(qbt.TrackerStatusOK))
	assert.Equal(t, backends.TrackerError, trackerHealth(qbt.TrackerStatusNotWorking))
	assert.Equal(t, backends.TrackerUnknown, trackerHealth(qbt.TrackerStatusDisabled))
	assert.Equal(t, backends.TrackerUnknown, trackerHealth(qbt.TrackerStatusNotContacted))
}

func TestConvertTrackers(t *testing.T) {
	t.Parallel()

	statuses := convertTrackers([]qbt.TorrentTracker{
		{Url: "** [DHT] **", Status: qbt.TrackerStatusDisabled},
		{Url: "https://tracker.example/announce", Status: qbt.TrackerStatusOK, Message: ""},
		{Url: "https://dead.example/announce", Status: qbt.TrackerStatusNotWorking, Message: " unregistered torrent "},
	})

	assert.Equal(t, []backends.TrackerStatus{
		{URL: "https://tracker.example/announce", Health: backends.TrackerWorking},
		{URL: "https://dead.example/announce", Health: backends.TrackerError, Message: "unregistered torrent"},
	}, statuses)
}
