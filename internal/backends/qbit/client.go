// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package qbit implements the backend adapter for qBittorrent's WebAPI on
// top of the go-qbittorrent client.
package qbit

import (
	"context"
	"strings"

	"github.com/Masterminds/semver/v3"
	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/thenunner/orphanage/internal/backends"
)

type Client struct {
	qbt           *qbt.Client
	host          string
	webAPIVersion string
}

func NewClient(url, user, password string) *Client {
	return &Client{
		qbt: qbt.NewClient(qbt.Config{
			Host:     strings.TrimRight(url, "/"),
			Username: user,
			Password: password,
			Timeout:  25,
		}),
		host: strings.TrimRight(url, "/"),
	}
}

func (c *Client) Name() string { return backends.NameQbit }

// Login authenticates and records the WebAPI version for diagnostics.
func (c *Client) Login(ctx context.Context) error {
	if err := c.qbt.LoginCtx(ctx); err != nil {
		return &backends.AuthError{Backend: backends.NameQbit, Err: err}
	}

	version, err := c.qbt.GetWebAPIVersionCtx(ctx)
	if err != nil {
		// Login succeeded; version fetch is best-effort.
		log.Debug().Err(err).Msg("qbit: could not read WebAPI version")
		return nil
	}
	c.webAPIVersion = version

	if v, err := semver.NewVersion(version); err == nil && v.LessThan(semver.MustParse("2.0.0")) {
		return &backends.AuthError{
			Backend: backends.NameQbit,
			Err:     errors.Errorf("unsupported WebAPI version %s", version),
		}
	}

	log.Debug().Str("host", c.host).Str("webAPIVersion", version).Msg("qbit: login ok")
	return nil
}

func (c *Client) Torrents(ctx context.Context, hashes []string) ([]backends.TorrentRecord, error) {
	torrents, err := c.qbt.GetTorrentsCtx(ctx, qbt.TorrentFilterOptions{Hashes: hashes})
	if err != nil {
		return nil, &backends.NetworkError{Backend: backends.NameQbit, Op: "torrents/info", Err: err}
	}

	records := make([]backends.TorrentRecord, 0, len(torrents))
	for i := range torrents {
		t := &torrents[i]
		records = append(records, backends.TorrentRecord{
			Backend:  backends.NameQbit,
			ID:       t.Hash,
			Name:     t.Name,
			Label:    t.Category,
			Tags:     splitTags(t.Tags),
			SavePath: t.SavePath,
		})
	}
	return records, nil
}

// splitTags splits qBittorrent's comma-separated tag string.
func splitTags(tags string) []string {
	if strings.TrimSpace(tags) == "" {
		return nil
	}
	parts := strings.Split(tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Client) Files(ctx context.Context, id string) ([]backends.FileEntry, error) {
	files, err := c.qbt.GetFilesInformationCtx(ctx, id)
	if err != nil {
		return nil, &backends.NetworkError{Backend: backends.NameQbit, Op: "torrents/files", Err: err}
	}
	if files == nil {
		return nil, nil
	}

	entries := make([]backends.FileEntry, 0, len(*files))
	for _, f := range *files {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			continue
		}
		entries = append(entries, backends.FileEntry{Path: name, Size: f.Size})
	}
	return entries, nil
}

func (c *Client) Trackers(ctx context.Context, id string) ([]backends.TrackerStatus, error) {
	trackers, err := c.qbt.GetTorrentTrackersCtx(ctx, id)
	if err != nil {
		return nil, &backends.NetworkError{Backend: backends.NameQbit, Op: "torrents/trackers", Err: err}
	}
	return convertTrackers(trackers), nil
}

func convertTrackers(trackers []qbt.TorrentTracker) []backends.TrackerStatus {
	statuses := make([]backends.TrackerStatus, 0, len(trackers))
	for _, tr := range trackers {
		// Skip the pseudo-entries for DHT/PEX/LSD.
		if strings.HasPrefix(tr.Url, "**") {
			continue
		}
		statuses = append(statuses, backends.TrackerStatus{
			URL:     tr.Url,
			Health:  trackerHealth(tr.Status),
			Message: strings.TrimSpace(tr.Message),
		})
	}
	return statuses
}

func trackerHealth(status qbt.TrackerStatus) backends.TrackerHealth {
	switch status {
	case qbt.TrackerStatusOK:
		return backends.TrackerWorking
	case qbt.TrackerStatusNotWorking:
		return backends.TrackerError
	default:
		return backends.TrackerUnknown
	}
}
