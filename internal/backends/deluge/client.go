// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package deluge implements the backend adapter for the Deluge web UI
// JSON-RPC endpoint. Deluge has no per-tracker API; it exposes a single
// tracker_status string per torrent, which this adapter synthesizes into
// one TrackerStatus so the report-card phase stays backend-agnostic.
package deluge

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/thenunner/orphanage/internal/backends"
)

const defaultTimeout = 25 * time.Second

// updateUIFields is everything a scan needs in one web.update_ui round trip.
var updateUIFields = []string{
	"name", "save_path", "download_location", "files", "label",
	"tracker_status", "trackers",
}

type Client struct {
	base     string
	password string
	http     *http.Client

	mu sync.Mutex
	id int64

	// Snapshot of the last update_ui response, keyed by torrent id.
	// Files and Trackers serve from it so one enumeration does not cost
	// one RPC per torrent.
	snapMu   sync.RWMutex
	snapshot map[string]torrentState
}

type torrentState struct {
	files    []backends.FileEntry
	trackers []backends.TrackerStatus
}

func NewClient(url, password string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		base:     strings.TrimRight(url, "/"),
		password: password,
		http: &http.Client{
			Timeout: defaultTimeout,
			Jar:     jar,
		},
	}
}

func (c *Client) Name() string { return backends.NameDeluge }

type rpcRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
	ID     int64  `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
	ID     int64           `json:"id"`
}

func (c *Client) rpc(ctx context.Context, method string, params []any, result any) error {
	c.mu.Lock()
	c.id++
	id := c.id
	c.mu.Unlock()

	body, err := json.Marshal(rpcRequest{Method: method, Params: params, ID: id})
	if err != nil {
		return errors.Wrapf(err, "marshal %s request", method)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/json", bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "build %s request", method)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &backends.NetworkError{Backend: backends.NameDeluge, Op: method, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &backends.NetworkError{
			Backend: backends.NameDeluge,
			Op:      method,
			Err:     errors.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return &backends.NetworkError{Backend: backends.NameDeluge, Op: method, Err: err}
	}
	if len(rpcResp.Error) > 0 && string(rpcResp.Error) != "null" {
		return errors.Errorf("deluge rpc error on %s: %s", method, rpcResp.Error)
	}
	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return errors.Wrapf(err, "decode %s result", method)
		}
	}
	return nil
}

// Login authenticates the web session.
func (c *Client) Login(ctx context.Context) error {
	var ok bool
	if err := c.rpc(ctx, "auth.login", []any{c.password}, &ok); err != nil {
		// Transport failures stay network errors so callers can retry them;
		// only a reachable daemon saying no is an auth failure.
		var netErr *backends.NetworkError
		if errors.As(err, &netErr) {
			return err
		}
		return &backends.AuthError{Backend: backends.NameDeluge, Err: err}
	}
	if !ok {
		return &backends.AuthError{
			Backend: backends.NameDeluge,
			Err:     errors.New("auth.login returned false (check the password)"),
		}
	}
	log.Debug().Str("url", c.base).Msg("deluge: login ok")
	return nil
}

type rawTorrent struct {
	Name             string `json:"name"`
	SavePath         string `json:"save_path"`
	DownloadLocation string `json:"download_location"`
	Label            string `json:"label"`
	TrackerStatus    string `json:"tracker_status"`
	Files            []struct {
		Path string `json:"path"`
		Size int64  `json:"size"`
	} `json:"files"`
	Trackers []struct {
		URL string `json:"url"`
	} `json:"trackers"`
}

type updateUIResult struct {
	Torrents map[string]rawTorrent `json:"torrents"`
}

// Torrents enumerates all torrents via web.update_ui and refreshes the
// snapshot served by Files and Trackers.
func (c *Client) Torrents(ctx context.Context, hashes []string) ([]backends.TorrentRecord, error) {
	var res updateUIResult
	if err := c.rpc(ctx, "web.update_ui", []any{updateUIFields, map[string]any{}}, &res); err != nil {
		return nil, err
	}

	want := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		want[strings.ToLower(h)] = struct{}{}
	}

	snapshot := make(map[string]torrentState, len(res.Torrents))
	records := make([]backends.TorrentRecord, 0, len(res.Torrents))
	for id, t := range res.Torrents {
		snapshot[id] = toState(t)
		if len(want) > 0 {
			if _, ok := want[strings.ToLower(id)]; !ok {
				continue
			}
		}
		savePath := t.SavePath
		if savePath == "" {
			savePath = t.DownloadLocation
		}
		records = append(records, backends.TorrentRecord{
			Backend:  backends.NameDeluge,
			ID:       id,
			Name:     t.Name,
			Label:    t.Label,
			SavePath: savePath,
		})
	}

	c.snapMu.Lock()
	c.snapshot = snapshot
	c.snapMu.Unlock()

	log.Debug().Int("torrents", len(records)).Msg("deluge: enumerated torrents")
	return records, nil
}

func toState(t rawTorrent) torrentState {
	st := torrentState{}
	for _, f := range t.Files {
		st.files = append(st.files, backends.FileEntry{Path: f.Path, Size: f.Size})
	}
	status := strings.TrimSpace(t.TrackerStatus)
	if status != "" {
		url := ""
		if len(t.Trackers) > 0 {
			url = t.Trackers[0].URL
		}
		st.trackers = append(st.trackers, backends.TrackerStatus{
			URL:     url,
			Health:  trackerHealth(status),
			Message: status,
		})
	}
	return st
}

// trackerHealth maps Deluge's combined status string onto the shared
// tracker categories. Deluge reports strings like "Announce OK" or
// "Error: unregistered torrent".
func trackerHealth(status string) backends.TrackerHealth {
	low := strings.ToLower(status)
	switch {
	case strings.Contains(low, "announce ok"):
		return backends.TrackerWorking
	case strings.Contains(low, "error"):
		return backends.TrackerError
	default:
		return backends.TrackerUnknown
	}
}

func (c *Client) state(ctx context.Context, id string) (torrentState, bool, error) {
	c.snapMu.RLock()
	st, ok := c.snapshot[id]
	c.snapMu.RUnlock()
	if ok {
		return st, true, nil
	}
	// Snapshot miss: the torrent appeared after the last enumeration.
	if _, err := c.Torrents(ctx, nil); err != nil {
		return torrentState{}, false, err
	}
	c.snapMu.RLock()
	st, ok = c.snapshot[id]
	c.snapMu.RUnlock()
	return st, ok, nil
}

func (c *Client) Files(ctx context.Context, id string) ([]backends.FileEntry, error) {
	st, ok, err := c.state(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Errorf("deluge: unknown torrent %s", id)
	}
	return st.files, nil
}

func (c *Client) Trackers(ctx context.Context, id string) ([]backends.TrackerStatus, error) {
	st, ok, err := c.state(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Errorf("deluge: unknown torrent %s", id)
	}
	return st.trackers, nil
}
