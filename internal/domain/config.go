// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import "strings"

// Config represents the application configuration. The engine treats it as
// an opaque, already-validated input: immutable for the lifetime of a scan.
type Config struct {
	Host          string `toml:"host" mapstructure:"host" json:"host"`
	Port          int    `toml:"port" mapstructure:"port" json:"port"`
	LogLevel      string `toml:"logLevel" mapstructure:"logLevel" json:"logLevel"`
	LogPath       string `toml:"logPath" mapstructure:"logPath" json:"logPath"`
	LogMaxSize    int    `toml:"logMaxSize" mapstructure:"logMaxSize" json:"logMaxSize"`
	LogMaxBackups int    `toml:"logMaxBackups" mapstructure:"logMaxBackups" json:"logMaxBackups"`

	// LogsDir holds the per-(backend, phase) finding files.
	LogsDir string `toml:"logsDir" mapstructure:"logsDir" json:"logsDir"`

	MetricsEnabled bool `toml:"metricsEnabled" mapstructure:"metricsEnabled" json:"metricsEnabled"`

	EnableDeluge        bool   `toml:"enableDeluge" mapstructure:"enableDeluge" json:"enableDeluge"`
	DelugeURL           string `toml:"delugeUrl" mapstructure:"delugeUrl" json:"delugeUrl"`
	DelugePass          string `toml:"delugePass" mapstructure:"delugePass" json:"delugePass"`
	DelugeTorrentFolder string `toml:"delugeTorrentFolder" mapstructure:"delugeTorrentFolder" json:"delugeTorrentFolder"`
	DelugePathIn        string `toml:"delugePathIn" mapstructure:"delugePathIn" json:"delugePathIn"`
	DelugePathOut       string `toml:"delugePathOut" mapstructure:"delugePathOut" json:"delugePathOut"`

	EnableQbit        bool   `toml:"enableQbit" mapstructure:"enableQbit" json:"enableQbit"`
	QbitURL           string `toml:"qbitUrl" mapstructure:"qbitUrl" json:"qbitUrl"`
	QbitUser          string `toml:"qbitUser" mapstructure:"qbitUser" json:"qbitUser"`
	QbitPass          string `toml:"qbitPass" mapstructure:"qbitPass" json:"qbitPass"`
	QbitTorrentFolder string `toml:"qbitTorrentFolder" mapstructure:"qbitTorrentFolder" json:"qbitTorrentFolder"`
	QbitPathIn        string `toml:"qbitPathIn" mapstructure:"qbitPathIn" json:"qbitPathIn"`
	QbitPathOut       string `toml:"qbitPathOut" mapstructure:"qbitPathOut" json:"qbitPathOut"`
}

// BackendSettings is the per-backend slice of Config a phase executor needs.
type BackendSettings struct {
	Name          string
	TorrentFolder string
	PathIn        string
	PathOut       string
}

// EnabledBackends returns the enabled backends in the fixed scan order
// (Deluge first, then qBittorrent).
func (c *Config) EnabledBackends() []BackendSettings {
	var out []BackendSettings
	if c.EnableDeluge {
		out = append(out, BackendSettings{
			Name:          "deluge",
			TorrentFolder: c.DelugeTorrentFolder,
			PathIn:        c.DelugePathIn,
			PathOut:       c.DelugePathOut,
		})
	}
	if c.EnableQbit {
		out = append(out, BackendSettings{
			Name:          "qbit",
			TorrentFolder: c.QbitTorrentFolder,
			PathIn:        c.QbitPathIn,
			PathOut:       c.QbitPathOut,
		})
	}
	return out
}

// BackendEnabled reports whether the named backend is enabled.
func (c *Config) BackendEnabled(name string) bool {
	switch strings.ToLower(name) {
	case "deluge":
		return c.EnableDeluge
	case "qbit":
		return c.EnableQbit
	default:
		return false
	}
}
