// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/thenunner/orphanage/internal/domain"
	"github.com/thenunner/orphanage/internal/logger"
)

// envPrefix carries a trailing underscore so variables read as
// ORPHANAGE__PORT, ORPHANAGE__QBITURL, and so on.
const envPrefix = "ORPHANAGE_"

// AppConfig loads, watches, and persists the TOML configuration. Values can
// be overridden with ORPHANAGE__ prefixed environment variables, e.g.
// ORPHANAGE__PORT or ORPHANAGE__QBIT_URL.
type AppConfig struct {
	v    *viper.Viper
	path string

	mu     sync.RWMutex
	config *domain.Config
}

func New(configPath string) (*AppConfig, error) {
	c := &AppConfig{
		v:      viper.New(),
		config: &domain.Config{},
	}

	c.defaults()

	c.v.SetEnvPrefix(envPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	c.v.AutomaticEnv()

	if err := c.load(configPath); err != nil {
		return nil, err
	}
	if err := c.unmarshal(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *AppConfig) defaults() {
	c.v.SetDefault("host", "0.0.0.0")
	c.v.SetDefault("port", 7474)
	c.v.SetDefault("logLevel", "INFO")
	c.v.SetDefault("logPath", "")
	c.v.SetDefault("logMaxSize", 50)
	c.v.SetDefault("logMaxBackups", 3)
	c.v.SetDefault("logsDir", "logs")
	c.v.SetDefault("metricsEnabled", false)

	c.v.SetDefault("enableDeluge", false)
	c.v.SetDefault("delugeUrl", "http://localhost:8112")
	c.v.SetDefault("delugePass", "")
	c.v.SetDefault("delugeTorrentFolder", "")
	c.v.SetDefault("delugePathIn", "")
	c.v.SetDefault("delugePathOut", "")

	c.v.SetDefault("enableQbit", false)
	c.v.SetDefault("qbitUrl", "http://localhost:8080")
	c.v.SetDefault("qbitUser", "")
	c.v.SetDefault("qbitPass", "")
	c.v.SetDefault("qbitTorrentFolder", "")
	c.v.SetDefault("qbitPathIn", "")
	c.v.SetDefault("qbitPathOut", "")
}

func (c *AppConfig) load(configPath string) error {
	if configPath != "" {
		if err := os.MkdirAll(configPath, 0o755); err != nil {
			return errors.Wrap(err, "create config dir")
		}
		c.path = filepath.Join(configPath, "config.toml")
		c.v.SetConfigFile(c.path)
	} else {
		c.v.SetConfigName("config")
		c.v.SetConfigType("toml")
		c.v.AddConfigPath(".")
		c.v.AddConfigPath("$HOME/.config/orphanage")
	}

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(errors.Cause(err)) {
			return errors.Wrap(err, "read config")
		}
		if c.path != "" {
			if err := c.v.SafeWriteConfigAs(c.path); err != nil {
				return errors.Wrap(err, "write default config")
			}
			log.Info().Str("path", c.path).Msg("wrote default config")
		}
	}
	if c.path == "" {
		c.path = c.v.ConfigFileUsed()
	}
	return nil
}

func (c *AppConfig) unmarshal() error {
	cfg := &domain.Config{}
	if err := c.v.Unmarshal(cfg); err != nil {
		return errors.Wrap(err, "unmarshal config")
	}

	c.mu.Lock()
	c.config = cfg
	c.mu.Unlock()
	return nil
}

// Watch reloads the config when the file changes on disk. Only dynamic
// settings take effect immediately; the HTTP listener keeps its address
// until restart.
func (c *AppConfig) Watch() {
	c.v.OnConfigChange(func(e fsnotify.Event) {
		if err := c.unmarshal(); err != nil {
			log.Error().Err(err).Msg("config reload failed")
			return
		}
		logger.SetLevel(c.Get().LogLevel)
		log.Debug().Str("event", e.Name).Msg("config reloaded")
	})
	c.v.WatchConfig()
}

// Get returns a snapshot of the current config.
func (c *AppConfig) Get() *domain.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cfg := *c.config
	return &cfg
}

// Update applies the given key/value pairs and persists them to the config
// file. Keys use the TOML names.
func (c *AppConfig) Update(values map[string]any) error {
	for k, v := range values {
		c.v.Set(k, v)
	}
	if err := c.v.WriteConfigAs(c.path); err != nil {
		return errors.Wrap(err, "write config")
	}
	if err := c.unmarshal(); err != nil {
		return err
	}
	logger.SetLevel(c.Get().LogLevel)
	return nil
}
