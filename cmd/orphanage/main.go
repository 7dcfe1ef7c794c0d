// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thenunner/orphanage/internal/api"
	"github.com/thenunner/orphanage/internal/buildinfo"
	"github.com/thenunner/orphanage/internal/config"
	"github.com/thenunner/orphanage/internal/logger"
	"github.com/thenunner/orphanage/internal/metrics"
	"github.com/thenunner/orphanage/internal/relate"
	"github.com/thenunner/orphanage/internal/scan"
)

func main() {
	var configDir string

	rootCmd := &cobra.Command{
		Use:           "orphanage",
		Short:         "Reconciles torrent daemons against the filesystem",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "path to the config directory")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Printf("orphanage %s (commit %s, built %s)\n", buildinfo.Version, buildinfo.Commit, buildinfo.Date)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the scan engine and HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(configDir)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(configDir string) error {
	appConfig, err := config.New(configDir)
	if err != nil {
		return err
	}

	cfg := appConfig.Get()
	logger.Setup(cfg)
	appConfig.Watch()

	log.Info().
		Str("version", buildinfo.Version).
		Str("commit", buildinfo.Commit).
		Msg("starting orphanage")

	var (
		registry  *prometheus.Registry
		collector *metrics.Collector
	)
	if cfg.MetricsEnabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		collector = metrics.NewCollector(registry)
	}

	supervisor := scan.NewSupervisor(scan.DefaultAdapterFactory, scan.WithMetrics(collector))
	matcher := relate.NewMatcher(scan.DefaultAdapterFactory)

	server := api.NewServer(api.Dependencies{
		Config:     appConfig,
		Supervisor: supervisor,
		Matcher:    matcher,
		Registry:   registry,
		Version:    buildinfo.Version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("host", cfg.Host).Int("port", cfg.Port).Msg("http server listening")
	if err := server.Serve(ctx); err != nil {
		return err
	}

	supervisor.Stop()
	supervisor.Wait()
	log.Info().Msg("shutdown complete")
	return nil
}
