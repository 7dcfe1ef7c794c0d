// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scan

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/thenunner/orphanage/internal/backends"
	"github.com/thenunner/orphanage/internal/domain"
	"github.com/thenunner/orphanage/internal/metrics"
)

// ErrScanInProgress is returned when a scan is requested while one is
// already running.
var ErrScanInProgress = errors.New("a scan is already in progress")

// DefaultWatchdogTimeout caps how long a run may take before it is
// cancelled the same way an operator stop would cancel it.
const DefaultWatchdogTimeout = 5 * time.Minute

// Status is what the API reports about the engine.
type Status struct {
	Running       bool     `json:"running"`
	Progress      Progress `json:"progress"`
	LastError     string   `json:"lastError,omitempty"`
	LastTimestamp string   `json:"timestamp,omitempty"`
}

// Supervisor owns the single active scan. Start rejects concurrent runs,
// Stop cancels cooperatively, and a watchdog kills runs that wedge.
type Supervisor struct {
	factory  backends.Factory
	timeout  time.Duration
	metrics  *metrics.Collector
	progress *ProgressTracker

	mu            sync.Mutex
	running       bool
	cancel        context.CancelFunc
	done          chan struct{}
	lastError     string
	lastTimestamp string
}

type SupervisorOption func(*Supervisor)

// WithWatchdogTimeout overrides the default run deadline.
func WithWatchdogTimeout(d time.Duration) SupervisorOption {
	return func(s *Supervisor) { s.timeout = d }
}

// WithMetrics attaches a metrics collector to runs.
func WithMetrics(c *metrics.Collector) SupervisorOption {
	return func(s *Supervisor) { s.metrics = c }
}

func NewSupervisor(factory backends.Factory, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		factory:  factory,
		timeout:  DefaultWatchdogTimeout,
		progress: NewProgressTracker(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches a scan against a snapshot of the given config. It returns
// ErrScanInProgress if a run is active and ErrNoBackendsEnabled if there is
// nothing to scan.
func (s *Supervisor) Start(cfg *domain.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrScanInProgress
	}
	if len(cfg.EnabledBackends()) == 0 {
		return ErrNoBackendsEnabled
	}

	snapshot := *cfg
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)

	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})
	s.progress.Reset()
	s.progress.Set(1, 1, "starting", 0)

	if s.metrics != nil {
		s.metrics.ScanStarted()
	}

	go s.run(ctx, cancel, &snapshot)
	return nil
}

func (s *Supervisor) run(ctx context.Context, cancel context.CancelFunc, cfg *domain.Config) {
	defer cancel()

	runner := NewRunner(cfg, s.factory(cfg), s.progress, s.metrics)
	err := runner.Run(ctx)

	outcome := "completed"
	var lastError string
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		outcome = "cancelled"
		log.Info().Msg("scan cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "cancelled"
		log.Warn().Dur("timeout", s.timeout).Msg("scan hit the watchdog deadline")
	default:
		outcome = "failed"
		lastError = err.Error()
		log.Error().Err(err).Msg("scan failed")
	}

	if s.metrics != nil {
		s.metrics.ScanFinished(outcome)
	}

	s.mu.Lock()
	s.running = false
	s.cancel = nil
	s.lastError = lastError
	if outcome == "completed" {
		s.lastTimestamp = time.Now().Format("2006-01-02 15:04:05")
	}
	s.progress.Reset()
	close(s.done)
	s.mu.Unlock()
}

// Stop cancels the active run, if any. Safe to call at any time.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		log.Info().Msg("stop requested")
		cancel()
	}
}

// Wait blocks until the active run ends. A no-op when idle.
func (s *Supervisor) Wait() {
	s.mu.Lock()
	done := s.done
	running := s.running
	s.mu.Unlock()

	if running && done != nil {
		<-done
	}
}

func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{
		Running:       s.running,
		Progress:      s.progress.Snapshot(),
		LastError:     s.lastError,
		LastTimestamp: s.lastTimestamp,
	}
}
