package service

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ram-shortage/brindex/pkg/catalog"
	"github.com/ram-shortage/brindex/pkg/config"
	"github.com/ram-shortage/brindex/pkg/log"
	"github.com/ram-shortage/brindex/pkg/metrics"
	"github.com/ram-shortage/brindex/pkg/orchestrator"
	"github.com/ram-shortage/brindex/pkg/reconciler"
	"github.com/ram-shortage/brindex/pkg/types"
	"github.com/ram-shortage/brindex/pkg/usn"
	"github.com/ram-shortage/brindex/pkg/watcher"
)

// stopGrace bounds how long Shutdown waits for any single worker to
// stop before logging and moving on to the next step.
const stopGrace = 10 * time.Second

// Shell owns the catalog and every background worker, and is the only
// thing allowed to close the shared shutdown channel.
type Shell struct {
	cfg    *config.Config
	logger zerolog.Logger

	store      catalog.Store
	monitors   []*usn.Monitor
	reconciler *reconciler.Reconciler
	router     *watcher.Router
	watcher    *watcher.Watcher

	httpServer *http.Server
	collector  *metrics.Collector

	shutdown chan struct{}
}

// NewShell creates a Shell over the already-loaded config. cfg is not
// copied; Load's defaults must already be applied.
func NewShell(cfg *config.Config) *Shell {
	return &Shell{
		cfg:      cfg,
		logger:   log.WithComponent("service"),
		shutdown: make(chan struct{}),
	}
}

// Done returns the shared shutdown channel; workers started outside the
// Shell (e.g. a signal handler in main) can select on it too.
func (s *Shell) Done() <-chan struct{} {
	return s.shutdown
}

// Start runs the documented startup sequence: create the data directory,
// open the catalog, run the initial orchestration pass, start one USN
// Monitor per NTFS volume (resuming stored position where present),
// start the FAT Reconciler, then the Volume Watcher. The Event Router
// has no dedicated thread of its own; it is invoked synchronously from
// the Watcher's message-pump thread, so there is no separate step to
// start it here.
func (s *Shell) Start(ctx context.Context, metricsAddr string) error {
	if err := os.MkdirAll(s.cfg.General.DataDir, 0o755); err != nil {
		return fmt.Errorf("service: create data dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(s.cfg.General.DataDir, "logs"), 0o755); err != nil {
		return fmt.Errorf("service: create log dir: %w", err)
	}

	store, err := catalog.Open(filepath.Join(s.cfg.General.DataDir, "index.db"))
	if err != nil {
		return fmt.Errorf("service: open catalog: %w", err)
	}
	s.store = store
	metrics.RegisterComponent("catalog", true, "")

	s.logger.Info().Msg("starting initial orchestration pass")
	n, err := orchestrator.Run(ctx, s.store, s.cfg, s.shutdown)
	if err != nil {
		metrics.RegisterComponent("orchestrator", false, err.Error())
		s.logger.Error().Err(err).Msg("initial orchestration pass failed")
	} else {
		metrics.RegisterComponent("orchestrator", true, "")
		s.logger.Info().Int("indexed", n).Msg("initial orchestration pass complete")
	}

	if err := s.startUSNMonitors(ctx); err != nil {
		return err
	}

	s.reconciler = reconciler.New(s.store, s.cfg.General.OfflineRetentionDays)
	if vols, err := s.store.ListVolumes(ctx); err == nil {
		for _, v := range vols {
			if v.FilesystemKind != types.FilesystemNTFS && s.cfg.Enabled(v.DriveLetter) {
				s.reconciler.Track(v.DriveLetter, s.cfg.ReconcileInterval(v.DriveLetter))
			}
		}
	}
	s.reconciler.Start()

	s.router = watcher.NewRouter(s.store)
	s.watcher = watcher.New(s.router)
	if err := s.watcher.Start(ctx); err != nil {
		return fmt.Errorf("service: start volume watcher: %w", err)
	}

	s.collector = metrics.NewCollector(s.store)
	s.collector.Start()
	s.startMetricsServer(metricsAddr)

	s.logger.Info().Msg("brindex running")
	return nil
}

func (s *Shell) startUSNMonitors(ctx context.Context) error {
	vols, err := s.store.ListVolumes(ctx)
	if err != nil {
		return fmt.Errorf("service: list volumes for usn monitors: %w", err)
	}
	for _, v := range vols {
		if v.FilesystemKind != types.FilesystemNTFS || !s.cfg.Enabled(v.DriveLetter) {
			continue
		}

		var mon *usn.Monitor
		var err error
		if v.USNJournalID != 0 {
			mon, err = usn.Resume(v.DriveLetter, v.ID, s.store, v.LastUSN, v.USNJournalID, s.cfg.UsnPollInterval())
		} else {
			mon, err = usn.New(v.DriveLetter, v.ID, s.store, s.cfg.UsnPollInterval())
		}
		if err != nil {
			s.logger.Error().Err(err).Str("drive_letter", v.DriveLetter).Msg("failed to start usn monitor")
			continue
		}
		mon.Start(ctx)
		s.monitors = append(s.monitors, mon)
	}
	return nil
}

func (s *Shell) startMetricsServer(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", metrics.HealthHandler())
	mux.HandleFunc("/ready", metrics.ReadyHandler())
	mux.HandleFunc("/live", metrics.LivenessHandler())

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("metrics server stopped unexpectedly")
		}
	}()
}

// Shutdown runs the documented shutdown sequence in reverse of Start,
// broadcasting the shutdown signal first so every worker's own poll
// loop starts unwinding concurrently with the explicit Stop() calls
// below.
func (s *Shell) Shutdown() {
	select {
	case <-s.shutdown:
		return
	default:
		close(s.shutdown)
	}

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), stopGrace)
		_ = s.httpServer.Shutdown(ctx)
		cancel()
	}
	if s.collector != nil {
		s.collector.Stop()
	}

	s.stopWithGrace("watcher", func() {
		if s.watcher != nil {
			s.watcher.Stop()
		}
	})
	s.stopWithGrace("reconciler", func() {
		if s.reconciler != nil {
			s.reconciler.Stop()
		}
	})
	for _, m := range s.monitors {
		mon := m
		s.stopWithGrace("usn-monitor", mon.Stop)
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error().Err(err).Msg("failed to close catalog store")
		}
	}

	s.logger.Info().Msg("brindex stopped")
}

func (s *Shell) stopWithGrace(name string, stop func()) {
	done := make(chan struct{})
	go func() {
		stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopGrace):
		s.logger.Warn().Str("worker", name).Msg("worker did not stop within grace period, continuing shutdown")
	}
}
