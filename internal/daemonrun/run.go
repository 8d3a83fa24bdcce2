package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"vidaq/internal/artifacts"
	"vidaq/internal/catalog"
	"vidaq/internal/config"
	"vidaq/internal/deps"
	"vidaq/internal/gateway"
	"vidaq/internal/ingest"
	"vidaq/internal/logging"
	"vidaq/internal/metrics"
	"vidaq/internal/playback"
	"vidaq/internal/preflight"
	"vidaq/internal/services"
	"vidaq/internal/staging"
	"vidaq/internal/transcode"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Hour
)

// Options configures server process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Engine replaces the ffmpeg engine; dependency checks are skipped when set.
	Engine transcode.Engine
}

// Instance is a running vidaq server.
type Instance struct {
	logger  *slog.Logger
	lock    *flock.Flock
	store   *catalog.Store
	gateway *gateway.Server
	cancel  context.CancelFunc
	done    chan struct{}
}

// Run starts the server and blocks until SIGINT, SIGTERM or ctx cancellation.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("vidaq-%s.log", runID))
	logger, err := logging.New(logging.Options{
		Level:       firstNonEmpty(opts.LogLevel, cfg.Logging.Level),
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := logging.UpdateCurrentLink(cfg.Paths.LogDir, "vidaq.log", logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update vidaq.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "vidaq-*.log", Exclude: []string{logPath}},
	)

	inst, err := Start(signalCtx, cfg, logger, opts)
	if err != nil {
		logger.Error("vidaq server failed to start", logging.Error(err))
		return err
	}

	<-signalCtx.Done()
	logger.Info("vidaq server shutting down")
	inst.Stop()
	return nil
}

// Start acquires the instance lock and brings up the catalog, engine,
// services and HTTP gateway.
func Start(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*Instance, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return nil, errors.New("another vidaq server instance is already running")
	}
	release := func() { _ = lock.Unlock() }

	if failed := preflight.Failed(preflight.RunAll(ctx, cfg)); len(failed) > 0 {
		release()
		return nil, services.Wrap(services.ErrConfiguration, "daemonrun", "preflight",
			fmt.Sprintf("%s: %s", failed[0].Name, failed[0].Detail), nil)
	}

	engine := opts.Engine
	if engine == nil {
		statuses := preflight.CheckSystemDeps(ctx, cfg)
		logDependencySnapshot(logger, statuses)
		if missing := deps.MissingRequired(statuses); len(missing) > 0 {
			release()
			return nil, services.Wrap(services.ErrConfiguration, "daemonrun", "dependencies",
				fmt.Sprintf("%s unavailable: %s", missing[0].Name, missing[0].Detail), nil)
		}
		engine = transcode.NewFFmpeg(
			transcode.WithBinaries(cfg.Transcode.FFmpegBinary, cfg.Transcode.FFprobeBinary),
			transcode.WithSegmentSeconds(cfg.Transcode.SegmentSeconds),
			transcode.WithLogger(logger),
		)
	}

	store, err := catalog.Open(cfg)
	if err != nil {
		release()
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	meters := metrics.New(registry)

	coordinator := ingest.New(cfg, store, engine,
		ingest.WithLogger(logger),
		ingest.WithMetrics(meters),
	)
	player := playback.New(cfg, store,
		playback.WithLogger(logger),
		playback.WithMetrics(meters),
	)
	srv, err := gateway.New(cfg, coordinator, player, store,
		gateway.WithLogger(logger),
		gateway.WithMetrics(meters, registry),
	)
	if err != nil {
		_ = store.Close()
		release()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := srv.Start(runCtx); err != nil {
		cancel()
		_ = store.Close()
		release()
		return nil, err
	}

	inst := &Instance{
		logger:  logger,
		lock:    lock,
		store:   store,
		gateway: srv,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	layout := artifacts.New(cfg.Paths.ArtifactDir)
	go func() {
		defer close(inst.done)
		staging.Sweep(runCtx, []string{cfg.Paths.StagingDir, layout.StagingRoot()},
			cfg.StagingMaxAge(), sweepInterval, logger)
	}()

	logger.Info("vidaq server started",
		logging.String("address", srv.Addr()),
		logging.String("artifact_dir", cfg.Paths.ArtifactDir),
		logging.String("catalog", store.Path()),
		logging.String("lock", cfg.LockPath()),
	)
	return inst, nil
}

// Addr returns the bound HTTP address.
func (i *Instance) Addr() string {
	return i.gateway.Addr()
}

// Stop drains HTTP traffic, stops background sweeps, closes the catalog and
// releases the instance lock.
func (i *Instance) Stop() {
	i.gateway.Stop(shutdownTimeout)
	i.cancel()
	<-i.done
	if err := i.store.Close(); err != nil {
		i.logger.Warn("catalog close failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "catalog_close_failed"),
			logging.String(logging.FieldErrorHint, "the WAL will be replayed on next start"),
		)
	}
	_ = i.lock.Unlock()
}

func logDependencySnapshot(logger *slog.Logger, statuses []deps.Status) {
	attrs := []logging.Attr{logging.String(logging.FieldEventType, "dependency_snapshot")}
	for _, status := range statuses {
		key := strings.ToLower(status.Name)
		attrs = append(attrs,
			logging.Bool(key+"_available", status.Available),
			logging.String(key+"_binary", firstNonEmpty(status.Path, status.Command)),
		)
		if status.Version != "" {
			attrs = append(attrs, logging.String(key+"_version", status.Version))
		}
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
