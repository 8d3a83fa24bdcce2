package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"vidaq/internal/artifacts"
	"vidaq/internal/catalog"
	"vidaq/internal/config"
	"vidaq/internal/fileutil"
	"vidaq/internal/fingerprint"
	"vidaq/internal/logging"
	"vidaq/internal/metrics"
	"vidaq/internal/services"
	"vidaq/internal/textutil"
	"vidaq/internal/transcode"
)

// Catalog is the subset of the catalog store the coordinator needs.
type Catalog interface {
	FindByFingerprint(ctx context.Context, fp uuid.UUID) (*catalog.Item, error)
	Create(ctx context.Context, durationSeconds float64, fp uuid.UUID, originalName string) (*catalog.Item, error)
}

// Upload is one uploaded file.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.ReadSeeker
	// Pitch is the raw form value; blank, non-numeric and negative values
	// mean no pitch shift.
	Pitch string
}

// Result identifies the item an upload resolved to.
type Result struct {
	ItemID      int64
	Fingerprint uuid.UUID
	// Created is true when this call cataloged and rendered the item.
	Created bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Collectors) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// Coordinator runs the ingestion pipeline.
type Coordinator struct {
	store      Catalog
	engine     transcode.Engine
	layout     artifacts.Layout
	stagingDir string
	timeout    time.Duration
	slots      *semaphore.Weighted
	flights    singleflight.Group
	metrics    *metrics.Collectors
	logger     *slog.Logger
}

// New constructs a Coordinator from configuration.
func New(cfg *config.Config, store Catalog, engine transcode.Engine, opts ...Option) *Coordinator {
	slots := cfg.Transcode.MaxConcurrent
	if slots <= 0 {
		slots = 1
	}
	c := &Coordinator{
		store:      store,
		engine:     engine,
		layout:     artifacts.New(cfg.Paths.ArtifactDir),
		stagingDir: cfg.Paths.StagingDir,
		timeout:    cfg.TranscodeTimeout(),
		slots:      semaphore.NewWeighted(int64(slots)),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "ingest")
	return c
}

// Ingest resolves an upload to a catalog item id, creating and rendering the
// item when its fingerprint is new.
func (c *Coordinator) Ingest(ctx context.Context, upload Upload) (Result, error) {
	result, err := c.ingest(ctx, upload)
	switch {
	case err == nil && result.Created:
		c.metrics.ObserveUpload(metrics.ResultCreated)
	case err == nil:
		c.metrics.ObserveUpload(metrics.ResultHit)
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrUnsupportedMedia):
		c.metrics.ObserveUpload(metrics.ResultRejected)
	default:
		c.metrics.ObserveUpload(metrics.ResultFailed)
	}
	return result, err
}

func (c *Coordinator) ingest(ctx context.Context, upload Upload) (Result, error) {
	if err := validate(upload); err != nil {
		return Result{}, err
	}

	pitch := fingerprint.ParsePitch(upload.Pitch)
	if _, err := upload.Body.Seek(0, io.SeekStart); err != nil {
		return Result{}, fmt.Errorf("rewind upload: %w", err)
	}
	fp, err := fingerprint.FromReader(upload.Body, pitch)
	if err != nil {
		return Result{}, fmt.Errorf("fingerprint upload: %w", err)
	}

	ctx = services.WithFingerprint(ctx, fp.String())
	logger := logging.WithContext(ctx, c.logger)

	if item, ready, err := c.lookup(ctx, fp); err != nil {
		return Result{}, err
	} else if item != nil && ready {
		logger.Info("upload matched existing item",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.String(logging.FieldEventType, "dedup_hit"),
		)
		return Result{ItemID: item.ID, Fingerprint: fp}, nil
	}

	leader := false
	value, err, _ := c.flights.Do(fp.String(), func() (any, error) {
		leader = true
		work, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.materialize(work, fp, pitch, upload)
	})
	if err != nil {
		return Result{}, err
	}
	result := value.(Result)
	result.Created = result.Created && leader
	return result, nil
}

func validate(upload Upload) error {
	if upload.Body == nil {
		return services.Wrap(services.ErrValidation, "ingest", "validate", "missing file", nil)
	}
	if strings.TrimSpace(upload.Filename) == "" {
		return services.Wrap(services.ErrValidation, "ingest", "validate", "missing file name", nil)
	}
	if !strings.Contains(strings.ToLower(upload.ContentType), "video") {
		return services.Wrap(services.ErrUnsupportedMedia, "ingest", "validate",
			fmt.Sprintf("content type %q is not video", upload.ContentType), nil)
	}
	return nil
}

// lookup returns the item cataloged under fp and whether its artifacts are committed.
func (c *Coordinator) lookup(ctx context.Context, fp uuid.UUID) (*catalog.Item, bool, error) {
	item, err := c.store.FindByFingerprint(ctx, fp)
	if err != nil {
		return nil, false, services.Wrap(services.ErrEngine, "ingest", "lookup", "catalog lookup failed", err)
	}
	if item == nil {
		return nil, false, nil
	}
	ready, err := c.layout.ManifestReady(item.ID, artifacts.BaseName(item.OriginalName))
	if err != nil {
		return nil, false, err
	}
	return item, ready, nil
}

// materialize is the miss path. It runs once per fingerprint at a time.
func (c *Coordinator) materialize(ctx context.Context, fp uuid.UUID, pitch float64, upload Upload) (Result, error) {
	logger := logging.WithContext(ctx, c.logger)

	item, ready, err := c.lookup(ctx, fp)
	if err != nil {
		return Result{}, err
	}
	if item != nil && ready {
		return Result{ItemID: item.ID, Fingerprint: fp}, nil
	}

	source, cleanup, err := c.stage(fp, upload)
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	if err := c.slots.Acquire(ctx, 1); err != nil {
		return Result{}, services.Wrap(services.ErrEngine, "ingest", "acquire slot", "transcode queue wait aborted", err)
	}
	defer c.slots.Release(1)
	done := c.metrics.TranscodeStarted()

	result, err := c.process(ctx, logger, fp, pitch, upload, source, item)
	done(err)
	return result, err
}

func (c *Coordinator) process(ctx context.Context, logger *slog.Logger, fp uuid.UUID, pitch float64, upload Upload, source string, existing *catalog.Item) (Result, error) {
	probe, err := c.engine.Probe(ctx, source)
	if err != nil {
		return Result{}, err
	}
	plan, err := transcode.PlanAudio(probe.SampleRate, pitch)
	if err != nil {
		return Result{}, err
	}

	item := existing
	created := false
	if item == nil {
		item, err = c.store.Create(ctx, probe.DurationSeconds, fp, upload.Filename)
		if errors.Is(err, services.ErrConstraintViolation) {
			// Another process cataloged the same content first.
			winner, _, lookupErr := c.lookup(ctx, fp)
			if lookupErr != nil {
				return Result{}, lookupErr
			}
			if winner == nil {
				return Result{}, err
			}
			logger.Info("fingerprint cataloged concurrently",
				logging.Int64(logging.FieldItemID, winner.ID),
				logging.String(logging.FieldEventType, "dedup_race"),
			)
			return Result{ItemID: winner.ID, Fingerprint: fp}, nil
		}
		if err != nil {
			return Result{}, services.Wrap(services.ErrEngine, "ingest", "create", "catalog insert failed", err)
		}
		created = true
		logger.Info("item cataloged",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.Float64("duration_seconds", item.DurationSeconds),
			logging.String(logging.FieldEventType, "item_created"),
		)
	} else {
		logger.Info("re-rendering item without committed artifacts",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.String(logging.FieldEventType, "render_repair"),
		)
	}

	if err := c.render(ctx, logger, item, source, plan, probe.AudioMap); err != nil {
		logging.ErrorWithContext(logger, "render failed", "render_failed",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "re-upload the file to retry; vidaq catalog orphans lists affected items"),
		)
		return Result{}, err
	}
	return Result{ItemID: item.ID, Fingerprint: fp, Created: created}, nil
}

func (c *Coordinator) render(ctx context.Context, logger *slog.Logger, item *catalog.Item, source string, plan transcode.AudioPlan, audioMap string) error {
	staged, err := c.layout.StageDir(item.Fingerprint)
	if err != nil {
		return err
	}
	req := transcode.RenderRequest{
		Source:    source,
		OutputDir: staged,
		BaseName:  artifacts.BaseName(item.OriginalName),
		Audio:     plan,
		AudioMap:  audioMap,
	}

	started := time.Now()
	err = c.engine.Render(ctx, req, func(p transcode.Progress) {
		logger.Debug("render progress",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.Float64("out_time_seconds", p.OutTimeSeconds),
		)
	})
	if err != nil {
		_ = c.layout.Discard(staged)
		return err
	}

	dir, err := c.layout.Commit(item.ID, staged)
	if errors.Is(err, artifacts.ErrAlreadyExists) {
		_ = c.layout.Discard(staged)
		return nil
	}
	if err != nil {
		_ = c.layout.Discard(staged)
		return err
	}
	logger.Info("render committed",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String("artifact_dir", dir),
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldEventType, "render_committed"),
	)
	return nil
}

// stage persists the upload to <staging_dir>/<fingerprint>/<name> and returns
// its path plus a cleanup that removes the staging directory.
func (c *Coordinator) stage(fp uuid.UUID, upload Upload) (string, func(), error) {
	dir := filepath.Join(c.stagingDir, fp.String())
	name := textutil.SanitizeFileName(filepath.Base(strings.ReplaceAll(upload.Filename, "\\", "/")))
	if name == "" {
		name = "upload"
	}
	path := filepath.Join(dir, name)

	if _, err := upload.Body.Seek(0, io.SeekStart); err != nil {
		return "", nil, fmt.Errorf("rewind upload: %w", err)
	}
	if _, err := fileutil.WriteAtomic(path, upload.Body, 0o644); err != nil {
		return "", nil, fmt.Errorf("stage upload: %w", err)
	}
	return path, func() { _ = os.RemoveAll(dir) }, nil
}
