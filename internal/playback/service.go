package playback

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"vidaq/internal/artifacts"
	"vidaq/internal/catalog"
	"vidaq/internal/config"
	"vidaq/internal/fileutil"
	"vidaq/internal/keymutex"
	"vidaq/internal/logging"
	"vidaq/internal/manifest"
	"vidaq/internal/metrics"
	"vidaq/internal/services"
)

// Catalog is the subset of the catalog store playback reads.
type Catalog interface {
	GetByID(ctx context.Context, id int64) (*catalog.Item, error)
	List(ctx context.Context, limit int) ([]*catalog.Item, error)
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Collectors) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// Service answers download requests.
type Service struct {
	store    Catalog
	layout   artifacts.Layout
	rewriter manifest.Rewriter
	locks    keymutex.Map[int64]
	metrics  *metrics.Collectors
	logger   *slog.Logger
}

// New constructs a Service from configuration.
func New(cfg *config.Config, store Catalog, opts ...Option) *Service {
	s := &Service{
		store:  store,
		layout: artifacts.New(cfg.Paths.ArtifactDir),
		rewriter: manifest.Rewriter{
			Mode:  manifest.ParseMode(cfg.Manifest.RewriteMode),
			Route: cfg.Server.ArtifactRoute,
		},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "playback")
	return s
}

// ParseID validates a download id: a positive base-10 integer.
func ParseID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, services.Wrap(services.ErrValidation, "playback", "parse id", "id is required", nil)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, services.Wrap(services.ErrValidation, "playback", "parse id",
			fmt.Sprintf("id %q is not a positive integer", raw), nil)
	}
	return id, nil
}

// Locate returns the absolute playlist URL for item id as served from
// hostBaseURL, rewriting the stored playlist for that host when needed.
func (s *Service) Locate(ctx context.Context, id int64, hostBaseURL string) (string, error) {
	if id <= 0 {
		return "", services.Wrap(services.ErrValidation, "playback", "locate", "id must be positive", nil)
	}
	if strings.TrimSpace(hostBaseURL) == "" {
		return "", services.Wrap(services.ErrValidation, "playback", "locate", "host base url is required", nil)
	}
	ctx = services.WithItemID(ctx, id)
	logger := logging.WithContext(ctx, s.logger)

	item, err := s.store.GetByID(ctx, id)
	if err != nil {
		return "", services.Wrap(services.ErrEngine, "playback", "locate", "catalog lookup failed", err)
	}
	if item == nil {
		return "", services.Wrap(services.ErrNotFound, "playback", "locate", fmt.Sprintf("item %d does not exist", id), nil)
	}

	base := artifacts.BaseName(item.OriginalName)
	ready, err := s.layout.ManifestReady(id, base)
	if err != nil {
		return "", err
	}
	if !ready {
		return "", services.Wrap(services.ErrArtifactsNotReady, "playback", "locate",
			fmt.Sprintf("item %d is still rendering or its render failed", id), nil)
	}

	if err := s.rewrite(logger, id, base, hostBaseURL); err != nil {
		return "", err
	}
	return manifest.Prefix(hostBaseURL, s.rewriter.Route, id) + artifacts.ManifestName(base), nil
}

func (s *Service) rewrite(logger *slog.Logger, id int64, base, hostBaseURL string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	path := s.layout.ManifestPath(id, base)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	original := string(data)
	rewritten := s.rewriter.Rewrite(original, hostBaseURL, id, base)
	if rewritten == original {
		return nil
	}
	if err := fileutil.WriteFileAtomic(path, []byte(rewritten), 0o644); err != nil {
		return fmt.Errorf("persist manifest: %w", err)
	}
	s.metrics.ObserveManifestRewrite()
	logger.Info("manifest rewritten for host",
		logging.String("host", hostBaseURL),
		logging.String("mode", string(s.rewriter.Mode)),
		logging.String(logging.FieldEventType, "manifest_rewritten"),
	)
	return nil
}

// Orphans lists catalog items whose artifacts were never committed. These
// come from renders that failed after the row was inserted; re-uploading the
// same content repairs them.
func (s *Service) Orphans(ctx context.Context) ([]*catalog.Item, error) {
	items, err := s.store.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	var orphans []*catalog.Item
	for _, item := range items {
		ready, err := s.layout.ManifestReady(item.ID, artifacts.BaseName(item.OriginalName))
		if err != nil {
			return nil, err
		}
		if !ready {
			orphans = append(orphans, item)
		}
	}
	return orphans, nil
}
