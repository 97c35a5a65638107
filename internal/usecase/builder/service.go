// Package builder scans an image directory and embeds every supported file into a new index.
package builder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/imgdex/internal/domain"
	"github.com/kailas-cloud/imgdex/internal/domain/index"
	"github.com/kailas-cloud/imgdex/internal/logger"
	"github.com/kailas-cloud/imgdex/internal/metrics"
)

// supportedExtensions are matched case-insensitively.
var supportedExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff"}

// Failure describes one image that could not be indexed.
type Failure struct {
	Path string
	Err  error
}

// Report summarizes a build.
type Report struct {
	Scanned  int // supported image files found
	Indexed  int
	Skipped  int
	Failures []Failure
	Duration time.Duration
}

// Service builds indexes.
type Service struct {
	embed     ImageEmbedder
	model     string
	dimension int
	logger    *zap.Logger
}

// New creates a builder. model is recorded in every index it produces.
// A positive dimension is enforced on every image; otherwise the first indexed image fixes it.
func New(embed ImageEmbedder, model string, dimension int, logger *zap.Logger) *Service {
	return &Service{embed: embed, model: model, dimension: dimension, logger: logger}
}

// Build embeds the supported images directly inside dir (non-recursive, lexical order).
// Per-image failures are logged and skipped; they never abort the build.
// The returned index is not persisted.
func (s *Service) Build(ctx context.Context, dir string) (*index.Index, Report, error) {
	start := time.Now()
	log := logger.FromContextOr(ctx, s.logger)

	paths, err := listImages(dir)
	if err != nil {
		return nil, Report{}, err
	}

	idx := index.NewWithDimension(s.model, s.dimension)
	report := Report{Scanned: len(paths)}

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, report, fmt.Errorf("build canceled: %w", err)
		}

		if err := s.embedOne(ctx, idx, p); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, report, fmt.Errorf("build canceled: %w", ctxErr)
			}
			report.Skipped++
			report.Failures = append(report.Failures, Failure{Path: p, Err: err})
			metrics.IndexImagesTotal.WithLabelValues("skipped").Inc()
			log.Warn("Skipping image", zap.String("path", p), zap.Error(err))
			continue
		}
		report.Indexed++
		metrics.IndexImagesTotal.WithLabelValues("indexed").Inc()
	}

	report.Duration = time.Since(start)
	metrics.IndexBuildDuration.Observe(report.Duration.Seconds())
	log.Info("Index built",
		zap.String("dir", dir),
		zap.Int("scanned", report.Scanned),
		zap.Int("indexed", report.Indexed),
		zap.Int("skipped", report.Skipped),
		zap.Duration("duration", report.Duration),
	)
	return idx, report, nil
}

func (s *Service) embedOne(ctx context.Context, idx *index.Index, path string) error {
	res, err := s.embed.EmbedImage(ctx, path)
	if err != nil {
		return err
	}
	rec, err := index.NewRecord(path, res.Matrix)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
	}
	return idx.Append(rec)
}

// listImages returns supported regular files directly inside dir, sorted by name.
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("image directory %s: %w", dir, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read image directory %s: %w", dir, err)
	}

	// os.ReadDir already sorts by filename.
	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() && e.Type()&fs.ModeSymlink == 0 {
			continue
		}
		if !IsSupported(e.Name()) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if e.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(p)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// IsSupported reports whether name has a supported image extension.
func IsSupported(name string) bool {
	return slices.Contains(supportedExtensions, strings.ToLower(filepath.Ext(name)))
}
