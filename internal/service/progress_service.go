package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-enrollment/internal/models"
	appErrors "github.com/noah-isme/course-enrollment/pkg/errors"
	"github.com/noah-isme/course-enrollment/pkg/export"
)

// The cached report lives under a key that embeds a generation counter.
// Invalidate bumps the counter, so a List that read the view before an
// enrollment committed writes its rows under a key no later reader uses.
const progressGenerationKey = "progress:generation"

func progressCacheKey(gen int64) string {
	return fmt.Sprintf("progress:all:%d", gen)
}

type progressLister interface {
	List(ctx context.Context) ([]models.StudentProgress, error)
}

type progressCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
	Generation(ctx context.Context, key string) (int64, error)
	Bump(ctx context.Context, key string) (int64, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportFile is a rendered progress report ready to be served as a download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ProgressService serves the student progress report.
type ProgressService struct {
	repo      progressLister
	cache     progressCache
	cacheTTL  time.Duration
	renderers map[string]datasetRenderer
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewProgressService constructs a ProgressService. cache may be nil.
func NewProgressService(repo progressLister, cache progressCache, cacheTTL time.Duration, metrics *MetricsService, logger *zap.Logger) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	csv := export.NewCSVExporter()
	pdf := export.NewPDFExporter()
	return &ProgressService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		renderers: map[string]datasetRenderer{
			csv.Extension(): csv,
			pdf.Extension(): pdf,
		},
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// List returns every row of the progress view, from cache when possible.
func (s *ProgressService) List(ctx context.Context) ([]models.StudentProgress, error) {
	key, cacheable := s.cacheKey(ctx)
	if cacheable {
		var cached []models.StudentProgress
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	start := time.Now()
	rows, err := s.repo.List(ctx)
	s.metrics.ObserveDBQuery("progress.list", time.Since(start))
	if err != nil {
		s.logger.Error("failed to fetch student progress", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrDatabase.Code, appErrors.ErrDatabase.Status, "Error fetching student progress: "+appErrors.RootMessage(err))
	}

	if cacheable {
		_ = s.cache.Set(ctx, key, rows, s.cacheTTL)
	}
	return rows, nil
}

// cacheKey resolves the key for the current generation. It must be read
// before the view is queried.
func (s *ProgressService) cacheKey(ctx context.Context) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	gen, err := s.cache.Generation(ctx, progressGenerationKey)
	if err != nil {
		return "", false
	}
	return progressCacheKey(gen), true
}

// Invalidate retires the cached report so the next read reflects new
// enrollments.
func (s *ProgressService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	gen, err := s.cache.Bump(ctx, progressGenerationKey)
	if err != nil {
		return err
	}
	if gen > 0 {
		_ = s.cache.Invalidate(ctx, progressCacheKey(gen-1))
	}
	return nil
}

// Export renders the report in the requested format (csv or pdf).
func (s *ProgressService) Export(ctx context.Context, format string) (*ExportFile, error) {
	renderer, ok := s.renderers[strings.ToLower(format)]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	rows, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Title:   "Student Progress",
		Headers: []string{"StudentID", "FirstName", "LastName", "TotalCourses"},
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, row := range rows {
		data.Rows = append(data.Rows, []string{
			strconv.FormatInt(row.StudentID, 10),
			row.FirstName,
			row.LastName,
			strconv.Itoa(row.TotalCourses),
		})
	}

	content, err := renderer.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render progress report")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("student_progress_%s.%s", s.now().UTC().Format("20060102"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        content,
	}, nil
}
