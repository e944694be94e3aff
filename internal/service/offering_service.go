package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-enrollment/internal/models"
	appErrors "github.com/noah-isme/course-enrollment/pkg/errors"
)

type offeringLister interface {
	List(ctx context.Context) ([]models.Offering, error)
}

// OfferingService lists course offerings. Listings are always read fresh so
// seat counts reflect the latest enrollments.
type OfferingService struct {
	repo    offeringLister
	metrics *MetricsService
	logger  *zap.Logger
}

// NewOfferingService constructs an OfferingService.
func NewOfferingService(repo offeringLister, metrics *MetricsService, logger *zap.Logger) *OfferingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfferingService{repo: repo, metrics: metrics, logger: logger}
}

// List returns every offering with its seats available.
func (s *OfferingService) List(ctx context.Context) ([]models.Offering, error) {
	start := time.Now()
	offerings, err := s.repo.List(ctx)
	s.metrics.ObserveDBQuery("offerings.list", time.Since(start))
	if err != nil {
		s.logger.Error("failed to list offerings", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrDatabase.Code, appErrors.ErrDatabase.Status, "Error fetching courses: "+appErrors.RootMessage(err))
	}
	return offerings, nil
}
