package service

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/course-enrollment/internal/models"
	appErrors "github.com/noah-isme/course-enrollment/pkg/errors"
)

type accountLookup interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// IdentityService resolves a submitted identifier to a student or admin.
type IdentityService struct {
	students accountLookup
	admins   accountLookup
	logger   *zap.Logger
}

// NewIdentityService constructs an IdentityService.
func NewIdentityService(students, admins accountLookup, logger *zap.Logger) *IdentityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{students: students, admins: admins, logger: logger}
}

// Resolve looks the identifier up among students first, then admins. An
// identifier that is not a positive integer can match neither table and is
// rejected as invalid without querying.
func (s *IdentityService) Resolve(ctx context.Context, rawID string) (models.Identity, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	if err != nil || id <= 0 {
		s.logger.Info("identity rejected", zap.String("reason", "malformed"))
		return models.Anonymous(), appErrors.ErrInvalidID
	}

	isStudent, err := s.students.Exists(ctx, id)
	if err != nil {
		return models.Anonymous(), loadFormError(err)
	}
	if isStudent {
		return models.Identity{UserID: id, Role: models.RoleStudent}, nil
	}

	isAdmin, err := s.admins.Exists(ctx, id)
	if err != nil {
		return models.Anonymous(), loadFormError(err)
	}
	if isAdmin {
		return models.Identity{UserID: id, Role: models.RoleAdmin}, nil
	}

	s.logger.Info("identity rejected", zap.Int64("user_id", id), zap.String("reason", "unknown"))
	return models.Anonymous(), appErrors.ErrInvalidID
}

// loadFormError wraps a failure that prevented the enrollment page from loading.
func loadFormError(err error) error {
	return appErrors.Wrap(err, appErrors.ErrDatabase.Code, appErrors.ErrDatabase.Status, "Error loading enrollment form: "+appErrors.RootMessage(err))
}
