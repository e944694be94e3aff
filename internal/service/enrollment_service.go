package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/course-enrollment/internal/dto"
	"github.com/noah-isme/course-enrollment/internal/models"
	"github.com/noah-isme/course-enrollment/internal/repository"
	appErrors "github.com/noah-isme/course-enrollment/pkg/errors"
	"github.com/noah-isme/course-enrollment/pkg/events"
)

type enrollmentWriter interface {
	Enroll(ctx context.Context, studentID, offeringID int64, check models.EligibilityCheck) (*models.Enrollment, error)
	CreateAndEnroll(ctx context.Context, params models.CreateAndEnrollParams) (*models.CreateAndEnrollResult, error)
}

type progressInvalidator interface {
	Invalidate(ctx context.Context) error
}

// EnrollmentConfig holds the fixed values used when an admin creates a student.
type EnrollmentConfig struct {
	EmailDomain        string
	DefaultDateOfBirth time.Time
}

// EnrollmentService implements the admin create-and-enroll flow and student
// self-enrollment.
type EnrollmentService struct {
	repo      enrollmentWriter
	publisher events.Publisher
	progress  progressInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    EnrollmentConfig
	newToken  func() string
	now       func() time.Time
}

// NewEnrollmentService constructs an EnrollmentService. A nil publisher
// disables events; a nil progress invalidator disables cache invalidation.
func NewEnrollmentService(repo enrollmentWriter, publisher events.Publisher, progress progressInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config EnrollmentConfig) *EnrollmentService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.EmailDomain == "" {
		config.EmailDomain = "example.com"
	}
	if config.DefaultDateOfBirth.IsZero() {
		config.DefaultDateOfBirth = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return &EnrollmentService{
		repo:      repo,
		publisher: publisher,
		progress:  progress,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    config,
		newToken:  func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
		now:       time.Now,
	}
}

// ValidateInitialBalance parses an initial balance and checks it lies within
// [0, 999999.99].
func ValidateInitialBalance(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("Invalid initial balance: could not convert %q to a number", trimmed))
	}
	if amount.IsNegative() || amount.GreaterThan(models.MaxBalance) {
		return decimal.Zero, appErrors.Clone(appErrors.ErrValidation, "Invalid initial balance: Initial balance must be between 0 and 999999.99")
	}
	return amount, nil
}

// CheckEligibility applies the self-enrollment rules to a snapshot, in order:
// duplicate course, affordability, then capacity.
func CheckEligibility(snapshot models.EnrollmentSnapshot) error {
	if snapshot.AlreadyEnrolled {
		return appErrors.ErrAlreadyEnrolled
	}
	if snapshot.Balance.LessThan(snapshot.Price) {
		return appErrors.Clone(appErrors.ErrInsufficientBalance, fmt.Sprintf("Insufficient balance. Required: %s, Available: %s",
			snapshot.Price.StringFixed(2), snapshot.Balance.StringFixed(2)))
	}
	if snapshot.SeatsAvailable <= 0 {
		return appErrors.ErrNoSeats
	}
	return nil
}

// SelfEnroll enrolls the signed-in student into an offering. The checks and
// the writes share one transaction in the repository, so a rejection leaves no
// trace and two concurrent requests cannot both pass the checks.
func (s *EnrollmentService) SelfEnroll(ctx context.Context, identity models.Identity, offeringID int64) (*models.Enrollment, error) {
	if !identity.IsStudent() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can enroll themselves")
	}
	if offeringID <= 0 {
		s.metrics.RecordEnrollmentOutcome(events.FlowSelfEnroll, OutcomeInvalid)
		return nil, appErrors.Clone(appErrors.ErrValidation, "Invalid offering ID")
	}

	var charged decimal.Decimal
	enrollment, err := s.repo.Enroll(ctx, identity.UserID, offeringID, func(snapshot models.EnrollmentSnapshot) error {
		if err := CheckEligibility(snapshot); err != nil {
			return err
		}
		charged = snapshot.Price
		return nil
	})
	if err != nil {
		return nil, s.selfEnrollError(identity.UserID, offeringID, err)
	}

	s.metrics.RecordEnrollmentOutcome(events.FlowSelfEnroll, OutcomeSuccess)
	s.logger.Info("student enrolled",
		zap.Int64("student_id", identity.UserID),
		zap.Int64("offering_id", offeringID),
		zap.Int64("enrollment_id", enrollment.ID),
		zap.String("amount", charged.StringFixed(2)),
	)
	s.afterEnrollment(ctx, events.EnrollmentConfirmed{
		Flow:         events.FlowSelfEnroll,
		StudentID:    identity.UserID,
		OfferingID:   offeringID,
		EnrollmentID: enrollment.ID,
		Amount:       charged.StringFixed(2),
	})
	return enrollment, nil
}

func (s *EnrollmentService) selfEnrollError(studentID, offeringID int64, err error) error {
	fields := []zap.Field{zap.Int64("student_id", studentID), zap.Int64("offering_id", offeringID)}

	var appErr *appErrors.Error
	switch {
	case errors.As(err, &appErr):
		s.metrics.RecordEnrollmentOutcome(events.FlowSelfEnroll, OutcomeRejected)
		s.logger.Info("enrollment rejected", append(fields, zap.String("code", appErr.Code))...)
		return appErr
	case errors.Is(err, repository.ErrCapacityReached):
		s.metrics.RecordEnrollmentOutcome(events.FlowSelfEnroll, OutcomeRejected)
		s.logger.Info("enrollment rejected", append(fields, zap.String("code", appErrors.ErrNoSeats.Code))...)
		return appErrors.ErrNoSeats
	case errors.Is(err, repository.ErrOfferingNotFound):
		s.metrics.RecordEnrollmentOutcome(events.FlowSelfEnroll, OutcomeInvalid)
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("Course offering with ID %d not found", offeringID))
	case errors.Is(err, repository.ErrStudentNotFound):
		s.metrics.RecordEnrollmentOutcome(events.FlowSelfEnroll, OutcomeInvalid)
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("Student with ID %d not found in database", studentID))
	default:
		s.metrics.RecordEnrollmentOutcome(events.FlowSelfEnroll, OutcomeFailed)
		s.logger.Error("enrollment failed", append(fields, zap.Error(err))...)
		return appErrors.Wrap(err, appErrors.ErrDatabase.Code, appErrors.ErrDatabase.Status, "Enrollment failed: "+appErrors.RootMessage(err))
	}
}

// CreateAndEnroll creates a student and enrolls them in one offering through
// the database procedure. Input is fully validated before the procedure runs.
func (s *EnrollmentService) CreateAndEnroll(ctx context.Context, identity models.Identity, req dto.CreateAndEnrollRequest) (*models.CreateAndEnrollResult, error) {
	if !identity.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can create students")
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordEnrollmentOutcome(events.FlowCreateAndEnroll, OutcomeInvalid)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, validationMessage(err))
	}
	balance, err := ValidateInitialBalance(req.InitialBalance)
	if err != nil {
		s.metrics.RecordEnrollmentOutcome(events.FlowCreateAndEnroll, OutcomeInvalid)
		return nil, err
	}

	params := models.CreateAndEnrollParams{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		InitialBalance: balance,
		OfferingID:     req.OfferingID,
		Email:          s.syntheticEmail(req.FirstName, req.LastName),
		DateOfBirth:    s.config.DefaultDateOfBirth,
		Active:         true,
		Enabled:        true,
	}

	result, err := s.repo.CreateAndEnroll(ctx, params)
	if err != nil {
		if errors.Is(err, repository.ErrNoConfirmation) {
			s.metrics.RecordEnrollmentOutcome(events.FlowCreateAndEnroll, OutcomeFailed)
			s.logger.Warn("create-and-enroll returned no confirmation", zap.Int64("offering_id", req.OfferingID))
			return nil, appErrors.ErrProcedureNoResult
		}
		s.metrics.RecordEnrollmentOutcome(events.FlowCreateAndEnroll, OutcomeFailed)
		s.logger.Error("create-and-enroll failed", zap.Int64("offering_id", req.OfferingID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrDatabase.Code, appErrors.ErrDatabase.Status, "Enrollment failed: "+appErrors.RootMessage(err))
	}

	s.metrics.RecordEnrollmentOutcome(events.FlowCreateAndEnroll, OutcomeSuccess)
	s.logger.Info("student created and enrolled",
		zap.Int64("admin_id", identity.UserID),
		zap.Int64("student_id", result.StudentID),
		zap.Int64("offering_id", req.OfferingID),
	)
	s.afterEnrollment(ctx, events.EnrollmentConfirmed{
		Flow:         events.FlowCreateAndEnroll,
		StudentID:    result.StudentID,
		OfferingID:   req.OfferingID,
		EnrollmentID: result.EnrollmentID,
	})
	return result, nil
}

// syntheticEmail builds first.last.<token>@domain with a random token so that
// students sharing a name never collide.
func (s *EnrollmentService) syntheticEmail(firstName, lastName string) string {
	local := func(name string) string {
		return strings.ToLower(strings.Join(strings.Fields(name), ""))
	}
	return fmt.Sprintf("%s.%s.%s@%s", local(firstName), local(lastName), s.newToken(), s.config.EmailDomain)
}

// afterEnrollment runs the post-commit side effects. Their failures are logged
// and never surface to the caller.
func (s *EnrollmentService) afterEnrollment(ctx context.Context, event events.EnrollmentConfirmed) {
	event.ConfirmedAt = s.now().UTC()
	if err := s.publisher.PublishEnrollmentConfirmed(ctx, event); err != nil {
		s.logger.Warn("failed to publish enrollment event", zap.String("flow", event.Flow), zap.Error(err))
	}
	if s.progress != nil {
		if err := s.progress.Invalidate(ctx); err != nil {
			s.logger.Warn("failed to invalidate progress cache", zap.Error(err))
		}
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid enrollment payload"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fieldLabels[fe.Field()]
		if field == "" {
			field = fe.Field()
		}
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			parts = append(parts, field+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}

var fieldLabels = map[string]string{
	"FirstName":      "first_name",
	"LastName":       "last_name",
	"InitialBalance": "initial_balance",
	"OfferingID":     "offering_id",
}
