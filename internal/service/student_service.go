package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/course-enrollment/internal/models"
	"github.com/noah-isme/course-enrollment/pkg/database"
	appErrors "github.com/noah-isme/course-enrollment/pkg/errors"
)

type studentReader interface {
	FindBalance(ctx context.Context, id int64) (*models.StudentBalance, error)
	ListEnrollments(ctx context.Context, id int64) ([]models.Enrollment, error)
	ListCourseEnrollments(ctx context.Context, id int64) ([]models.CourseEnrollment, error)
}

// StudentService exposes read-only student views.
type StudentService struct {
	repo   studentReader
	logger *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentReader, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, logger: logger}
}

// Statement returns a student's name, balance and enrollment history.
func (s *StudentService) Statement(ctx context.Context, studentID int64) (*models.BalanceStatement, error) {
	balance, err := s.repo.FindBalance(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("Student with ID %d not found in database", studentID))
		}
		return nil, s.balanceLookupError(studentID, err)
	}

	enrollments, err := s.repo.ListEnrollments(ctx, studentID)
	if err != nil {
		return nil, s.balanceLookupError(studentID, err)
	}

	return &models.BalanceStatement{StudentID: studentID, Student: *balance, Enrollments: enrollments}, nil
}

// balanceLookupError words the failure by whether the database layer raised it.
func (s *StudentService) balanceLookupError(studentID int64, err error) error {
	s.logger.Error("failed to fetch student balance", zap.Int64("student_id", studentID), zap.Error(err))
	if database.IsDatabaseError(err) {
		return appErrors.Wrap(err, appErrors.ErrDatabase.Code, appErrors.ErrDatabase.Status, "Database error fetching student balance: "+appErrors.RootMessage(err))
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "Unexpected error fetching student balance: "+appErrors.RootMessage(err))
}

// Panel returns the balance and course enrollments shown to a signed-in student.
func (s *StudentService) Panel(ctx context.Context, identity models.Identity) (*models.StudentPanel, error) {
	if !identity.IsStudent() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student session required")
	}

	balance, err := s.repo.FindBalance(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("Student with ID %d not found in database", identity.UserID))
		}
		return nil, loadFormError(err)
	}

	enrollments, err := s.repo.ListCourseEnrollments(ctx, identity.UserID)
	if err != nil {
		return nil, loadFormError(err)
	}

	return &models.StudentPanel{Balance: balance.Balance, Enrollments: enrollments}, nil
}
