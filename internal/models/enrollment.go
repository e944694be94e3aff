package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// EnrollmentStatusActive is assigned to every enrollment created by the service.
const EnrollmentStatusActive EnrollmentStatus = "ACTIVE"

// Enrollment links a student to an offering they have joined.
type Enrollment struct {
	ID         int64            `db:"enrollment_id" json:"enrollment_id"`
	StudentID  int64            `db:"student_id" json:"student_id,omitempty"`
	OfferingID int64            `db:"offering_id" json:"offering_id"`
	Status     EnrollmentStatus `db:"enrollment_status" json:"enrollment_status"`
}

// CourseEnrollment is an enrollment annotated with the course it belongs to.
type CourseEnrollment struct {
	EnrollmentID int64 `db:"enrollment_id" json:"enrollment_id"`
	OfferingID   int64 `db:"offering_id" json:"offering_id"`
	CourseID     int64 `db:"course_id" json:"course_id"`
}

// EnrollmentSnapshot is the locked state a self-enrollment is judged against.
type EnrollmentSnapshot struct {
	StudentID       int64
	OfferingID      int64
	CourseID        int64
	AlreadyEnrolled bool
	Balance         decimal.Decimal
	Price           decimal.Decimal
	SeatsAvailable  int
}

// EligibilityCheck judges a locked snapshot before any enrollment write happens.
type EligibilityCheck func(snapshot EnrollmentSnapshot) error

// CreateAndEnrollParams are the arguments of the create-and-enroll procedure.
type CreateAndEnrollParams struct {
	FirstName      string
	LastName       string
	InitialBalance decimal.Decimal
	OfferingID     int64
	Email          string
	DateOfBirth    time.Time
	Active         bool
	Enabled        bool
}

// CreateAndEnrollResult is the confirmation row returned by the procedure.
type CreateAndEnrollResult struct {
	StudentID    int64  `db:"student_id" json:"student_id"`
	EnrollmentID int64  `db:"enrollment_id" json:"enrollment_id"`
	Email        string `db:"-" json:"email"`
}
