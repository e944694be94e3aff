package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-enrollment/internal/models"
)

// EnrollmentRepository performs the enrollment write paths.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Enroll enrolls a student into an offering. A non-nil error from check aborts
// the enrollment and rolls the transaction back. The student and offering rows are
// locked for the duration of the transaction, so check sees state no concurrent
// enrollment can change before the writes commit. The enrollment insert, seat
// increment and balance debit commit together or not at all.
func (r *EnrollmentRepository) Enroll(ctx context.Context, studentID, offeringID int64, check models.EligibilityCheck) (enrollment *models.Enrollment, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin enrollment transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	snapshot, err := r.lockSnapshot(ctx, tx, studentID, offeringID)
	if err != nil {
		return nil, err
	}
	if err = check(*snapshot); err != nil {
		return nil, err
	}

	enrollment = &models.Enrollment{StudentID: studentID, OfferingID: offeringID, Status: models.EnrollmentStatusActive}
	const insertQuery = `INSERT INTO enrollments (student_id, offering_id, enrollment_status) VALUES ($1, $2, $3) RETURNING enrollment_id`
	if err = tx.GetContext(ctx, &enrollment.ID, insertQuery, studentID, offeringID, enrollment.Status); err != nil {
		return nil, fmt.Errorf("insert enrollment: %w", err)
	}

	const seatQuery = `UPDATE course_offerings SET current_enrollment = current_enrollment + 1
        WHERE offering_id = $1 AND current_enrollment < max_capacity`
	res, err := tx.ExecContext(ctx, seatQuery, offeringID)
	if err != nil {
		return nil, fmt.Errorf("increment enrollment count: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("increment enrollment count: %w", err)
	}
	if affected == 0 {
		err = ErrCapacityReached
		return nil, err
	}

	const debitQuery = `UPDATE students SET balance = balance - $1 WHERE student_id = $2`
	if _, err = tx.ExecContext(ctx, debitQuery, snapshot.Price, studentID); err != nil {
		return nil, fmt.Errorf("debit student balance: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit enrollment: %w", err)
	}
	return enrollment, nil
}

func (r *EnrollmentRepository) lockSnapshot(ctx context.Context, tx *sqlx.Tx, studentID, offeringID int64) (*models.EnrollmentSnapshot, error) {
	snapshot := &models.EnrollmentSnapshot{StudentID: studentID, OfferingID: offeringID}

	const studentQuery = `SELECT balance FROM students WHERE student_id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &snapshot.Balance, studentQuery, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("lock student: %w", err)
	}

	var offering struct {
		CourseID       int64 `db:"course_id"`
		SeatsAvailable int   `db:"seats_available"`
	}
	const offeringQuery = `SELECT course_id, price, (max_capacity - current_enrollment) AS seats_available
        FROM course_offerings WHERE offering_id = $1 FOR UPDATE`
	row := tx.QueryRowxContext(ctx, offeringQuery, offeringID)
	if err := row.Scan(&offering.CourseID, &snapshot.Price, &offering.SeatsAvailable); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOfferingNotFound
		}
		return nil, fmt.Errorf("lock offering: %w", err)
	}
	snapshot.CourseID = offering.CourseID
	snapshot.SeatsAvailable = offering.SeatsAvailable

	const duplicateQuery = `SELECT COUNT(*)
        FROM enrollments e
        JOIN course_offerings co ON e.offering_id = co.offering_id
        WHERE e.student_id = $1 AND co.course_id = $2`
	var count int
	if err := tx.GetContext(ctx, &count, duplicateQuery, studentID, snapshot.CourseID); err != nil {
		return nil, fmt.Errorf("check duplicate enrollment: %w", err)
	}
	snapshot.AlreadyEnrolled = count > 0

	return snapshot, nil
}

// CreateAndEnroll calls the create-and-enroll procedure inside a transaction.
// The procedure creates the student, the enrollment and adjusts the counters;
// the transaction commits only when it returns a confirmation row.
func (r *EnrollmentRepository) CreateAndEnroll(ctx context.Context, params models.CreateAndEnrollParams) (result *models.CreateAndEnrollResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create-and-enroll transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `SELECT student_id, enrollment_id
        FROM sp_create_and_enroll_student($1, $2, $3, $4, $5, $6, $7, $8)`
	result = &models.CreateAndEnrollResult{Email: params.Email}
	if err = tx.GetContext(ctx, result, query,
		params.FirstName,
		params.LastName,
		params.InitialBalance,
		params.OfferingID,
		params.Email,
		params.DateOfBirth,
		params.Active,
		params.Enabled,
	); err != nil {
		if err == sql.ErrNoRows {
			err = ErrNoConfirmation
			return nil, err
		}
		return nil, fmt.Errorf("call sp_create_and_enroll_student: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create-and-enroll: %w", err)
	}
	return result, nil
}
