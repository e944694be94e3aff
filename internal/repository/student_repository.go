package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-enrollment/internal/models"
)

// StudentRepository reads student accounts and their enrollments.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// Exists reports whether a student with the given ID exists.
func (r *StudentRepository) Exists(ctx context.Context, id int64) (bool, error) {
	const query = `SELECT 1 FROM students WHERE student_id = $1`
	var found int
	if err := r.db.GetContext(ctx, &found, query, id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("lookup student: %w", err)
	}
	return true, nil
}

// FindBalance returns the name and balance of a student. It returns
// sql.ErrNoRows when the student does not exist.
func (r *StudentRepository) FindBalance(ctx context.Context, id int64) (*models.StudentBalance, error) {
	const query = `SELECT first_name, last_name, balance FROM students WHERE student_id = $1`
	var balance models.StudentBalance
	if err := r.db.GetContext(ctx, &balance, query, id); err != nil {
		return nil, err
	}
	return &balance, nil
}

// ListEnrollments returns the enrollment history of a student.
func (r *StudentRepository) ListEnrollments(ctx context.Context, id int64) ([]models.Enrollment, error) {
	const query = `SELECT e.enrollment_id, e.offering_id, e.enrollment_status
        FROM enrollments e
        WHERE e.student_id = $1`
	enrollments := []models.Enrollment{}
	if err := r.db.SelectContext(ctx, &enrollments, query, id); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// ListCourseEnrollments returns a student's enrollments with the course of each offering.
func (r *StudentRepository) ListCourseEnrollments(ctx context.Context, id int64) ([]models.CourseEnrollment, error) {
	const query = `SELECT e.enrollment_id, co.offering_id, co.course_id
        FROM enrollments e
        JOIN course_offerings co ON e.offering_id = co.offering_id
        WHERE e.student_id = $1`
	enrollments := []models.CourseEnrollment{}
	if err := r.db.SelectContext(ctx, &enrollments, query, id); err != nil {
		return nil, fmt.Errorf("list student course enrollments: %w", err)
	}
	return enrollments, nil
}
