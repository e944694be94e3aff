package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-enrollment/internal/models"
)

// ProgressRepository reads the student progress reporting view.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository constructs a ProgressRepository.
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// List returns every row of vw_student_progress.
func (r *ProgressRepository) List(ctx context.Context) ([]models.StudentProgress, error) {
	const query = `SELECT student_id, first_name, last_name, total_courses FROM vw_student_progress`
	rows := []models.StudentProgress{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list student progress: %w", err)
	}
	return rows, nil
}
