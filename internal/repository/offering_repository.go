package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-enrollment/internal/models"
)

// OfferingRepository reads course offerings.
type OfferingRepository struct {
	db *sqlx.DB
}

// NewOfferingRepository constructs an OfferingRepository.
func NewOfferingRepository(db *sqlx.DB) *OfferingRepository {
	return &OfferingRepository{db: db}
}

// List returns every offering with seats available computed from the current counters.
func (r *OfferingRepository) List(ctx context.Context) ([]models.Offering, error) {
	const query = `SELECT co.offering_id, co.course_id, co.instructor_id, co.max_capacity, co.current_enrollment,
        (co.max_capacity - co.current_enrollment) AS seats_available, co.price
        FROM course_offerings co`
	offerings := []models.Offering{}
	if err := r.db.SelectContext(ctx, &offerings, query); err != nil {
		return nil, fmt.Errorf("list offerings: %w", err)
	}
	return offerings, nil
}
