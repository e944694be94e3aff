package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// AdminRepository answers whether an identifier belongs to an admin.
type AdminRepository struct {
	db *sqlx.DB
}

// NewAdminRepository constructs an AdminRepository.
func NewAdminRepository(db *sqlx.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// Exists reports whether an admin with the given ID exists.
func (r *AdminRepository) Exists(ctx context.Context, id int64) (bool, error) {
	const query = `SELECT 1 FROM admins WHERE admin_id = $1`
	var found int
	if err := r.db.GetContext(ctx, &found, query, id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("lookup admin: %w", err)
	}
	return true, nil
}
