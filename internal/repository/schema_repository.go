package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// SchemaObject is a database object the service depends on.
type SchemaObject struct {
	Name string
	Kind string
}

// RequiredSchema lists the tables, view and procedure the service reads and calls.
var RequiredSchema = []SchemaObject{
	{Name: "students", Kind: "table"},
	{Name: "admins", Kind: "table"},
	{Name: "course_offerings", Kind: "table"},
	{Name: "enrollments", Kind: "table"},
	{Name: "vw_student_progress", Kind: "view"},
	{Name: "sp_create_and_enroll_student", Kind: "function"},
}

// SchemaRepository inspects the connected database's catalog.
type SchemaRepository struct {
	db *sqlx.DB
}

// NewSchemaRepository constructs the repository.
func NewSchemaRepository(db *sqlx.DB) *SchemaRepository {
	return &SchemaRepository{db: db}
}

// Missing returns the objects in want that the current schema does not define.
func (r *SchemaRepository) Missing(ctx context.Context, want []SchemaObject) ([]SchemaObject, error) {
	const query = `SELECT table_name FROM information_schema.tables
        WHERE table_schema = current_schema() AND table_name = ANY($1)
        UNION
        SELECT routine_name FROM information_schema.routines
        WHERE routine_schema = current_schema() AND routine_name = ANY($1)`

	names := make([]string, 0, len(want))
	for _, obj := range want {
		names = append(names, obj.Name)
	}

	var found []string
	if err := r.db.SelectContext(ctx, &found, query, pq.Array(names)); err != nil {
		return nil, fmt.Errorf("inspect schema: %w", err)
	}
	present := make(map[string]struct{}, len(found))
	for _, name := range found {
		present[name] = struct{}{}
	}

	var missing []SchemaObject
	for _, obj := range want {
		if _, ok := present[obj.Name]; !ok {
			missing = append(missing, obj)
		}
	}
	return missing, nil
}
