package models

import "github.com/shopspring/decimal"

// Offering is a scheduled instance of a course with its own capacity and price.
// SeatsAvailable is derived by the query that loads the row and is never stored.
type Offering struct {
	ID                int64           `db:"offering_id" json:"offering_id"`
	CourseID          int64           `db:"course_id" json:"course_id"`
	InstructorID      int64           `db:"instructor_id" json:"instructor_id"`
	MaxCapacity       int             `db:"max_capacity" json:"max_capacity"`
	CurrentEnrollment int             `db:"current_enrollment" json:"current_enrollment"`
	SeatsAvailable    int             `db:"seats_available" json:"seats_available"`
	Price             decimal.Decimal `db:"price" json:"price"`
}
