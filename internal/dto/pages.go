package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/course-enrollment/internal/models"
)

// EnrollPage is the enrollment page: offerings for everyone plus the panel of
// the signed-in visitor's role.
type EnrollPage struct {
	Offerings   []models.Offering         `json:"offerings"`
	Role        models.Role               `json:"role"`
	UserID      int64                     `json:"user_id,omitempty"`
	IsAdmin     bool                      `json:"is_admin"`
	Balance     *decimal.Decimal          `json:"balance,omitempty"`
	Enrollments []models.CourseEnrollment `json:"enrollments,omitempty"`
}

// HomePage is shown to signed-in visitors at the site root.
type HomePage struct {
	UserID  int64       `json:"user_id"`
	Role    models.Role `json:"role"`
	IsAdmin bool        `json:"is_admin"`
}

// CoursesPage lists every offering.
type CoursesPage struct {
	Courses []models.Offering `json:"courses"`
}

// ProgressPage lists the progress report rows.
type ProgressPage struct {
	Students []models.StudentProgress `json:"students"`
}
