package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxBalance is the largest balance a student account may hold.
var MaxBalance = decimal.RequireFromString("999999.99")

// Student represents a learner with a prepaid balance.
type Student struct {
	ID          int64           `db:"student_id" json:"student_id"`
	FirstName   string          `db:"first_name" json:"first_name"`
	LastName    string          `db:"last_name" json:"last_name"`
	Balance     decimal.Decimal `db:"balance" json:"balance"`
	Email       string          `db:"email" json:"email"`
	DateOfBirth time.Time       `db:"date_of_birth" json:"date_of_birth"`
	Active      bool            `db:"is_active" json:"is_active"`
	Enabled     bool            `db:"is_enabled" json:"is_enabled"`
}

// StudentBalance is the subset of a student shown on the balance page.
type StudentBalance struct {
	FirstName string          `db:"first_name" json:"first_name"`
	LastName  string          `db:"last_name" json:"last_name"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
}

// BalanceStatement combines a student's balance with their enrollment history.
type BalanceStatement struct {
	StudentID   int64          `json:"student_id"`
	Student     StudentBalance `json:"student"`
	Enrollments []Enrollment   `json:"enrollments"`
}

// StudentPanel is the balance and course list shown to a signed-in student.
type StudentPanel struct {
	Balance     decimal.Decimal    `json:"balance"`
	Enrollments []CourseEnrollment `json:"enrollments"`
}
