package models

// StudentProgress is one row of the progress reporting view.
type StudentProgress struct {
	StudentID    int64  `db:"student_id" json:"student_id"`
	FirstName    string `db:"first_name" json:"first_name"`
	LastName     string `db:"last_name" json:"last_name"`
	TotalCourses int    `db:"total_courses" json:"total_courses"`
}
