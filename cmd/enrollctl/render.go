package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/noah-isme/course-enrollment/internal/models"
	"github.com/noah-isme/course-enrollment/internal/repository"
)

var (
	heading = color.New(color.FgYellow, color.Bold)
	success = color.New(color.FgGreen)
	failure = color.New(color.FgRed)
)

func renderOfferings(w io.Writer, offerings []models.Offering) {
	heading.Fprintln(w, "Course Offerings")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Offering", "Course", "Instructor", "Capacity", "Enrolled", "Seats", "Price"})
	for _, o := range offerings {
		table.Append([]string{
			strconv.FormatInt(o.ID, 10),
			strconv.FormatInt(o.CourseID, 10),
			strconv.FormatInt(o.InstructorID, 10),
			strconv.Itoa(o.MaxCapacity),
			strconv.Itoa(o.CurrentEnrollment),
			strconv.Itoa(o.SeatsAvailable),
			o.Price.StringFixed(2),
		})
	}
	table.Render()
}

func renderProgress(w io.Writer, rows []models.StudentProgress) {
	heading.Fprintln(w, "Student Progress")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Student", "First Name", "Last Name", "Total Courses"})
	for _, row := range rows {
		table.Append([]string{
			strconv.FormatInt(row.StudentID, 10),
			row.FirstName,
			row.LastName,
			strconv.Itoa(row.TotalCourses),
		})
	}
	table.Render()
}

func renderStatement(w io.Writer, statement *models.BalanceStatement) {
	heading.Fprintf(w, "%s %s (ID %d)\n", statement.Student.FirstName, statement.Student.LastName, statement.StudentID)
	fmt.Fprintf(w, "Balance: %s\n", statement.Student.Balance.StringFixed(2))
	if len(statement.Enrollments) == 0 {
		fmt.Fprintln(w, "No enrollments.")
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Enrollment", "Offering", "Status"})
	for _, e := range statement.Enrollments {
		table.Append([]string{strconv.FormatInt(e.ID, 10), strconv.FormatInt(e.OfferingID, 10), string(e.Status)})
	}
	table.Render()
}

func renderSchemaCheck(w io.Writer, missing []repository.SchemaObject) {
	if len(missing) == 0 {
		success.Fprintln(w, "schema ok: all required objects present")
		return
	}
	failure.Fprintln(w, "schema incomplete:")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Object", "Kind"})
	for _, obj := range missing {
		table.Append([]string{obj.Name, obj.Kind})
	}
	table.Render()
}
