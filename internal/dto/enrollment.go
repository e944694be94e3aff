package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FormValue is a form field that JSON clients may send either as a string or
// as a bare number, so ids echoed back from a page envelope bind unchanged.
type FormValue string

// UnmarshalJSON accepts a JSON string, a JSON number or null.
func (v *FormValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = FormValue(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("form value must be a string or number: %w", err)
	}
	*v = FormValue(n.String())
	return nil
}

// EnrollmentForm is the body of POST /enroll. Which fields matter depends on
// the visitor: user_id signs in, the admin fields create a student, and
// offering_id alone enrolls the signed-in student.
type EnrollmentForm struct {
	UserID         FormValue `form:"user_id" json:"user_id" swaggertype:"string"`
	FirstName      string    `form:"first_name" json:"first_name"`
	LastName       string    `form:"last_name" json:"last_name"`
	InitialBalance FormValue `form:"initial_balance" json:"initial_balance" swaggertype:"string"`
	OfferingID     FormValue `form:"offering_id" json:"offering_id" swaggertype:"string"`
}

// CreateAndEnrollRequest is the admin request to create a student and enroll
// them into one offering.
type CreateAndEnrollRequest struct {
	FirstName      string `validate:"required,max=50"`
	LastName       string `validate:"required,max=50"`
	InitialBalance string `validate:"required"`
	OfferingID     int64  `validate:"required,gt=0"`
}
