package repository

import "errors"

// ErrStudentNotFound is returned when the referenced student row does not exist.
var ErrStudentNotFound = errors.New("student not found")

// ErrOfferingNotFound is returned when the referenced offering row does not exist.
var ErrOfferingNotFound = errors.New("offering not found")

// ErrCapacityReached is returned when the conditional seat increment matched no row.
var ErrCapacityReached = errors.New("offering capacity reached")

// ErrNoConfirmation is returned when the create-and-enroll procedure produced no row.
var ErrNoConfirmation = errors.New("procedure returned no confirmation row")
