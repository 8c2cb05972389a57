package patients

import "errors"

var (
	// ErrPatientNotFound is returned when no patient record belongs to the user.
	ErrPatientNotFound = errors.New("patient not found")

	// ErrInvalidUser is returned when account fields are missing.
	ErrInvalidUser = errors.New("name, email and phone are required")

	// ErrInvalidPatient is returned when a registration is incomplete.
	ErrInvalidPatient = errors.New("invalid patient registration")
)
