package appointments

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carepulse/carepulse/internal/patients"
)

var (
	// ErrInvalidAppointment is returned when required fields are missing or malformed.
	ErrInvalidAppointment = errors.New("invalid appointment")

	// ErrUpdateFailed is returned when the platform reports no updated record.
	ErrUpdateFailed = errors.New("failed to update appointment")
)

// Status of an appointment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusScheduled, StatusCancelled:
		return true
	}
	return false
}

// Update types. Anything other than UpdateTypeSchedule sends the cancellation text.
const (
	UpdateTypeSchedule = "schedule"
	UpdateTypeCancel   = "cancel"
)

// Appointment is a stored appointment with its patient expanded.
type Appointment struct {
	ID                 string            `json:"$id"`
	CreatedAt          time.Time         `json:"$createdAt"`
	UpdatedAt          time.Time         `json:"$updatedAt"`
	Patient            *patients.Patient `json:"patient"`
	UserID             string            `json:"userId"`
	Schedule           time.Time         `json:"schedule"`
	Status             Status            `json:"status"`
	PrimaryPhysician   string            `json:"primaryPhysician"`
	Reason             string            `json:"reason,omitempty"`
	Note               string            `json:"note,omitempty"`
	CancellationReason *string           `json:"cancellationReason"`
}

// record is the stored shape: the patient is kept as its document id.
type record struct {
	ID                 string    `json:"$id"`
	CreatedAt          time.Time `json:"$createdAt"`
	UpdatedAt          time.Time `json:"$updatedAt"`
	Patient            string    `json:"patient"`
	UserID             string    `json:"userId"`
	Schedule           time.Time `json:"schedule"`
	Status             Status    `json:"status"`
	PrimaryPhysician   string    `json:"primaryPhysician"`
	Reason             string    `json:"reason,omitempty"`
	Note               string    `json:"note,omitempty"`
	CancellationReason *string   `json:"cancellationReason"`
}

func (r record) appointment(p *patients.Patient) *Appointment {
	return &Appointment{
		ID:                 r.ID,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		Patient:            p,
		UserID:             r.UserID,
		Schedule:           r.Schedule,
		Status:             r.Status,
		PrimaryPhysician:   r.PrimaryPhysician,
		Reason:             r.Reason,
		Note:               r.Note,
		CancellationReason: r.CancellationReason,
	}
}

// CreateAppointmentParams is the input for a new appointment. Patient is the
// patient document id.
type CreateAppointmentParams struct {
	UserID             string    `json:"userId"`
	Patient            string    `json:"patient"`
	PrimaryPhysician   string    `json:"primaryPhysician"`
	Schedule           time.Time `json:"schedule"`
	Reason             string    `json:"reason,omitempty"`
	Note               string    `json:"note,omitempty"`
	Status             Status    `json:"status"`
	CancellationReason *string   `json:"cancellationReason,omitempty"`
}

// Validate fills the default status and checks required fields.
func (p *CreateAppointmentParams) Validate() error {
	if p.Status == "" {
		p.Status = StatusPending
	}
	if !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidAppointment, p.Status)
	}
	switch {
	case strings.TrimSpace(p.UserID) == "":
		return fmt.Errorf("%w: userId is required", ErrInvalidAppointment)
	case strings.TrimSpace(p.Patient) == "":
		return fmt.Errorf("%w: patient is required", ErrInvalidAppointment)
	case strings.TrimSpace(p.PrimaryPhysician) == "":
		return fmt.Errorf("%w: primaryPhysician is required", ErrInvalidAppointment)
	case p.Schedule.IsZero():
		return fmt.Errorf("%w: schedule is required", ErrInvalidAppointment)
	}
	return nil
}

// Patch lists the appointment fields an update may change. Nil fields are left alone.
type Patch struct {
	PrimaryPhysician   *string    `json:"primaryPhysician,omitempty"`
	Schedule           *time.Time `json:"schedule,omitempty"`
	Status             *Status    `json:"status,omitempty"`
	Reason             *string    `json:"reason,omitempty"`
	Note               *string    `json:"note,omitempty"`
	CancellationReason *string    `json:"cancellationReason,omitempty"`
}

func (p *Patch) Validate() error {
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidAppointment, *p.Status)
	}
	if p.Schedule != nil && p.Schedule.IsZero() {
		return fmt.Errorf("%w: schedule cannot be empty", ErrInvalidAppointment)
	}
	return nil
}

// UpdateAppointmentParams drives UpdateAppointment.
type UpdateAppointmentParams struct {
	AppointmentID string `json:"appointmentId"`
	UserID        string `json:"userId"`
	TimeZone      string `json:"timeZone"`
	Appointment   Patch  `json:"appointment"`
	Type          string `json:"type"`
}

func (p *UpdateAppointmentParams) Validate() error {
	if strings.TrimSpace(p.AppointmentID) == "" {
		return fmt.Errorf("%w: appointmentId is required", ErrInvalidAppointment)
	}
	if strings.TrimSpace(p.UserID) == "" {
		return fmt.Errorf("%w: userId is required", ErrInvalidAppointment)
	}
	return p.Appointment.Validate()
}

// AppointmentList is the admin summary.
type AppointmentList struct {
	TotalCount     int            `json:"totalCount"`
	ScheduledCount int            `json:"scheduledCount"`
	PendingCount   int            `json:"pendingCount"`
	CancelledCount int            `json:"cancelledCount"`
	Documents      []*Appointment `json:"documents"`
}

// Counts classifies each appointment by status in a single pass. Unknown
// statuses land in no bucket.
func Counts(list []*Appointment) (scheduled, pending, cancelled int) {
	for _, a := range list {
		switch a.Status {
		case StatusScheduled:
			scheduled++
		case StatusPending:
			pending++
		case StatusCancelled:
			cancelled++
		}
	}
	return scheduled, pending, cancelled
}
