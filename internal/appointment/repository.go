package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient profile not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPatientByUser(ctx context.Context, userID uuid.UUID) (*Patient, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error)

	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Detail, error)
	ListByDentist(ctx context.Context, dentistID uuid.UUID) ([]Detail, error)
	ListCompletedByPatient(ctx context.Context, patientID uuid.UUID) ([]Detail, error)

	// HasOverlap is the double-booking guard: true when any pending or
	// confirmed appointment for the dentist overlaps [s, e) under the
	// half-open test existing.start < e AND existing.end > s.
	HasOverlap(ctx context.Context, dentistID uuid.UUID, s, e time.Time) (bool, error)

	Create(ctx context.Context, appt *Appointment) (*Appointment, error)

	// UpdateStatus flips status only when the stored status still equals
	// from, serializing racing transitions on the same id. A failed
	// compare-and-set surfaces as ErrAppointmentNotFound.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID, from Status, reason string) (*Appointment, error)

	// AppendTreatment atomically appends an immutable history entry and
	// forces the appointment to completed, mirroring the entry's notes
	// and medicines onto the appointment record.
	AppendTreatment(ctx context.Context, id uuid.UUID, entry TreatmentEntry) (*Appointment, error)

	MarkPaid(ctx context.Context, id uuid.UUID, transactionID string) (*Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
