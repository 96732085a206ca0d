package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PayCash   PaymentMethod = "cash"
	PayWallet PaymentMethod = "momo"
	PayATM    PaymentMethod = "atm"
	PayCard   PaymentMethod = "cc"
	PayVTS    PaymentMethod = "vts"
	PayOther  PaymentMethod = "other"
)

type CreatedSource string

const (
	SourceWeb     CreatedSource = "web"
	SourceApp     CreatedSource = "app"
	SourceAdmin   CreatedSource = "admin"
	SourceDentist CreatedSource = "dentist"
)

// Roles carried by the authenticated identity.
const (
	RolePatient = "Patient"
	RoleDentist = "Dentist"
	RoleAdmin   = "Admin"
)

// Actor is the authenticated identity performing an operation. Built by the
// API auth middleware, consumed by the service.
type Actor struct {
	UserID uuid.UUID
	Role   string
	Name   string
	Email  string
}

func (a Actor) IsStaff() bool {
	return a.Role == RoleAdmin || a.Role == RoleDentist
}

type Patient struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Phone     string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Appointment struct {
	ID uuid.UUID

	// Nil patient means a walk-in booked by staff; the denormalized
	// contact fields below are then the only identity we hold.
	PatientID    *uuid.UUID
	PatientName  string
	PatientPhone string
	PatientEmail string

	DentistID *uuid.UUID

	ServiceID   uuid.UUID
	ServiceName string
	// Fixed at creation time, never recomputed from catalog changes.
	ServicePrice int64

	StartAt         time.Time
	EndAt           time.Time
	AppointmentDate time.Time
	TimeSlot        string // display label, "HH:MM - HH:MM"

	Status Status
	Notes  string

	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus
	TransactionID *string

	TreatmentNotes string
	Prescriptions  []string
	FollowUpDate   *time.Time
	CancelReason   *string

	CreatedBy     uuid.UUID
	CreatedSource CreatedSource
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TreatmentEntry is one immutable clinical record appended after a visit.
// Entries are ordered by Seq and never updated or removed.
type TreatmentEntry struct {
	AppointmentID uuid.UUID
	Seq           int
	Date          time.Time
	Diagnosis     string
	Procedures    []string
	Medicines     []string
	Notes         string
	DentistID     *uuid.UUID
	Attachments   []string
	CreatedAt     time.Time
}

// Detail is the read-time projection of an appointment with dentist display
// fields joined on and the treatment history loaded. The core always
// operates on plain ids; this view exists for handlers, invoices and mail.
type Detail struct {
	Appointment
	DentistName           string
	DentistSpecialization *string
	DentistEmail          *string
	History               []TreatmentEntry
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

// TimeSlotLabel renders the human-readable slot label from the interval's
// hour and minute components.
func TimeSlotLabel(s, e time.Time) string {
	return fmt.Sprintf("%02d:%02d - %02d:%02d", s.Hour(), s.Minute(), e.Hour(), e.Minute())
}

// DateOnly truncates an instant to midnight in its own location.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
