package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/camhien7804/Nha-Khoa-OU/internal/redis"
)

const defaultCancelReason = "unspecified"

// UpdateStatus performs an explicit staff status transition. Cancellation is
// routed through Cancel so the reason and notification rules apply.
func (s *Service) UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, to Status) (*Detail, error) {
	if to == StatusCancelled {
		return s.Cancel(ctx, actor, id, "")
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !CanTransition(appt.Status, to) {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateStatus(ctx, id, appt.Status, to)
	if err != nil {
		// The compare-and-set lost against a concurrent transition.
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.logEvent(ctx, id, EventStatusChanged, map[string]any{
		"from": appt.Status,
		"to":   to,
		"by":   actor.UserID,
	})
	s.metrics.ObserveTransition(string(to))

	return s.detailOrBare(ctx, updated)
}

// Cancel transitions an appointment to cancelled. Patients may only cancel
// their own appointments. The cancellation email is queued best-effort and
// never rolls back the transition.
func (s *Service) Cancel(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*Detail, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor.Role == RolePatient {
		profile, err := s.repo.GetPatientByUser(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		if appt.PatientID == nil || *appt.PatientID != profile.ID {
			return nil, ErrNotAppointmentOwner
		}
		if reason == "" {
			reason = "cancelled by patient"
		}
	}

	if !CanTransition(appt.Status, StatusCancelled) {
		return nil, ErrInvalidStatusTransition
	}

	if reason == "" {
		reason = defaultCancelReason
	}

	updated, err := s.repo.Cancel(ctx, id, appt.Status, reason)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.logEvent(ctx, id, EventAppointmentCancelled, map[string]any{
		"reason": reason,
		"by":     actor.UserID,
		"role":   actor.Role,
	})
	s.metrics.ObserveTransition(string(StatusCancelled))

	s.enqueueTask(ctx, redisclient.Task{Type: redisclient.TaskCancelEmail, AppointmentID: id})

	return s.detailOrBare(ctx, updated)
}

// TreatmentInput is the dentist-supplied clinical record for one visit.
type TreatmentInput struct {
	Date        *time.Time
	Diagnosis   string
	Procedures  []string
	Medicines   []string
	Notes       string
	Attachments []string
}

// AppendTreatment appends an immutable treatment-history entry. The append
// always forces the appointment to completed: recording treatment means the
// visit happened.
func (s *Service) AppendTreatment(ctx context.Context, actor Actor, id uuid.UUID, in TreatmentInput) (*Detail, error) {
	if _, err := s.repo.GetAppointmentByID(ctx, id); err != nil {
		return nil, err
	}

	entryDate := time.Now()
	if in.Date != nil {
		entryDate = *in.Date
	}

	entry := TreatmentEntry{
		AppointmentID: id,
		Date:          entryDate,
		Diagnosis:     in.Diagnosis,
		Procedures:    in.Procedures,
		Medicines:     in.Medicines,
		Notes:         in.Notes,
		Attachments:   in.Attachments,
	}

	if actor.Role == RoleDentist {
		if d, err := s.dentists.GetByUser(ctx, actor.UserID); err == nil {
			entry.DentistID = &d.ID
		}
	}

	updated, err := s.repo.AppendTreatment(ctx, id, entry)
	if err != nil {
		return nil, fmt.Errorf("append treatment: %w", err)
	}

	s.logEvent(ctx, id, EventHistoryAppended, map[string]any{
		"diagnosis": entry.Diagnosis,
		"dentist":   entry.DentistID,
		"by":        actor.UserID,
	})
	s.metrics.ObserveTransition(string(StatusCompleted))

	return s.detailOrBare(ctx, updated)
}
