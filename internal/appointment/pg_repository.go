package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/camhien7804/Nha-Khoa-OU/internal/db"
)

type PgRepository struct {
	conn db.Conn
}

func NewPgRepository(conn db.Conn) *PgRepository {
	return &PgRepository{conn: conn}
}

const appointmentColumns = `
	a.id, a.patient_id, a.patient_name, a.patient_phone, a.patient_email,
	a.dentist_id, a.service_id, a.service_name, a.service_price,
	a.start_at, a.end_at, a.appointment_date, a.time_slot,
	a.status, a.notes, a.payment_method, a.payment_status, a.transaction_id,
	a.treatment_notes, a.prescriptions, a.follow_up_date, a.cancel_reason,
	a.created_by, a.created_source, a.created_at, a.updated_at
`

// Helpers

func scanAppointmentFields(row pgx.Row, a *Appointment, extra ...any) error {
	dest := []any{
		&a.ID,
		&a.PatientID,
		&a.PatientName,
		&a.PatientPhone,
		&a.PatientEmail,
		&a.DentistID,
		&a.ServiceID,
		&a.ServiceName,
		&a.ServicePrice,
		&a.StartAt,
		&a.EndAt,
		&a.AppointmentDate,
		&a.TimeSlot,
		&a.Status,
		&a.Notes,
		&a.PaymentMethod,
		&a.PaymentStatus,
		&a.TransactionID,
		&a.TreatmentNotes,
		&a.Prescriptions,
		&a.FollowUpDate,
		&a.CancelReason,
		&a.CreatedBy,
		&a.CreatedSource,
		&a.CreatedAt,
		&a.UpdatedAt,
	}
	dest = append(dest, extra...)
	return row.Scan(dest...)
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	if err := scanAppointmentFields(row, &a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func scanDetail(row pgx.Row) (*Detail, error) {
	var d Detail
	err := scanAppointmentFields(row, &d.Appointment,
		&d.DentistName,
		&d.DentistSpecialization,
		&d.DentistEmail,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &d, nil
}

func scanTreatmentEntry(row pgx.Row) (*TreatmentEntry, error) {
	var e TreatmentEntry
	err := row.Scan(
		&e.AppointmentID,
		&e.Seq,
		&e.Date,
		&e.Diagnosis,
		&e.Procedures,
		&e.Medicines,
		&e.Notes,
		&e.DentistID,
		&e.Attachments,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Interface methods

func (r *PgRepository) GetPatientByUser(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	row := r.conn.QueryRow(ctx, `
		SELECT p.id, p.user_id, u.name, p.phone, u.email, p.created_at, p.updated_at
		FROM patients p
		JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1
	`, userID)

	var p Patient
	var email *string
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Phone, &email, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	p.Email = email
	return &p, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.conn.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		WHERE a.id = $1
	`, id)
	return scanAppointment(row)
}

const detailQuery = `
	SELECT ` + appointmentColumns + `,
		COALESCE(u.name, ''), d.specialization, u.email
	FROM appointments a
	LEFT JOIN dentists d ON d.id = a.dentist_id
	LEFT JOIN users u ON u.id = d.user_id
`

func (r *PgRepository) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	row := r.conn.QueryRow(ctx, detailQuery+` WHERE a.id = $1`, id)

	detail, err := scanDetail(row)
	if err != nil {
		return nil, err
	}

	history, err := r.loadHistory(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	detail.History = history[id]

	return detail, nil
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Detail, error) {
	return r.listDetails(ctx, detailQuery+`
		WHERE a.patient_id = $1
		ORDER BY a.start_at DESC
	`, patientID)
}

func (r *PgRepository) ListByDentist(ctx context.Context, dentistID uuid.UUID) ([]Detail, error) {
	return r.listDetails(ctx, detailQuery+`
		WHERE a.dentist_id = $1
		ORDER BY a.start_at DESC
	`, dentistID)
}

func (r *PgRepository) ListCompletedByPatient(ctx context.Context, patientID uuid.UUID) ([]Detail, error) {
	return r.listDetails(ctx, detailQuery+`
		WHERE a.patient_id = $1
		  AND a.status = 'completed'
		ORDER BY a.start_at DESC
	`, patientID)
}

func (r *PgRepository) listDetails(ctx context.Context, query string, args ...any) ([]Detail, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Detail
	var ids []uuid.UUID
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
		ids = append(ids, d.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return result, nil
	}

	history, err := r.loadHistory(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range result {
		result[i].History = history[result[i].ID]
	}

	return result, nil
}

func (r *PgRepository) loadHistory(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]TreatmentEntry, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT appointment_id, seq, entry_date, diagnosis, procedures,
		       medicines, notes, dentist_id, attachments, created_at
		FROM appointment_treatments
		WHERE appointment_id = ANY($1)
		ORDER BY appointment_id, seq
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make(map[uuid.UUID][]TreatmentEntry)
	for rows.Next() {
		e, err := scanTreatmentEntry(rows)
		if err != nil {
			return nil, err
		}
		history[e.AppointmentID] = append(history[e.AppointmentID], *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return history, nil
}

func (r *PgRepository) HasOverlap(ctx context.Context, dentistID uuid.UUID, s, e time.Time) (bool, error) {
	row := r.conn.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM appointments
			WHERE dentist_id = $1
			  AND status IN ('pending', 'confirmed')
			  AND start_at < $3
			  AND end_at > $2
		)
	`, dentistID, s, e)

	var overlap bool
	if err := row.Scan(&overlap); err != nil {
		return false, err
	}
	return overlap, nil
}

func (r *PgRepository) Create(ctx context.Context, appt *Appointment) (*Appointment, error) {
	id := appt.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	prescriptions := appt.Prescriptions
	if prescriptions == nil {
		prescriptions = []string{}
	}

	row := r.conn.QueryRow(ctx, `
		INSERT INTO appointments AS a (
			id, patient_id, patient_name, patient_phone, patient_email,
			dentist_id, service_id, service_name, service_price,
			start_at, end_at, appointment_date, time_slot,
			status, notes, payment_method, payment_status,
			treatment_notes, prescriptions,
			created_by, created_source, created_at, updated_at
		)
		VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13,
			$14, $15, $16, $17,
			$18, $19,
			$20, $21, now(), now()
		)
		RETURNING `+appointmentColumns,
		id, appt.PatientID, appt.PatientName, appt.PatientPhone, appt.PatientEmail,
		appt.DentistID, appt.ServiceID, appt.ServiceName, appt.ServicePrice,
		appt.StartAt, appt.EndAt, appt.AppointmentDate, appt.TimeSlot,
		appt.Status, appt.Notes, appt.PaymentMethod, appt.PaymentStatus,
		appt.TreatmentNotes, prescriptions,
		appt.CreatedBy, appt.CreatedSource,
	)

	return scanAppointment(row)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.conn.QueryRow(ctx, `
		UPDATE appointments a
		SET status = $2,
		    updated_at = now()
		WHERE a.id = $1
		  AND a.status = $3
		RETURNING `+appointmentColumns,
		id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) Cancel(ctx context.Context, id uuid.UUID, from Status, reason string) (*Appointment, error) {
	row := r.conn.QueryRow(ctx, `
		UPDATE appointments a
		SET status = 'cancelled',
		    cancel_reason = $3,
		    updated_at = now()
		WHERE a.id = $1
		  AND a.status = $2
		RETURNING `+appointmentColumns,
		id, from, reason)

	return scanAppointment(row)
}

func (r *PgRepository) AppendTreatment(ctx context.Context, id uuid.UUID, entry TreatmentEntry) (*Appointment, error) {
	tx, err := r.conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin append treatment: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var seq int
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(seq), 0) + 1
		FROM appointment_treatments
		WHERE appointment_id = $1
	`, id).Scan(&seq)
	if err != nil {
		return nil, fmt.Errorf("next history seq: %w", err)
	}

	procedures := entry.Procedures
	if procedures == nil {
		procedures = []string{}
	}
	medicines := entry.Medicines
	if medicines == nil {
		medicines = []string{}
	}
	attachments := entry.Attachments
	if attachments == nil {
		attachments = []string{}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO appointment_treatments (
			appointment_id, seq, entry_date, diagnosis, procedures,
			medicines, notes, dentist_id, attachments, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
	`, id, seq, entry.Date, entry.Diagnosis, procedures,
		medicines, entry.Notes, entry.DentistID, attachments)
	if err != nil {
		return nil, fmt.Errorf("insert treatment entry: %w", err)
	}

	row := tx.QueryRow(ctx, `
		UPDATE appointments a
		SET status = 'completed',
		    treatment_notes = $2,
		    prescriptions = $3,
		    updated_at = now()
		WHERE a.id = $1
		RETURNING `+appointmentColumns,
		id, entry.Notes, medicines)

	appt, err := scanAppointment(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit append treatment: %w", err)
	}

	return appt, nil
}

func (r *PgRepository) MarkPaid(ctx context.Context, id uuid.UUID, transactionID string) (*Appointment, error) {
	row := r.conn.QueryRow(ctx, `
		UPDATE appointments a
		SET payment_status = 'paid',
		    transaction_id = $2,
		    updated_at = now()
		WHERE a.id = $1
		RETURNING `+appointmentColumns,
		id, transactionID)

	return scanAppointment(row)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	var appID *uuid.UUID
	if ev.AppointmentID != nil {
		appID = ev.AppointmentID
	}

	_, err := r.conn.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, appID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
