package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/camhien7804/Nha-Khoa-OU/internal/appointment"
)

type CreateAppointmentRequest struct {
	ServiceID   string `json:"service_id,omitempty"`
	ServiceName string `json:"service_name,omitempty"`
	StartAt     string `json:"start_at"`
	EndAt       string `json:"end_at"`
	DentistID   string `json:"dentist_id,omitempty"`
	ChosenPrice *int64 `json:"chosen_price,omitempty"`
	Notes       string `json:"notes,omitempty"`
	Payment     string `json:"payment_method,omitempty"`
	Channel     string `json:"channel,omitempty"`

	PatientName  string `json:"patient_name,omitempty"`
	PatientPhone string `json:"patient_phone,omitempty"`
	PatientEmail string `json:"patient_email,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

type TreatmentRequest struct {
	Date        *time.Time `json:"date,omitempty"`
	Diagnosis   string     `json:"diagnosis,omitempty"`
	Procedures  []string   `json:"procedures,omitempty"`
	Medicines   []string   `json:"medicines,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	Attachments []string   `json:"attachments,omitempty"`
}

type CreatePaymentRequest struct {
	AppointmentID string `json:"appointment_id"`
}

type CreatePaymentResponse struct {
	PayURL  string `json:"pay_url"`
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
}

type TreatmentEntryResponse struct {
	Seq         int        `json:"seq"`
	Date        time.Time  `json:"date"`
	Diagnosis   string     `json:"diagnosis,omitempty"`
	Procedures  []string   `json:"procedures,omitempty"`
	Medicines   []string   `json:"medicines,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	DentistID   *uuid.UUID `json:"dentist_id,omitempty"`
	Attachments []string   `json:"attachments,omitempty"`
}

type AppointmentResponse struct {
	ID              uuid.UUID  `json:"id"`
	PatientID       *uuid.UUID `json:"patient_id,omitempty"`
	PatientName     string     `json:"patient_name"`
	PatientPhone    string     `json:"patient_phone"`
	PatientEmail    string     `json:"patient_email,omitempty"`
	DentistID       *uuid.UUID `json:"dentist_id,omitempty"`
	DentistName     string     `json:"dentist_name,omitempty"`
	ServiceID       uuid.UUID  `json:"service_id"`
	ServiceName     string     `json:"service_name"`
	ServicePrice    int64      `json:"service_price"`
	StartAt         time.Time  `json:"start_at"`
	EndAt           time.Time  `json:"end_at"`
	AppointmentDate string     `json:"appointment_date"`
	TimeSlot        string     `json:"time_slot"`
	Status          string     `json:"status"`
	Notes           string     `json:"notes,omitempty"`
	PaymentMethod   string     `json:"payment_method"`
	PaymentStatus   string     `json:"payment_status"`
	TransactionID   *string    `json:"transaction_id,omitempty"`
	TreatmentNotes  string     `json:"treatment_notes,omitempty"`
	Prescriptions   []string   `json:"prescriptions,omitempty"`
	FollowUpDate    *time.Time `json:"follow_up_date,omitempty"`
	CancelReason    *string    `json:"cancel_reason,omitempty"`
	CreatedSource   string     `json:"created_source"`
	CreatedAt       time.Time  `json:"created_at"`

	History []TreatmentEntryResponse `json:"history,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(d *appointment.Detail) AppointmentResponse {
	resp := AppointmentResponse{
		ID:              d.ID,
		PatientID:       d.PatientID,
		PatientName:     d.PatientName,
		PatientPhone:    d.PatientPhone,
		PatientEmail:    d.PatientEmail,
		DentistID:       d.DentistID,
		DentistName:     d.DentistName,
		ServiceID:       d.ServiceID,
		ServiceName:     d.ServiceName,
		ServicePrice:    d.ServicePrice,
		StartAt:         d.StartAt,
		EndAt:           d.EndAt,
		AppointmentDate: d.AppointmentDate.Format("2006-01-02"),
		TimeSlot:        d.TimeSlot,
		Status:          string(d.Status),
		Notes:           d.Notes,
		PaymentMethod:   string(d.PaymentMethod),
		PaymentStatus:   string(d.PaymentStatus),
		TransactionID:   d.TransactionID,
		TreatmentNotes:  d.TreatmentNotes,
		Prescriptions:   d.Prescriptions,
		FollowUpDate:    d.FollowUpDate,
		CancelReason:    d.CancelReason,
		CreatedSource:   string(d.CreatedSource),
		CreatedAt:       d.CreatedAt,
	}
	for _, entry := range d.History {
		resp.History = append(resp.History, TreatmentEntryResponse{
			Seq:         entry.Seq,
			Date:        entry.Date,
			Diagnosis:   entry.Diagnosis,
			Procedures:  entry.Procedures,
			Medicines:   entry.Medicines,
			Notes:       entry.Notes,
			DentistID:   entry.DentistID,
			Attachments: entry.Attachments,
		})
	}
	return resp
}

func toAppointmentList(details []appointment.Detail) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(details))
	for i := range details {
		out = append(out, toAppointmentResponse(&details[i]))
	}
	return out
}
