package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/camhien7804/Nha-Khoa-OU/internal/appointment"
	"github.com/camhien7804/Nha-Khoa-OU/internal/catalog"
	"github.com/camhien7804/Nha-Khoa-OU/internal/dentist"
	redisclient "github.com/camhien7804/Nha-Khoa-OU/internal/redis"
)

func createAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFrom(r.Context())

		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		detail, err := svc.Create(r.Context(), actor, appointment.CreateRequest{
			ServiceID:   req.ServiceID,
			ServiceName: req.ServiceName,
			StartAt:     req.StartAt,
			EndAt:       req.EndAt,
			DentistID:   req.DentistID,
			ChosenPrice: req.ChosenPrice,
			Notes:       req.Notes,
			Payment:     req.Payment,
			Channel:     req.Channel,
			Name:        req.PatientName,
			Phone:       req.PatientPhone,
			Email:       req.PatientEmail,
		})
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(detail))
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFrom(r.Context())
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}
		detail, err := svc.GetAppointment(r.Context(), actor, id)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(detail))
	}
}

func myAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFrom(r.Context())
		list, err := svc.MyAppointments(r.Context(), actor)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentList(list))
	}
}

func myHistoryHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFrom(r.Context())
		list, err := svc.MyTreatmentHistory(r.Context(), actor)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentList(list))
	}
}

func dentistAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFrom(r.Context())
		list, err := svc.DentistAppointments(r.Context(), actor)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentList(list))
	}
}

func patientHistoryHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}
		list, err := svc.PatientHistory(r.Context(), id)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentList(list))
	}
}

func updateStatusHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFrom(r.Context())
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		var req UpdateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		status, err := appointment.ParseStatus(req.Status)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_status", err.Error())
			return
		}

		detail, err := svc.UpdateStatus(r.Context(), actor, id, status)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(detail))
	}
}

func cancelAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFrom(r.Context())
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		var req CancelRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
				return
			}
		}

		detail, err := svc.Cancel(r.Context(), actor, id, req.Reason)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(detail))
	}
}

func appendTreatmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFrom(r.Context())
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		var req TreatmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		detail, err := svc.AppendTreatment(r.Context(), actor, id, appointment.TreatmentInput{
			Date:        req.Date,
			Diagnosis:   req.Diagnosis,
			Procedures:  req.Procedures,
			Medicines:   req.Medicines,
			Notes:       req.Notes,
			Attachments: req.Attachments,
		})
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(detail))
	}
}

func parseIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func handleAppointmentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrInvalidInterval):
		writeError(w, http.StatusBadRequest, "invalid_interval", err.Error())
	case errors.Is(err, appointment.ErrMissingPatientInfo):
		writeError(w, http.StatusBadRequest, "missing_patient_info", err.Error())
	case errors.Is(err, catalog.ErrInvalidPriceSelection):
		writeError(w, http.StatusBadRequest, "invalid_price_selection", err.Error())
	case errors.Is(err, catalog.ErrServiceNotFound):
		writeError(w, http.StatusNotFound, "service_not_found", err.Error())
	case errors.Is(err, dentist.ErrDentistNotFound):
		writeError(w, http.StatusNotFound, "dentist_not_found", err.Error())
	case errors.Is(err, appointment.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrNotAppointmentOwner):
		writeError(w, http.StatusForbidden, "not_appointment_owner", err.Error())
	case errors.Is(err, appointment.ErrNoDentistAvailable):
		writeError(w, http.StatusConflict, "no_dentist_available", err.Error())
	case errors.Is(err, appointment.ErrDentistSlotTaken):
		writeError(w, http.StatusConflict, "dentist_slot_taken", err.Error())
	case errors.Is(err, appointment.ErrDentistBusy),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "dentist_busy", "the dentist's calendar is being updated, please retry shortly")
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
