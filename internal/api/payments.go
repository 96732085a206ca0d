package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/camhien7804/Nha-Khoa-OU/internal/appointment"
	"github.com/camhien7804/Nha-Khoa-OU/internal/payment"
)

func createPaymentHandler(svc *appointment.Service, gateway *payment.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFrom(r.Context())

		var req CreatePaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		id, err := uuid.Parse(req.AppointmentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be a valid UUID")
			return
		}

		detail, err := svc.GetAppointment(r.Context(), actor, id)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		if detail.PaymentStatus == appointment.PaymentPaid {
			writeError(w, http.StatusConflict, "already_paid", "appointment has already been paid")
			return
		}

		res, err := gateway.CreatePayment(r.Context(), &detail.Appointment)
		if err != nil {
			writeError(w, http.StatusBadGateway, "gateway_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, CreatePaymentResponse{
			PayURL:  res.PayURL,
			OrderID: res.OrderID,
			Amount:  res.Amount,
		})
	}
}

// ipnHandler receives the gateway's server-to-server callback. The gateway
// retries on non-2xx, so genuine processing failures return 500 while
// rejected payments are acknowledged with 204 to stop redelivery.
func ipnHandler(reconciler *payment.Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ipn payment.IPN
		if err := json.NewDecoder(r.Body).Decode(&ipn); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		_, err := reconciler.Reconcile(r.Context(), ipn)
		switch {
		case err == nil,
			errors.Is(err, payment.ErrPaymentFailed),
			errors.Is(err, payment.ErrBadOrderID),
			errors.Is(err, appointment.ErrAppointmentNotFound):
			w.WriteHeader(http.StatusNoContent)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		}
	}
}
