package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/camhien7804/Nha-Khoa-OU/internal/appointment"
	"github.com/camhien7804/Nha-Khoa-OU/internal/observability/metrics"
)

const EventPaymentReconciled = "PAYMENT_RECONCILED"

var (
	// ErrPaymentFailed signals a non-zero gateway result code.
	ErrPaymentFailed = errors.New("gateway reported payment failure")
	// ErrBadOrderID signals an order id the callback cannot be mapped from.
	ErrBadOrderID = errors.New("malformed order id")
)

// IPN is the gateway's server-to-server notification payload. Only the
// fields the reconciler acts on are decoded.
type IPN struct {
	OrderID    string `json:"orderId"`
	ResultCode int    `json:"resultCode"`
	Message    string `json:"message"`
	Amount     int64  `json:"amount"`
	TransID    int64  `json:"transId"`
}

// AppointmentStore is the slice of the appointment repository the
// reconciler needs.
type AppointmentStore interface {
	MarkPaid(ctx context.Context, id uuid.UUID, transactionID string) (*appointment.Appointment, error)
	InsertEvent(ctx context.Context, ev appointment.EventLog) error
}

// Reconciler maps gateway callbacks onto appointment payment status. It
// only ever flips payment state; appointments are never created, cancelled
// or rescheduled from here.
type Reconciler struct {
	store   AppointmentStore
	metrics *metrics.BookingMetrics
	logger  zerolog.Logger
}

func NewReconciler(store AppointmentStore, m *metrics.BookingMetrics, logger zerolog.Logger) *Reconciler {
	return &Reconciler{store: store, metrics: m, logger: logger}
}

// Reconcile applies one IPN callback. The callback body is not
// signature-verified; the order id and result code are taken at face value,
// so the IPN endpoint must not be reachable from untrusted networks.
func (r *Reconciler) Reconcile(ctx context.Context, ipn IPN) (*appointment.Appointment, error) {
	idPart, _, _ := strings.Cut(ipn.OrderID, "_")
	id, err := uuid.Parse(idPart)
	if err != nil {
		r.metrics.ObserveIPN("invalid")
		return nil, fmt.Errorf("%w: %q", ErrBadOrderID, ipn.OrderID)
	}

	if ipn.ResultCode != 0 {
		r.metrics.ObserveIPN("failed")
		r.logger.Warn().
			Str("order_id", ipn.OrderID).
			Int("result_code", ipn.ResultCode).
			Str("message", ipn.Message).
			Msg("gateway payment failed")
		return nil, fmt.Errorf("%w: code=%d", ErrPaymentFailed, ipn.ResultCode)
	}

	appt, err := r.store.MarkPaid(ctx, id, ipn.OrderID)
	if err != nil {
		return nil, err
	}

	r.metrics.ObserveIPN("paid")
	r.logEvent(ctx, appt.ID, ipn)

	r.logger.Info().
		Str("appointment_id", appt.ID.String()).
		Str("order_id", ipn.OrderID).
		Msg("payment reconciled")

	return appt, nil
}

func (r *Reconciler) logEvent(ctx context.Context, apptID uuid.UUID, ipn IPN) {
	payload, err := json.Marshal(map[string]any{
		"order_id":    ipn.OrderID,
		"result_code": ipn.ResultCode,
		"amount":      ipn.Amount,
		"trans_id":    ipn.TransID,
	})
	if err != nil {
		return
	}
	ev := appointment.EventLog{
		EventType:     EventPaymentReconciled,
		AppointmentID: &apptID,
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
	}
	if err := r.store.InsertEvent(ctx, ev); err != nil {
		r.logger.Warn().Err(err).Msg("insert event log")
	}
}
