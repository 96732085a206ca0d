package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/camhien7804/Nha-Khoa-OU/internal/appointment"
	"github.com/camhien7804/Nha-Khoa-OU/internal/config"
	"github.com/camhien7804/Nha-Khoa-OU/internal/observability/metrics"
	redisclient "github.com/camhien7804/Nha-Khoa-OU/internal/redis"
)

// DetailStore is the slice of the appointment repository the dispatcher
// fetches mail context from.
type DetailStore interface {
	GetDetail(ctx context.Context, id uuid.UUID) (*appointment.Detail, error)
}

// InvoiceRenderer produces the PDF for an appointment and returns its path.
type InvoiceRenderer interface {
	Render(d *appointment.Detail) (string, error)
}

// TaskSource is the queue surface the dispatcher consumes. Failed tasks are
// pushed back through the same queue with a bumped attempt counter.
type TaskSource interface {
	Enqueue(ctx context.Context, task redisclient.Task) error
	Dequeue(ctx context.Context, block time.Duration) (*redisclient.Task, error)
}

// Dispatcher drains the notification queue and turns tasks into emails.
// It runs out of process from the API server so a slow mail provider never
// holds a booking request hostage.
type Dispatcher struct {
	queue   TaskSource
	store   DetailStore
	invoice InvoiceRenderer
	mailer  Mailer
	metrics *metrics.BookingMetrics
	logger  zerolog.Logger
	cfg     config.WorkerConfig

	clinicName string
}

func NewDispatcher(
	queue TaskSource,
	store DetailStore,
	invoice InvoiceRenderer,
	mailer Mailer,
	m *metrics.BookingMetrics,
	logger zerolog.Logger,
	cfg config.WorkerConfig,
	clinicName string,
) *Dispatcher {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 5 * time.Second
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Dispatcher{
		queue:      queue,
		store:      store,
		invoice:    invoice,
		mailer:     mailer,
		metrics:    m,
		logger:     logger,
		cfg:        cfg,
		clinicName: clinicName,
	}
}

// Run blocks until ctx is cancelled, processing tasks one at a time.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info().Msg("notify dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("notify dispatcher stopping")
			return ctx.Err()
		default:
		}

		task, err := d.queue.Dequeue(ctx, d.cfg.PollTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			d.logger.Error().Err(err).Msg("dequeue notify task")
			time.Sleep(time.Second)
			continue
		}
		if task == nil {
			continue
		}

		d.handle(ctx, *task)
	}
}

func (d *Dispatcher) handle(ctx context.Context, task redisclient.Task) {
	taskCtx, cancel := context.WithTimeout(ctx, d.cfg.TaskTimeout)
	err := d.Process(taskCtx, task)
	cancel()

	if err == nil {
		d.metrics.ObserveNotifyTask(string(task.Type), "ok")
		return
	}

	d.logger.Error().
		Err(err).
		Str("task", string(task.Type)).
		Str("appointment_id", task.AppointmentID.String()).
		Int("attempt", task.Attempt).
		Msg("notify task failed")

	if task.Attempt+1 >= d.cfg.MaxAttempts {
		d.metrics.ObserveNotifyTask(string(task.Type), "dropped")
		d.logger.Warn().
			Str("task", string(task.Type)).
			Str("appointment_id", task.AppointmentID.String()).
			Msg("notify task dropped after max attempts")
		return
	}

	task.Attempt++
	if qErr := d.queue.Enqueue(ctx, task); qErr != nil {
		d.metrics.ObserveNotifyTask(string(task.Type), "dropped")
		d.logger.Error().Err(qErr).Msg("re-enqueue notify task")
		return
	}
	d.metrics.ObserveNotifyTask(string(task.Type), "retried")
}

// Process executes a single task. Exposed so tests can drive tasks without
// the Run loop.
func (d *Dispatcher) Process(ctx context.Context, task redisclient.Task) error {
	detail, err := d.store.GetDetail(ctx, task.AppointmentID)
	if err != nil {
		return fmt.Errorf("load appointment %s: %w", task.AppointmentID, err)
	}
	if detail.PatientEmail == "" {
		d.logger.Info().
			Str("appointment_id", detail.ID.String()).
			Msg("no patient email on file, skipping notification")
		return nil
	}

	switch task.Type {
	case redisclient.TaskInvoiceEmail:
		return d.sendConfirmation(ctx, detail)
	case redisclient.TaskCancelEmail:
		return d.mailer.Send(ctx, CancellationMessage(d.clinicName, detail))
	default:
		return fmt.Errorf("unknown task type %q", task.Type)
	}
}

func (d *Dispatcher) sendConfirmation(ctx context.Context, detail *appointment.Detail) error {
	invoicePath := ""
	if d.invoice != nil {
		path, err := d.invoice.Render(detail)
		if err != nil {
			// The confirmation still goes out; the invoice can be fetched
			// from the API later.
			d.logger.Error().Err(err).
				Str("appointment_id", detail.ID.String()).
				Msg("render invoice")
		} else {
			invoicePath = path
		}
	}
	return d.mailer.Send(ctx, ConfirmationMessage(d.clinicName, detail, invoicePath))
}
