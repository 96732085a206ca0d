package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camhien7804/Nha-Khoa-OU/internal/appointment"
	"github.com/camhien7804/Nha-Khoa-OU/internal/config"
	redisclient "github.com/camhien7804/Nha-Khoa-OU/internal/redis"
)

type fakeDetailStore struct {
	details map[uuid.UUID]*appointment.Detail
}

func (f *fakeDetailStore) GetDetail(_ context.Context, id uuid.UUID) (*appointment.Detail, error) {
	d, ok := f.details[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	return d, nil
}

type fakeRenderer struct {
	path string
	err  error
}

func (f *fakeRenderer) Render(_ *appointment.Detail) (string, error) {
	return f.path, f.err
}

type memQueue struct {
	tasks []redisclient.Task
}

func (q *memQueue) Enqueue(_ context.Context, task redisclient.Task) error {
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *memQueue) Dequeue(_ context.Context, _ time.Duration) (*redisclient.Task, error) {
	if len(q.tasks) == 0 {
		return nil, nil
	}
	t := q.tasks[0]
	q.tasks = q.tasks[1:]
	return &t, nil
}

type failingMailer struct {
	calls int
}

func (m *failingMailer) Send(context.Context, Message) error {
	m.calls++
	return errors.New("smtp unreachable")
}

func detailFixture() *appointment.Detail {
	reason := "patient request"
	return &appointment.Detail{
		Appointment: appointment.Appointment{
			ID:              uuid.New(),
			PatientName:     "Tran Thi B",
			PatientEmail:    "b@example.com",
			ServiceName:     "Cleaning",
			ServicePrice:    150000,
			AppointmentDate: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
			TimeSlot:        "09:00 - 09:30",
			Status:          appointment.StatusPending,
			CancelReason:    &reason,
		},
		DentistName: "Dr. Nguyen Van A",
	}
}

func newDispatcher(store DetailStore, renderer InvoiceRenderer, mailer Mailer, queue TaskSource) *Dispatcher {
	return NewDispatcher(queue, store, renderer, mailer, nil, zerolog.Nop(), config.WorkerConfig{
		PollTimeout: 50 * time.Millisecond,
		TaskTimeout: time.Second,
		MaxAttempts: 3,
	}, "Nha Khoa OU")
}

func TestProcessInvoiceEmail(t *testing.T) {
	d := detailFixture()
	store := &fakeDetailStore{details: map[uuid.UUID]*appointment.Detail{d.ID: d}}
	mailer := NewStubMailer(zerolog.Nop())
	disp := newDispatcher(store, &fakeRenderer{path: "/tmp/invoice.pdf"}, mailer, &memQueue{})

	err := disp.Process(context.Background(), redisclient.Task{
		Type:          redisclient.TaskInvoiceEmail,
		AppointmentID: d.ID,
	})
	require.NoError(t, err)

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "b@example.com", sent[0].To)
	assert.Contains(t, sent[0].Subject, "confirmation")
	assert.Contains(t, sent[0].Text, "Cleaning")
	assert.Contains(t, sent[0].Text, "150,000 VND")
	require.Len(t, sent[0].Attachments, 1)
	assert.Equal(t, "/tmp/invoice.pdf", sent[0].Attachments[0].Path)
}

func TestProcessInvoiceEmailRendererFailureStillSends(t *testing.T) {
	d := detailFixture()
	store := &fakeDetailStore{details: map[uuid.UUID]*appointment.Detail{d.ID: d}}
	mailer := NewStubMailer(zerolog.Nop())
	disp := newDispatcher(store, &fakeRenderer{err: errors.New("disk full")}, mailer, &memQueue{})

	err := disp.Process(context.Background(), redisclient.Task{
		Type:          redisclient.TaskInvoiceEmail,
		AppointmentID: d.ID,
	})
	require.NoError(t, err)

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Empty(t, sent[0].Attachments)
}

func TestProcessCancelEmail(t *testing.T) {
	d := detailFixture()
	store := &fakeDetailStore{details: map[uuid.UUID]*appointment.Detail{d.ID: d}}
	mailer := NewStubMailer(zerolog.Nop())
	disp := newDispatcher(store, nil, mailer, &memQueue{})

	err := disp.Process(context.Background(), redisclient.Task{
		Type:          redisclient.TaskCancelEmail,
		AppointmentID: d.ID,
	})
	require.NoError(t, err)

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Subject, "cancelled")
	assert.Contains(t, sent[0].Text, "patient request")
}

func TestProcessSkipsWithoutEmail(t *testing.T) {
	d := detailFixture()
	d.PatientEmail = ""
	store := &fakeDetailStore{details: map[uuid.UUID]*appointment.Detail{d.ID: d}}
	mailer := NewStubMailer(zerolog.Nop())
	disp := newDispatcher(store, nil, mailer, &memQueue{})

	err := disp.Process(context.Background(), redisclient.Task{
		Type:          redisclient.TaskCancelEmail,
		AppointmentID: d.ID,
	})
	require.NoError(t, err)
	assert.Empty(t, mailer.Sent())
}

func TestProcessUnknownTaskType(t *testing.T) {
	d := detailFixture()
	store := &fakeDetailStore{details: map[uuid.UUID]*appointment.Detail{d.ID: d}}
	disp := newDispatcher(store, nil, NewStubMailer(zerolog.Nop()), &memQueue{})

	err := disp.Process(context.Background(), redisclient.Task{
		Type:          redisclient.TaskType("sms"),
		AppointmentID: d.ID,
	})
	require.Error(t, err)
}

func TestHandleRetriesThenDrops(t *testing.T) {
	d := detailFixture()
	store := &fakeDetailStore{details: map[uuid.UUID]*appointment.Detail{d.ID: d}}
	mailer := &failingMailer{}
	queue := &memQueue{}
	disp := newDispatcher(store, nil, mailer, queue)

	task := redisclient.Task{Type: redisclient.TaskCancelEmail, AppointmentID: d.ID}
	disp.handle(context.Background(), task)
	require.Len(t, queue.tasks, 1, "first failure should re-enqueue")
	assert.Equal(t, 1, queue.tasks[0].Attempt)

	disp.handle(context.Background(), queue.tasks[0])
	queue.tasks = queue.tasks[1:]
	require.Len(t, queue.tasks, 1, "second failure should re-enqueue")
	assert.Equal(t, 2, queue.tasks[0].Attempt)

	disp.handle(context.Background(), queue.tasks[0])
	queue.tasks = queue.tasks[1:]
	assert.Empty(t, queue.tasks, "third failure should drop the task")
	assert.Equal(t, 3, mailer.calls)
}

func TestConfirmationMessageFormatting(t *testing.T) {
	d := detailFixture()
	d.DentistName = ""

	msg := ConfirmationMessage("Nha Khoa OU", d, "")
	assert.Contains(t, msg.Text, "to be assigned")
	assert.Empty(t, msg.Attachments)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0", formatAmount(0))
	assert.Equal(t, "999", formatAmount(999))
	assert.Equal(t, "1,000", formatAmount(1000))
	assert.Equal(t, "270,000", formatAmount(270000))
	assert.Equal(t, "1,250,000", formatAmount(1250000))
}
