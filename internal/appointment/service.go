package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/camhien7804/Nha-Khoa-OU/internal/catalog"
	"github.com/camhien7804/Nha-Khoa-OU/internal/dentist"
	"github.com/camhien7804/Nha-Khoa-OU/internal/observability/metrics"
	redisclient "github.com/camhien7804/Nha-Khoa-OU/internal/redis"
)

const (
	EventAppointmentCreated   = "APPOINTMENT_CREATED"
	EventStatusChanged        = "STATUS_CHANGED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventHistoryAppended      = "HISTORY_APPENDED"
)

var (
	ErrInvalidInterval         = errors.New("invalid appointment interval")
	ErrMissingPatientInfo      = errors.New("patient name and phone are required")
	ErrNoDentistAvailable      = errors.New("no dentist is free for this slot")
	ErrDentistSlotTaken        = errors.New("dentist already has an appointment in this slot")
	ErrDentistBusy             = errors.New("dentist calendar is being booked, please retry")
	ErrNotAppointmentOwner     = errors.New("appointment does not belong to this patient")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// Deps wires the service's collaborators.
type Deps struct {
	Repo     Repository
	Catalog  catalog.Repository
	Dentists dentist.Repository
	Locker   redisclient.Locker
	Queue    redisclient.TaskQueue
	Metrics  *metrics.BookingMetrics
	Logger   zerolog.Logger

	// Rand drives the auto-assignment tie-break. Seedable so tests can
	// pin the selection.
	Rand *rand.Rand

	// StrictDentistConflictCheck runs the overlap check for explicitly
	// requested dentists too, instead of trusting the caller as a staff
	// override.
	StrictDentistConflictCheck bool
}

type Service struct {
	repo     Repository
	catalog  catalog.Repository
	dentists dentist.Repository
	locker   redisclient.Locker
	queue    redisclient.TaskQueue
	metrics  *metrics.BookingMetrics
	logger   zerolog.Logger
	strict   bool

	randMu sync.Mutex
	rand   *rand.Rand
}

func NewService(deps Deps) *Service {
	rng := deps.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		repo:     deps.Repo,
		catalog:  deps.Catalog,
		dentists: deps.Dentists,
		locker:   deps.Locker,
		queue:    deps.Queue,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		strict:   deps.StrictDentistConflictCheck,
		rand:     rng,
	}
}

// CreateRequest carries the raw booking input. Interval bounds arrive as
// RFC3339 strings so that validation (and its ordering) lives in one place.
type CreateRequest struct {
	ServiceID   string
	ServiceName string
	StartAt     string
	EndAt       string
	DentistID   string // optional explicit assignment
	ChosenPrice *int64 // required when the service has a price range
	Notes       string
	Payment     string // payment method, defaults to cash
	Channel     string // web or app, patient bookings only

	// Walk-in identity supplied by staff. For patient bookings the
	// profile fills anything left blank.
	Name  string
	Phone string
	Email string
}

// Create validates the request, assigns a dentist, fixes the price and
// persists a pending appointment. Invoice and confirmation email are queued
// after the write commits and never affect the returned result.
func (s *Service) Create(ctx context.Context, actor Actor, req CreateRequest) (*Detail, error) {
	svc, err := s.resolveService(ctx, req)
	if err != nil {
		return nil, err
	}

	startAt, endAt, err := parseInterval(req.StartAt, req.EndAt)
	if err != nil {
		return nil, err
	}

	price, err := catalog.ResolvePrice(svc, req.ChosenPrice)
	if err != nil {
		return nil, err
	}

	appt := &Appointment{
		ID:              uuid.New(),
		ServiceID:       svc.ID,
		ServiceName:     svc.Name,
		ServicePrice:    price,
		StartAt:         startAt,
		EndAt:           endAt,
		AppointmentDate: DateOnly(startAt),
		TimeSlot:        TimeSlotLabel(startAt, endAt),
		Status:          StatusPending,
		Notes:           req.Notes,
		PaymentMethod:   parsePaymentMethod(req.Payment),
		PaymentStatus:   PaymentUnpaid,
		CreatedBy:       actor.UserID,
		CreatedSource:   sourceFor(actor, req.Channel),
	}

	if err := s.fillPatientIdentity(ctx, actor, req, appt); err != nil {
		return nil, err
	}

	assignment := "auto"
	if req.DentistID != "" {
		assignment = "explicit"
	}

	created, err := s.assignAndInsert(ctx, appt, req.DentistID)
	if err != nil {
		if errors.Is(err, ErrNoDentistAvailable) {
			s.metrics.ObserveConflict()
		}
		return nil, err
	}

	s.logEvent(ctx, created.ID, EventAppointmentCreated, map[string]any{
		"dentist_id": created.DentistID,
		"service":    created.ServiceName,
		"start_at":   created.StartAt,
		"price":      created.ServicePrice,
		"source":     created.CreatedSource,
	})
	s.metrics.ObserveBooking(string(created.CreatedSource), assignment)

	s.enqueueTask(ctx, redisclient.Task{Type: redisclient.TaskInvoiceEmail, AppointmentID: created.ID})

	return s.detailOrBare(ctx, created)
}

func (s *Service) resolveService(ctx context.Context, req CreateRequest) (*catalog.Service, error) {
	if req.ServiceID != "" {
		if sid, perr := uuid.Parse(req.ServiceID); perr == nil {
			svc, err := s.catalog.GetByID(ctx, sid)
			if err == nil {
				return svc, nil
			}
			if !errors.Is(err, catalog.ErrServiceNotFound) {
				return nil, fmt.Errorf("load service: %w", err)
			}
		}
	}
	if req.ServiceName != "" {
		svc, err := s.catalog.GetByName(ctx, req.ServiceName)
		if err == nil {
			return svc, nil
		}
		if !errors.Is(err, catalog.ErrServiceNotFound) {
			return nil, fmt.Errorf("load service by name: %w", err)
		}
	}
	return nil, catalog.ErrServiceNotFound
}

func parseInterval(startRaw, endRaw string) (time.Time, time.Time, error) {
	if startRaw == "" || endRaw == "" {
		return time.Time{}, time.Time{}, ErrInvalidInterval
	}
	startAt, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidInterval
	}
	endAt, err := time.Parse(time.RFC3339, endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidInterval
	}
	if !startAt.Before(endAt) {
		return time.Time{}, time.Time{}, ErrInvalidInterval
	}
	return startAt, endAt, nil
}

func parsePaymentMethod(raw string) PaymentMethod {
	switch PaymentMethod(raw) {
	case PayWallet, PayATM, PayCard, PayOther:
		return PaymentMethod(raw)
	default:
		return PayCash
	}
}

func sourceFor(actor Actor, channel string) CreatedSource {
	switch actor.Role {
	case RoleAdmin:
		return SourceAdmin
	case RoleDentist:
		return SourceDentist
	}
	if channel == string(SourceApp) {
		return SourceApp
	}
	return SourceWeb
}

func (s *Service) fillPatientIdentity(ctx context.Context, actor Actor, req CreateRequest, appt *Appointment) error {
	if actor.Role == RolePatient {
		profile, err := s.repo.GetPatientByUser(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, ErrPatientNotFound) {
				return err
			}
			return fmt.Errorf("load patient profile: %w", err)
		}
		appt.PatientID = &profile.ID
		appt.PatientName = firstNonEmpty(req.Name, profile.Name)
		appt.PatientPhone = firstNonEmpty(req.Phone, profile.Phone)
		email := req.Email
		if email == "" && profile.Email != nil {
			email = *profile.Email
		}
		if email == "" {
			email = actor.Email
		}
		appt.PatientEmail = email
		return nil
	}

	if req.Name == "" || req.Phone == "" {
		return ErrMissingPatientInfo
	}
	appt.PatientName = req.Name
	appt.PatientPhone = req.Phone
	appt.PatientEmail = req.Email
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// assignAndInsert settles the dentist assignment and persists the record.
// Auto-assignment re-validates the overlap inside the dentist's lock so two
// racing requests cannot both observe a free calendar.
func (s *Service) assignAndInsert(ctx context.Context, appt *Appointment, explicitDentist string) (*Appointment, error) {
	if explicitDentist != "" {
		did, err := uuid.Parse(explicitDentist)
		if err != nil {
			return nil, dentist.ErrDentistNotFound
		}
		d, err := s.dentists.GetByID(ctx, did)
		if err != nil {
			return nil, err
		}
		appt.DentistID = &d.ID

		if !s.strict {
			// Staff override: the caller is trusted, no conflict
			// pre-check at creation time.
			return s.repo.Create(ctx, appt)
		}
		created, err := s.insertLocked(ctx, d.ID, appt)
		if err != nil {
			if errors.Is(err, redisclient.ErrLockNotAcquired) {
				return nil, ErrDentistBusy
			}
			return nil, err
		}
		return created, nil
	}

	weekday := dentist.WeekdayName(appt.StartAt)
	hhmm := dentist.ClockMinute(appt.StartAt)

	candidates, err := s.dentists.FindWorking(ctx, weekday, hhmm)
	if err != nil {
		return nil, fmt.Errorf("availability lookup: %w", err)
	}

	free := make([]dentist.Dentist, 0, len(candidates))
	for _, d := range candidates {
		overlap, err := s.repo.HasOverlap(ctx, d.ID, appt.StartAt, appt.EndAt)
		if err != nil {
			return nil, fmt.Errorf("overlap check: %w", err)
		}
		if !overlap {
			free = append(free, d)
		}
	}
	if len(free) == 0 {
		return nil, ErrNoDentistAvailable
	}

	// Uniform random pick spreads load across free dentists. If the pick
	// loses the race inside the lock, fall back to another candidate.
	for len(free) > 0 {
		i := s.intn(len(free))
		d := free[i]
		free = append(free[:i], free[i+1:]...)

		appt.DentistID = &d.ID
		created, err := s.insertLocked(ctx, d.ID, appt)
		if err != nil {
			if errors.Is(err, ErrDentistSlotTaken) || errors.Is(err, redisclient.ErrLockNotAcquired) {
				continue
			}
			return nil, err
		}
		return created, nil
	}

	return nil, ErrNoDentistAvailable
}

// insertLocked holds the per-dentist lock across the overlap re-check and
// the insert.
func (s *Service) insertLocked(ctx context.Context, dentistID uuid.UUID, appt *Appointment) (*Appointment, error) {
	var created *Appointment
	err := s.locker.WithDentistLock(ctx, dentistID, func(lockCtx context.Context) error {
		overlap, err := s.repo.HasOverlap(lockCtx, dentistID, appt.StartAt, appt.EndAt)
		if err != nil {
			return fmt.Errorf("overlap check: %w", err)
		}
		if overlap {
			return ErrDentistSlotTaken
		}
		created, err = s.repo.Create(lockCtx, appt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) intn(n int) int {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return s.rand.Intn(n)
}

func (s *Service) enqueueTask(ctx context.Context, task redisclient.Task) {
	if s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		s.logger.Warn().Err(err).
			Str("task_type", string(task.Type)).
			Stringer("appointment_id", task.AppointmentID).
			Msg("failed to enqueue notification task")
	}
}

func (s *Service) detailOrBare(ctx context.Context, appt *Appointment) (*Detail, error) {
	detail, err := s.repo.GetDetail(ctx, appt.ID)
	if err != nil {
		s.logger.Warn().Err(err).Stringer("appointment_id", appt.ID).Msg("detail projection failed after create")
		return &Detail{Appointment: *appt}, nil
	}
	return detail, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Error().Err(err).
			Str("event", eventType).
			Stringer("appointment_id", appointmentID).
			Msg("failed to insert event log")
	}
}

// GetAppointment retrieves a fully hydrated appointment by ID. Staff can
// read any appointment; patients only their own.
func (s *Service) GetAppointment(ctx context.Context, actor Actor, id uuid.UUID) (*Detail, error) {
	detail, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor.Role != RoleAdmin && actor.Role != RoleDentist {
		profile, err := s.repo.GetPatientByUser(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		if detail.PatientID == nil || *detail.PatientID != profile.ID {
			return nil, ErrNotAppointmentOwner
		}
	}

	return detail, nil
}

// MyAppointments lists the acting patient's own appointments.
func (s *Service) MyAppointments(ctx context.Context, actor Actor) ([]Detail, error) {
	profile, err := s.repo.GetPatientByUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByPatient(ctx, profile.ID)
}

// MyTreatmentHistory lists the acting patient's completed visits with their
// treatment entries.
func (s *Service) MyTreatmentHistory(ctx context.Context, actor Actor) ([]Detail, error) {
	profile, err := s.repo.GetPatientByUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListCompletedByPatient(ctx, profile.ID)
}

// DentistAppointments lists the acting dentist's schedule.
func (s *Service) DentistAppointments(ctx context.Context, actor Actor) ([]Detail, error) {
	d, err := s.dentists.GetByUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByDentist(ctx, d.ID)
}

// PatientHistory is the staff view of one patient's appointment history.
func (s *Service) PatientHistory(ctx context.Context, patientID uuid.UUID) ([]Detail, error) {
	return s.repo.ListByPatient(ctx, patientID)
}
