package dentist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDentistNotFound = errors.New("dentist not found")
)

// Weekday names as stored on dentist working calendars, indexed by
// time.Weekday (Sunday = 0).
var dayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// WeekdayName returns the calendar day-of-week label for an instant.
func WeekdayName(t time.Time) string {
	return dayNames[int(t.Weekday())]
}

// ClockMinute formats an instant's wall clock as zero-padded "HH:MM".
// Working hours are stored in the same format, so string comparison
// orders times correctly.
func ClockMinute(t time.Time) string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

type Dentist struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Name           string
	Email          *string
	Specialization *string
	WorkDays       []string // subset of Sun..Sat
	WorkStart      string   // "HH:MM"
	WorkEnd        string   // "HH:MM"
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// WorksAt reports whether the dentist's configured calendar covers the
// given weekday and wall-clock time. Bounds are inclusive.
func (d *Dentist) WorksAt(weekday, hhmm string) bool {
	onDay := false
	for _, wd := range d.WorkDays {
		if wd == weekday {
			onDay = true
			break
		}
	}
	if !onDay {
		return false
	}
	return d.WorkStart <= hhmm && hhmm <= d.WorkEnd
}

// Repository resolves dentist profiles and the availability index.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Dentist, error)
	GetByUser(ctx context.Context, userID uuid.UUID) (*Dentist, error)

	// FindWorking returns dentists whose working calendar covers the
	// weekday and time. Pure read, no side effects.
	FindWorking(ctx context.Context, weekday, hhmm string) ([]Dentist, error)
}
