package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrServiceNotFound       = errors.New("service not found")
	ErrInvalidPriceSelection = errors.New("selected price is not valid for this service")
)

// Service is one entry of the clinic's treatment catalog. Prices are whole
// VND. A service with MinPrice == MaxPrice has a single fixed price,
// otherwise the patient picks one of the two bounds.
type Service struct {
	ID              uuid.UUID
	Name            string
	MinPrice        int64
	MaxPrice        int64
	DiscountPercent int
	DurationMins    int
}

// Repository resolves catalog services by id or display name.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Service, error)
	GetByName(ctx context.Context, name string) (*Service, error)
}
