package catalog

import (
	"context"
	"errors"

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

func scanService(row pgx.Row) (*Service, error) {
	var s Service

	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.MinPrice,
		&s.MaxPrice,
		&s.DiscountPercent,
		&s.DurationMins,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}

	return &s, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Service, error) {
	row := r.conn.QueryRow(ctx, `
		SELECT id, name, min_price, max_price, discount_percent, duration_mins
		FROM services
		WHERE id = $1
	`, id)
	return scanService(row)
}

func (r *PgRepository) GetByName(ctx context.Context, name string) (*Service, error) {
	row := r.conn.QueryRow(ctx, `
		SELECT id, name, min_price, max_price, discount_percent, duration_mins
		FROM services
		WHERE name = $1
	`, name)
	return scanService(row)
}
