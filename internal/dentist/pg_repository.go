package dentist

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

const dentistColumns = `
	d.id, d.user_id, u.name, u.email, d.specialization,
	d.work_days, d.work_start, d.work_end, d.created_at, d.updated_at
`

func scanDentist(row pgx.Row) (*Dentist, error) {
	var d Dentist
	var email, specialization *string

	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.Name,
		&email,
		&specialization,
		&d.WorkDays,
		&d.WorkStart,
		&d.WorkEnd,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDentistNotFound
		}
		return nil, err
	}

	d.Email = email
	d.Specialization = specialization
	return &d, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Dentist, error) {
	row := r.conn.QueryRow(ctx, `
		SELECT `+dentistColumns+`
		FROM dentists d
		JOIN users u ON u.id = d.user_id
		WHERE d.id = $1
	`, id)
	return scanDentist(row)
}

func (r *PgRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*Dentist, error) {
	row := r.conn.QueryRow(ctx, `
		SELECT `+dentistColumns+`
		FROM dentists d
		JOIN users u ON u.id = d.user_id
		WHERE d.user_id = $1
	`, userID)
	return scanDentist(row)
}

func (r *PgRepository) FindWorking(ctx context.Context, weekday, hhmm string) ([]Dentist, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT `+dentistColumns+`
		FROM dentists d
		JOIN users u ON u.id = d.user_id
		WHERE $1 = ANY(d.work_days)
		  AND d.work_start <= $2
		  AND d.work_end >= $2
		ORDER BY d.id
	`, weekday, hhmm)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Dentist
	for rows.Next() {
		d, err := scanDentist(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
