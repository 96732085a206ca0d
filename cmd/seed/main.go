package main

import (
	"context"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/camhien7804/Nha-Khoa-OU/internal/config"
	"github.com/camhien7804/Nha-Khoa-OU/internal/db"
	"github.com/camhien7804/Nha-Khoa-OU/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config load error: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.Env).With().Str("service", "seed").Logger()
	logger.Info().Msg("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedServices(context.Background(), pool); err != nil {
		logger.Fatal().Err(err).Msg("seed services")
	}
	if err := seedDentists(context.Background(), pool, 20, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed dentists")
	}
	if err := seedPatients(context.Background(), pool, 500, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed patients")
	}

	logger.Info().Msg("seed complete")
}

type serviceRow struct {
	name     string
	minPrice int64
	maxPrice int64
	discount int
	duration int
}

func seedServices(ctx context.Context, pool *pgxpool.Pool) error {
	services := []serviceRow{
		{"Dental checkup", 100000, 100000, 0, 30},
		{"Teeth cleaning", 150000, 300000, 0, 45},
		{"Tooth filling", 200000, 500000, 10, 45},
		{"Root canal treatment", 800000, 2500000, 0, 90},
		{"Tooth extraction", 300000, 1500000, 0, 60},
		{"Teeth whitening", 1000000, 2000000, 15, 60},
		{"Braces consultation", 200000, 200000, 0, 30},
		{"Porcelain crown", 2500000, 6000000, 5, 90},
		{"Dental implant", 15000000, 30000000, 0, 120},
		{"Wisdom tooth surgery", 1500000, 4000000, 0, 90},
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, s := range services {
		_, err := tx.Exec(ctx, `
			INSERT INTO services (name, min_price, max_price, discount_percent, duration_mins)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (name) DO NOTHING
		`, s.name, s.minPrice, s.maxPrice, s.discount, s.duration)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func seedDentists(ctx context.Context, pool *pgxpool.Pool, count int, logger zerolog.Logger) error {
	logger.Info().Int("count", count).Msg("seeding dentists")

	specializations := []string{
		"General Dentistry",
		"Orthodontics",
		"Endodontics",
		"Periodontics",
		"Prosthodontics",
		"Oral Surgery",
		"Pediatric Dentistry",
	}

	// Weekday names match time.Weekday short forms used by availability.
	schedules := [][]string{
		{"Mon", "Tue", "Wed", "Thu", "Fri"},
		{"Mon", "Wed", "Fri", "Sat"},
		{"Tue", "Thu", "Sat", "Sun"},
		{"Mon", "Tue", "Thu", "Fri", "Sat"},
	}
	hours := [][2]string{
		{"08:00", "17:00"},
		{"09:00", "18:00"},
		{"13:00", "21:00"},
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		userID := uuid.New()
		name := "Dr. " + gofakeit.Name()

		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, name, email, role, created_at, updated_at)
			VALUES ($1, $2, $3, 'Dentist', now(), now())
		`, userID, name, gofakeit.Email())
		if err != nil {
			return err
		}

		spec := specializations[gofakeit.Number(0, len(specializations)-1)]
		days := schedules[gofakeit.Number(0, len(schedules)-1)]
		h := hours[gofakeit.Number(0, len(hours)-1)]

		_, err = tx.Exec(ctx, `
			INSERT INTO dentists (id, user_id, specialization, work_days, work_start, work_end, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		`, uuid.New(), userID, spec, days, h[0], h[1])
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int, logger zerolog.Logger) error {
	logger.Info().Int("count", count).Msg("seeding patients")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		userID := uuid.New()

		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, name, email, role, created_at, updated_at)
			VALUES ($1, $2, $3, 'Patient', now(), now())
		`, userID, gofakeit.Name(), gofakeit.Email())
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO patients (id, user_id, phone, dob, address, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
		`, uuid.New(), userID, gofakeit.Phone(),
			gofakeit.DateRange(time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2010, 12, 31, 0, 0, 0, 0, time.UTC)),
			gofakeit.Address().Address)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
