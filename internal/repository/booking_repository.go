package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stagelink/talent-bookings/internal/domain"
)

// BookingRepository is the persistence collaborator for authoritative client
// records. Create maps a unique-constraint violation to domain.ErrConflict so
// callers can retry allocation; insertion conflict is the real uniqueness
// oracle, not the pre-check.
type BookingRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (*domain.Booking, error)
	FindByEmail(ctx context.Context, email string) (*domain.Booking, error)
	Create(ctx context.Context, b *domain.Booking) (*domain.Booking, error)
	Update(ctx context.Context, id string, patch domain.ClientPatch) (*domain.Booking, error)
	Cancel(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, limit, offset int, status *domain.BookingStatus) ([]domain.Booking, error)
}

type bookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &bookingRepository{pool: pool}
}

const bookingCols = `id, status, client_name, client_email, client_phone, event_type, event_date, event_location, budget_tier, coordinator, estimated_value, notes, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID, &b.Status, &b.ClientName, &b.ClientEmail, &b.ClientPhone,
		&b.EventType, &b.EventDate, &b.EventLocation, &b.BudgetTier,
		&b.Coordinator, &b.EstimatedValue, &b.Notes, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) Exists(ctx context.Context, id string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM bookings WHERE id = $1)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var exists bool
	err := r.pool.QueryRow(ctx, q, id).Scan(&exists)
	return exists, err
}

func (r *bookingRepository) Get(ctx context.Context, id string) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (r *bookingRepository) FindByEmail(ctx context.Context, email string) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE lower(client_email) = lower($1) ORDER BY created_at DESC LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (r *bookingRepository) Create(ctx context.Context, b *domain.Booking) (*domain.Booking, error) {
	const q = `
		INSERT INTO bookings (id, status, client_name, client_email, client_phone, event_type, event_date, event_location, budget_tier, coordinator, estimated_value, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + bookingCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	created, err := scanBooking(r.pool.QueryRow(ctx, q,
		b.ID, b.Status, b.ClientName, b.ClientEmail, b.ClientPhone,
		b.EventType, b.EventDate, b.EventLocation, b.BudgetTier,
		b.Coordinator, b.EstimatedValue, b.Notes,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrConflict
		}
		return nil, err
	}
	return created, nil
}

func (r *bookingRepository) Update(ctx context.Context, id string, patch domain.ClientPatch) (*domain.Booking, error) {
	const q = `
		UPDATE bookings
		SET
			client_name = COALESCE($2, client_name),
			client_phone = COALESCE($3, client_phone),
			event_date = COALESCE($4, event_date),
			event_location = COALESCE($5, event_location),
			notes = COALESCE($6, notes),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + bookingCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, id,
		patch.ClientName, patch.ClientPhone, patch.EventDate, patch.EventLocation, patch.Notes,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (r *bookingRepository) Cancel(ctx context.Context, id string) (bool, error) {
	const q = `
		UPDATE bookings
		SET status = 'cancelled', updated_at = now()
		WHERE id = $1 AND status <> 'cancelled'`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (r *bookingRepository) List(ctx context.Context, limit, offset int, status *domain.BookingStatus) ([]domain.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const listQ = `SELECT ` + bookingCols + ` FROM bookings ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	const listByStatusQ = `SELECT ` + bookingCols + ` FROM bookings WHERE status = $3 ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var rows pgx.Rows
	var err error
	if status != nil {
		rows, err = r.pool.Query(ctx, listByStatusQ, limit, offset, *status)
	} else {
		rows, err = r.pool.Query(ctx, listQ, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(
			&b.ID, &b.Status, &b.ClientName, &b.ClientEmail, &b.ClientPhone,
			&b.EventType, &b.EventDate, &b.EventLocation, &b.BudgetTier,
			&b.Coordinator, &b.EstimatedValue, &b.Notes, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}

	return bookings, rows.Err()
}
