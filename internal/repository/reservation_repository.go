package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/library-lending/internal/domain"
)

const reservationColumns = `id, user_id, title_id, requested_at, status, updated_at`

type reservationRepository struct {
	db sqlx.ExtContext
}

func NewReservationRepository(db sqlx.ExtContext) ReservationRepository {
	return &reservationRepository{db: db}
}

// Create relies on the uq_reservations_pending partial index so that two
// concurrent inserts cannot both become pending.
func (r *reservationRepository) Create(ctx context.Context, reservation *domain.Reservation) error {
	query := `
		INSERT INTO reservations (id, user_id, title_id, requested_at, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		reservation.ID,
		reservation.UserID,
		reservation.TitleID,
		reservation.RequestedAt,
		reservation.Status,
		reservation.UpdatedAt,
	)

	return translate(err)
}

func (r *reservationRepository) FindForUpdate(ctx context.Context, userID string, titleID uuid.UUID, status string) (*domain.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE user_id = $1 AND title_id = $2 AND status = $3
		ORDER BY requested_at, id
		LIMIT 1
		FOR UPDATE
	`

	var reservation domain.Reservation
	if err := sqlx.GetContext(ctx, r.db, &reservation, query, userID, titleID, status); err != nil {
		return nil, translate(err)
	}
	return &reservation, nil
}

func (r *reservationRepository) OldestPendingForUpdate(ctx context.Context, titleID uuid.UUID) (*domain.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE title_id = $1 AND status = 'pending'
		ORDER BY requested_at, id
		LIMIT 1
		FOR UPDATE
	`

	var reservation domain.Reservation
	if err := sqlx.GetContext(ctx, r.db, &reservation, query, titleID); err != nil {
		return nil, translate(err)
	}
	return &reservation, nil
}

func (r *reservationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, at)
	if err != nil {
		return translate(err)
	}
	return requireAffected(res)
}

func (r *reservationRepository) ListPendingByTitle(ctx context.Context, titleID uuid.UUID) ([]*domain.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE title_id = $1 AND status = 'pending'
		ORDER BY requested_at, id
	`

	var reservations []*domain.Reservation
	if err := sqlx.SelectContext(ctx, r.db, &reservations, query, titleID); err != nil {
		return nil, translate(err)
	}
	return reservations, nil
}
