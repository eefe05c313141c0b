package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/library-lending/internal/domain"
)

const titleColumns = `id, name, author, COALESCE(isbn, '') AS isbn, total_copies, available_copies, created_at, updated_at`

type titleRepository struct {
	db sqlx.ExtContext
}

func NewTitleRepository(db sqlx.ExtContext) TitleRepository {
	return &titleRepository{db: db}
}

func (r *titleRepository) Create(ctx context.Context, title *domain.Title) error {
	query := `
		INSERT INTO titles (id, name, author, isbn, total_copies, available_copies, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		title.ID,
		title.Name,
		title.Author,
		title.ISBN,
		title.TotalCopies,
		title.AvailableCopies,
		title.CreatedAt,
		title.UpdatedAt,
	)

	return translate(err)
}

func (r *titleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Title, error) {
	query := `SELECT ` + titleColumns + ` FROM titles WHERE id = $1`

	var title domain.Title
	if err := sqlx.GetContext(ctx, r.db, &title, query, id); err != nil {
		return nil, translate(err)
	}

	return &title, nil
}

func (r *titleRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Title, error) {
	query := `SELECT ` + titleColumns + ` FROM titles WHERE id = $1 FOR UPDATE`

	var title domain.Title
	if err := sqlx.GetContext(ctx, r.db, &title, query, id); err != nil {
		return nil, translate(err)
	}

	return &title, nil
}

func (r *titleRepository) UpdateAvailableCopies(ctx context.Context, id uuid.UUID, available int) error {
	query := `
		UPDATE titles
		SET available_copies = $2, updated_at = $3
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query, id, available, time.Now().UTC())
	if err != nil {
		return translate(err)
	}
	return requireAffected(res)
}

func (r *titleRepository) List(ctx context.Context) ([]*domain.Title, error) {
	query := `SELECT ` + titleColumns + ` FROM titles ORDER BY name, id`

	var titles []*domain.Title
	if err := sqlx.SelectContext(ctx, r.db, &titles, query); err != nil {
		return nil, translate(err)
	}

	return titles, nil
}
