package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/segyhp/library-lending/internal/domain"
)

const loanColumns = `id, user_id, title_id, borrowed_at, due_at, returned_at, extensions, fine_amount, fine_paid, created_at, updated_at`

type loanRepository struct {
	db sqlx.ExtContext
}

func NewLoanRepository(db sqlx.ExtContext) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (id, user_id, title_id, borrowed_at, due_at, returned_at, extensions, fine_amount, fine_paid, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		loan.ID,
		loan.UserID,
		loan.TitleID,
		loan.BorrowedAt,
		loan.DueAt,
		loan.ReturnedAt,
		loan.Extensions,
		loan.FineAmount,
		loan.FinePaid,
		loan.CreatedAt,
		loan.UpdatedAt,
	)

	return translate(err)
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return r.get(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, id)
}

func (r *loanRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return r.get(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1 FOR UPDATE`, id)
}

func (r *loanRepository) FindOpenByUserAndTitle(ctx context.Context, userID string, titleID uuid.UUID) (*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE user_id = $1 AND title_id = $2 AND returned_at IS NULL
		ORDER BY borrowed_at, id
		LIMIT 1
	`
	return r.get(ctx, query, userID, titleID)
}

func (r *loanRepository) get(ctx context.Context, query string, args ...interface{}) (*domain.Loan, error) {
	var loan domain.Loan
	if err := sqlx.GetContext(ctx, r.db, &loan, query, args...); err != nil {
		return nil, translate(err)
	}
	return &loan, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	query := `
		UPDATE loans
		SET due_at = $2, returned_at = $3, extensions = $4, fine_amount = $5, fine_paid = $6, updated_at = $7
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query,
		loan.ID,
		loan.DueAt,
		loan.ReturnedAt,
		loan.Extensions,
		loan.FineAmount,
		loan.FinePaid,
		loan.UpdatedAt,
	)
	if err != nil {
		return translate(err)
	}
	return requireAffected(res)
}

func (r *loanRepository) CountOpenByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, r.db, &count,
		`SELECT COUNT(*) FROM loans WHERE user_id = $1 AND returned_at IS NULL`, userID)
	return count, translate(err)
}

func (r *loanRepository) CountOpenByTitle(ctx context.Context, titleID uuid.UUID) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, r.db, &count,
		`SELECT COUNT(*) FROM loans WHERE title_id = $1 AND returned_at IS NULL`, titleID)
	return count, translate(err)
}

func (r *loanRepository) HasOutstandingFine(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, r.db, &exists,
		`SELECT EXISTS (SELECT 1 FROM loans WHERE user_id = $1 AND fine_amount > 0 AND NOT fine_paid)`, userID)
	return exists, translate(err)
}

func (r *loanRepository) ListOutstandingFinesForUpdate(ctx context.Context, userID string) ([]*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE user_id = $1 AND fine_amount > 0 AND NOT fine_paid
		ORDER BY returned_at, id
		FOR UPDATE
	`

	var loans []*domain.Loan
	if err := sqlx.SelectContext(ctx, r.db, &loans, query, userID); err != nil {
		return nil, translate(err)
	}
	return loans, nil
}

func (r *loanRepository) MarkFinesPaid(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	strIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		strIDs = append(strIDs, id.String())
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE loans SET fine_paid = TRUE, updated_at = $2 WHERE id = ANY($1::uuid[]) AND NOT fine_paid`,
		pq.Array(strIDs), at)
	if err != nil {
		return translate(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected != int64(len(ids)) {
		return ErrNotFound
	}
	return nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
