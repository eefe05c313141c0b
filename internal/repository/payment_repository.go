package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/segyhp/library-lending/internal/domain"
)

type paymentRepository struct {
	db sqlx.ExtContext
}

func NewPaymentRepository(db sqlx.ExtContext) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, receipt *domain.PaymentReceipt) error {
	query := `
		INSERT INTO payment_receipts (id, reference, user_id, amount, loans_settled, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		receipt.ID,
		receipt.Reference,
		receipt.UserID,
		receipt.Amount,
		receipt.LoansSettled,
		receipt.RecordedAt,
	)

	return translate(err)
}

func (r *paymentRepository) GetByReference(ctx context.Context, reference string) (*domain.PaymentReceipt, error) {
	query := `
		SELECT id, reference, user_id, amount, loans_settled, recorded_at
		FROM payment_receipts
		WHERE reference = $1
	`

	var receipt domain.PaymentReceipt
	if err := sqlx.GetContext(ctx, r.db, &receipt, query, reference); err != nil {
		return nil, translate(err)
	}
	return &receipt, nil
}
