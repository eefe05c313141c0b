package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/library-lending/internal/domain"
	"github.com/segyhp/library-lending/internal/repository"
	customError "github.com/segyhp/library-lending/pkg/errors"
)

// FineLedger tracks outstanding and settled fines per user
type FineLedger struct {
	loans    repository.LoanRepository
	payments repository.PaymentRepository
	users    repository.UserLocker
	logger   *slog.Logger
}

func NewFineLedger(repos repository.Repositories, logger *slog.Logger) *FineLedger {
	return &FineLedger{
		loans:    repos.Loans,
		payments: repos.Payments,
		users:    repos.Users,
		logger:   logger,
	}
}

func (l *FineLedger) HasOutstandingFine(ctx context.Context, userID string) (bool, error) {
	outstanding, err := l.loans.HasOutstandingFine(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("check outstanding fines: %w", err)
	}
	return outstanding, nil
}

// SettleAll marks every outstanding fine of the user as paid. Nothing to
// settle is reported through NothingDue, not as an error.
func (l *FineLedger) SettleAll(ctx context.Context, userID string, now time.Time) (*domain.FineSettlement, error) {
	if err := l.users.Lock(ctx, userID); err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}
	return l.settle(ctx, userID, now)
}

// SettleWithPayment settles like SettleAll and records a receipt under the
// processor's reference. A zero amount records the settled total.
func (l *FineLedger) SettleWithPayment(ctx context.Context, userID, reference string, amount decimal.Decimal, now time.Time) (*domain.FineSettlement, error) {
	if reference == "" {
		return nil, customError.WrapInvalidPayment("payment reference is required")
	}
	if amount.IsNegative() {
		return nil, customError.WrapInvalidPayment("payment amount must not be negative")
	}

	if err := l.users.Lock(ctx, userID); err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}

	// 1. Reject replays before touching any fine
	_, err := l.payments.GetByReference(ctx, reference)
	if err == nil {
		return nil, customError.WrapDuplicatePayment(reference)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup payment: %w", err)
	}

	// 2. Settle outstanding fines
	settlement, err := l.settle(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	settlement.PaymentReference = reference

	if amount.IsZero() {
		amount = settlement.AmountSettled
	} else if !amount.Equal(settlement.AmountSettled) {
		l.logger.WarnContext(ctx, "payment amount differs from settled fines",
			"user_id", userID,
			"payment_reference", reference,
			"amount", amount.String(),
			"settled", settlement.AmountSettled.String(),
		)
	}

	// 3. Record the receipt; the unique reference catches concurrent replays
	receipt := &domain.PaymentReceipt{
		ID:           uuid.New(),
		Reference:    reference,
		UserID:       userID,
		Amount:       amount,
		LoansSettled: settlement.LoansSettled,
		RecordedAt:   now,
	}
	err = l.payments.Create(ctx, receipt)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, customError.WrapDuplicatePayment(reference)
	}
	if err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	return settlement, nil
}

func (l *FineLedger) settle(ctx context.Context, userID string, now time.Time) (*domain.FineSettlement, error) {
	loans, err := l.loans.ListOutstandingFinesForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list outstanding fines: %w", err)
	}

	settlement := &domain.FineSettlement{
		UserID:        userID,
		AmountSettled: decimal.Zero,
	}
	if len(loans) == 0 {
		settlement.NothingDue = true
		return settlement, nil
	}

	ids := make([]uuid.UUID, 0, len(loans))
	for _, loan := range loans {
		ids = append(ids, loan.ID)
		settlement.AmountSettled = settlement.AmountSettled.Add(loan.FineAmount)
	}

	if err := l.loans.MarkFinesPaid(ctx, ids, now); err != nil {
		return nil, fmt.Errorf("mark fines paid: %w", err)
	}
	settlement.LoansSettled = len(ids)

	return settlement, nil
}
