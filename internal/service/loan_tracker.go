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
	"github.com/segyhp/library-lending/pkg/utils"
)

// LoanOption narrows a loan operation
type LoanOption func(*loanOptions)

type loanOptions struct {
	borrower string
}

// AsBorrower restricts the operation to loans held by userID. Loans of other
// users are reported as not found.
func AsBorrower(userID string) LoanOption {
	return func(o *loanOptions) {
		o.borrower = userID
	}
}

func applyLoanOptions(opts []LoanOption) loanOptions {
	var o loanOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// LoanTracker opens, extends and closes loans. Every method expects to run
// inside one unit of work and takes locks in user, loan, title order.
type LoanTracker struct {
	repos     repository.Repositories
	inventory *InventoryLedger
	queue     *ReservationQueue
	fines     *FineLedger
	policy    Policy
	logger    *slog.Logger
}

func NewLoanTracker(repos repository.Repositories, policy Policy, logger *slog.Logger) *LoanTracker {
	return &LoanTracker{
		repos:     repos,
		inventory: NewInventoryLedger(repos.Titles, logger),
		queue:     NewReservationQueue(repos.Titles, repos.Reservations),
		fines:     NewFineLedger(repos, logger),
		policy:    policy,
		logger:    logger,
	}
}

// OpenLoan checks out one copy of the title to the user
func (t *LoanTracker) OpenLoan(ctx context.Context, userID string, titleID uuid.UUID, now time.Time) (*domain.Loan, error) {
	if err := t.repos.Users.Lock(ctx, userID); err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}

	// 1. Unpaid fines block borrowing
	outstanding, err := t.fines.HasOutstandingFine(ctx, userID)
	if err != nil {
		return nil, err
	}
	if outstanding {
		return nil, customError.WrapFineOutstanding(userID)
	}

	// 2. Borrow limit
	open, err := t.repos.Loans.CountOpenByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count open loans: %w", err)
	}
	if open >= t.policy.BorrowLimit {
		return nil, customError.WrapBorrowLimitReached(userID, t.policy.BorrowLimit)
	}

	// 3. One copy of a title per user
	_, err = t.repos.Loans.FindOpenByUserAndTitle(ctx, userID, titleID)
	if err == nil {
		return nil, customError.WrapAlreadyBorrowed(userID, titleID.String())
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find open loan: %w", err)
	}

	// 4. Take a copy
	if _, err := t.inventory.ReserveCopy(ctx, titleID); err != nil {
		return nil, err
	}

	// 5. Create the loan
	loan := &domain.Loan{
		ID:         uuid.New(),
		UserID:     userID,
		TitleID:    titleID,
		BorrowedAt: now,
		DueAt:      utils.CalculateDueDate(now, t.policy.LoanDays),
		FineAmount: decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := t.repos.Loans.Create(ctx, loan); err != nil {
		return nil, fmt.Errorf("create loan: %w", err)
	}

	return loan, nil
}

// ExtendLoan pushes the due date of an open loan forward
func (t *LoanTracker) ExtendLoan(ctx context.Context, loanID uuid.UUID, now time.Time, opts ...LoanOption) (*domain.Loan, error) {
	loan, err := t.lockLoan(ctx, loanID, applyLoanOptions(opts))
	if err != nil {
		return nil, err
	}

	if !loan.IsOpen() {
		return nil, customError.WrapLoanAlreadyClosed(loanID.String())
	}
	if t.policy.MaxExtensions > 0 && loan.Extensions >= t.policy.MaxExtensions {
		return nil, customError.WrapExtensionLimit(loanID.String(), t.policy.MaxExtensions)
	}

	loan.DueAt = utils.ExtendDueDate(loan.DueAt, t.policy.ExtensionDays)
	loan.Extensions++
	loan.UpdatedAt = now

	if err := t.repos.Loans.Update(ctx, loan); err != nil {
		return nil, fmt.Errorf("update loan: %w", err)
	}
	return loan, nil
}

// CloseLoan returns the copy, fixes the fine and advances the title's queue
func (t *LoanTracker) CloseLoan(ctx context.Context, loanID uuid.UUID, now time.Time, opts ...LoanOption) (*domain.ReturnResult, error) {
	loan, err := t.lockLoan(ctx, loanID, applyLoanOptions(opts))
	if err != nil {
		return nil, err
	}

	if !loan.IsOpen() {
		return nil, customError.WrapLoanAlreadyClosed(loanID.String())
	}

	fine := utils.CalculateFine(loan.DueAt, now, t.policy.FinePerDay)
	if fine.IsNegative() {
		t.logger.ErrorContext(ctx, "negative fine computed",
			"loan_id", loanID,
			"fine", fine.String(),
		)
		return nil, customError.WrapInvariantViolation(
			fmt.Sprintf("negative fine %s for loan %s", fine, loanID))
	}

	returnedAt := now
	loan.ReturnedAt = &returnedAt
	loan.FineAmount = fine
	loan.FinePaid = false
	loan.UpdatedAt = now

	if err := t.repos.Loans.Update(ctx, loan); err != nil {
		return nil, fmt.Errorf("update loan: %w", err)
	}

	if _, err := t.inventory.ReleaseCopy(ctx, loan.TitleID); err != nil {
		return nil, err
	}

	head, err := t.queue.Advance(ctx, loan.TitleID, now)
	if err != nil {
		return nil, err
	}

	result := &domain.ReturnResult{Loan: loan}
	if head != nil {
		result.NotifiedUserID = head.UserID
	}
	return result, nil
}

// lockLoan resolves the borrower first so the user lock is taken before the
// loan row lock
func (t *LoanTracker) lockLoan(ctx context.Context, loanID uuid.UUID, o loanOptions) (*domain.Loan, error) {
	loan, err := t.repos.Loans.GetByID(ctx, loanID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, customError.WrapLoanNotFound(loanID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("get loan: %w", err)
	}
	if o.borrower != "" && loan.UserID != o.borrower {
		return nil, customError.WrapLoanNotFound(loanID.String())
	}

	if err := t.repos.Users.Lock(ctx, loan.UserID); err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}

	loan, err = t.repos.Loans.GetForUpdate(ctx, loanID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, customError.WrapLoanNotFound(loanID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("lock loan: %w", err)
	}
	return loan, nil
}
