package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/library-lending/internal/domain"
	"github.com/segyhp/library-lending/internal/metrics"
	"github.com/segyhp/library-lending/internal/notify"
	"github.com/segyhp/library-lending/internal/repository"
	customError "github.com/segyhp/library-lending/pkg/errors"
	"github.com/segyhp/library-lending/pkg/utils"
)

const defaultNotifyTimeout = 5 * time.Second

// LendingService coordinates the ledgers so that every public operation
// commits or rolls back as a whole
type LendingService struct {
	store         repository.Store
	notifier      notify.Notifier
	metrics       metrics.Recorder
	policy        Policy
	logger        *slog.Logger
	now           func() time.Time
	notifyTimeout time.Duration
}

// Option configures a LendingService
type Option func(*LendingService)

func WithLogger(logger *slog.Logger) Option {
	return func(s *LendingService) {
		s.logger = logger
	}
}

// WithClock replaces the wall clock used by operations without an explicit time
func WithClock(now func() time.Time) Option {
	return func(s *LendingService) {
		s.now = now
	}
}

func WithNotifyTimeout(timeout time.Duration) Option {
	return func(s *LendingService) {
		s.notifyTimeout = timeout
	}
}

func NewLendingService(
	store repository.Store,
	notifier notify.Notifier,
	recorder metrics.Recorder,
	policy Policy,
	opts ...Option,
) *LendingService {
	s := &LendingService{
		store:         store,
		notifier:      notifier,
		metrics:       recorder,
		policy:        policy,
		logger:        slog.Default(),
		now:           func() time.Time { return time.Now().UTC() },
		notifyTimeout: defaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	if s.notifier == nil {
		s.notifier = notify.NewLogNotifier(s.logger)
	}
	return s
}

// Borrow opens a loan of one copy of the title for the user
func (s *LendingService) Borrow(ctx context.Context, userID string, titleID uuid.UUID, now time.Time) (*domain.Loan, error) {
	var loan *domain.Loan
	err := s.execute(ctx, "borrow", func(ctx context.Context, repos repository.Repositories) error {
		var err error
		loan, err = NewLoanTracker(repos, s.policy, s.logger).OpenLoan(ctx, userID, titleID, now)
		return err
	})
	if err != nil {
		s.logRejection(ctx, "borrow", err, "user_id", userID, "title_id", titleID)
		return nil, err
	}

	s.logger.InfoContext(ctx, "loan opened",
		"loan_id", loan.ID,
		"user_id", userID,
		"title_id", titleID,
		"due_at", loan.DueAt,
	)
	return loan, nil
}

// Return closes a loan, fixes its fine and tells the next user in the
// title's queue that a copy is back
func (s *LendingService) Return(ctx context.Context, loanID uuid.UUID, now time.Time, opts ...LoanOption) (*domain.Loan, error) {
	var result *domain.ReturnResult
	err := s.execute(ctx, "return", func(ctx context.Context, repos repository.Repositories) error {
		var err error
		result, err = NewLoanTracker(repos, s.policy, s.logger).CloseLoan(ctx, loanID, now, opts...)
		return err
	})
	if err != nil {
		s.logRejection(ctx, "return", err, "loan_id", loanID)
		return nil, err
	}

	s.afterReturn(ctx, result)
	return result.Loan, nil
}

// ReturnByTitle closes the user's open loan of a title. Used by the desk
// when a copy is handed back without its loan ID.
func (s *LendingService) ReturnByTitle(ctx context.Context, userID string, titleID uuid.UUID, now time.Time) (*domain.Loan, error) {
	var result *domain.ReturnResult
	err := s.execute(ctx, "accept_return", func(ctx context.Context, repos repository.Repositories) error {
		loan, err := repos.Loans.FindOpenByUserAndTitle(ctx, userID, titleID)
		if errors.Is(err, repository.ErrNotFound) {
			return customError.WrapLoanNotFound(fmt.Sprintf("for user %s and title %s", userID, titleID))
		}
		if err != nil {
			return fmt.Errorf("find open loan: %w", err)
		}

		result, err = NewLoanTracker(repos, s.policy, s.logger).CloseLoan(ctx, loan.ID, now)
		return err
	})
	if err != nil {
		s.logRejection(ctx, "accept_return", err, "user_id", userID, "title_id", titleID)
		return nil, err
	}

	s.afterReturn(ctx, result)
	return result.Loan, nil
}

func (s *LendingService) afterReturn(ctx context.Context, result *domain.ReturnResult) {
	loan := result.Loan
	s.logger.InfoContext(ctx, "loan closed",
		"loan_id", loan.ID,
		"user_id", loan.UserID,
		"title_id", loan.TitleID,
		"fine_amount", loan.FineAmount.String(),
	)

	if result.NotifiedUserID == "" {
		return
	}
	s.notify(ctx, domain.Notification{
		UserID:    result.NotifiedUserID,
		Kind:      domain.NotificationBookAvailable,
		TitleID:   loan.TitleID,
		Subject:   "Book Available",
		Message:   "The book you reserved is now available. Borrow it before someone else does.",
		CreatedAt: s.now(),
	})
}

// Extend pushes the loan's due date forward by the extension period
func (s *LendingService) Extend(ctx context.Context, loanID uuid.UUID, now time.Time, opts ...LoanOption) (*domain.Loan, error) {
	var loan *domain.Loan
	err := s.execute(ctx, "extend", func(ctx context.Context, repos repository.Repositories) error {
		var err error
		loan, err = NewLoanTracker(repos, s.policy, s.logger).ExtendLoan(ctx, loanID, now, opts...)
		return err
	})
	if err != nil {
		s.logRejection(ctx, "extend", err, "loan_id", loanID)
		return nil, err
	}

	s.logger.InfoContext(ctx, "loan extended",
		"loan_id", loan.ID,
		"due_at", loan.DueAt,
		"extensions", loan.Extensions,
	)
	return loan, nil
}

// Reserve queues the user for a fully checked out title
func (s *LendingService) Reserve(ctx context.Context, userID string, titleID uuid.UUID) (*domain.Reservation, error) {
	var reservation *domain.Reservation
	err := s.execute(ctx, "reserve", func(ctx context.Context, repos repository.Repositories) error {
		var err error
		reservation, err = NewReservationQueue(repos.Titles, repos.Reservations).Reserve(ctx, userID, titleID, s.now)
		return err
	})
	if err != nil {
		s.logRejection(ctx, "reserve", err, "user_id", userID, "title_id", titleID)
		return nil, err
	}

	s.logger.InfoContext(ctx, "reservation queued",
		"reservation_id", reservation.ID,
		"user_id", userID,
		"title_id", titleID,
	)
	return reservation, nil
}

// CancelReservation withdraws the user's pending reservation of a title
func (s *LendingService) CancelReservation(ctx context.Context, userID string, titleID uuid.UUID) error {
	err := s.execute(ctx, "cancel_reservation", func(ctx context.Context, repos repository.Repositories) error {
		_, err := NewReservationQueue(repos.Titles, repos.Reservations).Cancel(ctx, userID, titleID, s.now())
		return err
	})
	if err != nil {
		s.logRejection(ctx, "cancel_reservation", err, "user_id", userID, "title_id", titleID)
		return err
	}

	s.logger.InfoContext(ctx, "reservation cancelled", "user_id", userID, "title_id", titleID)
	return nil
}

// PayFine settles all outstanding fines of the user. A non-empty reference
// also records a payment receipt under it.
func (s *LendingService) PayFine(ctx context.Context, userID, reference string) (*domain.FineSettlement, error) {
	return s.settle(ctx, "pay_fine", userID, strings.TrimSpace(reference), decimal.Zero)
}

// ConfirmPayment settles the user's fines for a payment confirmed by the
// processor. Replayed references are rejected.
func (s *LendingService) ConfirmPayment(ctx context.Context, userID, reference string, amount decimal.Decimal) (*domain.FineSettlement, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, customError.WrapInvalidPayment("payment reference is required")
	}
	if !amount.IsPositive() {
		return nil, customError.WrapInvalidPayment("payment amount must be positive")
	}
	return s.settle(ctx, "confirm_payment", userID, reference, amount)
}

func (s *LendingService) settle(ctx context.Context, operation, userID, reference string, amount decimal.Decimal) (*domain.FineSettlement, error) {
	now := s.now()

	var settlement *domain.FineSettlement
	err := s.execute(ctx, operation, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		fines := NewFineLedger(repos, s.logger)
		if reference == "" {
			settlement, err = fines.SettleAll(ctx, userID, now)
		} else {
			settlement, err = fines.SettleWithPayment(ctx, userID, reference, amount, now)
		}
		return err
	})
	if err != nil {
		s.logRejection(ctx, operation, err, "user_id", userID, "payment_reference", reference)
		return nil, err
	}

	s.logger.InfoContext(ctx, "fines settled",
		"user_id", userID,
		"amount", settlement.AmountSettled.String(),
		"loans", settlement.LoansSettled,
		"nothing_due", settlement.NothingDue,
		"payment_reference", reference,
	)
	return settlement, nil
}

// ListOpenLoans lists the user's current loans with the fine each would
// carry if returned now
func (s *LendingService) ListOpenLoans(ctx context.Context, userID string) ([]*domain.OpenLoanView, error) {
	loans, err := s.store.Reports().OpenLoans(ctx, userID)
	if err != nil {
		return nil, s.internal(ctx, "list_open_loans", err)
	}

	now := s.now()
	for _, loan := range loans {
		loan.FineDue = utils.CalculateFine(loan.DueAt, now, s.policy.FinePerDay)
	}
	return loans, nil
}

// ListBorrowedLoans lists every copy out on loan across users, flagging
// overdue loans with the fine each would carry if returned now
func (s *LendingService) ListBorrowedLoans(ctx context.Context) ([]*domain.BorrowedLoanView, error) {
	loans, err := s.store.Reports().AllOpenLoans(ctx)
	if err != nil {
		return nil, s.internal(ctx, "list_borrowed_loans", err)
	}

	now := s.now()
	for _, loan := range loans {
		loan.Overdue = utils.IsDateOverdue(loan.DueAt, now)
		loan.FineDue = utils.CalculateFine(loan.DueAt, now, s.policy.FinePerDay)
	}
	return loans, nil
}

// LoanHistory lists every loan the user ever had, newest first
func (s *LendingService) LoanHistory(ctx context.Context, userID string) ([]*domain.LoanHistoryEntry, error) {
	history, err := s.store.Reports().LoanHistory(ctx, userID)
	if err != nil {
		return nil, s.internal(ctx, "loan_history", err)
	}
	return history, nil
}

// FindLoansDueWithin lists open loans due at or before now plus days,
// including loans already overdue
func (s *LendingService) FindLoansDueWithin(ctx context.Context, now time.Time, days int) ([]*domain.DueLoan, error) {
	loans, err := s.store.Reports().LoansDueBefore(ctx, utils.ReminderCutoff(now, days))
	if err != nil {
		return nil, s.internal(ctx, "find_loans_due", err)
	}
	return loans, nil
}

func (s *LendingService) FindUnpaidFines(ctx context.Context) ([]*domain.UnpaidFine, error) {
	fines, err := s.store.Reports().UnpaidFines(ctx)
	if err != nil {
		return nil, s.internal(ctx, "find_unpaid_fines", err)
	}
	return fines, nil
}

// CreateTitle adds a title with all of its copies on the shelf
func (s *LendingService) CreateTitle(ctx context.Context, req *domain.CreateTitleRequest) (*domain.Title, error) {
	now := s.now()
	title := &domain.Title{
		ID:              uuid.New(),
		Name:            strings.TrimSpace(req.Name),
		Author:          strings.TrimSpace(req.Author),
		ISBN:            strings.TrimSpace(req.ISBN),
		TotalCopies:     req.TotalCopies,
		AvailableCopies: req.TotalCopies,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.execute(ctx, "create_title", func(ctx context.Context, repos repository.Repositories) error {
		err := repos.Titles.Create(ctx, title)
		if errors.Is(err, repository.ErrDuplicate) {
			return customError.WrapDuplicateTitle(title.ISBN)
		}
		return err
	})
	if err != nil {
		s.logRejection(ctx, "create_title", err, "isbn", title.ISBN)
		return nil, err
	}

	s.logger.InfoContext(ctx, "title created", "title_id", title.ID, "total_copies", title.TotalCopies)
	return title, nil
}

// InventoryReport aggregates copies, loans, reservations and fines, with
// a per-title breakdown
func (s *LendingService) InventoryReport(ctx context.Context) (*domain.InventoryReport, error) {
	report, err := s.store.Reports().Inventory(ctx)
	if err != nil {
		return nil, s.internal(ctx, "inventory_report", err)
	}

	err = s.store.Atomic(ctx, func(ctx context.Context, repos repository.Repositories) error {
		breakdown, err := titleBreakdown(ctx, repos)
		report.ByTitle = breakdown
		return err
	})
	if err != nil {
		return nil, s.internal(ctx, "inventory_report", err)
	}

	if !report.Consistent() {
		s.logger.ErrorContext(ctx, "checked out copies do not match open loans",
			"total_copies", report.TotalCopies,
			"available_copies", report.AvailableCopies,
			"open_loans", report.OpenLoans,
		)
	}
	for _, title := range report.ByTitle {
		if !title.Consistent() {
			s.logger.ErrorContext(ctx, "title counter does not match open loans",
				"title_id", title.TitleID,
				"total_copies", title.TotalCopies,
				"available_copies", title.AvailableCopies,
				"open_loans", title.OpenLoans,
			)
		}
	}
	return report, nil
}

func titleBreakdown(ctx context.Context, repos repository.Repositories) ([]*domain.TitleInventory, error) {
	titles, err := repos.Titles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}

	breakdown := make([]*domain.TitleInventory, 0, len(titles))
	for _, title := range titles {
		open, err := repos.Loans.CountOpenByTitle(ctx, title.ID)
		if err != nil {
			return nil, fmt.Errorf("count open loans of %s: %w", title.ID, err)
		}
		queue, err := repos.Reservations.ListPendingByTitle(ctx, title.ID)
		if err != nil {
			return nil, fmt.Errorf("list queue of %s: %w", title.ID, err)
		}
		breakdown = append(breakdown, &domain.TitleInventory{
			TitleID:         title.ID,
			Title:           title.Name,
			TotalCopies:     title.TotalCopies,
			AvailableCopies: title.AvailableCopies,
			OpenLoans:       open,
			QueueLength:     len(queue),
		})
	}
	return breakdown, nil
}

// Ping checks the backing store
func (s *LendingService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// execute runs fn atomically and records the outcome
func (s *LendingService) execute(ctx context.Context, operation string, fn repository.TxFunc) error {
	start := time.Now()
	err := s.store.Atomic(ctx, fn)
	if err != nil {
		var be *customError.BusinessError
		if !errors.As(err, &be) {
			err = customError.WrapDatabaseError(err)
		}
	}
	s.metrics.RecordOperation(operation, outcome(err), time.Since(start))
	return err
}

func (s *LendingService) internal(ctx context.Context, operation string, err error) error {
	s.metrics.RecordOperation(operation, customError.ErrCodeDatabaseError, 0)
	s.logger.ErrorContext(ctx, "query failed", "operation", operation, "error", err)
	return customError.WrapDatabaseError(err)
}

func (s *LendingService) logRejection(ctx context.Context, operation string, err error, attrs ...any) {
	attrs = append(attrs, "operation", operation, "error", err)
	if customError.IsInternal(err) {
		s.logger.ErrorContext(ctx, "operation failed", attrs...)
		return
	}
	s.logger.InfoContext(ctx, "operation rejected", attrs...)
}

// notify delivers after commit with its own deadline. Failures are logged
// and never undo the committed change.
func (s *LendingService) notify(ctx context.Context, n domain.Notification) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	err := s.notifier.Notify(ctx, n)
	s.metrics.RecordNotification(n.Kind, err)
	if err != nil {
		s.logger.WarnContext(ctx, "notification failed",
			"user_id", n.UserID,
			"kind", n.Kind,
			"title_id", n.TitleID,
			"error", err,
		)
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var be *customError.BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return "error"
}
