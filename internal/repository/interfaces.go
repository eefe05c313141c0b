package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/segyhp/library-lending/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when an insert violates a uniqueness constraint
	ErrDuplicate = errors.New("duplicate record")
)

// TitleRepository defines the interface for title data operations
type TitleRepository interface {
	// Create creates a new title
	Create(ctx context.Context, title *domain.Title) error

	// GetByID retrieves a title without locking it
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Title, error)

	// GetForUpdate retrieves a title and holds its row lock until the
	// surrounding transaction ends
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Title, error)

	// UpdateAvailableCopies sets the available-copy counter
	UpdateAvailableCopies(ctx context.Context, id uuid.UUID, available int) error

	// List retrieves every title ordered by name
	List(ctx context.Context) ([]*domain.Title, error)
}

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create creates a new loan
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a loan without locking it
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// GetForUpdate retrieves a loan and locks its row
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// FindOpenByUserAndTitle retrieves the oldest open loan of a title held by a user
	FindOpenByUserAndTitle(ctx context.Context, userID string, titleID uuid.UUID) (*domain.Loan, error)

	// Update persists due date, return and fine fields of a loan
	Update(ctx context.Context, loan *domain.Loan) error

	// CountOpenByUser counts loans the user has not returned yet
	CountOpenByUser(ctx context.Context, userID string) (int, error)

	// CountOpenByTitle counts unreturned loans of a title
	CountOpenByTitle(ctx context.Context, titleID uuid.UUID) (int, error)

	// HasOutstandingFine reports whether the user has any unpaid positive fine
	HasOutstandingFine(ctx context.Context, userID string) (bool, error)

	// ListOutstandingFinesForUpdate retrieves and locks the user's unpaid fines
	ListOutstandingFinesForUpdate(ctx context.Context, userID string) ([]*domain.Loan, error)

	// MarkFinesPaid flips fine_paid on the given loans
	MarkFinesPaid(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// ReservationRepository defines the interface for reservation queue operations
type ReservationRepository interface {
	// Create inserts a pending reservation. Returns ErrDuplicate when the user
	// already has a pending reservation of the title.
	Create(ctx context.Context, reservation *domain.Reservation) error

	// FindForUpdate retrieves and locks the user's reservation of a title in the given status
	FindForUpdate(ctx context.Context, userID string, titleID uuid.UUID, status string) (*domain.Reservation, error)

	// OldestPendingForUpdate retrieves and locks the head of a title's queue
	OldestPendingForUpdate(ctx context.Context, titleID uuid.UUID) (*domain.Reservation, error)

	// UpdateStatus moves a reservation to a new status
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, at time.Time) error

	// ListPendingByTitle retrieves a title's queue in FIFO order
	ListPendingByTitle(ctx context.Context, titleID uuid.UUID) ([]*domain.Reservation, error)
}

// PaymentRepository defines the interface for payment receipt operations
type PaymentRepository interface {
	// Create records a receipt. Returns ErrDuplicate when the reference was already recorded.
	Create(ctx context.Context, receipt *domain.PaymentReceipt) error

	// GetByReference retrieves a receipt by its processor reference
	GetByReference(ctx context.Context, reference string) (*domain.PaymentReceipt, error)
}

// UserLocker serializes work on a single user's loans and fines
type UserLocker interface {
	// Lock blocks until the caller holds the user's lock for the rest of the transaction
	Lock(ctx context.Context, userID string) error
}

// ReportRepository defines read-only queries for listings, sweeps and reports
type ReportRepository interface {
	// OpenLoans lists a user's unreturned loans with title names, oldest due first
	OpenLoans(ctx context.Context, userID string) ([]*domain.OpenLoanView, error)

	// LoanHistory lists every loan of a user, newest first
	LoanHistory(ctx context.Context, userID string) ([]*domain.LoanHistoryEntry, error)

	// AllOpenLoans lists every unreturned loan across users, oldest due first
	AllOpenLoans(ctx context.Context) ([]*domain.BorrowedLoanView, error)

	// LoansDueBefore lists open loans due at or before cutoff
	LoansDueBefore(ctx context.Context, cutoff time.Time) ([]*domain.DueLoan, error)

	// UnpaidFines lists every unpaid positive fine
	UnpaidFines(ctx context.Context) ([]*domain.UnpaidFine, error)

	// Inventory aggregates counters over the whole catalog
	Inventory(ctx context.Context) (*domain.InventoryReport, error)
}

// Repositories bundles the repositories bound to one unit of work
type Repositories struct {
	Titles       TitleRepository
	Loans        LoanRepository
	Reservations ReservationRepository
	Payments     PaymentRepository
	Users        UserLocker
}

// TxFunc is the body of an atomic unit of work
type TxFunc func(ctx context.Context, repos Repositories) error

// Store gives access to repositories and runs atomic units of work
type Store interface {
	// Atomic runs fn in one transaction. Every change fn made is discarded
	// when fn returns an error.
	Atomic(ctx context.Context, fn TxFunc) error

	// Reports returns the read-only query repository
	Reports() ReportRepository

	// Ping checks that the backing storage is reachable
	Ping(ctx context.Context) error
}
