package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LoanStatusBorrowed = "borrowed"
	LoanStatusReturned = "returned"
)

// Loan represents one checkout of one physical copy
type Loan struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	UserID     string          `json:"user_id" db:"user_id"`
	TitleID    uuid.UUID       `json:"title_id" db:"title_id"`
	BorrowedAt time.Time       `json:"borrowed_at" db:"borrowed_at"`
	DueAt      time.Time       `json:"due_at" db:"due_at"`
	ReturnedAt *time.Time      `json:"returned_at,omitempty" db:"returned_at"`
	Extensions int             `json:"extensions" db:"extensions"`
	FineAmount decimal.Decimal `json:"fine_amount" db:"fine_amount"`
	FinePaid   bool            `json:"fine_paid" db:"fine_paid"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// IsOpen reports whether the copy is still checked out
func (l *Loan) IsOpen() bool {
	return l.ReturnedAt == nil
}

func (l *Loan) Status() string {
	if l.IsOpen() {
		return LoanStatusBorrowed
	}
	return LoanStatusReturned
}

// HasOutstandingFine reports whether the loan carries an unpaid fine
func (l *Loan) HasOutstandingFine() bool {
	return l.FineAmount.IsPositive() && !l.FinePaid
}

// DTOs for requests and responses

type BorrowRequest struct {
	TitleID string `json:"title_id" validate:"required,uuid"`
}

type IssueLoanRequest struct {
	UserID  string `json:"user_id" validate:"required,max=64"`
	TitleID string `json:"title_id" validate:"required,uuid"`
}

type AcceptReturnRequest struct {
	UserID  string `json:"user_id" validate:"required,max=64"`
	TitleID string `json:"title_id" validate:"required,uuid"`
}

type BorrowResponse struct {
	LoanID uuid.UUID `json:"loan_id"`
	DueAt  time.Time `json:"due_at"`
}

type ReturnResponse struct {
	LoanID     uuid.UUID       `json:"loan_id"`
	FineAmount decimal.Decimal `json:"fine_amount"`
}

type ExtendResponse struct {
	LoanID   uuid.UUID `json:"loan_id"`
	NewDueAt time.Time `json:"new_due_at"`
}

// ReturnResult is the outcome of closing a loan
type ReturnResult struct {
	Loan *Loan
	// NotifiedUserID is the head of the reservation queue told about the
	// freed copy, empty when nobody was waiting.
	NotifiedUserID string
}

// OpenLoanView is a borrower-facing summary of a current loan
type OpenLoanView struct {
	LoanID  uuid.UUID       `json:"loan_id" db:"loan_id"`
	TitleID uuid.UUID       `json:"title_id" db:"title_id"`
	Title   string          `json:"title" db:"title"`
	DueAt   time.Time       `json:"due_at" db:"due_at"`
	FineDue decimal.Decimal `json:"fine_due" db:"-"`
}

// LoanHistoryEntry is a loan joined with its title name
type LoanHistoryEntry struct {
	Loan
	Title string `json:"title" db:"title"`
}

// BorrowedLoanView is a desk-facing summary of a copy that is out on loan
type BorrowedLoanView struct {
	LoanID     uuid.UUID       `json:"loan_id" db:"loan_id"`
	UserID     string          `json:"user_id" db:"user_id"`
	TitleID    uuid.UUID       `json:"title_id" db:"title_id"`
	Title      string          `json:"title" db:"title"`
	BorrowedAt time.Time       `json:"borrowed_at" db:"borrowed_at"`
	DueAt      time.Time       `json:"due_at" db:"due_at"`
	Extensions int             `json:"extensions" db:"extensions"`
	Overdue    bool            `json:"overdue" db:"-"`
	FineDue    decimal.Decimal `json:"fine_due" db:"-"`
}

// DueLoan is an open loan whose due date falls inside the reminder window
type DueLoan struct {
	LoanID  uuid.UUID `json:"loan_id" db:"loan_id"`
	UserID  string    `json:"user_id" db:"user_id"`
	TitleID uuid.UUID `json:"title_id" db:"title_id"`
	Title   string    `json:"title" db:"title"`
	DueAt   time.Time `json:"due_at" db:"due_at"`
}

// UnpaidFine is a closed loan with a fine that has not been settled
type UnpaidFine struct {
	LoanID     uuid.UUID       `json:"loan_id" db:"loan_id"`
	UserID     string          `json:"user_id" db:"user_id"`
	TitleID    uuid.UUID       `json:"title_id" db:"title_id"`
	Title      string          `json:"title" db:"title"`
	FineAmount decimal.Decimal `json:"fine_amount" db:"fine_amount"`
}
