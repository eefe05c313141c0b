package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors
var (
	ErrNoCapacity           = errors.New("no copies available")
	ErrFineOutstanding      = errors.New("outstanding fine must be paid first")
	ErrBorrowLimitReached   = errors.New("borrow limit reached")
	ErrLoanNotFound         = errors.New("loan not found")
	ErrLoanAlreadyClosed    = errors.New("loan is already closed")
	ErrExtensionLimit       = errors.New("extension limit reached")
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrTitleAvailable       = errors.New("title has available copies")
	ErrDuplicateReservation = errors.New("reservation already pending")
	ErrDuplicatePayment     = errors.New("payment already recorded")
	ErrTitleNotFound        = errors.New("title not found")
	ErrInvalidPayment       = errors.New("invalid payment")
	ErrDuplicateTitle       = errors.New("title already exists")
	ErrAlreadyBorrowed      = errors.New("title already borrowed")

	// ErrInvariantViolation marks a bug, never a normal business rejection.
	ErrInvariantViolation = errors.New("invariant violation")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeNoCapacity           = "NO_CAPACITY"
	ErrCodeFineOutstanding      = "FINE_OUTSTANDING"
	ErrCodeBorrowLimitReached   = "BORROW_LIMIT_REACHED"
	ErrCodeLoanNotFound         = "LOAN_NOT_FOUND"
	ErrCodeLoanAlreadyClosed    = "LOAN_ALREADY_CLOSED"
	ErrCodeExtensionLimit       = "EXTENSION_LIMIT_REACHED"
	ErrCodeReservationNotFound  = "RESERVATION_NOT_FOUND"
	ErrCodeTitleAvailable       = "TITLE_AVAILABLE"
	ErrCodeDuplicateReservation = "DUPLICATE_RESERVATION"
	ErrCodeDuplicatePayment     = "DUPLICATE_PAYMENT"
	ErrCodeTitleNotFound        = "TITLE_NOT_FOUND"
	ErrCodeInvalidPayment       = "INVALID_PAYMENT"
	ErrCodeDuplicateTitle       = "DUPLICATE_TITLE"
	ErrCodeAlreadyBorrowed      = "ALREADY_BORROWED"
	ErrCodeInvariantViolation   = "INVARIANT_VIOLATION"
	ErrCodeDatabaseError        = "DATABASE_ERROR"
)

func WrapNoCapacity(titleID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNoCapacity,
		fmt.Sprintf("No copies of title %s are available", titleID),
		ErrNoCapacity,
	)
}

func WrapFineOutstanding(userID string) *BusinessError {
	return NewBusinessError(
		ErrCodeFineOutstanding,
		fmt.Sprintf("User %s has unpaid fines; pay them before borrowing", userID),
		ErrFineOutstanding,
	)
}

func WrapBorrowLimitReached(userID string, limit int) *BusinessError {
	return NewBusinessError(
		ErrCodeBorrowLimitReached,
		fmt.Sprintf("User %s already holds the maximum of %d loans", userID, limit),
		ErrBorrowLimitReached,
	)
}

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapLoanAlreadyClosed(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanAlreadyClosed,
		fmt.Sprintf("Loan with ID %s is already closed", loanID),
		ErrLoanAlreadyClosed,
	)
}

func WrapExtensionLimit(loanID string, limit int) *BusinessError {
	return NewBusinessError(
		ErrCodeExtensionLimit,
		fmt.Sprintf("Loan with ID %s has already been extended %d times", loanID, limit),
		ErrExtensionLimit,
	)
}

func WrapReservationNotFound(userID, titleID string) *BusinessError {
	return NewBusinessError(
		ErrCodeReservationNotFound,
		fmt.Sprintf("No pending reservation of title %s for user %s", titleID, userID),
		ErrReservationNotFound,
	)
}

func WrapTitleAvailable(titleID string) *BusinessError {
	return NewBusinessError(
		ErrCodeTitleAvailable,
		fmt.Sprintf("Title %s has copies available; borrow it directly", titleID),
		ErrTitleAvailable,
	)
}

func WrapDuplicateReservation(userID, titleID string) *BusinessError {
	return NewBusinessError(
		ErrCodeDuplicateReservation,
		fmt.Sprintf("User %s already has a pending reservation of title %s", userID, titleID),
		ErrDuplicateReservation,
	)
}

func WrapDuplicatePayment(reference string) *BusinessError {
	return NewBusinessError(
		ErrCodeDuplicatePayment,
		fmt.Sprintf("Payment %s has already been recorded", reference),
		ErrDuplicatePayment,
	)
}

func WrapTitleNotFound(titleID string) *BusinessError {
	return NewBusinessError(
		ErrCodeTitleNotFound,
		fmt.Sprintf("Title with ID %s not found", titleID),
		ErrTitleNotFound,
	)
}

func WrapInvalidPayment(reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidPayment,
		reason,
		ErrInvalidPayment,
	)
}

func WrapDuplicateTitle(isbn string) *BusinessError {
	return NewBusinessError(
		ErrCodeDuplicateTitle,
		fmt.Sprintf("A title with ISBN %s already exists", isbn),
		ErrDuplicateTitle,
	)
}

func WrapAlreadyBorrowed(userID, titleID string) *BusinessError {
	return NewBusinessError(
		ErrCodeAlreadyBorrowed,
		fmt.Sprintf("User %s already has a copy of title %s on loan", userID, titleID),
		ErrAlreadyBorrowed,
	)
}

func WrapInvariantViolation(detail string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvariantViolation,
		detail,
		ErrInvariantViolation,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

// IsInternal reports whether err indicates a bug or infrastructure failure
// rather than a business rejection the caller can act on.
func IsInternal(err error) bool {
	var be *BusinessError
	if !errors.As(err, &be) {
		return true
	}
	return be.Code == ErrCodeInvariantViolation || be.Code == ErrCodeDatabaseError
}

// HTTPStatus maps an error to the status code the API responds with
func HTTPStatus(err error) int {
	var be *BusinessError
	if !errors.As(err, &be) {
		return http.StatusInternalServerError
	}

	switch be.Code {
	case ErrCodeLoanNotFound, ErrCodeReservationNotFound, ErrCodeTitleNotFound:
		return http.StatusNotFound
	case ErrCodeNoCapacity, ErrCodeLoanAlreadyClosed, ErrCodeTitleAvailable,
		ErrCodeDuplicateReservation, ErrCodeDuplicatePayment, ErrCodeDuplicateTitle,
		ErrCodeAlreadyBorrowed:
		return http.StatusConflict
	case ErrCodeFineOutstanding:
		return http.StatusForbidden
	case ErrCodeBorrowLimitReached, ErrCodeExtensionLimit, ErrCodeInvalidPayment:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
