package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusinessError_Unwrap(t *testing.T) {
	err := WrapNoCapacity("title-1")

	assert.True(t, errors.Is(err, ErrNoCapacity))
	assert.Contains(t, err.Error(), ErrCodeNoCapacity)
	assert.Contains(t, err.Error(), "title-1")

	wrapped := fmt.Errorf("borrow: %w", err)
	var be *BusinessError
	assert.True(t, errors.As(wrapped, &be))
	assert.Equal(t, ErrCodeNoCapacity, be.Code)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"no capacity", WrapNoCapacity("t"), http.StatusConflict},
		{"fine outstanding", WrapFineOutstanding("u"), http.StatusForbidden},
		{"borrow limit", WrapBorrowLimitReached("u", 3), http.StatusUnprocessableEntity},
		{"loan not found", WrapLoanNotFound("l"), http.StatusNotFound},
		{"loan closed", WrapLoanAlreadyClosed("l"), http.StatusConflict},
		{"reservation not found", WrapReservationNotFound("u", "t"), http.StatusNotFound},
		{"title available", WrapTitleAvailable("t"), http.StatusConflict},
		{"duplicate reservation", WrapDuplicateReservation("u", "t"), http.StatusConflict},
		{"duplicate payment", WrapDuplicatePayment("pay_1"), http.StatusConflict},
		{"duplicate title", WrapDuplicateTitle("978-0"), http.StatusConflict},
		{"already borrowed", WrapAlreadyBorrowed("u", "t"), http.StatusConflict},
		{"invariant", WrapInvariantViolation("over-release"), http.StatusInternalServerError},
		{"database", WrapDatabaseError(errors.New("boom")), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}

func TestIsInternal(t *testing.T) {
	assert.False(t, IsInternal(WrapBorrowLimitReached("u", 3)))
	assert.False(t, IsInternal(WrapDuplicatePayment("p")))
	assert.True(t, IsInternal(WrapInvariantViolation("negative fine")))
	assert.True(t, IsInternal(WrapDatabaseError(errors.New("conn reset"))))
	assert.True(t, IsInternal(errors.New("unexpected")))
}
