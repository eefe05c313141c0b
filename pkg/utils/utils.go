package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

// CalculateDueDate returns the due date of a loan opened at start
func CalculateDueDate(start time.Time, loanDays int) time.Time {
	return start.Add(time.Duration(loanDays) * day)
}

// ExtendDueDate pushes a due date forward by whole days
func ExtendDueDate(dueAt time.Time, extensionDays int) time.Time {
	return dueAt.Add(time.Duration(extensionDays) * day)
}

// DaysLate counts whole elapsed days between due and returned, truncated.
// Returning on or before the due date is zero days late.
func DaysLate(dueAt, returnedAt time.Time) int64 {
	if !returnedAt.After(dueAt) {
		return 0
	}
	return int64(returnedAt.Sub(dueAt) / day)
}

// CalculateFine computes the point-in-time fine for a return
// Formula: max(0, days_late) * fine_per_day
func CalculateFine(dueAt, returnedAt time.Time, finePerDay decimal.Decimal) decimal.Decimal {
	days := DaysLate(dueAt, returnedAt)
	if days == 0 {
		return decimal.Zero
	}
	return finePerDay.Mul(decimal.NewFromInt(days))
}

// IsDateOverdue checks if a due date has passed at now
func IsDateOverdue(dueAt, now time.Time) bool {
	return now.After(dueAt)
}

// ReminderCutoff is the latest due date that still warrants a reminder at now
func ReminderCutoff(now time.Time, windowDays int) time.Time {
	return now.Add(time.Duration(windowDays) * day)
}
