package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalculateDueDate(t *testing.T) {
	baseDate := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), CalculateDueDate(baseDate, 14))
	assert.Equal(t, time.Date(2024, 1, 8, 10, 30, 0, 0, time.UTC), ExtendDueDate(baseDate, 7))
}

func TestCalculateFine(t *testing.T) {
	due := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	perDay := decimal.NewFromInt(5)

	tests := []struct {
		name     string
		returned time.Time
		daysLate int64
		expected decimal.Decimal
	}{
		{
			name:     "three days late",
			returned: due.AddDate(0, 0, 3),
			daysLate: 3,
			expected: decimal.NewFromInt(15),
		},
		{
			name:     "returned exactly on due date",
			returned: due,
			daysLate: 0,
			expected: decimal.Zero,
		},
		{
			name:     "returned early",
			returned: due.AddDate(0, 0, -4),
			daysLate: 0,
			expected: decimal.Zero,
		},
		{
			name:     "partial day is truncated",
			returned: due.Add(23 * time.Hour),
			daysLate: 0,
			expected: decimal.Zero,
		},
		{
			name:     "two and a half days late",
			returned: due.Add(60 * time.Hour),
			daysLate: 2,
			expected: decimal.NewFromInt(10),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.daysLate, DaysLate(due, tt.returned))
			result := CalculateFine(due, tt.returned, perDay)
			assert.True(t, result.Equal(tt.expected),
				"Expected %v, but got %v", tt.expected, result)
		})
	}
}

func TestIsDateOverdue(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, IsDateOverdue(now.Add(-time.Minute), now))
	assert.False(t, IsDateOverdue(now, now))
	assert.False(t, IsDateOverdue(now.Add(time.Hour), now))
}

func TestReminderCutoff(t *testing.T) {
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 3, 8, 0, 0, 0, time.UTC), ReminderCutoff(now, 2))
}
