package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/library-lending/internal/domain"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func seedTitle(t *testing.T, store *MemoryStore, isbn string, copies int) *domain.Title {
	t.Helper()
	title := &domain.Title{ID: uuid.New(), Name: "Title " + isbn, ISBN: isbn, TotalCopies: copies, AvailableCopies: copies}
	require.NoError(t, store.Atomic(context.Background(), func(ctx context.Context, repos Repositories) error {
		return repos.Titles.Create(ctx, title)
	}))
	return title
}

func TestMemoryStore_RollbackOnError(t *testing.T) {
	store := NewMemoryStore()
	title := seedTitle(t, store, "111", 2)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Atomic(ctx, func(ctx context.Context, repos Repositories) error {
		require.NoError(t, repos.Titles.UpdateAvailableCopies(ctx, title.ID, 1))
		require.NoError(t, repos.Loans.Create(ctx, &domain.Loan{ID: uuid.New(), UserID: "u", TitleID: title.ID, FineAmount: decimal.Zero}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, repos Repositories) error {
		got, err := repos.Titles.GetByID(ctx, title.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.AvailableCopies)

		open, err := repos.Loans.CountOpenByTitle(ctx, title.ID)
		require.NoError(t, err)
		assert.Zero(t, open)
		return nil
	}))
}

func TestMemoryStore_ReturnedCopiesAreIsolated(t *testing.T) {
	store := NewMemoryStore()
	title := seedTitle(t, store, "222", 1)
	ctx := context.Background()
	loan := &domain.Loan{ID: uuid.New(), UserID: "u", TitleID: title.ID, FineAmount: decimal.Zero}

	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, repos Repositories) error {
		return repos.Loans.Create(ctx, loan)
	}))

	returned := t0
	loan.ReturnedAt = &returned

	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, repos Repositories) error {
		got, err := repos.Loans.GetByID(ctx, loan.ID)
		require.NoError(t, err)
		assert.True(t, got.IsOpen())
		return nil
	}))
}

func TestMemoryStore_Uniqueness(t *testing.T) {
	store := NewMemoryStore()
	title := seedTitle(t, store, "333", 1)
	ctx := context.Background()

	err := store.Atomic(ctx, func(ctx context.Context, repos Repositories) error {
		return repos.Titles.Create(ctx, &domain.Title{ID: uuid.New(), ISBN: "333", TotalCopies: 1})
	})
	assert.ErrorIs(t, err, ErrDuplicate)

	// titles without an ISBN never collide
	seedTitle(t, store, "", 1)
	seedTitle(t, store, "", 1)

	pending := func(userID string, at time.Time) *domain.Reservation {
		return &domain.Reservation{ID: uuid.New(), UserID: userID, TitleID: title.ID, RequestedAt: at, Status: domain.ReservationStatusPending}
	}

	first := pending("u1", t0)
	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, repos Repositories) error {
		return repos.Reservations.Create(ctx, first)
	}))
	err = store.Atomic(ctx, func(ctx context.Context, repos Repositories) error {
		return repos.Reservations.Create(ctx, pending("u1", t0.Add(time.Minute)))
	})
	assert.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, repos Repositories) error {
		if err := repos.Reservations.UpdateStatus(ctx, first.ID, domain.ReservationStatusCancelled, t0); err != nil {
			return err
		}
		return repos.Reservations.Create(ctx, pending("u1", t0.Add(time.Hour)))
	}))

	receipt := &domain.PaymentReceipt{ID: uuid.New(), Reference: "pay_1", UserID: "u1", Amount: decimal.NewFromInt(5)}
	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, repos Repositories) error {
		return repos.Payments.Create(ctx, receipt)
	}))
	err = store.Atomic(ctx, func(ctx context.Context, repos Repositories) error {
		return repos.Payments.Create(ctx, receipt)
	})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryStore_QueueOrder(t *testing.T) {
	store := NewMemoryStore()
	title := seedTitle(t, store, "444", 1)
	ctx := context.Background()

	late := &domain.Reservation{ID: uuid.New(), UserID: "late", TitleID: title.ID, RequestedAt: t0.Add(time.Minute), Status: domain.ReservationStatusPending}
	early := &domain.Reservation{ID: uuid.New(), UserID: "early", TitleID: title.ID, RequestedAt: t0, Status: domain.ReservationStatusPending}

	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, repos Repositories) error {
		if err := repos.Reservations.Create(ctx, late); err != nil {
			return err
		}
		return repos.Reservations.Create(ctx, early)
	}))

	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, repos Repositories) error {
		head, err := repos.Reservations.OldestPendingForUpdate(ctx, title.ID)
		require.NoError(t, err)
		assert.Equal(t, "early", head.UserID)

		queue, err := repos.Reservations.ListPendingByTitle(ctx, title.ID)
		require.NoError(t, err)
		require.Len(t, queue, 2)
		assert.Equal(t, "late", queue[1].UserID)

		_, err = repos.Reservations.OldestPendingForUpdate(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
		return nil
	}))
}

func TestMemoryStore_Fines(t *testing.T) {
	store := NewMemoryStore()
	title := seedTitle(t, store, "555", 3)
	ctx := context.Background()

	closed := func(returned time.Time, fine int64) *domain.Loan {
		r := returned
		return &domain.Loan{ID: uuid.New(), UserID: "u", TitleID: title.ID, ReturnedAt: &r, FineAmount: decimal.NewFromInt(fine)}
	}
	second := closed(t0.Add(time.Hour), 20)
	first := closed(t0, 15)
	noFine := closed(t0, 0)

	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, repos Repositories) error {
		for _, l := range []*domain.Loan{second, first, noFine} {
			if err := repos.Loans.Create(ctx, l); err != nil {
				return err
			}
		}

		outstanding, err := repos.Loans.HasOutstandingFine(ctx, "u")
		require.NoError(t, err)
		assert.True(t, outstanding)

		fines, err := repos.Loans.ListOutstandingFinesForUpdate(ctx, "u")
		require.NoError(t, err)
		require.Len(t, fines, 2)
		assert.Equal(t, first.ID, fines[0].ID)
		assert.Equal(t, second.ID, fines[1].ID)

		return repos.Loans.MarkFinesPaid(ctx, []uuid.UUID{first.ID, second.ID}, t0)
	}))

	err := store.Atomic(ctx, func(ctx context.Context, repos Repositories) error {
		return repos.Loans.MarkFinesPaid(ctx, []uuid.UUID{first.ID}, t0)
	})
	assert.ErrorIs(t, err, ErrNotFound)

	report, err := store.Reports().Inventory(ctx)
	require.NoError(t, err)
	assert.True(t, report.OutstandingFines.IsZero())
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := store.Atomic(ctx, func(ctx context.Context, repos Repositories) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
	assert.ErrorIs(t, store.Ping(ctx), context.Canceled)
}
