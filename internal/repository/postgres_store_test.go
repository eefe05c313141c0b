package repository_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/library-lending/internal/database"
	"github.com/segyhp/library-lending/internal/domain"
	"github.com/segyhp/library-lending/internal/repository"
	"github.com/segyhp/library-lending/internal/service"
	customError "github.com/segyhp/library-lending/pkg/errors"
)

// openTestStore connects to TEST_DATABASE_URL, applies the schema and
// empties every table. Tests are skipped when the variable is unset.
func openTestStore(t *testing.T) (*repository.PostgresStore, *sqlx.DB) {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	require.NoError(t, database.MigrateUp(url))

	db, err := sqlx.Connect("postgres", url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`TRUNCATE payment_receipts, reservations, loans, titles`)
	require.NoError(t, err)

	return repository.NewPostgresStore(db), db
}

func createTitle(t *testing.T, store repository.Store, isbn string, copies int) *domain.Title {
	t.Helper()
	now := time.Now().UTC()
	title := &domain.Title{
		ID:              uuid.New(),
		Name:            "Title " + isbn,
		ISBN:            isbn,
		TotalCopies:     copies,
		AvailableCopies: copies,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, store.Atomic(context.Background(), func(ctx context.Context, repos repository.Repositories) error {
		return repos.Titles.Create(ctx, title)
	}))
	return title
}

func TestPostgresStore_TitleRoundTrip(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	title := createTitle(t, store, "", 3)

	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, repos repository.Repositories) error {
		got, err := repos.Titles.GetForUpdate(ctx, title.ID)
		require.NoError(t, err)
		assert.Equal(t, "", got.ISBN)
		assert.Equal(t, 3, got.AvailableCopies)

		require.NoError(t, repos.Titles.UpdateAvailableCopies(ctx, title.ID, 2))

		_, err = repos.Titles.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, repository.ErrNotFound)
		return nil
	}))

	// available above total violates the check constraint
	err := store.Atomic(ctx, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Titles.UpdateAvailableCopies(ctx, title.ID, 4)
	})
	assert.Error(t, err)
}

func TestPostgresStore_UniqueConstraints(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	title := createTitle(t, store, "9780441013593", 1)
	createTitle(t, store, "", 1)
	createTitle(t, store, "", 1)

	err := store.Atomic(ctx, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Titles.Create(ctx, &domain.Title{ID: uuid.New(), Name: "Dup", ISBN: "9780441013593", TotalCopies: 1, AvailableCopies: 1})
	})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	now := time.Now().UTC()
	reservation := func() *domain.Reservation {
		return &domain.Reservation{ID: uuid.New(), UserID: "u1", TitleID: title.ID, RequestedAt: now, Status: domain.ReservationStatusPending, UpdatedAt: now}
	}
	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Reservations.Create(ctx, reservation())
	}))
	err = store.Atomic(ctx, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Reservations.Create(ctx, reservation())
	})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	receipt := &domain.PaymentReceipt{ID: uuid.New(), Reference: "pay_1", UserID: "u1", Amount: decimal.NewFromInt(5), RecordedAt: now}
	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Payments.Create(ctx, receipt)
	}))
	err = store.Atomic(ctx, func(ctx context.Context, repos repository.Repositories) error {
		receipt.ID = uuid.New()
		return repos.Payments.Create(ctx, receipt)
	})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestPostgresStore_Rollback(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	title := createTitle(t, store, "111", 2)
	boom := errors.New("boom")

	err := store.Atomic(ctx, func(ctx context.Context, repos repository.Repositories) error {
		require.NoError(t, repos.Titles.UpdateAvailableCopies(ctx, title.ID, 1))
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, repos repository.Repositories) error {
		got, err := repos.Titles.GetByID(ctx, title.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.AvailableCopies)
		return nil
	}))
}

func TestPostgresStore_LendingFlow(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	svc := service.NewLendingService(store, nil, nil, service.DefaultPolicy())

	title, err := svc.CreateTitle(ctx, &domain.CreateTitleRequest{Name: "Dune", TotalCopies: 1})
	require.NoError(t, err)

	start := time.Now().UTC().Truncate(time.Microsecond)
	loan, err := svc.Borrow(ctx, "student-1", title.ID, start)
	require.NoError(t, err)

	_, err = svc.Reserve(ctx, "student-2", title.ID)
	require.NoError(t, err)

	borrowed, err := svc.ListBorrowedLoans(ctx)
	require.NoError(t, err)
	require.Len(t, borrowed, 1)
	assert.Equal(t, loan.ID, borrowed[0].LoanID)
	assert.Equal(t, "Dune", borrowed[0].Title)
	assert.True(t, borrowed[0].DueAt.Equal(loan.DueAt))

	closed, err := svc.Return(ctx, loan.ID, loan.DueAt.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.True(t, closed.FineAmount.Equal(decimal.NewFromInt(15)))

	fines, err := svc.FindUnpaidFines(ctx)
	require.NoError(t, err)
	require.Len(t, fines, 1)
	assert.Equal(t, "Dune", fines[0].Title)

	settlement, err := svc.ConfirmPayment(ctx, "student-1", "pay_flow", decimal.NewFromInt(15))
	require.NoError(t, err)
	assert.Equal(t, 1, settlement.LoansSettled)

	_, err = svc.ConfirmPayment(ctx, "student-1", "pay_flow", decimal.NewFromInt(15))
	var be *customError.BusinessError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, customError.ErrCodeDuplicatePayment, be.Code)

	history, err := svc.LoanHistory(ctx, "student-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].FinePaid)

	report, err := svc.InventoryReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.AvailableCopies)
	assert.Zero(t, report.OpenLoans)
	assert.Zero(t, report.PendingReservations)
	assert.True(t, report.OutstandingFines.IsZero())
	assert.True(t, report.Consistent())
	require.Len(t, report.ByTitle, 1)
	assert.Zero(t, report.ByTitle[0].QueueLength)
	assert.True(t, report.ByTitle[0].Consistent())
}

func TestPostgresStore_ConcurrentLastCopy(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	svc := service.NewLendingService(store, nil, nil, service.DefaultPolicy())

	title, err := svc.CreateTitle(ctx, &domain.CreateTitleRequest{Name: "Last Copy", TotalCopies: 1})
	require.NoError(t, err)

	const callers = 6
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Borrow(ctx, uuid.NewString(), title.ID, time.Now().UTC())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, customError.ErrNoCapacity)
	}
	assert.Equal(t, 1, succeeded)

	report, err := svc.InventoryReport(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.AvailableCopies)
	assert.Equal(t, 1, report.OpenLoans)
}

func TestPostgresStore_CancelQueueHeadRacingReturn(t *testing.T) {
	store, db := openTestStore(t)
	ctx := context.Background()
	svc := service.NewLendingService(store, nil, nil, service.DefaultPolicy())

	for round := 0; round < 10; round++ {
		title, err := svc.CreateTitle(ctx, &domain.CreateTitleRequest{Name: "Contested", TotalCopies: 1})
		require.NoError(t, err)

		loan, err := svc.Borrow(ctx, "holder", title.ID, time.Now().UTC())
		require.NoError(t, err)
		_, err = svc.Reserve(ctx, "head", title.ID)
		require.NoError(t, err)
		_, err = svc.Reserve(ctx, "next", title.ID)
		require.NoError(t, err)

		var wg sync.WaitGroup
		var returnErr, cancelErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, returnErr = svc.Return(ctx, loan.ID, time.Now().UTC())
		}()
		go func() {
			defer wg.Done()
			cancelErr = svc.CancelReservation(ctx, "head", title.ID)
		}()
		wg.Wait()
		require.NoError(t, returnErr)

		var rows []struct {
			UserID string `db:"user_id"`
			Status string `db:"status"`
		}
		require.NoError(t, db.Select(&rows, `SELECT user_id, status FROM reservations WHERE title_id = $1`, title.ID))
		statuses := make(map[string]string, len(rows))
		for _, row := range rows {
			statuses[row.UserID] = row.Status
		}

		if cancelErr == nil {
			// Cancel committed first, so the return notifies the next in line
			assert.Equal(t, domain.ReservationStatusCancelled, statuses["head"], "round %d", round)
			assert.Equal(t, domain.ReservationStatusNotified, statuses["next"], "round %d", round)
		} else {
			// Return committed first and the head was no longer pending
			assert.ErrorIs(t, cancelErr, customError.ErrReservationNotFound, "round %d", round)
			assert.Equal(t, domain.ReservationStatusNotified, statuses["head"], "round %d", round)
			assert.Equal(t, domain.ReservationStatusPending, statuses["next"], "round %d", round)
		}
	}
}
