package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/library-lending/internal/domain"
)

type stubSource struct {
	due     []*domain.DueLoan
	fines   []*domain.UnpaidFine
	err     error
	gotNow  time.Time
	gotDays int
}

func (s *stubSource) FindLoansDueWithin(ctx context.Context, now time.Time, days int) ([]*domain.DueLoan, error) {
	s.gotNow, s.gotDays = now, days
	return s.due, s.err
}

func (s *stubSource) FindUnpaidFines(ctx context.Context) ([]*domain.UnpaidFine, error) {
	return s.fines, s.err
}

// failingFor rejects notifications for one user and records the rest
type failingFor struct {
	recordingNotifier
	userID string
}

func (n *failingFor) Notify(ctx context.Context, msg domain.Notification) error {
	if msg.UserID == n.userID {
		return errors.New("mailbox full")
	}
	return n.recordingNotifier.Notify(ctx, msg)
}

func newReminders(source ReminderSource, notifier *failingFor) *ReminderService {
	s := NewReminderService(source, notifier, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), 2)
	s.now = func() time.Time { return epoch }
	return s
}

func TestSendDueDateReminders(t *testing.T) {
	source := &stubSource{due: []*domain.DueLoan{
		{LoanID: uuid.New(), UserID: "student-1", Title: "Dune", DueAt: epoch.AddDate(0, 0, 1)},
		{LoanID: uuid.New(), UserID: "student-2", Title: "Emma", DueAt: epoch.AddDate(0, 0, -3)},
		{LoanID: uuid.New(), UserID: "student-3", Title: "Kim", DueAt: epoch},
	}}
	notifier := &failingFor{userID: "student-3"}

	sent, err := newReminders(source, notifier).SendDueDateReminders(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, epoch, source.gotNow)
	assert.Equal(t, 2, source.gotDays)

	delivered := notifier.Sent()
	require.Len(t, delivered, 2)
	assert.Equal(t, "Library Due Date Reminder", delivered[0].Subject)
	assert.Equal(t, domain.NotificationDueReminder, delivered[0].Kind)
	assert.Contains(t, delivered[0].Message, "'Dune' is due on 2024-03-02")
	assert.Contains(t, delivered[1].Message, "'Emma' is due on 2024-02-27")
}

func TestSendFineReminders(t *testing.T) {
	source := &stubSource{fines: []*domain.UnpaidFine{
		{LoanID: uuid.New(), UserID: "student-1", Title: "Dune", FineAmount: decimal.NewFromInt(15)},
	}}
	notifier := &failingFor{}

	sent, err := newReminders(source, notifier).SendFineReminders(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	delivered := notifier.Sent()
	require.Len(t, delivered, 1)
	assert.Equal(t, "Library Fine Reminder", delivered[0].Subject)
	assert.Contains(t, delivered[0].Message, "unpaid fine of 15.00 for 'Dune'")
	assert.Equal(t, epoch, delivered[0].CreatedAt)
}

func TestReminders_SourceError(t *testing.T) {
	source := &stubSource{err: errors.New("db down")}
	reminders := newReminders(source, &failingFor{})

	_, err := reminders.SendDueDateReminders(context.Background())
	assert.ErrorContains(t, err, "find loans due")

	_, err = reminders.SendFineReminders(context.Background())
	assert.ErrorContains(t, err, "find unpaid fines")
}

func TestReminders_AgainstLendingService(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	title := f.title(t, "Dune", 2)
	f.borrow(t, "student-1", title.ID, epoch.AddDate(0, 0, -13))
	f.borrow(t, "student-2", title.ID, epoch)

	notifier := &failingFor{}
	sent, err := newReminders(f.svc, notifier).SendDueDateReminders(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, "student-1", notifier.Sent()[0].UserID)
}
