package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segyhp/library-lending/internal/domain"
	"github.com/segyhp/library-lending/internal/metrics"
	"github.com/segyhp/library-lending/internal/notify"
)

// ReminderSource lists what the reminder sweeps act on
type ReminderSource interface {
	FindLoansDueWithin(ctx context.Context, now time.Time, days int) ([]*domain.DueLoan, error)
	FindUnpaidFines(ctx context.Context) ([]*domain.UnpaidFine, error)
}

// ReminderService sends the scheduled due-date and unpaid-fine reminders
type ReminderService struct {
	source     ReminderSource
	notifier   notify.Notifier
	metrics    metrics.Recorder
	logger     *slog.Logger
	windowDays int
	now        func() time.Time
}

func NewReminderService(
	source ReminderSource,
	notifier notify.Notifier,
	recorder metrics.Recorder,
	logger *slog.Logger,
	windowDays int,
) *ReminderService {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReminderService{
		source:     source,
		notifier:   notifier,
		metrics:    recorder,
		logger:     logger,
		windowDays: windowDays,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SendDueDateReminders notifies borrowers of open loans due within the
// reminder window. Returns the number of reminders delivered.
func (s *ReminderService) SendDueDateReminders(ctx context.Context) (int, error) {
	now := s.now()
	loans, err := s.source.FindLoansDueWithin(ctx, now, s.windowDays)
	if err != nil {
		return 0, fmt.Errorf("find loans due: %w", err)
	}

	sent := 0
	for _, loan := range loans {
		n := domain.Notification{
			UserID:  loan.UserID,
			Kind:    domain.NotificationDueReminder,
			TitleID: loan.TitleID,
			Subject: "Library Due Date Reminder",
			Message: fmt.Sprintf("Reminder: Your borrowed book '%s' is due on %s. Please return it on time to avoid fines.",
				loan.Title, loan.DueAt.Format("2006-01-02")),
			CreatedAt: now,
		}
		if s.deliver(ctx, n) {
			sent++
		}
	}

	s.metrics.RecordReminders(domain.NotificationDueReminder, sent)
	s.logger.InfoContext(ctx, "due date reminders sent", "candidates", len(loans), "sent", sent)
	return sent, nil
}

// SendFineReminders notifies every user with an unpaid fine, one reminder per loan
func (s *ReminderService) SendFineReminders(ctx context.Context) (int, error) {
	now := s.now()
	fines, err := s.source.FindUnpaidFines(ctx)
	if err != nil {
		return 0, fmt.Errorf("find unpaid fines: %w", err)
	}

	sent := 0
	for _, fine := range fines {
		n := domain.Notification{
			UserID:  fine.UserID,
			Kind:    domain.NotificationFineReminder,
			TitleID: fine.TitleID,
			Subject: "Library Fine Reminder",
			Message: fmt.Sprintf("Reminder: You have an unpaid fine of %s for '%s'. Please pay it to keep borrowing.",
				fine.FineAmount.StringFixed(2), fine.Title),
			CreatedAt: now,
		}
		if s.deliver(ctx, n) {
			sent++
		}
	}

	s.metrics.RecordReminders(domain.NotificationFineReminder, sent)
	s.logger.InfoContext(ctx, "fine reminders sent", "candidates", len(fines), "sent", sent)
	return sent, nil
}

func (s *ReminderService) deliver(ctx context.Context, n domain.Notification) bool {
	err := s.notifier.Notify(ctx, n)
	s.metrics.RecordNotification(n.Kind, err)
	if err != nil {
		s.logger.WarnContext(ctx, "reminder failed", "user_id", n.UserID, "kind", n.Kind, "error", err)
		return false
	}
	return true
}
