package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/segyhp/library-lending/internal/domain"
	"github.com/segyhp/library-lending/internal/repository"
	customError "github.com/segyhp/library-lending/pkg/errors"
)

// InventoryLedger owns the per-title copy counters
type InventoryLedger struct {
	titles repository.TitleRepository
	logger *slog.Logger
}

func NewInventoryLedger(titles repository.TitleRepository, logger *slog.Logger) *InventoryLedger {
	return &InventoryLedger{titles: titles, logger: logger}
}

// ReserveCopy takes one available copy of the title
func (l *InventoryLedger) ReserveCopy(ctx context.Context, titleID uuid.UUID) (*domain.Title, error) {
	title, err := l.lock(ctx, titleID)
	if err != nil {
		return nil, err
	}

	if title.AvailableCopies <= 0 {
		return nil, customError.WrapNoCapacity(titleID.String())
	}

	title.AvailableCopies--
	if err := l.titles.UpdateAvailableCopies(ctx, titleID, title.AvailableCopies); err != nil {
		return nil, fmt.Errorf("decrement available copies: %w", err)
	}
	return title, nil
}

// ReleaseCopy puts one copy of the title back on the shelf
func (l *InventoryLedger) ReleaseCopy(ctx context.Context, titleID uuid.UUID) (*domain.Title, error) {
	title, err := l.lock(ctx, titleID)
	if err != nil {
		return nil, err
	}

	if title.AvailableCopies >= title.TotalCopies {
		l.logger.ErrorContext(ctx, "copy released past total",
			"title_id", titleID,
			"available_copies", title.AvailableCopies,
			"total_copies", title.TotalCopies,
		)
		return nil, customError.WrapInvariantViolation(
			fmt.Sprintf("title %s already has all %d copies available", titleID, title.TotalCopies))
	}

	title.AvailableCopies++
	if err := l.titles.UpdateAvailableCopies(ctx, titleID, title.AvailableCopies); err != nil {
		return nil, fmt.Errorf("increment available copies: %w", err)
	}
	return title, nil
}

func (l *InventoryLedger) lock(ctx context.Context, titleID uuid.UUID) (*domain.Title, error) {
	title, err := l.titles.GetForUpdate(ctx, titleID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, customError.WrapTitleNotFound(titleID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("lock title: %w", err)
	}
	return title, nil
}
