package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/segyhp/library-lending/internal/domain"
	"github.com/segyhp/library-lending/internal/repository"
	customError "github.com/segyhp/library-lending/pkg/errors"
)

// ReservationQueue keeps a FIFO of users waiting for each title
type ReservationQueue struct {
	titles       repository.TitleRepository
	reservations repository.ReservationRepository
}

func NewReservationQueue(titles repository.TitleRepository, reservations repository.ReservationRepository) *ReservationQueue {
	return &ReservationQueue{titles: titles, reservations: reservations}
}

// Reserve queues the user for a title that has no copy on the shelf. The
// request time is read from clock once the title lock is held, so queue
// position follows lock order.
func (q *ReservationQueue) Reserve(ctx context.Context, userID string, titleID uuid.UUID, clock func() time.Time) (*domain.Reservation, error) {
	// The title lock orders this against returns, so a reservation can only
	// be queued while every copy is out.
	title, err := q.titles.GetForUpdate(ctx, titleID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, customError.WrapTitleNotFound(titleID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("lock title: %w", err)
	}

	if title.AvailableCopies > 0 {
		return nil, customError.WrapTitleAvailable(titleID.String())
	}

	now := clock()

	reservation := &domain.Reservation{
		ID:          uuid.New(),
		UserID:      userID,
		TitleID:     titleID,
		RequestedAt: now,
		Status:      domain.ReservationStatusPending,
		UpdatedAt:   now,
	}

	err = q.reservations.Create(ctx, reservation)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, customError.WrapDuplicateReservation(userID, titleID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	return reservation, nil
}

// Cancel withdraws the user's pending reservation of a title
func (q *ReservationQueue) Cancel(ctx context.Context, userID string, titleID uuid.UUID, now time.Time) (*domain.Reservation, error) {
	// Lock order is title then reservation, as in a return advancing the queue
	_, err := q.titles.GetForUpdate(ctx, titleID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, customError.WrapReservationNotFound(userID, titleID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("lock title: %w", err)
	}

	reservation, err := q.reservations.FindForUpdate(ctx, userID, titleID, domain.ReservationStatusPending)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, customError.WrapReservationNotFound(userID, titleID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("find reservation: %w", err)
	}

	if err := q.reservations.UpdateStatus(ctx, reservation.ID, domain.ReservationStatusCancelled, now); err != nil {
		return nil, fmt.Errorf("cancel reservation: %w", err)
	}

	reservation.Status = domain.ReservationStatusCancelled
	reservation.UpdatedAt = now
	return reservation, nil
}

// Advance marks the head of the title's queue as notified. Returns nil when
// nobody is waiting. The copy is not held for the notified user.
func (q *ReservationQueue) Advance(ctx context.Context, titleID uuid.UUID, now time.Time) (*domain.Reservation, error) {
	head, err := q.reservations.OldestPendingForUpdate(ctx, titleID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find queue head: %w", err)
	}

	if err := q.reservations.UpdateStatus(ctx, head.ID, domain.ReservationStatusNotified, now); err != nil {
		return nil, fmt.Errorf("notify queue head: %w", err)
	}

	head.Status = domain.ReservationStatusNotified
	head.UpdatedAt = now
	return head, nil
}
