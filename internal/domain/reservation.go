package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReservationStatusPending   = "pending"
	ReservationStatusNotified  = "notified"
	ReservationStatusCancelled = "cancelled"
)

// Reservation is a queued request for a copy of a fully checked out title
type Reservation struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	TitleID     uuid.UUID `json:"title_id" db:"title_id"`
	RequestedAt time.Time `json:"requested_at" db:"requested_at"`
	Status      string    `json:"status" db:"status"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// QueuedBefore orders reservations by request time, ties broken by ID
func (r *Reservation) QueuedBefore(other *Reservation) bool {
	if !r.RequestedAt.Equal(other.RequestedAt) {
		return r.RequestedAt.Before(other.RequestedAt)
	}
	return r.ID.String() < other.ID.String()
}

type ReserveRequest struct {
	TitleID string `json:"title_id" validate:"required,uuid"`
}

type ReserveResponse struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	RequestedAt   time.Time `json:"requested_at"`
}
