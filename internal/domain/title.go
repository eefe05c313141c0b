package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Title represents a catalog entry with a number of physical copies
type Title struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Author          string    `json:"author" db:"author"`
	ISBN            string    `json:"isbn" db:"isbn"`
	TotalCopies     int       `json:"total_copies" db:"total_copies"`
	AvailableCopies int       `json:"available_copies" db:"available_copies"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// CheckedOut is the number of copies currently on loan
func (t *Title) CheckedOut() int {
	return t.TotalCopies - t.AvailableCopies
}

type CreateTitleRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Author      string `json:"author" validate:"max=255"`
	ISBN        string `json:"isbn" validate:"max=20"`
	TotalCopies int    `json:"total_copies" validate:"gt=0"`
}

// InventoryReport aggregates the lending state of the whole catalog
type InventoryReport struct {
	Titles              int               `json:"titles" db:"titles"`
	TotalCopies         int               `json:"total_copies" db:"total_copies"`
	AvailableCopies     int               `json:"available_copies" db:"available_copies"`
	OpenLoans           int               `json:"open_loans" db:"open_loans"`
	PendingReservations int               `json:"pending_reservations" db:"pending_reservations"`
	OutstandingFines    decimal.Decimal   `json:"outstanding_fines" db:"outstanding_fines"`
	ByTitle             []*TitleInventory `json:"by_title" db:"-"`
}

// Consistent reports whether checked-out copies match open loans
func (r *InventoryReport) Consistent() bool {
	return r.TotalCopies-r.AvailableCopies == r.OpenLoans
}

// TitleInventory is the lending state of one title
type TitleInventory struct {
	TitleID         uuid.UUID `json:"title_id"`
	Title           string    `json:"title"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	OpenLoans       int       `json:"open_loans"`
	QueueLength     int       `json:"queue_length"`
}

func (t *TitleInventory) Consistent() bool {
	return t.TotalCopies-t.AvailableCopies == t.OpenLoans
}
