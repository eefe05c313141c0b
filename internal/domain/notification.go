package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationBookAvailable = "book_available"
	NotificationDueReminder   = "due_date"
	NotificationFineReminder  = "fine_reminder"
)

// Notification is a message handed to the external notifier. Contact
// details are resolved from UserID by the delivery side.
type Notification struct {
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	TitleID   uuid.UUID `json:"title_id"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
