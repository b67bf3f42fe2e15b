package emails

import (
	"time"

	"github.com/google/uuid"
)

// Email status constants
const (
	StatusSent   = "sent"
	StatusOpened = "opened"
)

// AnonymousUserID is the sentinel owner for emails tracked through the public
// (extension) endpoint, where no authenticated user exists.
const AnonymousUserID = "anonymous"

// Email represents one tracked outbound message.
type Email struct {
	ID         uuid.UUID `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Subject    string    `json:"subject" db:"subject"`
	ToHash     string    `json:"to_hash" db:"to_hash"`
	MessageID  string    `json:"message_id" db:"message_id"`
	SentAt     time.Time `json:"sent_at" db:"sent_at"`
	PixelToken string    `json:"-" db:"pixel_token"`
	Status     string    `json:"status" db:"status"`
}

// OpenEvent represents a single recorded fetch of a tracking pixel.
type OpenEvent struct {
	ID       uuid.UUID `json:"id" db:"id"`
	EmailID  uuid.UUID `json:"email_id" db:"email_id"`
	TS       time.Time `json:"ts" db:"ts"`
	IP       string    `json:"ip" db:"ip"`
	UAFamily string    `json:"ua_family" db:"ua_family"`
	Device   string    `json:"device" db:"device"`
}

// EmailSummary is an Email joined with its open-event aggregates, as shown on
// the dashboard and in CSV exports.
type EmailSummary struct {
	ID         uuid.UUID  `json:"id"`
	Subject    string     `json:"subject"`
	ToHash     string     `json:"to_hash"`
	MessageID  string     `json:"message_id"`
	SentAt     time.Time  `json:"sent_at"`
	Status     string     `json:"status"`
	OpenCount  int        `json:"open_count"`
	LastOpened *time.Time `json:"last_opened"`
}
