package emails

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store provides database operations for emails and open events
type Store struct {
	db *sql.DB
}

// NewStore creates a new email store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// HashEmail creates a SHA256 hash of an email address. The address is
// lower-cased and trimmed first so the digest is case-insensitive. The raw
// address is never stored server-side, only this hash.
func HashEmail(email string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(h[:])
}

// CreateEmail inserts a new tracked email. ID, SentAt and Status are assigned
// here; PixelToken must already be set by the caller.
func (s *Store) CreateEmail(ctx context.Context, email *Email) error {
	email.ID = uuid.New()
	email.SentAt = time.Now()
	if email.Status == "" {
		email.Status = StatusSent
	}

	query := `INSERT INTO emails (id, user_id, subject, to_hash, message_id, sent_at, pixel_token, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query, email.ID, email.UserID, email.Subject,
		email.ToHash, email.MessageID, email.SentAt, email.PixelToken, email.Status)
	return err
}

// GetEmail retrieves an email by ID
func (s *Store) GetEmail(ctx context.Context, id uuid.UUID) (*Email, error) {
	query := `SELECT id, user_id, subject, to_hash, message_id, sent_at, pixel_token, status
		FROM emails WHERE id = $1`

	email := &Email{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&email.ID, &email.UserID, &email.Subject, &email.ToHash,
		&email.MessageID, &email.SentAt, &email.PixelToken, &email.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return email, err
}

// GetEmailByToken retrieves an email by its pixel token. Returns (nil, nil)
// when no email carries the token.
func (s *Store) GetEmailByToken(ctx context.Context, token string) (*Email, error) {
	query := `SELECT id, user_id, subject, to_hash, message_id, sent_at, pixel_token, status
		FROM emails WHERE pixel_token = $1`

	email := &Email{}
	err := s.db.QueryRowContext(ctx, query, token).Scan(
		&email.ID, &email.UserID, &email.Subject, &email.ToHash,
		&email.MessageID, &email.SentAt, &email.PixelToken, &email.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return email, err
}

// MarkOpened transitions an email from 'sent' to 'opened'. The WHERE guard
// keeps the transition monotonic: an already-opened email is never touched.
func (s *Store) MarkOpened(ctx context.Context, emailID uuid.UUID) error {
	query := `UPDATE emails SET status = $1 WHERE id = $2 AND status = $3`
	_, err := s.db.ExecContext(ctx, query, StatusOpened, emailID, StatusSent)
	return err
}

// InsertOpenEvent records one pixel fetch. Open events are insert-only.
func (s *Store) InsertOpenEvent(ctx context.Context, event *OpenEvent) error {
	event.ID = uuid.New()
	if event.TS.IsZero() {
		event.TS = time.Now()
	}

	query := `INSERT INTO open_events (id, email_id, ts, ip, ua_family, device)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.ExecContext(ctx, query, event.ID, event.EmailID, event.TS,
		event.IP, event.UAFamily, event.Device)
	return err
}

// CountOpenEvents returns the total number of open events for an email
func (s *Store) CountOpenEvents(ctx context.Context, emailID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM open_events WHERE email_id = $1`
	err := s.db.QueryRowContext(ctx, query, emailID).Scan(&count)
	return count, err
}

// CountOpenEventsSince returns the number of open events for an email
// timestamped at or after the given instant
func (s *Store) CountOpenEventsSince(ctx context.Context, emailID uuid.UUID, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM open_events WHERE email_id = $1 AND ts >= $2`
	err := s.db.QueryRowContext(ctx, query, emailID, since).Scan(&count)
	return count, err
}

// GetOpenEvents retrieves all open events for an email, newest first
func (s *Store) GetOpenEvents(ctx context.Context, emailID uuid.UUID) ([]*OpenEvent, error) {
	query := `SELECT id, email_id, ts, ip, ua_family, device
		FROM open_events WHERE email_id = $1 ORDER BY ts DESC`

	rows, err := s.db.QueryContext(ctx, query, emailID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*OpenEvent
	for rows.Next() {
		event := &OpenEvent{}
		err := rows.Scan(&event.ID, &event.EmailID, &event.TS, &event.IP,
			&event.UAFamily, &event.Device)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// GetEmailSummaries retrieves a user's emails with open counts and last-open
// timestamps, newest sent first
func (s *Store) GetEmailSummaries(ctx context.Context, userID string) ([]*EmailSummary, error) {
	query := `SELECT e.id, e.subject, e.to_hash, e.message_id, e.sent_at, e.status,
		COUNT(o.id), MAX(o.ts)
		FROM emails e
		LEFT JOIN open_events o ON o.email_id = e.id
		WHERE e.user_id = $1
		GROUP BY e.id
		ORDER BY e.sent_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*EmailSummary
	for rows.Next() {
		sum := &EmailSummary{}
		err := rows.Scan(&sum.ID, &sum.Subject, &sum.ToHash, &sum.MessageID,
			&sum.SentAt, &sum.Status, &sum.OpenCount, &sum.LastOpened)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}
