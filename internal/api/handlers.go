package api

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mailpulse/mailpulse/internal/emails"
	"github.com/mailpulse/mailpulse/internal/ratelimit"
	"github.com/mailpulse/mailpulse/internal/slack"
	"github.com/mailpulse/mailpulse/internal/tracking"
)

// DefaultUserID owns emails issued through the authenticated endpoint when no
// explicit user is named. Real identity lives with an external collaborator.
const DefaultUserID = "default"

// Handlers contains the dashboard and issuance API handlers
type Handlers struct {
	store    *emails.Store
	notifier *slack.Notifier
	limiter  *ratelimit.Limiter
	baseURL  string
}

// NewHandlers creates the API handlers. limiter may be nil (no rate limiting).
func NewHandlers(store *emails.Store, notifier *slack.Notifier, limiter *ratelimit.Limiter, baseURL string) *Handlers {
	return &Handlers{store: store, notifier: notifier, limiter: limiter, baseURL: baseURL}
}

// HealthCheck reports service liveness
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type createTrackingRequest struct {
	Subject   string `json:"subject"`
	To        string `json:"to"`
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
}

type createTrackingResponse struct {
	PixelURL string    `json:"pixelUrl"`
	EmailID  uuid.UUID `json:"emailId"`
	Token    string    `json:"token"`
}

// CreateTracking issues a tracking pixel for an outbound email
func (h *Handlers) CreateTracking(w http.ResponseWriter, r *http.Request) {
	h.createTracking(w, r, "")
}

// CreatePublicTracking issues a tracking pixel for unauthenticated senders
// (the browser extension). Ownership is pinned to the anonymous sentinel and
// the endpoint is rate-limited per client IP.
func (h *Handlers) CreatePublicTracking(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow(r.Context(), clientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}
	h.createTracking(w, r, emails.AnonymousUserID)
}

func (h *Handlers) createTracking(w http.ResponseWriter, r *http.Request, forcedUserID string) {
	ctx := r.Context()

	var req createTrackingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.To == "" {
		writeError(w, http.StatusBadRequest, "Recipient email is required")
		return
	}

	userID := forcedUserID
	if userID == "" {
		userID = req.UserID
		if userID == "" {
			userID = DefaultUserID
		}
	}
	subject := req.Subject
	if subject == "" {
		subject = "No Subject"
	}

	email := &emails.Email{
		UserID:     userID,
		Subject:    subject,
		ToHash:     emails.HashEmail(req.To),
		MessageID:  req.MessageID,
		PixelToken: tracking.GeneratePixelToken(),
		Status:     emails.StatusSent,
	}

	if err := h.store.CreateEmail(ctx, email); err != nil {
		log.Printf("[api] create tracked email: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, createTrackingResponse{
		PixelURL: fmt.Sprintf("%s/p/%s.gif", h.baseURL, email.PixelToken),
		EmailID:  email.ID,
		Token:    email.PixelToken,
	})
}

// ListEmails returns the user's tracked emails with open-count aggregates
func (h *Handlers) ListEmails(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = DefaultUserID
	}

	summaries, err := h.store.GetEmailSummaries(r.Context(), userID)
	if err != nil {
		log.Printf("[api] list emails user=%s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if summaries == nil {
		summaries = []*emails.EmailSummary{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"emails": summaries})
}

// GetOpens returns the open-event timeline for one email, newest first
func (h *Handlers) GetOpens(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	emailID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid email ID")
		return
	}

	email, err := h.store.GetEmail(ctx, emailID)
	if err != nil {
		log.Printf("[api] get email %s: %v", emailID, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if email == nil {
		writeError(w, http.StatusNotFound, "Email not found")
		return
	}

	opens, err := h.store.GetOpenEvents(ctx, emailID)
	if err != nil {
		log.Printf("[api] get opens email=%s: %v", emailID, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if opens == nil {
		opens = []*emails.OpenEvent{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"opens": opens})
}

// ExportCSV streams the user's tracked emails as a CSV download
func (h *Handlers) ExportCSV(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = DefaultUserID
	}

	summaries, err := h.store.GetEmailSummaries(r.Context(), userID)
	if err != nil {
		log.Printf("[api] export emails user=%s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	filename := fmt.Sprintf("mailpulse-export-%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))

	cw := csv.NewWriter(w)
	cw.Write([]string{"Subject", "Recipient Hash", "Status", "Opens", "Sent At", "Last Opened", "Message ID"})
	for _, s := range summaries {
		lastOpened := ""
		if s.LastOpened != nil {
			lastOpened = s.LastOpened.UTC().Format(time.RFC3339)
		}
		cw.Write([]string{
			s.Subject,
			s.ToHash,
			s.Status,
			fmt.Sprintf("%d", s.OpenCount),
			s.SentAt.UTC().Format(time.RFC3339),
			lastOpened,
			s.MessageID,
		})
	}
	cw.Flush()
}

type notifyRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
	Color   string `json:"color"`
}

// SlackNotify sends a manual test notification to the configured webhook
func (h *Handlers) SlackNotify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "Title and message are required")
		return
	}

	var err error
	if req.Type == "alert" {
		err = h.notifier.Alert(ctx, req.Title, req.Message, nil)
	} else {
		err = h.notifier.Notify(ctx, req.Title, req.Message, req.Color)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to send notification")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Notification sent successfully",
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	return r.RemoteAddr
}
