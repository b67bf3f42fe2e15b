package tracking

import (
	"context"
	"encoding/base64"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mailpulse/mailpulse/internal/emails"
)

// 1x1 transparent GIF, 43 bytes. The exact same payload is served on every
// pixel request, whether or not the token resolved.
var pixelGIF, _ = base64.StdEncoding.DecodeString(
	"R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7")

// AlertChecker evaluates alert rules after an open is recorded. It must never
// fail the pixel path; implementations swallow their own errors.
type AlertChecker interface {
	Check(ctx context.Context, emailID uuid.UUID)
}

// Handler serves the tracking pixel endpoint
type Handler struct {
	store  *emails.Store
	alerts AlertChecker
}

// NewHandler creates a new pixel handler
func NewHandler(store *emails.Store, alerts AlertChecker) *Handler {
	return &Handler{store: store, alerts: alerts}
}

// Routes returns the pixel routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/p/{token}", h.HandlePixel)
	return r
}

// HandlePixel records an email open and serves the transparent GIF. The GIF
// is returned with identical bytes and headers regardless of outcome: the
// pixel is embedded in third-party mail clients that cannot handle errors.
func (h *Handler) HandlePixel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := strings.TrimSuffix(chi.URLParam(r, "token"), ".gif")
	family, device := ClassifyUserAgent(r.UserAgent())

	email, err := h.store.GetEmailByToken(ctx, token)
	if err != nil {
		log.Printf("[tracking] lookup token=%s: %v", token, err)
		h.servePixel(w)
		return
	}
	if email == nil {
		// Unknown token: no event recorded, requester can't tell the difference
		h.servePixel(w)
		return
	}

	event := &emails.OpenEvent{
		EmailID:  email.ID,
		IP:       realIP(r),
		UAFamily: family,
		Device:   device,
	}
	if err := h.store.InsertOpenEvent(ctx, event); err != nil {
		log.Printf("[tracking] record open email=%s: %v", email.ID, err)
	}

	if email.Status == emails.StatusSent {
		if err := h.store.MarkOpened(ctx, email.ID); err != nil {
			log.Printf("[tracking] mark opened email=%s: %v", email.ID, err)
		}
	}

	// Alert rules run on every open, not just the first, so repeat opens
	// still feed the burst rule.
	h.alerts.Check(ctx, email.ID)

	log.Printf("OPEN email=%s family=%s device=%s", email.ID, family, device)
	h.servePixel(w)
}

func (h *Handler) servePixel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Write(pixelGIF)
}

func realIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
