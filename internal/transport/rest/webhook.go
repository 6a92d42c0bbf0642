package rest

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
)

// SignatureHeader carries the HMAC-SHA1 of a webhook body.
const SignatureHeader = "X-SG-Signature"

const maxWebhookBody = 1 << 20

// eventProcessor runs the relay handlers for one event.
type eventProcessor interface {
	Process(ctx context.Context, event domain.Event) ([]domain.Report, error)
}

// WebhookHandler receives ShotGrid webhook deliveries.
type WebhookHandler struct {
	engine eventProcessor
	secret []byte
	log    *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler. An empty secret accepts
// unsigned deliveries.
func NewWebhookHandler(engine eventProcessor, secret string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		engine: engine,
		secret: []byte(secret),
		log:    logger.With("handler", "webhook"),
	}
}

type reportSummary struct {
	Handler    string `json:"handler"`
	Admitted   bool   `json:"admitted"`
	Reason     string `json:"reason,omitempty"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
	Unresolved int    `json:"unresolved"`
	Error      string `json:"error,omitempty"`
}

type eventSummary struct {
	EventID   int             `json:"event_id"`
	EventType string          `json:"event_type"`
	Reports   []reportSummary `json:"reports"`
}

type webhookResponse struct {
	Events []eventSummary `json:"events"`
}

// ShotGrid handles POST /webhooks/shotgrid.
func (h *WebhookHandler) ShotGrid(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !h.verify(r.Header.Get(SignatureHeader), body) {
		h.log.WarnContext(r.Context(), "webhook signature mismatch")
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	events, err := DecodeEvents(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, ev := range events {
		if err := ev.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	resp := webhookResponse{Events: make([]eventSummary, 0, len(events))}
	for _, ev := range events {
		reports, err := h.engine.Process(r.Context(), ev)
		if err != nil {
			h.handleError(w, r, err)
			return
		}
		resp.Events = append(resp.Events, summarize(ev, reports))
	}

	writeJSON(w, http.StatusOK, resp)
}

// verify checks a "sha1=<hex>" signature over body.
func (h *WebhookHandler) verify(signature string, body []byte) bool {
	if len(h.secret) == 0 {
		return true
	}
	got, ok := strings.CutPrefix(signature, "sha1=")
	if !ok {
		return false
	}
	want, err := hex.DecodeString(got)
	if err != nil {
		return false
	}
	return hmac.Equal(want, Sign(h.secret, body))
}

// Sign returns the HMAC-SHA1 of body under secret.
func Sign(secret, body []byte) []byte {
	mac := hmac.New(sha1.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}

func summarize(ev domain.Event, reports []domain.Report) eventSummary {
	s := eventSummary{EventID: ev.ID, EventType: ev.EventType, Reports: make([]reportSummary, len(reports))}
	for i, rep := range reports {
		s.Reports[i] = reportSummary{
			Handler:    rep.Handler,
			Admitted:   rep.Admitted,
			Reason:     rep.Reason,
			Succeeded:  rep.Count(domain.OutcomeSucceeded),
			Failed:     rep.Count(domain.OutcomeFailed),
			Unresolved: rep.Count(domain.OutcomeUnresolved),
			Error:      rep.Error,
		}
	}
	return s
}

func (h *WebhookHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	handleError(w, r, h.log, err)
}

func handleError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrDirectory):
		log.WarnContext(r.Context(), "directory unavailable", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "directory unavailable")
	default:
		log.ErrorContext(r.Context(), "internal error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
