package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
	"github.com/wwfxuk/shotgunEvents/pkg/ctxutil"
)

type identityAdmin interface {
	Refresh(ctx context.Context) error
	Pairs() []domain.IdentityPair
	Add(ctx context.Context, chatID string, userID int) domain.IdentityPair
	DiscardChat(chatID string) bool
	DiscardUser(userID int) bool
}

type runJournal interface {
	RunsByEvent(ctx context.Context, eventID int) ([]domain.Run, error)
	Recent(ctx context.Context, limit int) ([]domain.Run, error)
}

// AdminHandler serves operator REST endpoints.
type AdminHandler struct {
	identities identityAdmin
	journal    runJournal
	log        *slog.Logger
}

// NewAdminHandler creates an AdminHandler. journal may be nil when the relay
// runs without a database.
func NewAdminHandler(identities identityAdmin, journal runJournal, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		identities: identities,
		journal:    journal,
		log:        logger.With("handler", "admin"),
	}
}

type identitiesResponse struct {
	Count int                   `json:"count"`
	Pairs []domain.IdentityPair `json:"pairs"`
}

type addIdentityRequest struct {
	ChatID       string `json:"chat_id"`
	RecordUserID int    `json:"record_user_id"`
}

// RefreshIdentities re-reads both user directories.
// POST /admin/identities/refresh
func (h *AdminHandler) RefreshIdentities(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	if err := h.identities.Refresh(r.Context()); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	h.writeIdentities(w)
}

// ListIdentities returns every known user/member pair.
// GET /admin/identities
func (h *AdminHandler) ListIdentities(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	h.writeIdentities(w)
}

// AddIdentity stores a manual pair, replacing any conflicting one.
// POST /admin/identities
func (h *AdminHandler) AddIdentity(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req addIdentityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var errs []domain.FieldError
	if req.ChatID == "" {
		errs = append(errs, domain.FieldError{Field: "chat_id", Message: "required"})
	}
	if req.RecordUserID <= 0 {
		errs = append(errs, domain.FieldError{Field: "record_user_id", Message: "must be positive"})
	}
	if len(errs) > 0 {
		handleError(w, r, h.log, domain.NewValidationErrors(errs))
		return
	}

	pair := h.identities.Add(r.Context(), req.ChatID, req.RecordUserID)
	writeJSON(w, http.StatusCreated, pair)
}

// DiscardUser forgets the pair of a record user.
// DELETE /admin/identities/users/{user_id}
func (h *AdminHandler) DiscardUser(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	userID, err := strconv.Atoi(r.PathValue("user_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if !h.identities.DiscardUser(userID) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DiscardChat forgets the pair of a chat member.
// DELETE /admin/identities/chat/{chat_id}
func (h *AdminHandler) DiscardChat(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	if !h.identities.DiscardChat(r.PathValue("chat_id")) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RunsByEvent returns the journal entries of one event.
// GET /admin/runs/{event_id}
func (h *AdminHandler) RunsByEvent(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) || !h.requireJournal(w) {
		return
	}

	eventID, err := strconv.Atoi(r.PathValue("event_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	runs, err := h.journal.RunsByEvent(r.Context(), eventID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// RecentRuns returns the latest journal entries.
// GET /admin/runs?limit=50
func (h *AdminHandler) RecentRuns(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) || !h.requireJournal(w) {
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be in 1..500")
			return
		}
		limit = n
	}

	runs, err := h.journal.Recent(r.Context(), limit)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *AdminHandler) writeIdentities(w http.ResponseWriter) {
	pairs := h.identities.Pairs()
	writeJSON(w, http.StatusOK, identitiesResponse{Count: len(pairs), Pairs: pairs})
}

func (h *AdminHandler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if !ctxutil.IsAdminCtx(r.Context()) {
		writeError(w, http.StatusForbidden, "admin access required")
		return false
	}
	return true
}

func (h *AdminHandler) requireJournal(w http.ResponseWriter) bool {
	if h.journal == nil {
		writeError(w, http.StatusServiceUnavailable, "journal not configured")
		return false
	}
	return true
}
