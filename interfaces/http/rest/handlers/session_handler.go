package handlers

import (
	"net/http"

	"optio-backend/application/ports"
	"optio-backend/application/queries"
	querybus "optio-backend/application/queries/bus"
	"optio-backend/application/session"
	"optio-backend/domain/core/valueobjects"
	pkgerrors "optio-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SessionHandler handles exploration session requests
type SessionHandler struct {
	responder
	queryBus *querybus.QueryBus
	sessions *session.Manager
	notifier ports.SessionNotifier
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	queryBus *querybus.QueryBus,
	sessions *session.Manager,
	notifier ports.SessionNotifier,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *SessionHandler {
	if notifier == nil {
		notifier = ports.NopNotifier{}
	}
	return &SessionHandler{
		responder: responder{errors: errorHandler, logger: logger},
		queryBus:  queryBus,
		sessions:  sessions,
		notifier:  notifier,
	}
}

// FollowRequest names the optio to follow
type FollowRequest struct {
	OptioID *uint64 `json:"optioId"`
}

// CreateSession handles POST /sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()

	view, err := s.View(r.Context())
	if err != nil {
		h.sessions.Delete(s.ID)
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, view)
}

// GetSession handles GET /sessions/{id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetSessionViewQuery{SessionID: chi.URLParam(r, "id")})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// DeleteSession handles DELETE /sessions/{id}
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.sessions.Get(id); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.sessions.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}

// Follow handles POST /sessions/{id}/follow
func (h *SessionHandler) Follow(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req FollowRequest
	if err := h.decode(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if req.OptioID == nil {
		h.respondError(w, r, pkgerrors.NewValidationError("optioId is required"))
		return
	}

	view, err := s.Follow(r.Context(), valueobjects.OptioID(*req.OptioID))
	h.respondView(w, r, s.ID, view, err)
}

// Back handles POST /sessions/{id}/back
func (h *SessionHandler) Back(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	view, err := s.Back(r.Context())
	h.respondView(w, r, s.ID, view, err)
}

// Refresh handles POST /sessions/{id}/refresh
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	view, err := s.Refresh(r.Context())
	h.respondView(w, r, s.ID, view, err)
}

// GetPaths handles GET /sessions/{id}/paths
func (h *SessionHandler) GetPaths(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetPathsQuery{SessionID: chi.URLParam(r, "id")})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// GetDestinations handles GET /sessions/{id}/destinations
func (h *SessionHandler) GetDestinations(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetDestinationsQuery{SessionID: chi.URLParam(r, "id")})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// respondView answers a navigation request and mirrors the new view to the
// session's other connections.
func (h *SessionHandler) respondView(w http.ResponseWriter, r *http.Request, sessionID string, view session.View, err error) {
	if err != nil {
		h.logger.Debug("Navigation failed", zap.String("sessionID", sessionID), zap.Error(err))
		h.respondError(w, r, err)
		return
	}
	if err := h.notifier.SendToSession(sessionID, ports.MessageView, view); err != nil {
		h.logger.Warn("Failed to push view", zap.String("sessionID", sessionID), zap.Error(err))
	}
	h.respondJSON(w, http.StatusOK, view)
}
