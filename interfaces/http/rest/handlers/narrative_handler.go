package handlers

import (
	"net/http"

	"optio-backend/application/commands"
	"optio-backend/application/commands/bus"
	"optio-backend/application/queries"
	querybus "optio-backend/application/queries/bus"
	"optio-backend/domain/core/valueobjects"
	pkgerrors "optio-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// NarrativeHandler handles nexus reads and narrative writes
type NarrativeHandler struct {
	responder
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
}

// NewNarrativeHandler creates a new narrative handler
func NewNarrativeHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *NarrativeHandler {
	return &NarrativeHandler{
		responder:  responder{errors: errorHandler, logger: logger},
		commandBus: commandBus,
		queryBus:   queryBus,
	}
}

// GetNexus handles GET /nexus/{id}
func (h *NarrativeHandler) GetNexus(w http.ResponseWriter, r *http.Request) {
	id, err := valueobjects.ParseNexusID(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, pkgerrors.NewValidationError("invalid nexus ID"))
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetNexusQuery{NexusID: id.Uint64()})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// Contribute handles POST /nexus
func (h *NarrativeHandler) Contribute(w http.ResponseWriter, r *http.Request) {
	var cmd commands.ContributeNexusCommand
	if err := h.decode(w, r, &cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.dispatch(w, r, cmd)
}

// Bind handles POST /optios
func (h *NarrativeHandler) Bind(w http.ResponseWriter, r *http.Request) {
	var cmd commands.BindOptioCommand
	if err := h.decode(w, r, &cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.dispatch(w, r, cmd)
}

// RegisterName handles POST /names
func (h *NarrativeHandler) RegisterName(w http.ResponseWriter, r *http.Request) {
	var cmd commands.RegisterNameCommand
	if err := h.decode(w, r, &cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.dispatch(w, r, cmd)
}

// dispatch sends cmd and replies with its result. Commands wait for
// confirmation, so success is 200 rather than 202.
func (h *NarrativeHandler) dispatch(w http.ResponseWriter, r *http.Request, cmd bus.Command) {
	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}
