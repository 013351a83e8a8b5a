package handlers

import (
	"net/http"

	"optio-backend/application/commands"
	"optio-backend/application/commands/bus"
	"optio-backend/application/queries"
	querybus "optio-backend/application/queries/bus"
	pkgerrors "optio-backend/pkg/errors"

	"go.uber.org/zap"
)

// TreasuryHandler handles the pot, bids and withdrawals
type TreasuryHandler struct {
	responder
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
}

// NewTreasuryHandler creates a new treasury handler
func NewTreasuryHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *TreasuryHandler {
	return &TreasuryHandler{
		responder:  responder{errors: errorHandler, logger: logger},
		commandBus: commandBus,
		queryBus:   queryBus,
	}
}

// GetTreasury handles GET /treasury?account=
func (h *TreasuryHandler) GetTreasury(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetTreasuryQuery{Account: r.URL.Query().Get("account")})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// Sacrifice handles POST /treasury/sacrifice
func (h *TreasuryHandler) Sacrifice(w http.ResponseWriter, r *http.Request) {
	var cmd commands.SacrificeCommand
	if err := h.decode(w, r, &cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.dispatch(w, r, cmd)
}

// Withdraw handles POST /treasury/withdraw
func (h *TreasuryHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var cmd commands.WithdrawCommand
	if err := h.decode(w, r, &cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.dispatch(w, r, cmd)
}

func (h *TreasuryHandler) dispatch(w http.ResponseWriter, r *http.Request, cmd bus.Command) {
	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}
