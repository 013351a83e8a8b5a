package handlers

import (
	"context"

	"optio-backend/application/commands"
	"optio-backend/application/commands/bus"
	"optio-backend/application/ports"
	pkgerrors "optio-backend/pkg/errors"
)

// SacrificeHandler bids the current bid
type SacrificeHandler struct {
	base
}

// NewSacrificeHandler creates a new handler instance
func NewSacrificeHandler(d Deps) *SacrificeHandler {
	return &SacrificeHandler{base: newBase(d)}
}

// Handle reads the current bid, submits sacrifice and waits for it
func (h *SacrificeHandler) Handle(ctx context.Context, cmd bus.Command) (*bus.CommandResult, error) {
	c, ok := cmd.(commands.SacrificeCommand)
	if !ok {
		return nil, unexpected(cmd)
	}
	const prefix = "Sacrifice failed"

	if _, err := h.session(c.SessionID); err != nil {
		return nil, err
	}
	writer, err := h.wallet()
	if err != nil {
		h.status(c.SessionID, "Please connect your wallet first", ports.StatusWarning)
		return nil, err
	}

	bid, err := h.Treasury.CurrentBid(ctx)
	if err != nil {
		if !pkgerrors.IsAppError(err) {
			err = pkgerrors.NewNetworkError("failed to read current bid", err)
		}
		return nil, h.fail(c.SessionID, prefix, err)
	}

	tx, err := writer.Sacrifice(ctx, bid)
	if err != nil {
		return nil, h.fail(c.SessionID, prefix, submitted("sacrifice", err))
	}
	h.status(c.SessionID, "Sacrifice transaction submitted...", ports.StatusInfo)
	if err := h.confirm(ctx, "sacrifice", tx); err != nil {
		return nil, h.fail(c.SessionID, prefix, err)
	}
	h.status(c.SessionID, "Sacrifice successful!", ports.StatusSuccess)

	return &bus.CommandResult{
		Success:  true,
		TxHashes: []string{tx.Hash()},
		Data:     map[string]interface{}{"bidWei": bid.String()},
	}, nil
}

// WithdrawHandler withdraws the account's claimable balance
type WithdrawHandler struct {
	base
}

// NewWithdrawHandler creates a new handler instance
func NewWithdrawHandler(d Deps) *WithdrawHandler {
	return &WithdrawHandler{base: newBase(d)}
}

// Handle submits withdraw and waits for it
func (h *WithdrawHandler) Handle(ctx context.Context, cmd bus.Command) (*bus.CommandResult, error) {
	c, ok := cmd.(commands.WithdrawCommand)
	if !ok {
		return nil, unexpected(cmd)
	}
	const prefix = "Withdrawal failed"

	if _, err := h.session(c.SessionID); err != nil {
		return nil, err
	}
	writer, err := h.wallet()
	if err != nil {
		h.status(c.SessionID, "Please connect your wallet first", ports.StatusWarning)
		return nil, err
	}

	tx, err := writer.Withdraw(ctx)
	if err != nil {
		return nil, h.fail(c.SessionID, prefix, submitted("withdraw", err))
	}
	h.status(c.SessionID, "Withdrawal initiated", ports.StatusInfo)
	if err := h.confirm(ctx, "withdraw", tx); err != nil {
		return nil, h.fail(c.SessionID, prefix, err)
	}
	h.status(c.SessionID, "Withdrawal successful", ports.StatusSuccess)

	return &bus.CommandResult{Success: true, TxHashes: []string{tx.Hash()}}, nil
}
