package handlers

import (
	"context"

	"optio-backend/application/commands"
	"optio-backend/application/commands/bus"
	"optio-backend/application/ports"
	"optio-backend/domain/core/valueobjects"
	pkgerrors "optio-backend/pkg/errors"

	"go.uber.org/zap"
)

var (
	contributeCommand = commands.ContributeNexusCommand{}
	bindCommand       = commands.BindOptioCommand{}
	registerCommand   = commands.RegisterNameCommand{}
	sacrificeCommand  = commands.SacrificeCommand{}
	withdrawCommand   = commands.WithdrawCommand{}
)

// ContributeNexusHandler writes a new nexus
type ContributeNexusHandler struct {
	base
}

// NewContributeNexusHandler creates a new handler instance
func NewContributeNexusHandler(d Deps) *ContributeNexusHandler {
	return &ContributeNexusHandler{base: newBase(d)}
}

// Handle submits contribute, waits for it and refreshes the caller's view
func (h *ContributeNexusHandler) Handle(ctx context.Context, cmd bus.Command) (*bus.CommandResult, error) {
	c, ok := cmd.(commands.ContributeNexusCommand)
	if !ok {
		return nil, unexpected(cmd)
	}
	const prefix = "Failed to submit nexus"

	s, err := h.session(c.SessionID)
	if err != nil {
		return nil, err
	}
	content, err := valueobjects.NewContentWithLimit(c.Content, h.Settings.MaxContentLength)
	if err != nil {
		return nil, h.fail(c.SessionID, "Please fill in the content", err)
	}
	writer, err := h.wallet()
	if err != nil {
		return nil, h.fail(c.SessionID, prefix, err)
	}

	tx, err := writer.Contribute(ctx, content.String(), h.Settings.Fee)
	if err != nil {
		return nil, h.fail(c.SessionID, prefix, submitted("contribute", err))
	}
	h.status(c.SessionID, "Transaction submitted! Waiting for confirmation...", ports.StatusInfo)
	if err := h.confirm(ctx, "contribute", tx); err != nil {
		return nil, h.fail(c.SessionID, prefix, err)
	}
	h.status(c.SessionID, "Nexus created successfully!", ports.StatusSuccess)

	result := &bus.CommandResult{Success: true, TxHashes: []string{tx.Hash()}}
	if h.Reader != nil {
		if count, err := h.Reader.NexusCount(ctx); err != nil {
			h.Logger.Warn("Failed to read nexus count after contribute", zap.Error(err))
		} else if count > 0 {
			result.Data = map[string]interface{}{"nexusId": count - 1}
		}
	}

	if s != nil {
		view, err := s.Refresh(ctx)
		if err != nil {
			h.Logger.Warn("Failed to refresh view after contribute", zap.String("sessionID", s.ID), zap.Error(err))
		} else if err := h.Notifier.SendToSession(s.ID, ports.MessageView, view); err != nil {
			h.Logger.Warn("Failed to push view", zap.String("sessionID", s.ID), zap.Error(err))
		}
	}
	return result, nil
}

// BindOptioHandler creates an optio, writing its destination first when asked
type BindOptioHandler struct {
	base
}

// NewBindOptioHandler creates a new handler instance
func NewBindOptioHandler(d Deps) *BindOptioHandler {
	return &BindOptioHandler{base: newBase(d)}
}

// Handle binds origin to destination. For a new destination the nexus is
// contributed and confirmed first; its ID is nexusCount-1 once mined.
func (h *BindOptioHandler) Handle(ctx context.Context, cmd bus.Command) (*bus.CommandResult, error) {
	c, ok := cmd.(commands.BindOptioCommand)
	if !ok {
		return nil, unexpected(cmd)
	}
	const prefix = "Failed to create optio"

	s, err := h.session(c.SessionID)
	if err != nil {
		return nil, err
	}
	var origin valueobjects.NexusID
	switch {
	case c.OriginID != nil:
		origin = valueobjects.NexusID(*c.OriginID)
	case s != nil:
		origin = s.CurrentNexus()
	}

	optioContent, err := valueobjects.NewContentWithLimit(c.Content, h.Settings.MaxContentLength)
	if err != nil {
		return nil, h.fail(c.SessionID, "Please fill in the choice text", err)
	}
	var nexusContent valueobjects.Content
	if c.CreatesNexus() {
		nexusContent, err = valueobjects.NewContentWithLimit(c.NewNexusContent, h.Settings.MaxContentLength)
		if err != nil {
			return nil, h.fail(c.SessionID, "Please fill in the nexus content", err)
		}
	}
	writer, err := h.wallet()
	if err != nil {
		return nil, h.fail(c.SessionID, prefix, err)
	}

	result := &bus.CommandResult{Success: true}
	var destination valueobjects.NexusID

	if c.CreatesNexus() {
		h.status(c.SessionID, "Creating new nexus...", ports.StatusInfo)
		tx, err := writer.Contribute(ctx, nexusContent.String(), h.Settings.Fee)
		if err != nil {
			return nil, h.fail(c.SessionID, prefix, submitted("contribute", err))
		}
		result.TxHashes = append(result.TxHashes, tx.Hash())
		if err := h.confirm(ctx, "contribute", tx); err != nil {
			return nil, h.fail(c.SessionID, prefix, err)
		}

		count, err := h.Reader.NexusCount(ctx)
		if err != nil {
			return nil, h.fail(c.SessionID, prefix, err)
		}
		if count == 0 {
			return nil, h.fail(c.SessionID, prefix, pkgerrors.NewInternalError("nexus count is zero after contribute"))
		}
		destination = valueobjects.NexusID(count - 1)
		h.status(c.SessionID, "Creating optio...", ports.StatusInfo)
	} else {
		destination = valueobjects.NexusID(*c.DestinationID)
	}

	tx, err := writer.Bind(ctx, origin, destination, optioContent.String(), h.Settings.Fee)
	if err != nil {
		return nil, h.fail(c.SessionID, prefix, submitted("bind", err))
	}
	result.TxHashes = append(result.TxHashes, tx.Hash())
	if err := h.confirm(ctx, "bind", tx); err != nil {
		return nil, h.fail(c.SessionID, prefix, err)
	}

	if c.CreatesNexus() {
		h.status(c.SessionID, "Successfully created new nexus and optio!", ports.StatusSuccess)
	} else {
		h.status(c.SessionID, "Successfully created optio!", ports.StatusSuccess)
	}

	// The LinkedOptio event does the same, but may arrive after the caller
	// has already reloaded.
	if h.Sessions != nil {
		h.Sessions.Cache().Invalidate(origin)
	}
	h.pushViews(ctx, origin)

	result.Data = map[string]interface{}{
		"originId":      origin.Uint64(),
		"destinationId": destination.Uint64(),
	}
	return result, nil
}

// RegisterNameHandler registers the wallet account's display name
type RegisterNameHandler struct {
	base
}

// NewRegisterNameHandler creates a new handler instance
func NewRegisterNameHandler(d Deps) *RegisterNameHandler {
	return &RegisterNameHandler{base: newBase(d)}
}

// Handle submits register and waits for it
func (h *RegisterNameHandler) Handle(ctx context.Context, cmd bus.Command) (*bus.CommandResult, error) {
	c, ok := cmd.(commands.RegisterNameCommand)
	if !ok {
		return nil, unexpected(cmd)
	}
	const prefix = "Failed to register name"

	if _, err := h.session(c.SessionID); err != nil {
		return nil, err
	}
	name, err := valueobjects.NewName(c.Name, h.Settings.MaxNameLength)
	if err != nil {
		return nil, h.fail(c.SessionID, "Please enter a name", err)
	}
	writer, err := h.wallet()
	if err != nil {
		return nil, h.fail(c.SessionID, prefix, err)
	}

	h.status(c.SessionID, "Registering name...", ports.StatusInfo)
	tx, err := writer.Register(ctx, name.String())
	if err != nil {
		return nil, h.fail(c.SessionID, prefix, submitted("register", err))
	}
	if err := h.confirm(ctx, "register", tx); err != nil {
		return nil, h.fail(c.SessionID, prefix, err)
	}
	h.status(c.SessionID, "Name registered successfully!", ports.StatusSuccess)

	return &bus.CommandResult{
		Success:  true,
		TxHashes: []string{tx.Hash()},
		Data:     map[string]interface{}{"name": name.String()},
	}, nil
}
