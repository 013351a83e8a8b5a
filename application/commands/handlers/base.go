// Package handlers executes contract transactions for the commands package and
// reports progress to the session that asked for them.
package handlers

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"optio-backend/application/commands/bus"
	"optio-backend/application/ports"
	"optio-backend/application/session"
	"optio-backend/domain/core/valueobjects"
	pkgerrors "optio-backend/pkg/errors"

	"go.uber.org/zap"
)

// Settings are the transaction parameters shared by every handler
type Settings struct {
	Fee              *big.Int
	MaxContentLength int
	MaxNameLength    int
	// TxTimeout bounds the wait for a receipt; zero waits as long as ctx allows
	TxTimeout time.Duration
}

// Deps groups the collaborators of the command handlers. Writer is nil when no
// wallet is configured.
type Deps struct {
	Writer   ports.NarrativeWriter
	Reader   ports.NarrativeReader
	Treasury ports.TreasuryReader
	Sessions *session.Manager
	Notifier ports.SessionNotifier
	Settings Settings
	Logger   *zap.Logger
}

// RegisterAll registers every command handler on b
func RegisterAll(b *bus.CommandBus, d Deps) error {
	registrations := []struct {
		cmd     bus.Command
		handler bus.CommandHandler
	}{
		{cmd: contributeCommand, handler: NewContributeNexusHandler(d)},
		{cmd: bindCommand, handler: NewBindOptioHandler(d)},
		{cmd: registerCommand, handler: NewRegisterNameHandler(d)},
		{cmd: sacrificeCommand, handler: NewSacrificeHandler(d)},
		{cmd: withdrawCommand, handler: NewWithdrawHandler(d)},
	}
	for _, r := range registrations {
		if err := b.Register(r.cmd, r.handler); err != nil {
			return err
		}
	}
	return nil
}

type base struct {
	Deps
}

func newBase(d Deps) base {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Notifier == nil {
		d.Notifier = ports.NopNotifier{}
	}
	if d.Settings.Fee == nil {
		d.Settings.Fee = new(big.Int)
	}
	if d.Settings.MaxContentLength <= 0 {
		d.Settings.MaxContentLength = valueobjects.DefaultMaxContentLength
	}
	if d.Settings.MaxNameLength <= 0 {
		d.Settings.MaxNameLength = valueobjects.DefaultMaxNameLength
	}
	return base{Deps: d}
}

func (b base) wallet() (ports.NarrativeWriter, error) {
	if b.Writer == nil {
		return nil, pkgerrors.NewWalletError("")
	}
	return b.Writer, nil
}

// status reports to the session, if any. Delivery failures are logged only.
func (b base) status(sessionID, message string, level ports.StatusLevel) {
	if sessionID == "" {
		b.Logger.Debug("Command status", zap.String("message", message), zap.String("level", string(level)))
		return
	}
	if err := b.Notifier.SendToSession(sessionID, ports.MessageStatus, ports.Status{Message: message, Level: level}); err != nil {
		b.Logger.Warn("Failed to deliver status",
			zap.String("sessionID", sessionID),
			zap.Error(err),
		)
	}
}

// fail reports err to the session as "<prefix>: <message>" and returns it
func (b base) fail(sessionID, prefix string, err error) error {
	msg := err.Error()
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		msg = appErr.Message
		if appErr.Cause != nil {
			msg = fmt.Sprintf("%s (%v)", msg, appErr.Cause)
		}
	}
	b.status(sessionID, fmt.Sprintf("%s: %s", prefix, msg), ports.StatusError)
	return err
}

// submitted normalizes an error returned when sending a transaction
func submitted(operation string, err error) error {
	if pkgerrors.IsAppError(err) {
		return err
	}
	return pkgerrors.NewTransactionError(operation, err)
}

// confirm waits for tx to be mined
func (b base) confirm(ctx context.Context, operation string, tx ports.PendingTx) error {
	b.Logger.Info("Waiting for confirmation",
		zap.String("operation", operation),
		zap.String("txHash", tx.Hash()),
	)
	if b.Settings.TxTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Settings.TxTimeout)
		defer cancel()
	}
	if err := tx.Wait(ctx); err != nil {
		if pkgerrors.IsAppError(err) {
			return err
		}
		return pkgerrors.NewTransactionError(operation, err).
			WithDetails(map[string]interface{}{"txHash": tx.Hash()})
	}
	return nil
}

// session resolves an optional session ID
func (b base) session(sessionID string) (*session.Session, error) {
	if sessionID == "" || b.Sessions == nil {
		return nil, nil
	}
	return b.Sessions.Get(sessionID)
}

// pushViews reloads the views of every session looking at nexusID
func (b base) pushViews(ctx context.Context, nexusID valueobjects.NexusID) {
	if b.Sessions == nil {
		return
	}
	for _, s := range b.Sessions.ViewingNexus(nexusID) {
		view, err := s.View(ctx)
		if err != nil {
			b.Logger.Warn("Failed to reload view",
				zap.String("sessionID", s.ID),
				zap.Uint64("nexusID", nexusID.Uint64()),
				zap.Error(err),
			)
			continue
		}
		if err := b.Notifier.SendToSession(s.ID, ports.MessageView, view); err != nil {
			b.Logger.Warn("Failed to push view", zap.String("sessionID", s.ID), zap.Error(err))
		}
	}
}

func unexpected(cmd bus.Command) error {
	return pkgerrors.NewInternalError(fmt.Sprintf("unexpected command type %T", cmd))
}
