// Package handlers answers the queries package's read operations.
package handlers

import (
	"context"
	"fmt"
	"math/big"

	"optio-backend/application/cache"
	"optio-backend/application/ports"
	"optio-backend/application/queries"
	"optio-backend/application/queries/bus"
	"optio-backend/application/session"
	"optio-backend/domain/core/valueobjects"
	pkgerrors "optio-backend/pkg/errors"
	"optio-backend/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// potDivisor is the share of fiscus paid out to the winning bid
var potDivisor = big.NewInt(10)

// RegisterAll registers every query handler on b. wallet is the configured
// account address, empty when none is configured.
func RegisterAll(b *bus.QueryBus, c *cache.ReadThrough, sessions *session.Manager, treasury ports.TreasuryReader, wallet string, logger *zap.Logger) error {
	if err := b.Register(queries.GetNexusQuery{}, NewGetNexusHandler(c)); err != nil {
		return err
	}
	sh := NewSessionHandler(sessions)
	for _, q := range []bus.Query{queries.GetSessionViewQuery{}, queries.GetPathsQuery{}, queries.GetDestinationsQuery{}} {
		if err := b.Register(q, sh); err != nil {
			return err
		}
	}
	return b.Register(queries.GetTreasuryQuery{}, NewGetTreasuryHandler(treasury, wallet, logger))
}

// GetNexusHandler reads a nexus through the shared cache
type GetNexusHandler struct {
	cache *cache.ReadThrough
}

// NewGetNexusHandler creates a new handler
func NewGetNexusHandler(c *cache.ReadThrough) *GetNexusHandler {
	return &GetNexusHandler{cache: c}
}

// Handle executes the nexus query
func (h *GetNexusHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.GetNexusQuery)
	if !ok {
		return nil, unexpected(query)
	}
	snap, err := h.cache.Get(ctx, valueobjects.NexusID(q.NexusID))
	if err != nil {
		if pkgerrors.IsAppError(err) {
			return nil, err
		}
		return nil, pkgerrors.NewNetworkError("failed to load nexus", err)
	}
	return &queries.GetNexusResult{Snapshot: snap}, nil
}

// SessionHandler answers the per-session queries
type SessionHandler struct {
	sessions *session.Manager
}

// NewSessionHandler creates a new handler
func NewSessionHandler(sessions *session.Manager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Handle executes a session query
func (h *SessionHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	switch q := query.(type) {
	case queries.GetSessionViewQuery:
		s, err := h.sessions.Get(q.SessionID)
		if err != nil {
			return nil, err
		}
		view, err := s.View(ctx)
		if err != nil {
			return nil, err
		}
		return &view, nil

	case queries.GetPathsQuery:
		s, err := h.sessions.Get(q.SessionID)
		if err != nil {
			return nil, err
		}
		paths, current := s.Paths()
		return &queries.GetPathsResult{Paths: paths, Current: current}, nil

	case queries.GetDestinationsQuery:
		s, err := h.sessions.Get(q.SessionID)
		if err != nil {
			return nil, err
		}
		return &queries.GetDestinationsResult{Destinations: s.Destinations()}, nil

	default:
		return nil, unexpected(query)
	}
}

// GetTreasuryHandler reads the money view
type GetTreasuryHandler struct {
	treasury ports.TreasuryReader
	wallet   string
	logger   *zap.Logger
}

// NewGetTreasuryHandler creates a new handler
func NewGetTreasuryHandler(treasury ports.TreasuryReader, wallet string, logger *zap.Logger) *GetTreasuryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GetTreasuryHandler{treasury: treasury, wallet: wallet, logger: logger}
}

// Handle reads the contract-wide figures and, for an account, its balances.
// The reads are independent and run concurrently.
func (h *GetTreasuryHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.GetTreasuryQuery)
	if !ok {
		return nil, unexpected(query)
	}
	account := q.Account
	if account == "" {
		account = h.wallet
	}

	var (
		bid, fiscus, summa, tokens *big.Int
		name                       string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		bid, err = h.treasury.CurrentBid(gctx)
		return err
	})
	g.Go(func() (err error) {
		fiscus, err = h.treasury.Fiscus(gctx)
		return err
	})
	if account != "" {
		g.Go(func() (err error) {
			name, err = h.treasury.NameOf(gctx, account)
			return err
		})
		g.Go(func() (err error) {
			summa, err = h.treasury.Summa(gctx, account)
			return err
		})
		g.Go(func() (err error) {
			tokens, err = h.treasury.BalanceOf(gctx, account)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		h.logger.Error("Failed to update monetary information", zap.Error(err))
		if pkgerrors.IsAppError(err) {
			return nil, err
		}
		return nil, pkgerrors.NewNetworkError("failed to update monetary information", err)
	}

	result := &queries.GetTreasuryResult{
		CurrentBid: utils.FormatEther(bid),
		Pot:        utils.FormatEther(new(big.Int).Quo(fiscus, potDivisor)),
	}
	if account != "" {
		result.Account = account
		result.Name = name
		result.Balance = utils.FormatEther(summa)
		result.TokenBalance = utils.FormatEther(tokens)
	}
	return result, nil
}

func unexpected(query bus.Query) error {
	return pkgerrors.NewInternalError(fmt.Sprintf("unexpected query type %T", query))
}
