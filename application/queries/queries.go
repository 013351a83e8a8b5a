// Package queries defines the read operations over the narrative and the
// treasury.
package queries

import (
	"optio-backend/application/session"
	"optio-backend/domain/core/entities"
	"optio-backend/domain/exploration"
	pkgerrors "optio-backend/pkg/errors"
)

// GetNexusQuery reads a nexus and its optios without a session
type GetNexusQuery struct {
	NexusID uint64
}

// Validate validates the GetNexusQuery
func (q GetNexusQuery) Validate() error {
	return nil
}

// GetNexusResult is a nexus with its outgoing optios
type GetNexusResult struct {
	entities.Snapshot
}

// GetSessionViewQuery reads the current view of a session
type GetSessionViewQuery struct {
	SessionID string
}

// Validate validates the GetSessionViewQuery
func (q GetSessionViewQuery) Validate() error {
	return requireSession(q.SessionID)
}

// GetPathsQuery lists the paths explored by a session
type GetPathsQuery struct {
	SessionID string
}

// Validate validates the GetPathsQuery
func (q GetPathsQuery) Validate() error {
	return requireSession(q.SessionID)
}

// GetPathsResult lists paths in creation order
type GetPathsResult struct {
	Paths   []exploration.Path `json:"paths"`
	Current int                `json:"current"`
}

// GetDestinationsQuery lists nexuses a session can bind to
type GetDestinationsQuery struct {
	SessionID string
}

// Validate validates the GetDestinationsQuery
func (q GetDestinationsQuery) Validate() error {
	return requireSession(q.SessionID)
}

// GetDestinationsResult lists bind targets
type GetDestinationsResult struct {
	Destinations []session.Destination `json:"destinations"`
}

// GetTreasuryQuery reads the pot and, when Account is set, that account's
// balances. Account defaults to the configured wallet.
type GetTreasuryQuery struct {
	Account string
}

// Validate validates the GetTreasuryQuery
func (q GetTreasuryQuery) Validate() error {
	return nil
}

// GetTreasuryResult holds amounts in ether units
type GetTreasuryResult struct {
	CurrentBid   string `json:"currentBid"`
	Pot          string `json:"pot"`
	Account      string `json:"account,omitempty"`
	Name         string `json:"name,omitempty"`
	Balance      string `json:"balance,omitempty"`
	TokenBalance string `json:"tokenBalance,omitempty"`
}

func requireSession(id string) error {
	if id == "" {
		return pkgerrors.NewValidationError("session ID is required")
	}
	return nil
}
