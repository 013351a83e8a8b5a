// Package events holds facts reported by the narrative contract.
package events

import (
	"time"

	"optio-backend/domain/core/valueobjects"
)

// TypeOptioLinked tags OptioLinked in logs and traces
const TypeOptioLinked = "optio.linked"

// OptioLinked is emitted when a new optio is bound. The origin nexus has one
// more way out.
type OptioLinked struct {
	OptioID       valueobjects.OptioID `json:"optioId"`
	OriginID      valueobjects.NexusID `json:"originId"`
	DestinationID valueobjects.NexusID `json:"destinationId"`

	BlockNumber uint64    `json:"blockNumber,omitempty"`
	TxHash      string    `json:"txHash,omitempty"`
	ObservedAt  time.Time `json:"observedAt"`
}

// NewOptioLinked creates an OptioLinked observed at the given time
func NewOptioLinked(optioID valueobjects.OptioID, origin, destination valueobjects.NexusID, observedAt time.Time) OptioLinked {
	return OptioLinked{
		OptioID:       optioID,
		OriginID:      origin,
		DestinationID: destination,
		ObservedAt:    observedAt,
	}
}

// Type returns TypeOptioLinked
func (OptioLinked) Type() string { return TypeOptioLinked }

// Loops reports whether the optio leads back to its own origin
func (e OptioLinked) Loops() bool { return e.OriginID == e.DestinationID }
