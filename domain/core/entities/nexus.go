package entities

import (
	"math/big"

	"optio-backend/domain/core/valueobjects"
)

// Nexus is a story node. Its content never changes once written; only Next
// grows as optios are bound to it.
type Nexus struct {
	ID      valueobjects.NexusID   `json:"id"`
	Author  string                 `json:"author"`
	Content string                 `json:"content"`
	Next    []valueobjects.OptioID `json:"next"`
}

// Clone returns a copy that shares no slices with n
func (n Nexus) Clone() Nexus {
	next := make([]valueobjects.OptioID, len(n.Next))
	copy(next, n.Next)
	n.Next = next
	return n
}

// Optio is a labelled link from one nexus to another
type Optio struct {
	ID          valueobjects.OptioID `json:"id"`
	Author      string               `json:"author"`
	Content     string               `json:"content"`
	Origin      valueobjects.NexusID `json:"origin"`
	Destination valueobjects.NexusID `json:"destination"`
	Score       *big.Int             `json:"score"`
}

// Clone returns a copy with its own score value
func (o Optio) Clone() Optio {
	if o.Score != nil {
		o.Score = new(big.Int).Set(o.Score)
	}
	return o
}

// Snapshot is a nexus together with its outgoing optios, in Next order
type Snapshot struct {
	Nexus  Nexus   `json:"nexus"`
	Optios []Optio `json:"optios"`
}

// FindOptio returns the outgoing optio with the given ID
func (s Snapshot) FindOptio(id valueobjects.OptioID) (Optio, bool) {
	for _, o := range s.Optios {
		if o.ID == id {
			return o, true
		}
	}
	return Optio{}, false
}
