package ports

import (
	"context"
	"math/big"

	"optio-backend/domain/core/entities"
	"optio-backend/domain/core/valueobjects"
	"optio-backend/domain/events"
)

// NarrativeReader is the read side of the narrative contract. Batch reads
// return one record per requested ID, in request order.
type NarrativeReader interface {
	GetFullNexusBatch(ctx context.Context, ids []valueobjects.NexusID) ([]entities.Nexus, error)
	GetFullOptioBatch(ctx context.Context, ids []valueobjects.OptioID) ([]entities.Optio, error)
	NexusCount(ctx context.Context) (uint64, error)
}

// TreasuryReader exposes the economic state of the contract
type TreasuryReader interface {
	CurrentBid(ctx context.Context) (*big.Int, error)
	Fiscus(ctx context.Context) (*big.Int, error)
	Summa(ctx context.Context, account string) (*big.Int, error)
	BalanceOf(ctx context.Context, account string) (*big.Int, error)
	NameOf(ctx context.Context, account string) (string, error)
}

// PendingTx is a submitted transaction awaiting confirmation
type PendingTx interface {
	Hash() string
	// Wait blocks until the transaction is mined. A reverted transaction is an error.
	Wait(ctx context.Context) error
}

// NarrativeWriter signs and submits state-changing contract calls
type NarrativeWriter interface {
	Account() string
	Contribute(ctx context.Context, content string, value *big.Int) (PendingTx, error)
	Bind(ctx context.Context, origin, destination valueobjects.NexusID, content string, value *big.Int) (PendingTx, error)
	Register(ctx context.Context, name string) (PendingTx, error)
	Sacrifice(ctx context.Context, amount *big.Int) (PendingTx, error)
	Withdraw(ctx context.Context) (PendingTx, error)
}

// Subscription is a live event feed
type Subscription interface {
	Err() <-chan error
	Unsubscribe()
}

// OptioEventSource delivers LinkedOptio events as they are emitted
type OptioEventSource interface {
	WatchOptioLinked(ctx context.Context, sink chan<- events.OptioLinked) (Subscription, error)
}
