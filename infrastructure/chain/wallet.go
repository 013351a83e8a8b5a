package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"optio-backend/application/ports"
	"optio-backend/domain/core/valueobjects"
	pkgerrors "optio-backend/pkg/errors"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

type contractTransactor interface {
	Transact(opts *bind.TransactOpts, method string, params ...interface{}) (*types.Transaction, error)
}

// Wallet signs and submits contract transactions from one key. It implements
// ports.NarrativeWriter.
type Wallet struct {
	contract contractTransactor
	backend  bind.DeployBackend
	auth     *bind.TransactOpts
	breaker  *Breaker
	recorder CallRecorder
	logger   *zap.Logger

	// submissions are serialized so nonces are assigned in order
	mu sync.Mutex
}

// NewWallet creates a wallet for the client's contract from a hex private key
func NewWallet(client *Client, privateKeyHex string, chainID int64, logger *zap.Logger) (*Wallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, pkgerrors.NewWalletError("invalid wallet private key").WithCause(err)
	}
	auth, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(chainID))
	if err != nil {
		return nil, pkgerrors.NewWalletError("failed to create transactor").WithCause(err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Info("Wallet loaded", zap.String("account", auth.From.Hex()), zap.Int64("chainID", chainID))
	return &Wallet{
		contract: client.Contract(),
		backend:  client.Backend(),
		auth:     auth,
		breaker:  client.Breaker(),
		recorder: client.recorder,
		logger:   logger,
	}, nil
}

// Account returns the signing address
func (w *Wallet) Account() string {
	return w.auth.From.Hex()
}

// Contribute writes a new nexus, paying value
func (w *Wallet) Contribute(ctx context.Context, content string, value *big.Int) (ports.PendingTx, error) {
	return w.transact(ctx, methodContribute, value, content)
}

// Bind links origin to destination with an optio, paying value
func (w *Wallet) Bind(ctx context.Context, origin, destination valueobjects.NexusID, content string, value *big.Int) (ports.PendingTx, error) {
	return w.transact(ctx, methodBind, value,
		new(big.Int).SetUint64(origin.Uint64()),
		new(big.Int).SetUint64(destination.Uint64()),
		content,
	)
}

// Register records a display name for the account
func (w *Wallet) Register(ctx context.Context, name string) (ports.PendingTx, error) {
	return w.transact(ctx, methodRegister, nil, name)
}

// Sacrifice bids amount
func (w *Wallet) Sacrifice(ctx context.Context, amount *big.Int) (ports.PendingTx, error) {
	return w.transact(ctx, methodSacrifice, nil, amount)
}

// Withdraw claims the account's balance
func (w *Wallet) Withdraw(ctx context.Context) (ports.PendingTx, error) {
	return w.transact(ctx, methodWithdraw, nil)
}

func (w *Wallet) transact(ctx context.Context, method string, value *big.Int, params ...interface{}) (ports.PendingTx, error) {
	opts := *w.auth
	opts.Context = ctx
	if value != nil {
		opts.Value = new(big.Int).Set(value)
	}

	w.mu.Lock()
	start := time.Now()
	result, err := w.breaker.Execute(func() (interface{}, error) {
		return w.contract.Transact(&opts, method, params...)
	})
	w.mu.Unlock()
	w.recorder.ObserveCall(method, time.Since(start), err)

	if err != nil {
		w.logger.Error("Transaction rejected", zap.String("method", method), zap.Error(err))
		if pkgerrors.IsAppError(err) {
			return nil, err
		}
		return nil, pkgerrors.NewTransactionError(method, err)
	}

	tx := result.(*types.Transaction)
	w.logger.Info("Transaction submitted",
		zap.String("method", method),
		zap.String("txHash", tx.Hash().Hex()),
		zap.Uint64("nonce", tx.Nonce()),
	)
	return &pendingTx{tx: tx, backend: w.backend, method: method}, nil
}

type pendingTx struct {
	tx      *types.Transaction
	backend bind.DeployBackend
	method  string
}

func (p *pendingTx) Hash() string {
	return p.tx.Hash().Hex()
}

// Wait blocks until the transaction is mined and fails if it reverted
func (p *pendingTx) Wait(ctx context.Context) error {
	receipt, err := bind.WaitMined(ctx, p.backend, p.tx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return pkgerrors.NewTimeoutError(p.method + " confirmation").WithCause(err)
		}
		return pkgerrors.NewNetworkError("failed waiting for transaction", err).
			WithDetails(map[string]interface{}{"txHash": p.Hash()})
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return pkgerrors.NewTransactionError(p.method,
			fmt.Errorf("reverted in block %s", receipt.BlockNumber)).
			WithDetails(map[string]interface{}{"txHash": p.Hash()})
	}
	return nil
}
