package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"optio-backend/domain/core/entities"
	"optio-backend/domain/core/valueobjects"
	pkgerrors "optio-backend/pkg/errors"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// CallRecorder observes contract calls
type CallRecorder interface {
	ObserveCall(method string, duration time.Duration, err error)
}

type nopCallRecorder struct{}

func (nopCallRecorder) ObserveCall(string, time.Duration, error) {}

// contractCaller is the read half of bind.BoundContract
type contractCaller interface {
	Call(opts *bind.CallOpts, results *[]interface{}, method string, params ...interface{}) error
}

// Options configures a Client
type Options struct {
	RPCURL      string
	Contract    common.Address
	CallTimeout time.Duration
	Breaker     BreakerConfig
	Recorder    CallRecorder
	// OnBreakerState observes circuit state changes
	OnBreakerState func(name string, to gobreaker.State)
}

// Client reads the narrative contract. It implements ports.NarrativeReader and
// ports.TreasuryReader.
type Client struct {
	backend     *ethclient.Client
	abi         abi.ABI
	address     common.Address
	contract    *bind.BoundContract
	caller      contractCaller
	breaker     *Breaker
	recorder    CallRecorder
	callTimeout time.Duration
	logger      *zap.Logger
}

// Dial connects to the RPC endpoint and binds the contract
func Dial(ctx context.Context, opts Options, logger *zap.Logger) (*Client, error) {
	backend, err := ethclient.DialContext(ctx, opts.RPCURL)
	if err != nil {
		return nil, pkgerrors.NewNetworkError("failed to connect to RPC endpoint", err)
	}
	parsed, err := ParseABI()
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("parse contract ABI: %w", err)
	}

	contract := bind.NewBoundContract(opts.Contract, parsed, backend, backend, backend)
	c := newClient(contract, parsed, opts, logger)
	c.backend = backend
	c.contract = contract

	logger.Info("Connected to narrative contract",
		zap.String("rpc", opts.RPCURL),
		zap.String("contract", opts.Contract.Hex()),
	)
	return c, nil
}

func newClient(caller contractCaller, parsed abi.ABI, opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = nopCallRecorder{}
	}
	if opts.Breaker.Name == "" {
		opts.Breaker = DefaultBreakerConfig("narrative-rpc")
	}
	return &Client{
		abi:         parsed,
		address:     opts.Contract,
		caller:      caller,
		breaker:     NewBreaker(opts.Breaker, logger, opts.OnBreakerState),
		recorder:    recorder,
		callTimeout: opts.CallTimeout,
		logger:      logger,
	}
}

// Backend returns the underlying RPC client
func (c *Client) Backend() *ethclient.Client {
	return c.backend
}

// Contract returns the bound contract
func (c *Client) Contract() *bind.BoundContract {
	return c.contract
}

// Breaker returns the circuit breaker guarding calls
func (c *Client) Breaker() *Breaker {
	return c.breaker
}

// Close releases the RPC connection
func (c *Client) Close() {
	if c.backend != nil {
		c.backend.Close()
	}
}

// Ping checks that the endpoint answers
func (c *Client) Ping(ctx context.Context) error {
	if c.backend == nil {
		return nil
	}
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return c.backend.BlockNumber(ctx)
	})
	if err != nil && !pkgerrors.IsAppError(err) {
		return pkgerrors.NewNetworkError("RPC endpoint unreachable", err)
	}
	return err
}

// call runs a view method through the breaker with the call timeout applied
func (c *Client) call(ctx context.Context, method string, params ...interface{}) ([]interface{}, error) {
	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		var out []interface{}
		if err := c.caller.Call(&bind.CallOpts{Context: ctx}, &out, method, params...); err != nil {
			return nil, err
		}
		return out, nil
	})
	c.recorder.ObserveCall(method, time.Since(start), err)

	if err != nil {
		c.logger.Debug("Contract call failed", zap.String("method", method), zap.Error(err))
		if pkgerrors.IsAppError(err) {
			return nil, err
		}
		return nil, pkgerrors.NewNetworkError(fmt.Sprintf("contract call %s failed", method), err).
			WithDetails(map[string]interface{}{"method": method})
	}
	return result.([]interface{}), nil
}

// GetFullNexusBatch reads authors, contents and outgoing optio IDs of ids
func (c *Client) GetFullNexusBatch(ctx context.Context, ids []valueobjects.NexusID) ([]entities.Nexus, error) {
	params := make([]*big.Int, len(ids))
	for i, id := range ids {
		params[i] = new(big.Int).SetUint64(id.Uint64())
	}
	out, err := c.call(ctx, methodGetFullNexusBatch, params)
	if err != nil {
		return nil, err
	}
	nexuses, err := decodeNexusBatch(out)
	if err != nil {
		return nil, pkgerrors.NewExternalError("narrative contract", err)
	}
	if len(nexuses) != len(ids) {
		return nil, pkgerrors.NewExternalError("narrative contract",
			fmt.Errorf("%s returned %d records for %d ids", methodGetFullNexusBatch, len(nexuses), len(ids)))
	}
	for i := range nexuses {
		nexuses[i].ID = ids[i]
	}
	return nexuses, nil
}

// GetFullOptioBatch reads the optios with the given ids
func (c *Client) GetFullOptioBatch(ctx context.Context, ids []valueobjects.OptioID) ([]entities.Optio, error) {
	params := make([]*big.Int, len(ids))
	for i, id := range ids {
		params[i] = new(big.Int).SetUint64(id.Uint64())
	}
	out, err := c.call(ctx, methodGetFullOptioBatch, params)
	if err != nil {
		return nil, err
	}
	optios, err := decodeOptioBatch(out)
	if err != nil {
		return nil, pkgerrors.NewExternalError("narrative contract", err)
	}
	if len(optios) != len(ids) {
		return nil, pkgerrors.NewExternalError("narrative contract",
			fmt.Errorf("%s returned %d records for %d ids", methodGetFullOptioBatch, len(optios), len(ids)))
	}
	for i := range optios {
		optios[i].ID = ids[i]
	}
	return optios, nil
}

// NexusCount returns the number of nexuses written so far
func (c *Client) NexusCount(ctx context.Context) (uint64, error) {
	v, err := c.callUint(ctx, methodNexusCount)
	if err != nil {
		return 0, err
	}
	n, err := valueobjects.NormalizeID(v)
	if err != nil {
		return 0, pkgerrors.NewExternalError("narrative contract", err)
	}
	return n, nil
}

// CurrentBid returns the bid a sacrifice must pay
func (c *Client) CurrentBid(ctx context.Context) (*big.Int, error) {
	return c.callUint(ctx, methodGetCurrentBid)
}

// Fiscus returns the treasury balance
func (c *Client) Fiscus(ctx context.Context) (*big.Int, error) {
	return c.callUint(ctx, methodFiscus)
}

// Summa returns the ether claimable by account
func (c *Client) Summa(ctx context.Context, account string) (*big.Int, error) {
	addr, err := parseAccount(account)
	if err != nil {
		return nil, err
	}
	return c.callUint(ctx, methodSumma, addr)
}

// BalanceOf returns account's token balance
func (c *Client) BalanceOf(ctx context.Context, account string) (*big.Int, error) {
	addr, err := parseAccount(account)
	if err != nil {
		return nil, err
	}
	return c.callUint(ctx, methodBalanceOf, addr)
}

// NameOf returns the name account registered, or ""
func (c *Client) NameOf(ctx context.Context, account string) (string, error) {
	addr, err := parseAccount(account)
	if err != nil {
		return "", err
	}
	out, err := c.call(ctx, methodAddressToName, addr)
	if err != nil {
		return "", err
	}
	if len(out) != 1 {
		return "", pkgerrors.NewExternalError("narrative contract", fmt.Errorf("%s: unexpected output", methodAddressToName))
	}
	name, ok := out[0].(string)
	if !ok {
		return "", pkgerrors.NewExternalError("narrative contract", fmt.Errorf("%s: unexpected output type %T", methodAddressToName, out[0]))
	}
	return name, nil
}

func (c *Client) callUint(ctx context.Context, method string, params ...interface{}) (*big.Int, error) {
	out, err := c.call(ctx, method, params...)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, pkgerrors.NewExternalError("narrative contract", fmt.Errorf("%s: expected 1 output, got %d", method, len(out)))
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, pkgerrors.NewExternalError("narrative contract", fmt.Errorf("%s: unexpected output type %T", method, out[0]))
	}
	return v, nil
}

func parseAccount(account string) (common.Address, error) {
	if !common.IsHexAddress(account) {
		return common.Address{}, pkgerrors.NewValidationError(fmt.Sprintf("invalid account address %q", account))
	}
	return common.HexToAddress(account), nil
}
