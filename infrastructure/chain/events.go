package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"optio-backend/application/ports"
	"optio-backend/domain/core/valueobjects"
	"optio-backend/domain/events"
	pkgerrors "optio-backend/pkg/errors"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"
)

// linkedOptioLog mirrors the LinkedOptio event for UnpackLog
type linkedOptioLog struct {
	Id          *big.Int
	Origin      *big.Int
	Destination *big.Int
}

type logWatcher interface {
	WatchLogs(opts *bind.WatchOpts, name string, query ...[]interface{}) (chan types.Log, event.Subscription, error)
	UnpackLog(out interface{}, event string, log types.Log) error
}

// EventSource streams LinkedOptio events. Log subscriptions need a websocket
// endpoint, so it dials its own connection. It implements
// ports.OptioEventSource.
type EventSource struct {
	backend  *ethclient.Client
	contract logWatcher
	logger   *zap.Logger
	now      func() time.Time
}

// DialEvents connects to url and binds the contract for log subscriptions
func DialEvents(ctx context.Context, url string, address common.Address, logger *zap.Logger) (*EventSource, error) {
	backend, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, pkgerrors.NewNetworkError("failed to connect to events endpoint", err)
	}
	parsed, err := ParseABI()
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("parse contract ABI: %w", err)
	}
	src := newEventSource(bind.NewBoundContract(address, parsed, backend, backend, backend), logger)
	src.backend = backend
	return src, nil
}

func newEventSource(contract logWatcher, logger *zap.Logger) *EventSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventSource{contract: contract, logger: logger, now: time.Now}
}

// Close releases the connection
func (s *EventSource) Close() {
	if s.backend != nil {
		s.backend.Close()
	}
}

// WatchOptioLinked delivers every LinkedOptio event to sink until the
// subscription is closed or fails.
func (s *EventSource) WatchOptioLinked(ctx context.Context, sink chan<- events.OptioLinked) (ports.Subscription, error) {
	logs, sub, err := s.contract.WatchLogs(&bind.WatchOpts{Context: ctx}, eventLinkedOptio)
	if err != nil {
		return nil, pkgerrors.NewNetworkError("failed to subscribe to LinkedOptio", err)
	}
	s.logger.Info("Subscribed to LinkedOptio events")

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case log := <-logs:
				if log.Removed {
					// reorged out; the link did not happen on the canonical chain
					s.logger.Debug("Skipping removed LinkedOptio log", zap.String("txHash", log.TxHash.Hex()))
					continue
				}
				ev, err := s.decode(log)
				if err != nil {
					s.logger.Warn("Skipping undecodable LinkedOptio log",
						zap.String("txHash", log.TxHash.Hex()),
						zap.Error(err),
					)
					continue
				}
				select {
				case sink <- ev:
				case err := <-sub.Err():
					return err
				case <-quit:
					return nil
				}
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

func (s *EventSource) decode(log types.Log) (events.OptioLinked, error) {
	var raw linkedOptioLog
	if err := s.contract.UnpackLog(&raw, eventLinkedOptio, log); err != nil {
		return events.OptioLinked{}, err
	}
	optioID, err := valueobjects.NewOptioID(raw.Id)
	if err != nil {
		return events.OptioLinked{}, fmt.Errorf("id: %w", err)
	}
	origin, err := valueobjects.NewNexusID(raw.Origin)
	if err != nil {
		return events.OptioLinked{}, fmt.Errorf("origin: %w", err)
	}
	destination, err := valueobjects.NewNexusID(raw.Destination)
	if err != nil {
		return events.OptioLinked{}, fmt.Errorf("destination: %w", err)
	}

	ev := events.NewOptioLinked(optioID, origin, destination, s.now())
	ev.BlockNumber = log.BlockNumber
	ev.TxHash = log.TxHash.Hex()
	return ev, nil
}
