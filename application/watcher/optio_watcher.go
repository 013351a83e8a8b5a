// Package watcher keeps cached nexuses and connected readers current: it
// reacts to LinkedOptio events and periodically refreshes stale views.
package watcher

import (
	"context"
	"errors"
	"time"

	"optio-backend/application/cache"
	"optio-backend/application/ports"
	"optio-backend/application/session"
	"optio-backend/domain/events"

	"go.uber.org/zap"
)

// DefaultResubscribeDelay is used when no delay is configured
const DefaultResubscribeDelay = 5 * time.Second

var errSubscriptionClosed = errors.New("event subscription closed")

// OptioWatcher subscribes to LinkedOptio events for the lifetime of Run
type OptioWatcher struct {
	source           ports.OptioEventSource
	cache            *cache.ReadThrough
	sessions         *session.Manager
	notifier         ports.SessionNotifier
	logger           *zap.Logger
	resubscribeDelay time.Duration
}

// NewOptioWatcher creates a watcher
func NewOptioWatcher(
	source ports.OptioEventSource,
	sessions *session.Manager,
	notifier ports.SessionNotifier,
	resubscribeDelay time.Duration,
	logger *zap.Logger,
) *OptioWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = ports.NopNotifier{}
	}
	if resubscribeDelay <= 0 {
		resubscribeDelay = DefaultResubscribeDelay
	}
	return &OptioWatcher{
		source:           source,
		cache:            sessions.Cache(),
		sessions:         sessions,
		notifier:         notifier,
		logger:           logger,
		resubscribeDelay: resubscribeDelay,
	}
}

// Run consumes events until ctx is cancelled, resubscribing after failures
func (w *OptioWatcher) Run(ctx context.Context) error {
	w.logger.Info("Optio watcher started")
	defer w.logger.Info("Optio watcher stopped")

	for {
		err := w.watch(ctx)
		if ctx.Err() != nil {
			return nil
		}
		w.logger.Warn("Event subscription lost, resubscribing",
			zap.Error(err),
			zap.Duration("delay", w.resubscribeDelay),
		)

		timer := time.NewTimer(w.resubscribeDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (w *OptioWatcher) watch(ctx context.Context) error {
	sink := make(chan events.OptioLinked, 16)
	sub, err := w.source.WatchOptioLinked(ctx, sink)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			if err == nil {
				return errSubscriptionClosed
			}
			return err
		case ev := <-sink:
			w.Handle(ctx, ev)
		}
	}
}

// Handle applies one event. Only the origin's entry is dropped: its Next list
// grew, while the destination and every existing optio are unchanged.
func (w *OptioWatcher) Handle(ctx context.Context, ev events.OptioLinked) {
	w.logger.Info("New optio linked",
		zap.Uint64("optioID", ev.OptioID.Uint64()),
		zap.Uint64("origin", ev.OriginID.Uint64()),
		zap.Uint64("destination", ev.DestinationID.Uint64()),
		zap.Bool("loop", ev.Loops()),
		zap.String("txHash", ev.TxHash),
	)

	w.cache.Invalidate(ev.OriginID)

	for _, s := range w.sessions.ViewingNexus(ev.OriginID) {
		w.send(s.ID, ports.MessageStatus, ports.Status{Message: "New path added!", Level: ports.StatusSuccess})

		view, err := s.View(ctx)
		if err != nil {
			w.logger.Error("Error refreshing after new optio",
				zap.String("sessionID", s.ID),
				zap.Error(err),
			)
			continue
		}
		w.send(s.ID, ports.MessageView, view)
	}

	if err := w.notifier.Broadcast(ports.MessageOptioLinked, ev); err != nil {
		w.logger.Warn("Failed to broadcast optio event", zap.Error(err))
	}
}

func (w *OptioWatcher) send(sessionID, messageType string, data interface{}) {
	if err := w.notifier.SendToSession(sessionID, messageType, data); err != nil {
		w.logger.Warn("Failed to notify session",
			zap.String("sessionID", sessionID),
			zap.String("type", messageType),
			zap.Error(err),
		)
	}
}
