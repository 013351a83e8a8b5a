package watcher

import (
	"context"
	"sync"
	"time"

	"optio-backend/application/cache"
	"optio-backend/application/ports"
	"optio-backend/application/session"

	"go.uber.org/zap"
)

// Refresher re-reads every session's current nexus once the cache has gone
// longer than maxAge without a successful read. It checks every interval.
type Refresher struct {
	cache    *cache.ReadThrough
	sessions *session.Manager
	notifier ports.SessionNotifier
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.RWMutex
	interval time.Duration
	maxAge   time.Duration
	idle     time.Duration
	changed  chan struct{}
}

// NewRefresher creates a refresher. idle, when positive, also expires
// sessions that have not moved for that long.
func NewRefresher(sessions *session.Manager, notifier ports.SessionNotifier, interval, maxAge, idle time.Duration, logger *zap.Logger) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = ports.NopNotifier{}
	}
	return &Refresher{
		cache:    sessions.Cache(),
		sessions: sessions,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		interval: interval,
		maxAge:   maxAge,
		idle:     idle,
		changed:  make(chan struct{}, 1),
	}
}

// SetIntervals replaces the schedule; a running loop picks it up immediately
func (r *Refresher) SetIntervals(interval, maxAge time.Duration) {
	r.mu.Lock()
	r.interval = interval
	r.maxAge = maxAge
	r.mu.Unlock()

	select {
	case r.changed <- struct{}{}:
	default:
	}
	r.logger.Info("Refresh schedule updated",
		zap.Duration("interval", interval),
		zap.Duration("maxAge", maxAge),
	)
}

// SetIdle changes how long a session may sit still before it expires
func (r *Refresher) SetIdle(idle time.Duration) {
	r.mu.Lock()
	r.idle = idle
	r.mu.Unlock()
}

func (r *Refresher) schedule() (time.Duration, time.Duration) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.interval, r.maxAge
}

// Run ticks until ctx is cancelled
func (r *Refresher) Run(ctx context.Context) error {
	var (
		ticker *time.Ticker
		tick   <-chan time.Time
	)
	start := func() {
		if ticker != nil {
			ticker.Stop()
			ticker, tick = nil, nil
		}
		interval, _ := r.schedule()
		if interval <= 0 {
			r.logger.Info("Periodic refresh disabled")
			return
		}
		ticker = time.NewTicker(interval)
		tick = ticker.C
	}
	start()
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.changed:
			start()
		case <-tick:
			r.Tick(ctx)
		}
	}
}

// Tick refreshes stale views and returns how many sessions were refreshed
func (r *Refresher) Tick(ctx context.Context) int {
	r.mu.RLock()
	idle := r.idle
	r.mu.RUnlock()
	if idle > 0 {
		if n := r.sessions.Expire(idle); n > 0 {
			r.logger.Info("Expired idle sessions", zap.Int("count", n))
		}
	}

	_, maxAge := r.schedule()
	if r.now().Sub(r.cache.LastUpdate()) <= maxAge {
		return 0
	}

	refreshed := 0
	for _, s := range r.sessions.All() {
		view, err := s.Refresh(ctx)
		if err != nil {
			r.logger.Error("Error fetching story data",
				zap.String("sessionID", s.ID),
				zap.Error(err),
			)
			if sendErr := r.notifier.SendToSession(s.ID, ports.MessageStatus,
				ports.Status{Message: "Error fetching story data", Level: ports.StatusError}); sendErr != nil {
				r.logger.Warn("Failed to notify session", zap.String("sessionID", s.ID), zap.Error(sendErr))
			}
			continue
		}
		if err := r.notifier.SendToSession(s.ID, ports.MessageView, view); err != nil {
			r.logger.Warn("Failed to push view", zap.String("sessionID", s.ID), zap.Error(err))
		}
		refreshed++
	}
	if refreshed > 0 {
		r.logger.Debug("Refreshed stale views", zap.Int("sessions", refreshed))
	}
	return refreshed
}
