// Package cache memoizes nexus and optio records read from the contract.
//
// Entries never expire. A nexus entry is served only while every optio in its
// Next list is cached as well; otherwise the entry is dropped and re-fetched.
// LinkedOptio events call Invalidate for the origin nexus, whose Next list has
// grown, while its optios stay cached because optio content never changes.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"optio-backend/application/ports"
	"optio-backend/domain/core/entities"
	"optio-backend/domain/core/valueobjects"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Recorder receives cache statistics
type Recorder interface {
	CacheHit()
	CacheMiss()
	CacheInvalidation()
}

type nopRecorder struct{}

func (nopRecorder) CacheHit()          {}
func (nopRecorder) CacheMiss()         {}
func (nopRecorder) CacheInvalidation() {}

// ReadThrough is safe for concurrent use
type ReadThrough struct {
	reader   ports.NarrativeReader
	logger   *zap.Logger
	recorder Recorder
	now      func() time.Time

	mu         sync.RWMutex
	nexuses    map[valueobjects.NexusID]entities.Nexus
	optios     map[valueobjects.OptioID]entities.Optio
	lastUpdate time.Time

	// gen counts invalidations per nexus. A fetch that overlaps one does
	// not store its result.
	gen map[valueobjects.NexusID]uint64

	inflight singleflight.Group
}

// Option configures a ReadThrough
type Option func(*ReadThrough)

// WithRecorder reports hits, misses and invalidations to r
func WithRecorder(r Recorder) Option {
	return func(c *ReadThrough) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(c *ReadThrough) {
		c.now = now
	}
}

// NewReadThrough creates an empty cache over reader
func NewReadThrough(reader ports.NarrativeReader, logger *zap.Logger, opts ...Option) *ReadThrough {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &ReadThrough{
		reader:   reader,
		logger:   logger,
		recorder: nopRecorder{},
		now:      time.Now,
		nexuses:  make(map[valueobjects.NexusID]entities.Nexus),
		optios:   make(map[valueobjects.OptioID]entities.Optio),
		gen:      make(map[valueobjects.NexusID]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the nexus and its outgoing optios, fetching from the contract
// unless a complete entry is cached. Concurrent misses for one nexus share a
// fetch that outlives any single caller; each caller still returns when its
// own ctx is done.
func (c *ReadThrough) Get(ctx context.Context, nexusID valueobjects.NexusID) (entities.Snapshot, error) {
	if snap, ok := c.lookup(nexusID); ok {
		c.recorder.CacheHit()
		c.touch()
		return snap, nil
	}
	c.recorder.CacheMiss()

	ch := c.inflight.DoChan(nexusID.String(), func() (interface{}, error) {
		return c.fetch(context.WithoutCancel(ctx), nexusID)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return entities.Snapshot{}, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return entities.Snapshot{}, res.Err
	}
	if res.Shared {
		c.logger.Debug("Joined in-flight nexus fetch", zap.Uint64("nexusID", nexusID.Uint64()))
	}
	c.touch()
	return cloneSnapshot(res.Val.(entities.Snapshot)), nil
}

// lookup serves a complete cached entry. Completeness is judged by count: an
// entry whose Next list has more IDs than cached optios is discarded.
func (c *ReadThrough) lookup(nexusID valueobjects.NexusID) (entities.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	nexus, ok := c.nexuses[nexusID]
	if !ok {
		return entities.Snapshot{}, false
	}

	optios := make([]entities.Optio, 0, len(nexus.Next))
	for _, id := range nexus.Next {
		if o, ok := c.optios[id]; ok {
			optios = append(optios, o.Clone())
		}
	}

	if len(optios) != len(nexus.Next) {
		c.logger.Debug("Cached nexus incomplete, refetching",
			zap.Uint64("nexusID", nexusID.Uint64()),
			zap.Int("next", len(nexus.Next)),
			zap.Int("cachedOptios", len(optios)),
		)
		delete(c.nexuses, nexusID)
		return entities.Snapshot{}, false
	}

	return entities.Snapshot{Nexus: nexus.Clone(), Optios: optios}, true
}

// fetch issues one nexus batch read and at most one optio batch read, then
// populates both maps before returning. The nexus entry is skipped when
// Invalidate ran in the meantime.
func (c *ReadThrough) fetch(ctx context.Context, nexusID valueobjects.NexusID) (entities.Snapshot, error) {
	c.logger.Debug("Fetching nexus from contract", zap.Uint64("nexusID", nexusID.Uint64()))

	c.mu.RLock()
	start := c.gen[nexusID]
	c.mu.RUnlock()

	nexusBatch, err := c.reader.GetFullNexusBatch(ctx, []valueobjects.NexusID{nexusID})
	if err != nil {
		return entities.Snapshot{}, fmt.Errorf("fetch nexus %d: %w", nexusID, err)
	}
	if len(nexusBatch) != 1 {
		return entities.Snapshot{}, fmt.Errorf("fetch nexus %d: expected 1 record, got %d", nexusID, len(nexusBatch))
	}
	nexus := nexusBatch[0]
	nexus.ID = nexusID

	var optios []entities.Optio
	if len(nexus.Next) > 0 {
		optios, err = c.reader.GetFullOptioBatch(ctx, nexus.Next)
		if err != nil {
			return entities.Snapshot{}, fmt.Errorf("fetch optios of nexus %d: %w", nexusID, err)
		}
		if len(optios) != len(nexus.Next) {
			return entities.Snapshot{}, fmt.Errorf("fetch optios of nexus %d: expected %d records, got %d",
				nexusID, len(nexus.Next), len(optios))
		}
		for i := range optios {
			optios[i].ID = nexus.Next[i]
		}
	}
	if optios == nil {
		optios = []entities.Optio{}
	}

	c.mu.Lock()
	for _, o := range optios {
		c.optios[o.ID] = o.Clone()
	}
	stale := c.gen[nexusID] != start
	if !stale {
		c.nexuses[nexusID] = nexus.Clone()
	}
	c.mu.Unlock()

	if stale {
		c.logger.Debug("Nexus invalidated during fetch, not caching", zap.Uint64("nexusID", nexusID.Uint64()))
	}

	return entities.Snapshot{Nexus: nexus, Optios: optios}, nil
}

// Invalidate drops the nexus entry only; its optios stay cached. A fetch
// already running is detached so the next Get starts a new one.
func (c *ReadThrough) Invalidate(nexusID valueobjects.NexusID) {
	c.mu.Lock()
	_, existed := c.nexuses[nexusID]
	delete(c.nexuses, nexusID)
	c.gen[nexusID]++
	c.mu.Unlock()
	c.inflight.Forget(nexusID.String())

	c.recorder.CacheInvalidation()
	c.logger.Debug("Invalidated nexus",
		zap.Uint64("nexusID", nexusID.Uint64()),
		zap.Bool("existed", existed),
	)
}

// Peek returns the cached nexus without fetching
func (c *ReadThrough) Peek(nexusID valueobjects.NexusID) (entities.Nexus, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	nexus, ok := c.nexuses[nexusID]
	if !ok {
		return entities.Nexus{}, false
	}
	return nexus.Clone(), true
}

// LastUpdate returns the time of the last successful Get
func (c *ReadThrough) LastUpdate() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdate
}

// Len returns the number of cached nexuses and optios
func (c *ReadThrough) Len() (nexuses, optios int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.nexuses), len(c.optios)
}

func (c *ReadThrough) touch() {
	now := c.now()
	c.mu.Lock()
	c.lastUpdate = now
	c.mu.Unlock()
}

func cloneSnapshot(s entities.Snapshot) entities.Snapshot {
	optios := make([]entities.Optio, len(s.Optios))
	for i, o := range s.Optios {
		optios[i] = o.Clone()
	}
	return entities.Snapshot{Nexus: s.Nexus.Clone(), Optios: optios}
}
