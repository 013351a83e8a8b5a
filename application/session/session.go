// Package session holds per-reader exploration state on top of the shared
// read-through cache.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"optio-backend/application/cache"
	"optio-backend/domain/core/entities"
	"optio-backend/domain/core/valueobjects"
	"optio-backend/domain/exploration"
	pkgerrors "optio-backend/pkg/errors"
	"optio-backend/pkg/utils"
)

// PreviewLength is the number of characters shown for a destination's content
const PreviewLength = 50

// View is what a reader sees: the current nexus, its optios and where they
// stand in their exploration.
type View struct {
	SessionID string           `json:"sessionId"`
	Nexus     entities.Nexus   `json:"nexus"`
	Optios    []entities.Optio `json:"optios"`
	CanGoBack bool             `json:"canGoBack"`
	PathIndex int              `json:"pathIndex"`
	Position  int              `json:"position"`
}

// Destination is a known nexus offered as a bind target
type Destination struct {
	ID      valueobjects.NexusID `json:"id"`
	Preview string               `json:"preview"`
}

// Session is one reader's exploration. Methods are safe for concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	tracker    *exploration.Tracker
	cache      *cache.ReadThrough
	lastActive time.Time
	now        func() time.Time
}

func newSession(id string, start valueobjects.NexusID, c *cache.ReadThrough, now func() time.Time) *Session {
	t := now()
	return &Session{
		ID:         id,
		CreatedAt:  t,
		tracker:    exploration.NewTracker(start),
		cache:      c,
		lastActive: t,
		now:        now,
	}
}

// View loads the current nexus through the cache
func (s *Session) View(ctx context.Context) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = s.now()
	return s.viewLocked(ctx)
}

// Follow moves along an outgoing optio of the current nexus. The destination is
// loaded before the tracker moves, so a failed read leaves the position intact.
func (s *Session) Follow(ctx context.Context, optioID valueobjects.OptioID) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx, s.tracker.CurrentNexus())
	if err != nil {
		return View{}, err
	}
	optio, ok := current.FindOptio(optioID)
	if !ok {
		return View{}, pkgerrors.NewValidationError("optio is not an option of the current nexus").
			WithDetails(map[string]interface{}{
				"optioId": optioID.Uint64(),
				"nexusId": current.Nexus.ID.Uint64(),
			})
	}

	dest, err := s.load(ctx, optio.Destination)
	if err != nil {
		return View{}, err
	}
	s.tracker.Follow(optio.ID, optio.Destination)
	s.lastActive = s.now()
	return s.viewOf(dest), nil
}

// Back steps to the previous nexus, forking a new path when not at the tip
func (s *Session) Back(ctx context.Context) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.tracker.Back(); err != nil {
		if errors.Is(err, exploration.ErrAtPathStart) {
			return View{}, pkgerrors.NewConflictError(err.Error()).WithCause(err)
		}
		return View{}, pkgerrors.NewInternalError("failed to step back").WithCause(err)
	}
	s.lastActive = s.now()
	return s.viewLocked(ctx)
}

// Refresh drops the cached entry of the current nexus and reloads it
func (s *Session) Refresh(ctx context.Context) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Invalidate(s.tracker.CurrentNexus())
	return s.viewLocked(ctx)
}

// CurrentNexus returns the nexus the reader is looking at
func (s *Session) CurrentNexus() valueobjects.NexusID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.CurrentNexus()
}

// Paths returns every path explored so far and the index of the current one
func (s *Session) Paths() ([]exploration.Path, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Paths(), s.tracker.CurrentPathIndex()
}

// Destinations lists visited nexuses whose content is cached
func (s *Session) Destinations() []Destination {
	s.mu.Lock()
	known := s.tracker.KnownNexuses()
	s.mu.Unlock()

	out := make([]Destination, 0, len(known))
	for _, id := range known {
		nexus, ok := s.cache.Peek(id)
		if !ok {
			continue
		}
		out = append(out, Destination{ID: id, Preview: utils.Preview(nexus.Content, PreviewLength)})
	}
	return out
}

// LastActive returns when the reader last moved
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) viewLocked(ctx context.Context) (View, error) {
	snap, err := s.load(ctx, s.tracker.CurrentNexus())
	if err != nil {
		return View{}, err
	}
	return s.viewOf(snap), nil
}

func (s *Session) viewOf(snap entities.Snapshot) View {
	return View{
		SessionID: s.ID,
		Nexus:     snap.Nexus,
		Optios:    snap.Optios,
		CanGoBack: s.tracker.CanGoBack(),
		PathIndex: s.tracker.CurrentPathIndex(),
		Position:  s.tracker.Position(),
	}
}

func (s *Session) load(ctx context.Context, id valueobjects.NexusID) (entities.Snapshot, error) {
	snap, err := s.cache.Get(ctx, id)
	if err != nil {
		if pkgerrors.IsAppError(err) {
			return entities.Snapshot{}, err
		}
		return entities.Snapshot{}, pkgerrors.NewNetworkError("failed to load nexus", err).
			WithDetails(map[string]interface{}{"nexusId": id.Uint64()})
	}
	return snap, nil
}
