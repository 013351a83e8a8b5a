package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"optio-backend/application/cache"
	"optio-backend/application/ports/mocks"
	"optio-backend/domain/core/entities"
	"optio-backend/domain/core/valueobjects"
	pkgerrors "optio-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// story graph: 0 -(1)-> 1 -(2)-> 2, 0 -(3)-> 2
func storyReader() *mocks.MockNarrativeReader {
	r := new(mocks.MockNarrativeReader)
	r.On("GetFullNexusBatch", mock.Anything, []valueobjects.NexusID{0}).
		Return([]entities.Nexus{{Content: "Once upon a time", Next: []valueobjects.OptioID{1, 3}}}, nil)
	r.On("GetFullNexusBatch", mock.Anything, []valueobjects.NexusID{1}).
		Return([]entities.Nexus{{Content: "A dark forest stretches further than anyone has ever walked", Next: []valueobjects.OptioID{2}}}, nil)
	r.On("GetFullNexusBatch", mock.Anything, []valueobjects.NexusID{2}).
		Return([]entities.Nexus{{Content: "The end"}}, nil)
	r.On("GetFullOptioBatch", mock.Anything, []valueobjects.OptioID{1, 3}).
		Return([]entities.Optio{
			{Content: "enter the forest", Origin: 0, Destination: 1},
			{Content: "skip ahead", Origin: 0, Destination: 2},
		}, nil)
	r.On("GetFullOptioBatch", mock.Anything, []valueobjects.OptioID{2}).
		Return([]entities.Optio{{Content: "keep walking", Origin: 1, Destination: 2}}, nil)
	return r
}

func newTestManager(r *mocks.MockNarrativeReader) *Manager {
	return NewManager(cache.NewReadThrough(r, zap.NewNop()), 0, zap.NewNop())
}

func TestSession_ViewStartsAtStartNexus(t *testing.T) {
	m := newTestManager(storyReader())
	s := m.Create()

	view, err := s.View(context.Background())

	require.NoError(t, err)
	assert.Equal(t, s.ID, view.SessionID)
	assert.Equal(t, valueobjects.NexusID(0), view.Nexus.ID)
	assert.Len(t, view.Optios, 2)
	assert.False(t, view.CanGoBack)
	assert.Equal(t, 0, view.PathIndex)
	assert.Equal(t, 0, view.Position)
}

func TestSession_FollowAndBack(t *testing.T) {
	// Arrange
	m := newTestManager(storyReader())
	s := m.Create()
	ctx := context.Background()

	// Act
	view, err := s.Follow(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, valueobjects.NexusID(1), view.Nexus.ID)
	assert.True(t, view.CanGoBack)

	view, err = s.Follow(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, valueobjects.NexusID(2), view.Nexus.ID)

	view, err = s.Back(ctx)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, valueobjects.NexusID(1), view.Nexus.ID)
	paths, current := s.Paths()
	require.Len(t, paths, 1)
	assert.Equal(t, 0, current)
	assert.Equal(t, []valueobjects.NexusID{0, 1, 2}, paths[0].Nexuses)
}

func TestSession_FollowFromEarlierPositionForks(t *testing.T) {
	m := newTestManager(storyReader())
	s := m.Create()
	ctx := context.Background()

	_, err := s.Follow(ctx, 1)
	require.NoError(t, err)
	_, err = s.Back(ctx)
	require.NoError(t, err)
	view, err := s.Follow(ctx, 3)
	require.NoError(t, err)

	assert.Equal(t, valueobjects.NexusID(2), view.Nexus.ID)
	paths, current := s.Paths()
	require.Len(t, paths, 2)
	assert.Equal(t, 1, current)
	assert.Equal(t, []valueobjects.NexusID{0, 1}, paths[0].Nexuses)
	assert.Equal(t, []valueobjects.NexusID{0, 2}, paths[1].Nexuses)
	assert.Equal(t, []valueobjects.OptioID{3}, paths[1].Optios)
}

func TestSession_FollowRejectsForeignOptio(t *testing.T) {
	m := newTestManager(storyReader())
	s := m.Create()

	_, err := s.Follow(context.Background(), 2)

	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Equal(t, valueobjects.NexusID(0), s.CurrentNexus())
}

func TestSession_BackAtStartIsConflict(t *testing.T) {
	m := newTestManager(storyReader())
	s := m.Create()

	_, err := s.Back(context.Background())

	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeConflict))
}

func TestSession_FailedLoadKeepsPosition(t *testing.T) {
	r := new(mocks.MockNarrativeReader)
	r.On("GetFullNexusBatch", mock.Anything, []valueobjects.NexusID{0}).
		Return([]entities.Nexus{{Content: "start", Next: []valueobjects.OptioID{1}}}, nil)
	r.On("GetFullOptioBatch", mock.Anything, []valueobjects.OptioID{1}).
		Return([]entities.Optio{{Content: "go", Origin: 0, Destination: 9}}, nil)
	r.On("GetFullNexusBatch", mock.Anything, []valueobjects.NexusID{9}).
		Return(nil, errors.New("connection refused"))
	s := newTestManager(r).Create()

	_, err := s.Follow(context.Background(), 1)

	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeNetwork))
	assert.Equal(t, valueobjects.NexusID(0), s.CurrentNexus())
}

func TestSession_RefreshRefetchesCurrentNexus(t *testing.T) {
	r := storyReader()
	s := newTestManager(r).Create()
	ctx := context.Background()
	_, err := s.View(ctx)
	require.NoError(t, err)

	_, err = s.Refresh(ctx)

	require.NoError(t, err)
	r.AssertNumberOfCalls(t, "GetFullNexusBatch", 2)
}

func TestSession_DestinationsListsCachedKnownNexuses(t *testing.T) {
	m := newTestManager(storyReader())
	s := m.Create()
	ctx := context.Background()
	_, err := s.Follow(ctx, 1)
	require.NoError(t, err)

	dests := s.Destinations()

	require.Len(t, dests, 2)
	assert.Equal(t, valueobjects.NexusID(0), dests[0].ID)
	assert.Equal(t, "Once upon a time", dests[0].Preview)
	assert.Equal(t, valueobjects.NexusID(1), dests[1].ID)
	assert.Equal(t, "A dark forest stretches further than anyone has ev...", dests[1].Preview)
}

func TestManager_GetAndDelete(t *testing.T) {
	m := newTestManager(storyReader())
	s := m.Create()

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	m.Delete(s.ID)
	_, err = m.Get(s.ID)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestManager_ViewingNexus(t *testing.T) {
	m := newTestManager(storyReader())
	a := m.Create()
	b := m.Create()
	_, err := b.Follow(context.Background(), 1)
	require.NoError(t, err)

	atStart := m.ViewingNexus(0)
	require.Len(t, atStart, 1)
	assert.Equal(t, a.ID, atStart[0].ID)
	assert.Len(t, m.ViewingNexus(1), 1)
	assert.Empty(t, m.ViewingNexus(2))
}

func TestManager_Expire(t *testing.T) {
	m := newTestManager(storyReader())
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	old := m.Create()
	now = now.Add(time.Hour)
	fresh := m.Create()

	removed := m.Expire(30 * time.Minute)

	assert.Equal(t, 1, removed)
	_, err := m.Get(old.ID)
	assert.Error(t, err)
	_, err = m.Get(fresh.ID)
	assert.NoError(t, err)
}
