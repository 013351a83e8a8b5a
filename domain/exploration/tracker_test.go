package exploration

import (
	"testing"

	"optio-backend/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nexuses(ids ...uint64) []valueobjects.NexusID {
	out := make([]valueobjects.NexusID, len(ids))
	for i, id := range ids {
		out[i] = valueobjects.NexusID(id)
	}
	return out
}

func optios(ids ...uint64) []valueobjects.OptioID {
	out := make([]valueobjects.OptioID, len(ids))
	for i, id := range ids {
		out[i] = valueobjects.OptioID(id)
	}
	return out
}

func TestTracker_AddToPathKeepsLengthsInStep(t *testing.T) {
	tracker := NewTracker(0)

	for i := uint64(1); i <= 5; i++ {
		tracker.AddToPath(valueobjects.NexusID(i*10), valueobjects.OptioID(i))

		path := tracker.CurrentPath()
		assert.Len(t, path.Optios, len(path.Nexuses)-1)
	}
}

func TestTracker_BranchScenario(t *testing.T) {
	// Arrange
	tracker := NewTracker(0)

	// Act
	tracker.AddToPath(5, 12)
	require.Equal(t, Path{Nexuses: nexuses(0, 5), Optios: optios(12)}, tracker.CurrentPath())

	require.NoError(t, tracker.BranchPath(0))
	assert.Equal(t, 1, tracker.CurrentPathIndex())
	assert.Equal(t, Path{Nexuses: nexuses(0), Optios: optios()}, tracker.CurrentPath())

	tracker.AddToPath(7, 99)

	// Assert
	paths := tracker.Paths()
	require.Len(t, paths, 2)
	assert.Equal(t, Path{Nexuses: nexuses(0, 5), Optios: optios(12)}, paths[0])
	assert.Equal(t, Path{Nexuses: nexuses(0, 7), Optios: optios(99)}, paths[1])
}

func TestTracker_BranchPathProducesPrefix(t *testing.T) {
	tracker := NewTracker(0)
	tracker.AddToPath(1, 10)
	tracker.AddToPath(2, 11)
	tracker.AddToPath(3, 12)
	original := tracker.CurrentPath()

	for k := 0; k < len(original.Nexuses); k++ {
		t.Run("", func(t *testing.T) {
			tr := NewTracker(0)
			tr.AddToPath(1, 10)
			tr.AddToPath(2, 11)
			tr.AddToPath(3, 12)

			require.NoError(t, tr.BranchPath(k))

			branch := tr.CurrentPath()
			assert.Equal(t, original.Nexuses[:k+1], branch.Nexuses)
			assert.Equal(t, original.Optios[:k], branch.Optios)
			assert.Equal(t, original, tr.Paths()[0])
		})
	}
}

func TestTracker_BranchPathRejectsOutOfRange(t *testing.T) {
	tracker := NewTracker(0)
	tracker.AddToPath(1, 10)

	assert.ErrorIs(t, tracker.BranchPath(-1), ErrInvalidBranchIndex)
	assert.ErrorIs(t, tracker.BranchPath(2), ErrInvalidBranchIndex)
	assert.Len(t, tracker.Paths(), 1)
}

func TestTracker_BranchDoesNotAlias(t *testing.T) {
	tracker := NewTracker(0)
	tracker.AddToPath(1, 10)
	tracker.AddToPath(2, 11)

	require.NoError(t, tracker.BranchPath(1))
	tracker.AddToPath(9, 90)

	paths := tracker.Paths()
	assert.Equal(t, nexuses(0, 1, 2), paths[0].Nexuses)
	assert.Equal(t, nexuses(0, 1, 9), paths[1].Nexuses)

	// mutating a returned copy must not reach the tracker
	paths[0].Nexuses[0] = 42
	assert.Equal(t, valueobjects.NexusID(0), tracker.Paths()[0].Nexuses[0])
}

func TestTracker_FollowAtTipExtendsPath(t *testing.T) {
	tracker := NewTracker(0)

	tracker.Follow(12, 5)
	tracker.Follow(13, 6)

	assert.Equal(t, valueobjects.NexusID(6), tracker.CurrentNexus())
	assert.Equal(t, 2, tracker.Position())
	assert.True(t, tracker.AtTip())
	assert.Len(t, tracker.Paths(), 1)
}

func TestTracker_BackAtStart(t *testing.T) {
	tracker := NewTracker(0)

	current, err := tracker.Back()

	assert.ErrorIs(t, err, ErrAtPathStart)
	assert.Equal(t, valueobjects.NexusID(0), current)
	assert.False(t, tracker.CanGoBack())
}

func TestTracker_BackThenFollowForks(t *testing.T) {
	// Arrange: 0 -12-> 5 -13-> 6
	tracker := NewTracker(0)
	tracker.Follow(12, 5)
	tracker.Follow(13, 6)

	// Act: back from the tip does not fork
	prev, err := tracker.Back()
	require.NoError(t, err)
	assert.Equal(t, valueobjects.NexusID(5), prev)
	assert.Len(t, tracker.Paths(), 1)
	assert.False(t, tracker.AtTip())

	// choosing another optio from 5 forks at 5
	tracker.Follow(14, 7)

	// Assert
	paths := tracker.Paths()
	require.Len(t, paths, 2)
	assert.Equal(t, Path{Nexuses: nexuses(0, 5, 6), Optios: optios(12, 13)}, paths[0])
	assert.Equal(t, Path{Nexuses: nexuses(0, 5, 7), Optios: optios(12, 14)}, paths[1])
	assert.Equal(t, 1, tracker.CurrentPathIndex())
	assert.Equal(t, valueobjects.NexusID(7), tracker.CurrentNexus())
}

func TestTracker_BackFromInsidePathForks(t *testing.T) {
	// Arrange: 0 -> 1 -> 2 -> 3, then back twice
	tracker := NewTracker(0)
	tracker.Follow(10, 1)
	tracker.Follow(11, 2)
	tracker.Follow(12, 3)

	_, err := tracker.Back() // at tip: plain step to 2
	require.NoError(t, err)

	// Act: not at tip any more, so stepping back forks at 1
	prev, err := tracker.Back()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, valueobjects.NexusID(1), prev)
	paths := tracker.Paths()
	require.Len(t, paths, 2)
	assert.Equal(t, nexuses(0, 1, 2, 3), paths[0].Nexuses)
	assert.Equal(t, Path{Nexuses: nexuses(0, 1), Optios: optios(10)}, paths[1])
	assert.True(t, tracker.AtTip())
}

func TestTracker_KnownNexuses(t *testing.T) {
	tracker := NewTracker(0)
	tracker.Follow(12, 5)
	_, _ = tracker.Back()
	tracker.Follow(14, 7)
	tracker.Follow(15, 5)

	assert.Equal(t, nexuses(0, 5, 7), tracker.KnownNexuses())
}
