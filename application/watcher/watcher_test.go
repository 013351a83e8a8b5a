package watcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"optio-backend/application/cache"
	"optio-backend/application/ports"
	"optio-backend/application/ports/mocks"
	"optio-backend/application/session"
	"optio-backend/domain/core/entities"
	"optio-backend/domain/core/valueobjects"
	"optio-backend/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startReader() *mocks.MockNarrativeReader {
	r := new(mocks.MockNarrativeReader)
	r.On("GetFullNexusBatch", mock.Anything, []valueobjects.NexusID{0}).
		Return([]entities.Nexus{{Content: "start"}}, nil)
	r.On("GetFullNexusBatch", mock.Anything, []valueobjects.NexusID{3}).
		Return([]entities.Nexus{{Content: "elsewhere"}}, nil)
	return r
}

func countMessages(n *mocks.RecordingNotifier, sessionID, messageType string) int {
	count := 0
	for _, m := range n.Messages() {
		if m.SessionID == sessionID && m.Type == messageType {
			count++
		}
	}
	return count
}

func TestOptioWatcher_HandleInvalidatesOriginAndNotifiesViewers(t *testing.T) {
	// Arrange
	reader := startReader()
	sessions := session.NewManager(cache.NewReadThrough(reader, zap.NewNop()), 0, zap.NewNop())
	viewer := sessions.Create()
	_, err := viewer.View(context.Background())
	require.NoError(t, err)
	notifier := &mocks.RecordingNotifier{}
	w := NewOptioWatcher(mocks.NewFakeEventSource(), sessions, notifier, time.Millisecond, zap.NewNop())

	// Act
	w.Handle(context.Background(), events.NewOptioLinked(7, 0, 3, time.Now()))

	// Assert
	reader.AssertNumberOfCalls(t, "GetFullNexusBatch", 2)
	statuses := notifier.Statuses(viewer.ID)
	require.Len(t, statuses, 1)
	assert.Equal(t, "New path added!", statuses[0].Message)
	assert.Equal(t, 1, countMessages(notifier, viewer.ID, ports.MessageView))
	assert.Equal(t, 1, countMessages(notifier, "", ports.MessageOptioLinked))
}

func TestOptioWatcher_HandleLeavesOtherViewersAlone(t *testing.T) {
	reader := startReader()
	sessions := session.NewManager(cache.NewReadThrough(reader, zap.NewNop()), 0, zap.NewNop())
	viewer := sessions.Create()
	_, err := viewer.View(context.Background())
	require.NoError(t, err)
	notifier := &mocks.RecordingNotifier{}
	w := NewOptioWatcher(mocks.NewFakeEventSource(), sessions, notifier, time.Millisecond, zap.NewNop())

	w.Handle(context.Background(), events.NewOptioLinked(8, 5, 0, time.Now()))

	_, cached := sessions.Cache().Peek(0)
	assert.True(t, cached, "destination stays cached")
	assert.Empty(t, notifier.Statuses(viewer.ID))
	assert.Equal(t, 1, countMessages(notifier, "", ports.MessageOptioLinked))
}

func TestOptioWatcher_RunDeliversAndResubscribes(t *testing.T) {
	// Arrange
	reader := startReader()
	sessions := session.NewManager(cache.NewReadThrough(reader, zap.NewNop()), 0, zap.NewNop())
	notifier := &mocks.RecordingNotifier{}
	source := mocks.NewFakeEventSource()
	w := NewOptioWatcher(source, sessions, notifier, time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Act
	sink := <-source.Sinks
	sink <- events.NewOptioLinked(1, 0, 2, time.Now())
	require.Eventually(t, func() bool {
		return countMessages(notifier, "", ports.MessageOptioLinked) == 1
	}, time.Second, 5*time.Millisecond)

	source.Sub.ErrCh <- errors.New("websocket closed")

	// Assert
	select {
	case <-source.Sinks:
	case <-time.After(time.Second):
		t.Fatal("watcher did not resubscribe")
	}
	cancel()
	assert.NoError(t, <-done)
}

func TestRefresher_TickOnlyWhenStale(t *testing.T) {
	// Arrange
	reader := startReader()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	c := cache.NewReadThrough(reader, zap.NewNop(), cache.WithClock(clock))
	sessions := session.NewManager(c, 0, zap.NewNop())
	s := sessions.Create()
	_, err := s.View(context.Background())
	require.NoError(t, err)
	notifier := &mocks.RecordingNotifier{}
	r := NewRefresher(sessions, notifier, time.Second, 30*time.Second, 0, zap.NewNop())
	r.now = clock

	// Act / Assert: fresh cache
	now = now.Add(10 * time.Second)
	assert.Equal(t, 0, r.Tick(context.Background()))
	reader.AssertNumberOfCalls(t, "GetFullNexusBatch", 1)

	// stale cache
	now = now.Add(time.Minute)
	assert.Equal(t, 1, r.Tick(context.Background()))
	reader.AssertNumberOfCalls(t, "GetFullNexusBatch", 2)
	assert.Equal(t, 1, countMessages(notifier, s.ID, ports.MessageView))
	assert.Equal(t, now, c.LastUpdate())
}

func TestRefresher_TickReportsFailures(t *testing.T) {
	reader := new(mocks.MockNarrativeReader)
	reader.On("GetFullNexusBatch", mock.Anything, mock.Anything).Return(nil, errors.New("rpc down"))
	sessions := session.NewManager(cache.NewReadThrough(reader, zap.NewNop()), 0, zap.NewNop())
	s := sessions.Create()
	notifier := &mocks.RecordingNotifier{}
	r := NewRefresher(sessions, notifier, time.Second, time.Second, 0, zap.NewNop())

	assert.Equal(t, 0, r.Tick(context.Background()))

	statuses := notifier.Statuses(s.ID)
	require.Len(t, statuses, 1)
	assert.Equal(t, ports.StatusError, statuses[0].Level)
}

func TestRefresher_RunPicksUpNewSchedule(t *testing.T) {
	reader := startReader()
	sessions := session.NewManager(cache.NewReadThrough(reader, zap.NewNop()), 0, zap.NewNop())
	s := sessions.Create()
	notifier := &mocks.RecordingNotifier{}
	r := NewRefresher(sessions, notifier, 0, 0, 0, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	r.SetIntervals(5*time.Millisecond, 0)

	assert.Eventually(t, func() bool {
		return countMessages(notifier, s.ID, ports.MessageView) > 0
	}, time.Second, 5*time.Millisecond)
}
