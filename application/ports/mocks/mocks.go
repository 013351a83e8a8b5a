// Package mocks provides testify mocks for the application ports.
package mocks

import (
	"context"
	"math/big"
	"sync"

	"optio-backend/application/ports"
	"optio-backend/domain/core/entities"
	"optio-backend/domain/core/valueobjects"
	"optio-backend/domain/events"

	"github.com/stretchr/testify/mock"
)

// MockNarrativeReader is a mock implementation of ports.NarrativeReader
type MockNarrativeReader struct {
	mock.Mock
}

func (m *MockNarrativeReader) GetFullNexusBatch(ctx context.Context, ids []valueobjects.NexusID) ([]entities.Nexus, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Nexus), args.Error(1)
}

func (m *MockNarrativeReader) GetFullOptioBatch(ctx context.Context, ids []valueobjects.OptioID) ([]entities.Optio, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Optio), args.Error(1)
}

func (m *MockNarrativeReader) NexusCount(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

// MockTreasuryReader is a mock implementation of ports.TreasuryReader
type MockTreasuryReader struct {
	mock.Mock
}

func (m *MockTreasuryReader) CurrentBid(ctx context.Context) (*big.Int, error) {
	args := m.Called(ctx)
	return bigArg(args, 0), args.Error(1)
}

func (m *MockTreasuryReader) Fiscus(ctx context.Context) (*big.Int, error) {
	args := m.Called(ctx)
	return bigArg(args, 0), args.Error(1)
}

func (m *MockTreasuryReader) Summa(ctx context.Context, account string) (*big.Int, error) {
	args := m.Called(ctx, account)
	return bigArg(args, 0), args.Error(1)
}

func (m *MockTreasuryReader) BalanceOf(ctx context.Context, account string) (*big.Int, error) {
	args := m.Called(ctx, account)
	return bigArg(args, 0), args.Error(1)
}

func (m *MockTreasuryReader) NameOf(ctx context.Context, account string) (string, error) {
	args := m.Called(ctx, account)
	return args.String(0), args.Error(1)
}

// MockNarrativeWriter is a mock implementation of ports.NarrativeWriter
type MockNarrativeWriter struct {
	mock.Mock
}

func (m *MockNarrativeWriter) Account() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockNarrativeWriter) Contribute(ctx context.Context, content string, value *big.Int) (ports.PendingTx, error) {
	args := m.Called(ctx, content, value)
	return txArg(args, 0), args.Error(1)
}

func (m *MockNarrativeWriter) Bind(ctx context.Context, origin, destination valueobjects.NexusID, content string, value *big.Int) (ports.PendingTx, error) {
	args := m.Called(ctx, origin, destination, content, value)
	return txArg(args, 0), args.Error(1)
}

func (m *MockNarrativeWriter) Register(ctx context.Context, name string) (ports.PendingTx, error) {
	args := m.Called(ctx, name)
	return txArg(args, 0), args.Error(1)
}

func (m *MockNarrativeWriter) Sacrifice(ctx context.Context, amount *big.Int) (ports.PendingTx, error) {
	args := m.Called(ctx, amount)
	return txArg(args, 0), args.Error(1)
}

func (m *MockNarrativeWriter) Withdraw(ctx context.Context) (ports.PendingTx, error) {
	args := m.Called(ctx)
	return txArg(args, 0), args.Error(1)
}

// FakePendingTx confirms with WaitErr
type FakePendingTx struct {
	TxHash  string
	WaitErr error
}

func (f *FakePendingTx) Hash() string                 { return f.TxHash }
func (f *FakePendingTx) Wait(ctx context.Context) error { return f.WaitErr }

// FakeSubscription is a controllable ports.Subscription
type FakeSubscription struct {
	ErrCh        chan error
	once         sync.Once
	Unsubscribed chan struct{}
}

// NewFakeSubscription creates a live subscription
func NewFakeSubscription() *FakeSubscription {
	return &FakeSubscription{
		ErrCh:        make(chan error, 1),
		Unsubscribed: make(chan struct{}),
	}
}

func (s *FakeSubscription) Err() <-chan error { return s.ErrCh }

func (s *FakeSubscription) Unsubscribe() {
	s.once.Do(func() { close(s.Unsubscribed) })
}

// FakeEventSource hands every subscriber's sink to the test through Sinks
type FakeEventSource struct {
	Sinks chan chan<- events.OptioLinked
	Sub   *FakeSubscription
	Err   error
}

// NewFakeEventSource creates a source that accepts one subscription
func NewFakeEventSource() *FakeEventSource {
	return &FakeEventSource{
		Sinks: make(chan chan<- events.OptioLinked, 1),
		Sub:   NewFakeSubscription(),
	}
}

func (s *FakeEventSource) WatchOptioLinked(ctx context.Context, sink chan<- events.OptioLinked) (ports.Subscription, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.Sinks <- sink
	return s.Sub, nil
}

// Message is one notification captured by RecordingNotifier
type Message struct {
	SessionID string
	Type      string
	Data      interface{}
}

// RecordingNotifier captures notifications for assertions
type RecordingNotifier struct {
	// Fail rejects messages of the given types with the mapped error
	Fail map[string]error

	mu       sync.Mutex
	messages []Message
}

func (n *RecordingNotifier) SendToSession(sessionID, messageType string, data interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.Fail[messageType]; err != nil {
		return err
	}
	n.messages = append(n.messages, Message{SessionID: sessionID, Type: messageType, Data: data})
	return nil
}

func (n *RecordingNotifier) Broadcast(messageType string, data interface{}) error {
	return n.SendToSession("", messageType, data)
}

// Messages returns a copy of everything recorded so far
func (n *RecordingNotifier) Messages() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Message, len(n.messages))
	copy(out, n.messages)
	return out
}

// Statuses returns the status messages sent to sessionID, in order
func (n *RecordingNotifier) Statuses(sessionID string) []ports.Status {
	var out []ports.Status
	for _, m := range n.Messages() {
		if m.SessionID != sessionID || m.Type != ports.MessageStatus {
			continue
		}
		if s, ok := m.Data.(ports.Status); ok {
			out = append(out, s)
		}
	}
	return out
}

func bigArg(args mock.Arguments, i int) *big.Int {
	if args.Get(i) == nil {
		return nil
	}
	return args.Get(i).(*big.Int)
}

func txArg(args mock.Arguments, i int) ports.PendingTx {
	if args.Get(i) == nil {
		return nil
	}
	return args.Get(i).(ports.PendingTx)
}
