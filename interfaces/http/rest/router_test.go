package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"optio-backend/application/cache"
	"optio-backend/application/commands/bus"
	commandhandlers "optio-backend/application/commands/handlers"
	"optio-backend/application/ports"
	"optio-backend/application/ports/mocks"
	querybus "optio-backend/application/queries/bus"
	queryhandlers "optio-backend/application/queries/handlers"
	"optio-backend/application/session"
	"optio-backend/domain/core/entities"
	"optio-backend/domain/core/valueobjects"
	"optio-backend/infrastructure/observability"
	pkgerrors "optio-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const account = "0x00000000000000000000000000000000000A11cE"

type testAPI struct {
	handler  http.Handler
	router   *Router
	reader   *mocks.MockNarrativeReader
	writer   *mocks.MockNarrativeWriter
	treasury *mocks.MockTreasuryReader
	notifier *mocks.RecordingNotifier
	sessions *session.Manager
}

// newTestAPI serves a story where nexus 0 offers optio 1 to nexus 1
func newTestAPI(t *testing.T, withWallet bool, config RouterConfig) *testAPI {
	t.Helper()
	api := &testAPI{
		reader:   new(mocks.MockNarrativeReader),
		writer:   new(mocks.MockNarrativeWriter),
		treasury: new(mocks.MockTreasuryReader),
		notifier: &mocks.RecordingNotifier{},
	}
	api.reader.On("GetFullNexusBatch", mock.Anything, []valueobjects.NexusID{0}).
		Return([]entities.Nexus{{ID: 0, Content: "Once upon a time", Next: []valueobjects.OptioID{1}}}, nil)
	api.reader.On("GetFullNexusBatch", mock.Anything, []valueobjects.NexusID{1}).
		Return([]entities.Nexus{{ID: 1, Content: "The forest"}}, nil)
	api.reader.On("GetFullOptioBatch", mock.Anything, []valueobjects.OptioID{1}).
		Return([]entities.Optio{{ID: 1, Content: "Enter the forest", Origin: 0, Destination: 1, Score: big.NewInt(0)}}, nil)

	readThrough := cache.NewReadThrough(api.reader, zap.NewNop())
	api.sessions = session.NewManager(readThrough, 0, zap.NewNop())

	commandBus := bus.NewCommandBus(bus.LoggingMiddleware(zap.NewNop()))
	deps := commandhandlers.Deps{
		Reader:   api.reader,
		Treasury: api.treasury,
		Sessions: api.sessions,
		Notifier: api.notifier,
		Settings: commandhandlers.Settings{Fee: big.NewInt(40_000_000_000_000), MaxContentLength: 2048, MaxNameLength: 32},
		Logger:   zap.NewNop(),
	}
	wallet := ""
	if withWallet {
		deps.Writer = api.writer
		wallet = account
	}
	require.NoError(t, commandhandlers.RegisterAll(commandBus, deps))

	queryBus := querybus.NewQueryBus(zap.NewNop())
	require.NoError(t, queryhandlers.RegisterAll(queryBus, readThrough, api.sessions, api.treasury, wallet, zap.NewNop()))

	api.router = NewRouter(commandBus, queryBus, api.sessions, api.notifier, nil,
		observability.NewCollector("test"), pkgerrors.NewErrorHandler(zap.NewNop(), false), config, zap.NewNop())
	api.handler = api.router.Setup()
	return api
}

func (api *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) session.View {
	t.Helper()
	var view session.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	return view
}

func errorType(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp pkgerrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Type
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, false, RouterConfig{})

	rec := api.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestReady(t *testing.T) {
	api := newTestAPI(t, false, RouterConfig{})
	api.router.AddReadinessCheck("rpc", func(context.Context) error { return nil })

	rec := api.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	api.router.AddReadinessCheck("events", func(context.Context) error { return errors.New("dial failed") })
	rec = api.do(t, http.MethodGet, "/ready", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "dial failed")
}

func TestMetricsEndpoint(t *testing.T) {
	enabled := newTestAPI(t, false, RouterConfig{EnableMetrics: true})
	disabled := newTestAPI(t, false, RouterConfig{})

	enabled.do(t, http.MethodGet, "/health", nil)
	rec := enabled.do(t, http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_http_requests_total{method="GET",route="/health",status="200"} 1`)
	assert.Equal(t, http.StatusNotFound, disabled.do(t, http.MethodGet, "/metrics", nil).Code)
}

func TestSessionLifecycle(t *testing.T) {
	api := newTestAPI(t, false, RouterConfig{})

	// Create
	rec := api.do(t, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	view := decodeView(t, rec)
	assert.Equal(t, "Once upon a time", view.Nexus.Content)
	require.Len(t, view.Optios, 1)
	assert.False(t, view.CanGoBack)
	base := "/api/v1/sessions/" + view.SessionID

	// Follow
	rec = api.do(t, http.MethodPost, base+"/follow", map[string]interface{}{"optioId": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeView(t, rec)
	assert.Equal(t, "The forest", view.Nexus.Content)
	assert.True(t, view.CanGoBack)

	// Get
	rec = api.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, valueobjects.NexusID(1), decodeView(t, rec).Nexus.ID)

	// Back
	rec = api.do(t, http.MethodPost, base+"/back", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, valueobjects.NexusID(0), decodeView(t, rec).Nexus.ID)

	// Back at the start of the path
	rec = api.do(t, http.MethodPost, base+"/back", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Paths
	rec = api.do(t, http.MethodGet, base+"/paths", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"paths"`)

	// Destinations
	rec = api.do(t, http.MethodGet, base+"/destinations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "The forest")

	// Delete
	assert.Equal(t, http.StatusNoContent, api.do(t, http.MethodDelete, base, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, base, nil).Code)

	views := 0
	for _, m := range api.notifier.Messages() {
		if m.Type == ports.MessageView {
			views++
		}
	}
	assert.Equal(t, 2, views, "follow and the successful back push a view")
}

func TestFollow_Errors(t *testing.T) {
	api := newTestAPI(t, false, RouterConfig{})
	s := api.sessions.Create()
	base := "/api/v1/sessions/" + s.ID

	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
	}{
		{name: "missing optio", path: base + "/follow", body: map[string]interface{}{}, status: http.StatusBadRequest},
		{name: "unknown field", path: base + "/follow", body: map[string]interface{}{"optio": 1}, status: http.StatusBadRequest},
		{name: "optio not on this nexus", path: base + "/follow", body: map[string]interface{}{"optioId": 9}, status: http.StatusBadRequest},
		{name: "unknown session", path: "/api/v1/sessions/nope/follow", body: map[string]interface{}{"optioId": 1}, status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestGetNexus(t *testing.T) {
	api := newTestAPI(t, false, RouterConfig{})

	rec := api.do(t, http.MethodGet, "/api/v1/nexus/0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Enter the forest")

	rec = api.do(t, http.MethodGet, "/api/v1/nexus/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(pkgerrors.ErrorTypeValidation), errorType(t, rec))
}

func TestContribute(t *testing.T) {
	api := newTestAPI(t, true, RouterConfig{})
	api.writer.On("Contribute", mock.Anything, "A new beginning", mock.Anything).
		Return(&mocks.FakePendingTx{TxHash: "0x01"}, nil)
	api.reader.On("NexusCount", mock.Anything).Return(uint64(3), nil)

	rec := api.do(t, http.MethodPost, "/api/v1/nexus", map[string]string{"content": "A new beginning"})

	require.Equal(t, http.StatusOK, rec.Code)
	var result bus.CommandResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, []string{"0x01"}, result.TxHashes)
}

func TestContribute_WithoutWallet(t *testing.T) {
	api := newTestAPI(t, false, RouterConfig{})

	rec := api.do(t, http.MethodPost, "/api/v1/nexus", map[string]string{"content": "A new beginning"})

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Equal(t, string(pkgerrors.ErrorTypeWallet), errorType(t, rec))
}

func TestBind_RequiresOrigin(t *testing.T) {
	api := newTestAPI(t, true, RouterConfig{})

	rec := api.do(t, http.MethodPost, "/api/v1/optios", map[string]interface{}{
		"content":       "Go left",
		"destinationId": 1,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	api.writer.AssertNotCalled(t, "Bind", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTreasury(t *testing.T) {
	api := newTestAPI(t, true, RouterConfig{})
	oneEther := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	api.treasury.On("CurrentBid", mock.Anything).Return(oneEther, nil)
	api.treasury.On("Fiscus", mock.Anything).Return(new(big.Int).Mul(oneEther, big.NewInt(10)), nil)
	api.treasury.On("Summa", mock.Anything, account).Return(big.NewInt(0), nil)
	api.treasury.On("BalanceOf", mock.Anything, account).Return(big.NewInt(0), nil)
	api.treasury.On("NameOf", mock.Anything, account).Return("alice", nil)

	rec := api.do(t, http.MethodGet, "/api/v1/treasury", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var result map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "1", result["currentBid"])
	assert.Equal(t, "1", result["pot"])
	assert.Equal(t, "alice", result["name"])
}

func TestWriteRateLimit(t *testing.T) {
	api := newTestAPI(t, false, RouterConfig{WriteRateLimit: 0.001, WriteBurst: 1})
	body := map[string]string{"content": "A new beginning"}

	first := api.do(t, http.MethodPost, "/api/v1/nexus", body)
	second := api.do(t, http.MethodPost, "/api/v1/nexus", body)

	assert.Equal(t, http.StatusPreconditionFailed, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, http.StatusOK, api.do(t, http.MethodGet, "/api/v1/nexus/0", nil).Code, "reads are not limited")
}
