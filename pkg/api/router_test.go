package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/pillbox/pkg/api/types"
	"github.com/urmzd/pillbox/pkg/arduino"
	"github.com/urmzd/pillbox/pkg/db"
	"github.com/urmzd/pillbox/pkg/device"
	"github.com/urmzd/pillbox/pkg/device/schema"
)

type testEnv struct {
	router    *Router
	dispenser *device.Dispenser
	database  *db.DB
	profileID int64
}

func newTestEnv(t *testing.T, link device.Link) *testEnv {
	t.Helper()
	ctx := context.Background()

	database, err := db.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, database.Migrate(ctx))
	require.NoError(t, database.Bootstrap(ctx))
	cfg, err := database.ActiveConfig(ctx)
	require.NoError(t, err)

	d := device.ConnectOrSimulate(ctx, link, device.Options{})
	t.Cleanup(d.Shutdown)

	return &testEnv{
		router:    NewRouter(d, d, schema.NewValidator(), database.CommandLog(), cfg.Profile.ID),
		dispenser: d,
		database:  database,
		profileID: cfg.Profile.ID,
	}
}

func serialLink(responder arduino.Responder) device.Link {
	mem := arduino.NewMemoryLink(responder)
	return arduino.NewSession(arduino.Config{
		ReadTimeout: 5 * time.Millisecond,
		AckTimeout:  50 * time.Millisecond,
		Opener:      mem.Opener(),
	})
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth_Simulated(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decode[types.HealthResponse](t, rec)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "simulated", resp.Controller)
}

func TestHealth_Connected(t *testing.T) {
	env := newTestEnv(t, serialLink(arduino.Reply("OK\n")))

	rec := env.do(t, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "connected", decode[types.HealthResponse](t, rec).Controller)
}

func TestControl_OpenThenAlreadyOpen(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/dispenser/control", `{"action":"open","scheduled":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[types.ControlResponse](t, rec)
	assert.True(t, resp.Succeeded)
	assert.True(t, resp.Status.IsOpen)
	assert.True(t, resp.Status.AutoCloseArmed)
	require.NotNil(t, resp.Status.AutoCloseAt)

	rec = env.do(t, http.MethodPost, "/api/v1/dispenser/control", `{"action":"open","compartment":2}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	resp = decode[types.ControlResponse](t, rec)
	assert.False(t, resp.Succeeded)
	assert.True(t, resp.AlreadyOpen)

	rec = env.do(t, http.MethodGet, "/api/v1/dispenser/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[types.StatusResponse](t, rec).IsOpen)
}

func TestControl_CloseWhenClosed(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/dispenser/control", `{"action":"close"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.True(t, decode[types.ControlResponse](t, rec).AlreadyClosed)
}

func TestControl_ValidationErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, body := range []string{
		``,
		`{"action":"ouvrir"}`,
		`{"action":"open","compartment":0}`,
		`{"action":"open","motor":1}`,
		`not json`,
	} {
		rec := env.do(t, http.MethodPost, "/api/v1/dispenser/control", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
	assert.False(t, env.dispenser.Status().IsOpen)
}

func TestControl_RejectedAndTimeout(t *testing.T) {
	env := newTestEnv(t, serialLink(arduino.Reply("ERROR\n")))
	rec := env.do(t, http.MethodPost, "/api/v1/dispenser/control", `{"action":"open"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "command_rejected", decode[types.ErrorResponse](t, rec).Error)

	env = newTestEnv(t, serialLink(arduino.Silent()))
	rec = env.do(t, http.MethodPost, "/api/v1/dispenser/control", `{"action":"open"}`)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.False(t, env.dispenser.Status().IsOpen)
}

func TestCheckAutoClose_NothingDue(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/v1/dispenser/control", `{"action":"open","scheduled":true}`)

	rec := env.do(t, http.MethodPost, "/api/v1/dispenser/auto-close/check", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[types.AutoCloseCheckResponse](t, rec)
	assert.False(t, resp.Closed)
	assert.True(t, resp.Status.IsOpen)
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	evt := device.NewEvent(device.EventOpened, device.Command{Compartment: 1, Action: device.ActionOpen}, device.SourceOperator, time.Now())
	require.NoError(t, env.database.CommandLog().Record(ctx, env.profileID, evt))

	rec := env.do(t, http.MethodGet, "/api/v1/dispenser/history?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[types.HistoryResponse](t, rec)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, evt.ID, resp.Entries[0].ID)

	rec = env.do(t, http.MethodGet, "/api/v1/dispenser/history?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/v1/dispenser/history?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvents_StreamsCommandOutcome(t *testing.T) {
	env := newTestEnv(t, nil)
	server := httptest.NewServer(env.router.Handler())
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/dispenser/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	buf := make([]byte, 4096)
	n, err := resp.Body.Read(buf)
	require.NoError(t, err)
	require.Contains(t, string(buf[:n]), "event: connected")

	require.True(t, env.dispenser.Open(context.Background(), 1, false).Succeeded)

	var got strings.Builder
	require.Eventually(t, func() bool {
		n, err := resp.Body.Read(buf)
		if err != nil {
			return true
		}
		got.Write(buf[:n])
		return strings.Contains(got.String(), "event: opened")
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, got.String(), `"compartment":1`)
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/dispenser/status", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dispenser/status", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	env.router.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}
