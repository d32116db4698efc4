package agent

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ml4ch/CoSESWeather/internal/services"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{
		BaseURL:          srv.URL,
		Token:            "station-token",
		Timeout:          2 * time.Second,
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
	}, zap.NewNop()), srv
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestClient_NextCommand(t *testing.T) {
	var auth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.Equal(t, nextCommandPath, r.URL.Path)
		writeJSON(w, http.StatusOK, `{"error":false,"tag":"__SUCCESS","message":"","data":{"cmd":"System restart"}}`)
	})

	action, ok, err := client.NextCommand(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, services.ActionRestart, action)
	assert.Equal(t, "Bearer station-token", auth)
}

func TestClient_NoCommands(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"error":false,"tag":"_NO_COMMANDS","message":"No pending commands"}`)
	})

	action, ok, err := client.NextCommand(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, action)
}

func TestClient_UnexpectedTag(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"error":false,"tag":"__SUCCESS","message":""}`)
	})

	_, _, err := client.NextCommand(context.Background())
	assert.ErrorIs(t, err, errUnexpectedTag)
}

func TestClient_BreakerOpens(t *testing.T) {
	var hits atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusServiceUnavailable, `{"error":true,"tag":"ERROR_STORAGE","message":"Storage unavailable"}`)
	})

	for i := 0; i < 2; i++ {
		_, _, err := client.NextCommand(context.Background())
		require.ErrorIs(t, err, errUnexpectedStatus)
	}
	_, _, err := client.NextCommand(context.Background())
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_LostResponseIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	client := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, zap.NewNop())
	_, _, err := client.NextCommand(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

type queuePoller struct {
	actions []string
	err     error
}

func (p *queuePoller) NextCommand(context.Context) (string, bool, error) {
	if len(p.actions) == 0 {
		return "", false, p.err
	}
	action := p.actions[0]
	p.actions = p.actions[1:]
	return action, true, nil
}

type recordingExecutor struct {
	ran  []string
	fail bool
}

func (e *recordingExecutor) Run(_ context.Context, action string) error {
	e.ran = append(e.ran, action)
	if e.fail {
		return errors.New("boom")
	}
	return nil
}

func TestAgent_TickDrainsQueue(t *testing.T) {
	poller := &queuePoller{actions: []string{services.ActionReset, services.ActionRestart}}
	exec := &recordingExecutor{}
	a := New(poller, exec, time.Second, time.Second, zap.NewNop())

	n := a.Tick(context.Background())
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{services.ActionReset, services.ActionRestart}, exec.ran)
	assert.Equal(t, 0, a.Tick(context.Background()))
}

func TestAgent_TickContinuesAfterExecutorFailure(t *testing.T) {
	poller := &queuePoller{actions: []string{services.ActionReset, services.ActionReset}}
	exec := &recordingExecutor{fail: true}
	a := New(poller, exec, time.Second, time.Second, zap.NewNop())

	assert.Equal(t, 2, a.Tick(context.Background()))
	assert.Len(t, exec.ran, 2)
}

func TestAgent_TickStopsOnPollError(t *testing.T) {
	poller := &queuePoller{err: ErrCircuitOpen}
	exec := &recordingExecutor{}
	a := New(poller, exec, time.Second, time.Second, zap.NewNop())

	assert.Equal(t, 0, a.Tick(context.Background()))
	assert.Empty(t, exec.ran)
}

func TestAgent_TickIsBounded(t *testing.T) {
	actions := make([]string, maxPerTick+5)
	for i := range actions {
		actions[i] = services.ActionReset
	}
	poller := &queuePoller{actions: actions}
	a := New(poller, &recordingExecutor{}, time.Second, time.Second, zap.NewNop())

	assert.Equal(t, maxPerTick, a.Tick(context.Background()))
	assert.Len(t, poller.actions, 5)
}

func TestShellExecutor(t *testing.T) {
	e := NewShellExecutor("true", "echo restarting; exit 3", zap.NewNop())

	require.NoError(t, e.Run(context.Background(), services.ActionReset))

	err := e.Run(context.Background(), services.ActionRestart)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "restarting")

	assert.Error(t, e.Run(context.Background(), "Format disk"))

	unset := NewShellExecutor("", "", zap.NewNop())
	assert.NoError(t, unset.Run(context.Background(), services.ActionRestart))
}
