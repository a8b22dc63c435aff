package opshttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"spotbot/internal/trader"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	status    trader.Status
	resumeErr error
	pauseErr  error
	operators []string
	reasons   []string
}

func (f *fakeController) Snapshot() trader.Status { return f.status }

func (f *fakeController) Resume(_ context.Context, operator string) error {
	f.operators = append(f.operators, operator)
	return f.resumeErr
}

func (f *fakeController) Pause(_ context.Context, reason string) error {
	f.reasons = append(f.reasons, reason)
	return f.pauseErr
}

func serve(t *testing.T, ctl Controller, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	srv, err := NewServer("", ctl)
	require.NoError(t, err)
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := serve(t, &fakeController{}, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStatusReturnsSnapshot(t *testing.T) {
	ctl := &fakeController{status: trader.Status{
		Symbol:     "BTCUSDT",
		KillSwitch: trader.KillSwitchState{Paused: true, TripReason: "drawdown"},
	}}
	rec := serve(t, ctl, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got trader.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "BTCUSDT", got.Symbol)
	assert.True(t, got.KillSwitch.Paused)
	assert.Equal(t, "drawdown", got.KillSwitch.TripReason)
}

func TestResume(t *testing.T) {
	ctl := &fakeController{}
	rec := serve(t, ctl, http.MethodPost, "/api/resume", `{"operator":"alice"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"alice"}, ctl.operators)

	rec = serve(t, ctl, http.MethodPost, "/api/resume", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ctl.operators, 2)
	assert.True(t, strings.HasPrefix(ctl.operators[1], "http:"))
}

func TestResumeErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not paused", trader.ErrNotPaused, http.StatusConflict},
		{"stopped", trader.ErrStopped, http.StatusServiceUnavailable},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, &fakeController{resumeErr: tt.err}, http.MethodPost, "/api/resume", "")
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestResumeRejectsBadJSON(t *testing.T) {
	ctl := &fakeController{}
	rec := serve(t, ctl, http.MethodPost, "/api/resume", `{"operator":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, ctl.operators)
}

func TestPauseDefaultsReason(t *testing.T) {
	ctl := &fakeController{}
	rec := serve(t, ctl, http.MethodPost, "/api/pause", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, ctl, http.MethodPost, "/api/pause", `{"reason":"maintenance"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"manual", "maintenance"}, ctl.reasons)
}

func TestNewServerRequiresController(t *testing.T) {
	_, err := NewServer(":0", nil)
	assert.Error(t, err)
}
