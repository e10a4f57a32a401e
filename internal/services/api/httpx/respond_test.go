package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/NordCoder/Stockpulse/internal/domain"
	"github.com/NordCoder/Stockpulse/internal/domain/user"
)

func TestError_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"validation", domain.Validation("username: cannot be blank"), http.StatusBadRequest, "username: cannot be blank"},
		{"unauthorized is uniform", fmt.Errorf("%w: token expired", domain.ErrUnauthorized), http.StatusUnauthorized, "unauthorized"},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"not found", user.ErrNotFound, http.StatusNotFound, "user not found"},
		{"conflict", user.ErrUsernameTaken, http.StatusConflict, "username already taken"},
		{"retryable infra", domain.Infra("user get", context.DeadlineExceeded), http.StatusServiceUnavailable, "service unavailable"},
		{"infra", domain.Infra("user get", errors.New("conn reset")), http.StatusInternalServerError, "internal error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil, tc.err)

			require.Equal(t, tc.status, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, tc.msg, body["error"])
		})
	}
}

func TestError_LogsServerFailuresOnly(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	Error(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users", nil), log, domain.ErrForbidden)
	require.Zero(t, logs.Len())

	Error(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users", nil), log, errors.New("db gone"))
	require.Equal(t, 1, logs.FilterMessage("request failed").Len())
}

func TestError_ServerFailureCarriesTraceID(t *testing.T) {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0xa, 0xb},
		SpanID:     trace.SpanID{0xc},
		TraceFlags: trace.FlagsSampled,
	})
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req = req.WithContext(trace.ContextWithSpanContext(req.Context(), sc))

	rec := httptest.NewRecorder()
	Error(rec, req, nil, errors.New("db gone"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, sc.TraceID().String(), body["trace_id"])

	rec = httptest.NewRecorder()
	Error(rec, req, nil, domain.ErrForbidden)
	body = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotContains(t, body, "trace_id")
}

func TestDecode(t *testing.T) {
	var v struct {
		Username string `json:"username"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"alice"}`))
	require.NoError(t, Decode(r, &v))
	require.Equal(t, "alice", v.Username)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	require.ErrorIs(t, Decode(r, &v), domain.ErrValidation)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":1}`))
	require.ErrorIs(t, Decode(r, &v), domain.ErrValidation)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"role":"admin"}`))
	require.ErrorIs(t, Decode(r, &v), domain.ErrValidation)
}
