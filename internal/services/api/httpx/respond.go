package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/NordCoder/Stockpulse/internal/domain"
	"github.com/NordCoder/Stockpulse/internal/obs"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error maps a domain error class to its status code. Auth failures always
// read "unauthorized" so callers cannot tell why a credential was refused.
// Server-side failures carry the trace id so they can be found in the logs.
func Error(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status, msg := classify(err)
	body := errorBody{Error: msg}
	if status >= http.StatusInternalServerError {
		body.TraceID = obs.TraceID(r.Context())
		if log != nil {
			obs.WithTrace(r.Context(), log).Error("request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Error(err),
			)
		}
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	JSON(w, status, body)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, err.Error()
	case domain.IsRetryable(err):
		return http.StatusServiceUnavailable, "service unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// Decode reads a JSON body into v. Malformed or oversized bodies are validation errors.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Validation("request body is empty")
		}
		return domain.Validation("malformed request body")
	}
	return nil
}

type Message struct {
	Message string `json:"message"`
}
