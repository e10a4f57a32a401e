package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*fixture, http.Handler) {
	t.Helper()
	f := newFixture(t)
	r := mux.NewRouter()
	NewServer(f.uc, Opts{}).Routes(r)
	return f, r
}

func do(t *testing.T, h http.Handler, method, path, body, bearer string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func TestHTTP_RegisterLoginRefreshLogout(t *testing.T) {
	f, h := newTestRouter(t)

	code, body := do(t, h, http.MethodPost, "/auth/register",
		`{"username":"alice","password":"password1","email":"alice@example.com","full_name":"Alice"}`, "")
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, "standard_user", body["role"])
	require.NotEmpty(t, body["user_id"])

	code, _ = do(t, h, http.MethodPost, "/auth/register",
		`{"username":"alice","password":"password2","email":"a2@example.com"}`, "")
	require.Equal(t, http.StatusConflict, code)

	code, body = do(t, h, http.MethodPost, "/auth/login", `{"username":"alice","password":"password1"}`, "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Bearer", body["token_type"])
	require.Equal(t, "alice", body["user"].(map[string]any)["username"])
	a1 := body["access_token"].(string)
	r1 := body["refresh_token"].(string)

	f.clk.Advance(time.Second)
	code, body = do(t, h, http.MethodPost, "/auth/refresh", "", r1)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, r1, body["refresh_token"])
	require.NotEqual(t, a1, body["access_token"])

	code, body = do(t, h, http.MethodPost, "/auth/refresh", "", a1)
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, "unauthorized", body["error"])

	code, body = do(t, h, http.MethodPost, "/auth/logout", "", r1)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Logout successful", body["message"])

	code, _ = do(t, h, http.MethodPost, "/auth/refresh", "", r1)
	require.Equal(t, http.StatusUnauthorized, code)
}

func TestHTTP_LoginFailuresLookAlike(t *testing.T) {
	f, h := newTestRouter(t)
	f.register(t, "alice", "password1")

	code1, body1 := do(t, h, http.MethodPost, "/auth/login", `{"username":"alice","password":"nope-nope"}`, "")
	code2, body2 := do(t, h, http.MethodPost, "/auth/login", `{"username":"ghost","password":"nope-nope"}`, "")
	require.Equal(t, http.StatusUnauthorized, code1)
	require.Equal(t, code1, code2)
	require.Equal(t, body1, body2)
}

func TestHTTP_MalformedAuthorizationHeader(t *testing.T) {
	_, h := newTestRouter(t)
	for _, hdr := range []string{"", "Bearer", "Basic abc", "Bearer a b"} {
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
		if hdr != "" {
			req.Header.Set("Authorization", hdr)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code, hdr)
	}
}

func TestHTTP_RegisterBadInput(t *testing.T) {
	_, h := newTestRouter(t)

	code, body := do(t, h, http.MethodPost, "/auth/register", `{"username":"alice","password":"password1","email":"nope"}`, "")
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, body["error"], "email")

	code, _ = do(t, h, http.MethodPost, "/auth/register", `not json`, "")
	require.Equal(t, http.StatusBadRequest, code)
}
