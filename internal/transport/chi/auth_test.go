package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serveAuth(keys []string, path, authHeader string) *httptest.ResponseRecorder {
	handler := BearerAuthMiddleware(keys)(okHandler())
	req := httptest.NewRequest(http.MethodPost, path, http.NoBody)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestAuthMiddleware_EmptyKeys_PassThrough(t *testing.T) {
	rr := serveAuth(nil, "/v1/retrieve", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAuthMiddleware_EmptyStringKeys_PassThrough(t *testing.T) {
	rr := serveAuth([]string{"", ""}, "/v1/retrieve", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		header string
		msg    string
	}{
		{"missing header", "", "missing authorization header"},
		{"wrong scheme", "Basic c2VjcmV0", "authorization header must use Bearer scheme"},
		{"unknown key", "Bearer nope", "invalid api key"},
		{"prefix of key", "Bearer sec", "invalid api key"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := serveAuth([]string{"secret"}, "/v1/retrieve", tc.header)
			require.Equal(t, http.StatusUnauthorized, rr.Code)

			var errResp ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&errResp))
			assert.Equal(t, CodeUnauthorized, errResp.Code)
			assert.Equal(t, tc.msg, errResp.Message)
		})
	}
}

func TestAuthMiddleware_ValidKey(t *testing.T) {
	keys := []string{"first", "second"}
	for _, k := range keys {
		rr := serveAuth(keys, "/v1/ask", "Bearer "+k)
		assert.Equal(t, http.StatusOK, rr.Code, "key %q", k)
	}
}

func TestAuthMiddleware_ExemptPaths(t *testing.T) {
	for _, path := range []string{"/health", "/metrics"} {
		rr := serveAuth([]string{"secret"}, path, "")
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}
