package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func claimsEcho(got *Claims) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, _ := ClaimsFromContext(r.Context())
		*got = c
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestJWTAuth(t *testing.T) {
	valid := signToken(t, testSecret, jwt.MapClaims{
		"user_id": "u-1", "email": "ada@example.com", "name": "Ada", "role": "customer",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	subOnly := signToken(t, testSecret, jwt.MapClaims{"sub": "u-2", "exp": time.Now().Add(time.Hour).Unix()})
	expired := signToken(t, testSecret, jwt.MapClaims{"user_id": "u-1", "exp": time.Now().Add(-time.Minute).Unix()})
	wrongKey := signToken(t, "other", jwt.MapClaims{"user_id": "u-1"})
	noSubject := signToken(t, testSecret, jwt.MapClaims{"email": "x@example.com"})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   string
	}{
		{"valid token", "Bearer " + valid, http.StatusNoContent, "u-1"},
		{"lowercase scheme", "bearer " + valid, http.StatusNoContent, "u-1"},
		{"sub fallback", "Bearer " + subOnly, http.StatusNoContent, "u-2"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, ""},
		{"bad signature", "Bearer " + wrongKey, http.StatusUnauthorized, ""},
		{"no subject", "Bearer " + noSubject, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Claims
			h := JWTAuth(testSecret, testLogger())(claimsEcho(&got))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantUser, got.UserID)
		})
	}
}

func TestParseToken_ReadsProfileClaims(t *testing.T) {
	tok := signToken(t, testSecret, jwt.MapClaims{"user_id": "u-1", "email": "ada@example.com", "name": "Ada", "role": "admin"})

	c, err := ParseToken(tok, []byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, Claims{UserID: "u-1", Email: "ada@example.com", Name: "Ada", Role: "admin"}, c)
	assert.True(t, c.IsAdmin())
}

func TestParseToken_RejectsNoneAlgorithm(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": "u-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseToken(tok, []byte(testSecret))
	assert.Error(t, err)
}

func TestRequireAdmin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := RequireAdmin(testLogger())(next)

	tests := []struct {
		name   string
		claims *Claims
		want   int
	}{
		{"admin", &Claims{UserID: "u-1", Role: RoleAdmin}, http.StatusOK},
		{"customer", &Claims{UserID: "u-2", Role: "customer"}, http.StatusForbidden},
		{"anonymous", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/products", nil)
			if tt.claims != nil {
				req = req.WithContext(WithClaims(req.Context(), *tt.claims))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
