package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func authProbe(t *testing.T, header string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var gotUser string
	h := Auth(testSecret, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserID(r)
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/conversation", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, gotUser
}

func TestAuthValidToken(t *testing.T) {
	rec, user := authProbe(t, "Bearer "+signToken(t, testSecret, "u42"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "u42", user)
}

func TestAuthMissingHeader(t *testing.T) {
	rec, _ := authProbe(t, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMalformedHeader(t *testing.T) {
	rec, _ := authProbe(t, "Basic abc")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthWrongSecret(t *testing.T) {
	rec, _ := authProbe(t, "Bearer "+signToken(t, "other-secret", "u42"))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthExpiredToken(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u42",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	rec, _ := authProbe(t, "Bearer "+signed)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthNoSubject(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	rec, _ := authProbe(t, "Bearer "+signed)
	require.Equal(t, http.StatusForbidden, rec.Code)
}
