package jwt_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patronhq/creatorkit/pkg/jwt"
)

func TestGenerateAndParse(t *testing.T) {
	svc, err := jwt.NewFromString("test-signing-key-at-least-32-bytes!")
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		in := jwt.StandardClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
		}

		token, err := svc.Generate(in)
		require.NoError(t, err)

		var out jwt.StandardClaims
		require.NoError(t, svc.Parse(token, &out))
		assert.Equal(t, in.Subject, out.Subject)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		token, err := svc.Generate(jwt.StandardClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: time.Now().Add(-time.Minute).Unix(),
		})
		require.NoError(t, err)

		var out jwt.StandardClaims
		require.ErrorIs(t, svc.Parse(token, &out), jwt.ErrExpiredToken)
	})

	t.Run("tampered token rejected", func(t *testing.T) {
		token, err := svc.Generate(jwt.StandardClaims{Subject: uuid.NewString()})
		require.NoError(t, err)

		var out jwt.StandardClaims
		require.ErrorIs(t, svc.Parse(token+"x", &out), jwt.ErrInvalidSignature)
	})

	t.Run("wrong key rejected", func(t *testing.T) {
		other, err := jwt.NewFromString("another-key-that-is-also-32-bytes!!")
		require.NoError(t, err)

		token, err := svc.Generate(jwt.StandardClaims{Subject: uuid.NewString()})
		require.NoError(t, err)

		var out jwt.StandardClaims
		require.ErrorIs(t, other.Parse(token, &out), jwt.ErrInvalidSignature)
	})

	t.Run("empty signing key rejected", func(t *testing.T) {
		_, err := jwt.NewFromString("")
		require.ErrorIs(t, err, jwt.ErrMissingSigningKey)
	})
}

func TestMiddleware(t *testing.T) {
	svc, err := jwt.NewFromString("test-signing-key-at-least-32-bytes!")
	require.NoError(t, err)

	userID := uuid.New()
	token, err := svc.Generate(jwt.StandardClaims{
		Subject:   userID.String(),
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)

	var gotCaller uuid.UUID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := jwt.CallerID(r.Context())
		require.True(t, ok)
		gotCaller = caller
		w.WriteHeader(http.StatusOK)
	})

	handler := jwt.Middleware(svc)(next)

	t.Run("valid bearer token passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, userID, gotCaller)
	})

	t.Run("missing header rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("non-uuid subject rejected", func(t *testing.T) {
		badToken, err := svc.Generate(jwt.StandardClaims{
			Subject:   "not-a-uuid",
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
		})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+badToken)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
