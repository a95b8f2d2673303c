package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

type testIssuer struct {
	server   *httptest.Server
	key      *rsa.PrivateKey
	kid      string
	requests atomic.Int32
}

func newTestIssuer(t *testing.T) *testIssuer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	ti := &testIssuer{key: key, kid: "test-kid"}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/jwks.json", func(w http.ResponseWriter, r *http.Request) {
		ti.requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{
				{
					"kty": "RSA",
					"kid": ti.kid,
					"alg": "RS256",
					"use": "sig",
					"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
					"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
				},
			},
		})
	})

	ti.server = httptest.NewServer(mux)
	t.Cleanup(ti.server.Close)

	return ti
}

func (ti *testIssuer) sign(t *testing.T, claims Claims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = ti.kid

	signed, err := token.SignedString(ti.key)
	require.NoError(t, err)
	return signed
}

func (ti *testIssuer) claims(email string) Claims {
	now := time.Now()
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ti.server.URL,
			Subject:   "sub-123",
			Audience:  jwt.ClaimStrings{"client-1"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Email:    email,
		TokenUse: "id",
	}
}

func TestVerifier_Verify(t *testing.T) {
	ti := newTestIssuer(t)
	v := NewVerifier(ti.server.URL, "client-1", NewKeyCache(nil, time.Hour))
	ctx := context.Background()

	t.Run("valid id token", func(t *testing.T) {
		id, err := v.Verify(ctx, ti.sign(t, ti.claims("Ada@x.com")))
		require.NoError(t, err)
		require.Equal(t, "Ada@x.com", id.Email)
		require.Equal(t, "sub-123", id.Subject)
	})

	t.Run("keys are cached", func(t *testing.T) {
		before := ti.requests.Load()
		_, err := v.Verify(ctx, ti.sign(t, ti.claims("a@x.com")))
		require.NoError(t, err)
		require.Equal(t, before, ti.requests.Load())
	})

	tests := []struct {
		name   string
		mutate func(c *Claims)
	}{
		{"expired", func(c *Claims) { c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute)) }},
		{"wrong issuer", func(c *Claims) { c.Issuer = "https://elsewhere" }},
		{"wrong audience", func(c *Claims) { c.Audience = jwt.ClaimStrings{"other"} }},
		{"access token", func(c *Claims) { c.TokenUse = "access" }},
		{"missing email", func(c *Claims) { c.Email = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := ti.claims("a@x.com")
			tt.mutate(&claims)

			_, err := v.Verify(ctx, ti.sign(t, claims))
			require.ErrorIs(t, err, ErrUnauthorized)
		})
	}

	t.Run("wrong signing key", func(t *testing.T) {
		other, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)

		token := jwt.NewWithClaims(jwt.SigningMethodRS256, ti.claims("a@x.com"))
		token.Header["kid"] = ti.kid
		signed, err := token.SignedString(other)
		require.NoError(t, err)

		_, err = v.Verify(ctx, signed)
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("unknown kid", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, ti.claims("a@x.com"))
		token.Header["kid"] = "rotated"
		signed, err := token.SignedString(ti.key)
		require.NoError(t, err)

		_, err = v.Verify(ctx, signed)
		require.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestVerifier_Middleware(t *testing.T) {
	ti := newTestIssuer(t)
	v := NewVerifier(ti.server.URL, "", NewKeyCache(nil, time.Hour))

	var seen *Identity
	handler := v.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer "+ti.sign(t, ti.claims("ada@x.com")))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.NotNil(t, seen)
		require.Equal(t, "ada@x.com", seen.Email)
	})
}

func TestCognitoIssuer(t *testing.T) {
	require.Equal(t,
		"https://cognito-idp.ap-southeast-2.amazonaws.com/ap-southeast-2_abc",
		CognitoIssuer("ap-southeast-2", "ap-southeast-2_abc"),
	)
}
