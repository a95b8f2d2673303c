package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// ErrUnauthorized is returned when a bearer token is missing or fails verification.
var ErrUnauthorized = errors.New("unauthorized")

// Claims are the ID token claims issued by a Cognito user pool.
type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	TokenUse string `json:"token_use"`
}

// Verifier checks RS256 ID tokens issued by a user pool.
type Verifier struct {
	issuer   string
	clientID string
	keys     *KeyCache
}

// CognitoIssuer returns the issuer URL of a Cognito user pool.
func CognitoIssuer(region, userPoolID string) string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", region, userPoolID)
}

// NewVerifier creates a verifier for tokens from issuer. When clientID is set the
// audience claim must match it. Keys are read from issuer + "/.well-known/jwks.json".
func NewVerifier(issuer, clientID string, keys *KeyCache) *Verifier {
	return &Verifier{
		issuer:   strings.TrimSuffix(issuer, "/"),
		clientID: clientID,
		keys:     keys,
	}
}

// Verify validates tokenString and returns the caller identity.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	}
	if v.clientID != "" {
		opts = append(opts, jwt.WithAudience(v.clientID))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, errors.New("missing kid")
		}
		return v.keys.GetKey(ctx, v.issuer+"/.well-known/jwks.json", kid)
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	if claims.TokenUse != "id" {
		return nil, fmt.Errorf("%w: token_use %q is not an id token", ErrUnauthorized, claims.TokenUse)
	}

	if claims.Email == "" {
		return nil, fmt.Errorf("%w: missing email claim", ErrUnauthorized)
	}

	return &Identity{Subject: claims.Subject, Email: claims.Email}, nil
}

// Middleware returns an HTTP middleware that verifies bearer ID tokens and
// stores the caller identity in the request context.
func (v *Verifier) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractBearerToken(r)
			if tokenString == "" {
				log.Warn().Msg("Missing Authorization header")
				writeUnauthorized(w)
				return
			}

			id, err := v.Verify(r.Context(), tokenString)
			if err != nil {
				log.Warn().Err(err).Msg("Failed to verify ID token")
				writeUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}

// extractBearerToken extracts the JWT from the Authorization header.
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return parts[1]
}
