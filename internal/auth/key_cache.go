package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// KeyCache fetches RSA signing keys from a JWKS endpoint.
// The http client is expected to honour Cache-Control, keys are additionally held
// in memory for ttl so most requests never touch the network.
type KeyCache struct {
	httpClient *http.Client
	ttl        time.Duration

	mu    sync.RWMutex
	cache map[string]*cachedJWKS
}

type cachedJWKS struct {
	keys      map[string]*rsa.PublicKey // kid → public key
	expiresAt time.Time
}

// NewKeyCache creates a new key cache.
func NewKeyCache(httpClient *http.Client, ttl time.Duration) *KeyCache {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 10 * time.Second,
		}
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &KeyCache{
		httpClient: httpClient,
		ttl:        ttl,
		cache:      make(map[string]*cachedJWKS),
	}
}

// GetKey returns the public key with the given kid published at jwksURL.
// An unknown kid forces a refresh, which handles signing key rotation.
func (c *KeyCache) GetKey(ctx context.Context, jwksURL, kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	cached, ok := c.cache[jwksURL]
	c.mu.RUnlock()

	if ok && time.Now().Before(cached.expiresAt) {
		if key, ok := cached.keys[kid]; ok {
			return key, nil
		}
	}

	log.Debug().Str("jwks_url", jwksURL).Msg("Fetching JWKS")

	keys, err := c.fetch(ctx, jwksURL)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[jwksURL] = &cachedJWKS{
		keys:      keys,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()

	key, ok := keys[kid]
	if !ok {
		return nil, fmt.Errorf("kid not found in JWKS: %s", kid)
	}

	log.Info().Str("kid", kid).Int("total_keys", len(keys)).Msg("Cached JWKS")
	return key, nil
}

func (c *KeyCache) fetch(ctx context.Context, jwksURL string) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS request failed: %s", resp.Status)
	}

	var jwks struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("failed to decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, k := range jwks.Keys {
		if k.Kid == "" {
			log.Warn().Msg("JWK missing kid")
			continue
		}

		key, err := k.rsaPublicKey()
		if err != nil {
			log.Warn().Err(err).Str("kid", k.Kid).Msg("Failed to parse JWK")
			continue
		}

		keys[k.Kid] = key
	}

	return keys, nil
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// rsaPublicKey converts the modulus and exponent of an RSA JWK.
func (k jwk) rsaPublicKey() (*rsa.PublicKey, error) {
	if k.Kty != "RSA" {
		return nil, fmt.Errorf("unsupported key type: %s", k.Kty)
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("failed to decode n: %w", err)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("failed to decode e: %w", err)
	}

	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() < 2 || e.Int64() > 1<<31-1 {
		return nil, errors.New("invalid exponent")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(e.Int64()),
	}, nil
}
