package authn

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// jwksCache holds the identity provider's published key set with a
// TTL-bounded, single-flight refresh (§5: "JWKS cache: TTL-bounded;
// refresh is single-flight"), grounded on the teacher's DecryptToken
// idiom in authn/utils.go but sourcing keys remotely instead of from a
// shared HMAC secret, matching a real Keycloak-style deployment.
type jwksCache struct {
	url   string
	realm string
	ttl   time.Duration

	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	fetched time.Time
	group   singleflight.Group
	client  *http.Client
}

func newJWKSCache(baseURL, realm string, ttl time.Duration) *jwksCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &jwksCache{
		url:    baseURL,
		realm:  realm,
		ttl:    ttl,
		keys:   make(map[string]*rsa.PublicKey),
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksResponse struct {
	Keys []jwk `json:"keys"`
}

func (c *jwksCache) key(kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	stale := time.Since(c.fetched) > c.ttl
	k, ok := c.keys[kid]
	c.mu.RUnlock()
	if ok && !stale {
		return k, nil
	}

	_, err, _ := c.group.Do("refresh", func() (interface{}, error) {
		return nil, c.refresh()
	})
	if err != nil {
		if ok {
			// Degrade to the stale key rather than fail every request
			// while the identity provider is unreachable.
			return k, nil
		}
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	k, ok = c.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown key id %q", kid)
	}
	return k, nil
}

func (c *jwksCache) refresh() error {
	endpoint := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs", c.url, c.realm)
	resp, err := c.client.Get(endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks endpoint returned %d", resp.StatusCode)
	}
	var parsed jwksResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return err
	}

	keys := make(map[string]*rsa.PublicKey, len(parsed.Keys))
	for _, k := range parsed.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := decodeRSAPublicKey(k.N, k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}

	c.mu.Lock()
	c.keys = keys
	c.fetched = time.Now()
	c.mu.Unlock()
	return nil
}

func decodeRSAPublicKey(nStr, eStr string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nStr)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(eStr)
	if err != nil {
		return nil, err
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}
