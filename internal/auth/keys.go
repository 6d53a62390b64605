package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GoogleCertsURL publishes the x509 certificates that sign Firebase ID tokens.
const GoogleCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

const (
	defaultKeyTTL     = time.Hour
	minRefreshBackoff = time.Minute
)

var maxAgeRe = regexp.MustCompile(`max-age=(\d+)`)

// CertKeySource fetches and caches the signing certificates for as long as
// the endpoint's Cache-Control allows. An unknown key id triggers a refresh,
// at most once per minute while the cached set is still fresh. Cached keys
// stay readable while a refresh is in flight.
type CertKeySource struct {
	url    string
	client *http.Client
	now    func() time.Time

	fetchMu sync.Mutex // serializes refreshes

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	expiresAt time.Time
	fetchedAt time.Time
}

// NewCertKeySource creates a key source reading certificates from url.
func NewCertKeySource(url string, client *http.Client) *CertKeySource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &CertKeySource{url: url, client: client, now: time.Now}
}

// Key returns the public key for kid.
func (s *CertKeySource) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	key, ok, due, seen := s.lookup(kid)
	if ok {
		return key, nil
	}
	if due {
		if err := s.refresh(ctx, seen); err != nil {
			return nil, err
		}
		if key, ok, _, _ = s.lookup(kid); ok {
			return key, nil
		}
	}
	return nil, fmt.Errorf("unknown signing key %q", kid)
}

// lookup returns the cached key if the set is fresh, whether a refresh is
// due, and the fetch time the answer is based on.
func (s *CertKeySource) lookup(kid string) (*rsa.PublicKey, bool, bool, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	fresh := now.Before(s.expiresAt)
	if key, ok := s.keys[kid]; ok && fresh {
		return key, true, false, s.fetchedAt
	}
	due := !fresh || now.Sub(s.fetchedAt) >= minRefreshBackoff
	return nil, false, due, s.fetchedAt
}

// refresh downloads the certificate set unless another caller already
// replaced the set read at seen.
func (s *CertKeySource) refresh(ctx context.Context, seen time.Time) error {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	s.mu.RLock()
	done := !s.fetchedAt.Equal(seen)
	s.mu.RUnlock()
	if done {
		return nil
	}

	keys, ttl, err := s.fetch(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.keys = keys
	s.fetchedAt = now
	s.expiresAt = now.Add(ttl)
	return nil
}

func (s *CertKeySource) fetch(ctx context.Context) (map[string]*rsa.PublicKey, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch signing keys: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("fetch signing keys: unexpected status %d", resp.StatusCode)
	}

	var certs map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&certs); err != nil {
		return nil, 0, fmt.Errorf("decode signing keys: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, pem := range certs {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
		if err != nil {
			return nil, 0, fmt.Errorf("parse signing key %q: %w", kid, err)
		}
		keys[kid] = key
	}
	return keys, cacheTTL(resp.Header.Get("Cache-Control")), nil
}

func cacheTTL(header string) time.Duration {
	m := maxAgeRe.FindStringSubmatch(header)
	if m == nil {
		return defaultKeyTTL
	}
	secs, err := strconv.Atoi(m[1])
	if err != nil || secs <= 0 {
		return defaultKeyTTL
	}
	return time.Duration(secs) * time.Second
}

// StaticKeys is a fixed key set, useful for tests and local emulators.
type StaticKeys map[string]*rsa.PublicKey

// Key returns the key registered under kid.
func (k StaticKeys) Key(_ context.Context, kid string) (*rsa.PublicKey, error) {
	if key, ok := k[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("unknown signing key %q", kid)
}
