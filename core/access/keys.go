package access

import (
	"context"
	"crypto"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v4"

	"github.com/relabs-tech/drinks/core/logger"
	"github.com/relabs-tech/drinks/core/registry"
)

// ErrKeyNotFound is returned by a KeySet if it has no key for the requested key id
var ErrKeyNotFound = errors.New("key not found")

var errKeySetUnavailable = errors.New("key set unavailable, last download failed")

// KeySet is a set of trusted public keys, addressed by key id ("kid")
type KeySet interface {
	Key(ctx context.Context, kid string) (interface{}, error)
}

// StaticKeySet is a fixed key set
type StaticKeySet map[string]crypto.PublicKey

// Key returns the key for kid
func (s StaticKeySet) Key(ctx context.Context, kid string) (interface{}, error) {
	key, ok := s[kid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, kid)
	}
	return key, nil
}

// JSONWebKey is one key of a JSON Web Key Set document
type JSONWebKey struct {
	Kid string   `json:"kid"`
	Kty string   `json:"kty"`
	Alg string   `json:"alg,omitempty"`
	Use string   `json:"use,omitempty"`
	N   string   `json:"n,omitempty"`
	E   string   `json:"e,omitempty"`
	X5c []string `json:"x5c,omitempty"`
}

// JSONWebKeySet is a JSON Web Key Set document as published under
// "/.well-known/jwks.json"
type JSONWebKeySet struct {
	Keys []JSONWebKey `json:"keys"`
}

// PublicKey returns the RSA public key. The certificate chain is preferred over modulus
// and exponent.
func (k JSONWebKey) PublicKey() (*rsa.PublicKey, error) {
	if k.Kty != "RSA" {
		return nil, fmt.Errorf("unsupported key type %s", k.Kty)
	}
	if len(k.X5c) > 0 {
		cert := "-----BEGIN CERTIFICATE-----\n" + k.X5c[0] + "\n-----END CERTIFICATE-----"
		return jwt.ParseRSAPublicKeyFromPEM([]byte(cert))
	}
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}
	if len(n) == 0 || len(e) == 0 {
		return nil, errors.New("modulus or exponent missing")
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(n),
		E: int(new(big.Int).SetBytes(e).Int64()),
	}, nil
}

// RemoteKeySetBuilder is a helper builder for RemoteKeySet
type RemoteKeySetBuilder struct {
	// URL is the download url of the key set, for auth0
	// "https://{domain}/.well-known/jwks.json". Mandatory.
	URL string
	// Registry persists the downloaded key set. Optional.
	Registry *registry.Accessor
	// RefreshInterval is the maximum age of a downloaded key set. Defaults to 6 hours.
	RefreshInterval time.Duration
	// MinRefetchInterval limits downloads triggered by unknown key ids. Defaults to 1 minute.
	MinRefetchInterval time.Duration
	// Client is the http client for downloads. Defaults to a client with 10 seconds timeout.
	Client *http.Client
}

// RemoteKeySet is a key set downloaded from the identity provider. It is safe for
// concurrent use.
type RemoteKeySet struct {
	url                string
	registry           *registry.Accessor
	refreshInterval    time.Duration
	minRefetchInterval time.Duration
	client             *http.Client

	mutex     sync.Mutex
	keys      map[string]interface{}
	loadedAt  time.Time // age of the key set, may come from the registry
	fetchedAt time.Time // last download attempt of this process
}

// NewRemoteKeySet returns a new remote key set. Nothing is downloaded before the
// first key is requested.
func NewRemoteKeySet(b *RemoteKeySetBuilder) *RemoteKeySet {
	if b.URL == "" {
		panic("URL is missing")
	}
	s := &RemoteKeySet{
		url:                b.URL,
		registry:           b.Registry,
		refreshInterval:    b.RefreshInterval,
		minRefetchInterval: b.MinRefetchInterval,
		client:             b.Client,
	}
	if s.refreshInterval == 0 {
		s.refreshInterval = 6 * time.Hour
	}
	if s.minRefetchInterval == 0 {
		s.minRefetchInterval = time.Minute
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: 10 * time.Second}
	}
	return s
}

// Key returns the key for kid. An unknown kid triggers a new download, at most once
// per minimum refetch interval, since the identity provider may have rotated its keys.
func (s *RemoteKeySet) Key(ctx context.Context, kid string) (interface{}, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.keys == nil || time.Since(s.loadedAt) > s.refreshInterval {
		if !s.mayFetch() {
			if s.keys == nil {
				return nil, errKeySetUnavailable
			}
		} else if err := s.load(ctx); err != nil {
			if s.keys == nil {
				return nil, err
			}
			logger.FromContext(ctx).WithError(err).Warnf("cannot refresh key set, keeping keys from %s", s.loadedAt.Format(time.RFC3339))
		}
	}
	if key, ok := s.keys[kid]; ok {
		return key, nil
	}
	if s.mayFetch() {
		if err := s.download(ctx); err != nil {
			return nil, err
		}
		if key, ok := s.keys[kid]; ok {
			return key, nil
		}
	}
	logger.FromContext(ctx).Warningf("have %d well known keys, but not %s", len(s.keys), kid)
	return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, kid)
}

// mayFetch limits download attempts, successful or not, to one per minimum
// refetch interval
func (s *RemoteKeySet) mayFetch() bool {
	return s.fetchedAt.IsZero() || time.Since(s.fetchedAt) > s.minRefetchInterval
}

// load takes the key set from the registry if it is recent enough, otherwise it downloads it
func (s *RemoteKeySet) load(ctx context.Context) error {
	if s.registry != nil {
		var jwks JSONWebKeySet
		timestamp, fresh, err := s.registry.ReadRecent(ctx, s.url, &jwks, s.refreshInterval)
		if err != nil {
			logger.FromContext(ctx).WithError(err).Warnln("cannot read key set from registry")
		} else if fresh {
			s.install(ctx, jwks, timestamp)
			return nil
		}
	}
	return s.download(ctx)
}

func (s *RemoteKeySet) download(ctx context.Context) error {
	rlog := logger.FromContext(ctx)
	s.fetchedAt = time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return err
	}
	res, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("cannot download key set: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("cannot download key set: %s", res.Status)
	}

	var jwks JSONWebKeySet
	if err := json.NewDecoder(res.Body).Decode(&jwks); err != nil {
		return fmt.Errorf("cannot decode key set: %w", err)
	}
	rlog.Debugf("downloaded %d keys from %s", len(jwks.Keys), s.url)

	s.install(ctx, jwks, s.fetchedAt)
	if s.registry != nil {
		if _, err := s.registry.Write(ctx, s.url, jwks); err != nil {
			rlog.WithError(err).Warnln("cannot write key set to registry")
		}
	}
	return nil
}

func (s *RemoteKeySet) install(ctx context.Context, jwks JSONWebKeySet, loadedAt time.Time) {
	keys := map[string]interface{}{}
	for _, jwk := range jwks.Keys {
		key, err := jwk.PublicKey()
		if err != nil {
			logger.FromContext(ctx).WithError(err).Warnln("skipping key", jwk.Kid)
			continue
		}
		keys[jwk.Kid] = key
	}
	s.keys = keys
	s.loadedAt = loadedAt
}
