// Package tokentest mints signed access tokens for tests, together with the
// key set and verifier which trust them.
package tokentest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/relabs-tech/drinks/core/access"
)

// defaults for the test identity provider
const (
	Issuer   = "https://drinks-test.eu.auth0.com/"
	Audience = "drinks"
	KeyID    = "test-key"
)

// Authority is a test identity provider with its own RSA key
type Authority struct {
	Key   *rsa.PrivateKey
	KeyID string
}

// NewAuthority generates a new key. It panics if key generation fails.
func NewAuthority() *Authority {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return &Authority{Key: key, KeyID: KeyID}
}

// KeySet returns a key set which trusts this authority
func (a *Authority) KeySet() access.StaticKeySet {
	return access.StaticKeySet{a.KeyID: &a.Key.PublicKey}
}

// JSONWebKeySet returns the key set document an identity provider would publish
// for this authority
func (a *Authority) JSONWebKeySet() access.JSONWebKeySet {
	pub := a.Key.PublicKey
	return access.JSONWebKeySet{Keys: []access.JSONWebKey{{
		Kid: a.KeyID,
		Kty: "RSA",
		Alg: "RS256",
		Use: "sig",
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}}}
}

// Verifier returns a verifier for Issuer and Audience which trusts this authority
func (a *Authority) Verifier() *access.JwtVerifier {
	return access.NewJwtVerifier(&access.JwtVerifierBuilder{
		Issuer:   Issuer,
		Audience: Audience,
		Keys:     a.KeySet(),
	})
}

// Claims returns valid claims for one hour with the given permissions. Pass no
// permissions for an empty permission list; set Permissions to nil to omit the claim.
func Claims(permissions ...string) *access.Claims {
	if permissions == nil {
		permissions = []string{}
	}
	now := time.Now()
	return &access.Claims{
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   "auth0|barista",
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

// Sign signs claims with the authority's key
func (a *Authority) Sign(claims jwt.Claims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = a.KeyID
	signed, err := token.SignedString(a.Key)
	if err != nil {
		panic(err)
	}
	return signed
}

// Token returns a signed valid token granting permissions
func (a *Authority) Token(permissions ...string) string {
	return a.Sign(Claims(permissions...))
}

// Bearer returns an Authorization header value granting permissions
func (a *Authority) Bearer(permissions ...string) string {
	return "Bearer " + a.Token(permissions...)
}
