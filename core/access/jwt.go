package access

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// Claims are the claims of a verified access token. Permissions is nil if the
// token carries no "permissions" claim at all, and empty if the claim is an
// empty list.
type Claims struct {
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// TokenVerifier verifies the value of an Authorization header
type TokenVerifier interface {
	VerifyAuthorizationHeader(ctx context.Context, header string) (*Claims, error)
}

// JwtVerifierBuilder is a helper builder for JwtVerifier
type JwtVerifierBuilder struct {
	// Issuer is the accepted issuer for the token, for auth0 "https://{domain}/". Mandatory.
	Issuer string
	// Audience is the accepted audience for the token. Mandatory.
	Audience string
	// Keys is the trusted key set. Mandatory.
	Keys KeySet
}

// JwtVerifier verifies RS256 signed Java-Web-Tokens (JWT) against a trusted
// key set, selected by the token's "kid" header.
type JwtVerifier struct {
	issuer   string
	audience string
	keys     KeySet
	parser   *jwt.Parser
}

// NewJwtVerifier returns a new verifier. It panics if the builder misses mandatory fields.
func NewJwtVerifier(jvb *JwtVerifierBuilder) *JwtVerifier {
	if jvb.Issuer == "" {
		panic("Issuer is missing")
	}
	if jvb.Audience == "" {
		panic("Audience is missing")
	}
	if jvb.Keys == nil {
		panic("Keys are missing")
	}
	return &JwtVerifier{
		issuer:   jvb.Issuer,
		audience: jvb.Audience,
		keys:     jvb.Keys,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()})),
	}
}

// BearerToken extracts the token from an Authorization header of the form
// "Bearer <token>".
func BearerToken(header string) (string, error) {
	if len(header) == 0 {
		return "", ErrMissingToken
	}
	parts := strings.Split(header, " ")
	if strings.ToLower(parts[0]) != "bearer" {
		return "", ErrInvalidHeader.with(`Authorization header must start with "Bearer".`)
	}
	if len(parts) == 1 || len(parts[1]) == 0 {
		return "", ErrMalformedHeader.with("Token not found.")
	}
	if len(parts) > 2 {
		return "", ErrMalformedHeader
	}
	return parts[1], nil
}

// VerifyAuthorizationHeader extracts the bearer token from header and verifies it.
func (v *JwtVerifier) VerifyAuthorizationHeader(ctx context.Context, header string) (*Claims, error) {
	tokenString, err := BearerToken(header)
	if err != nil {
		return nil, err
	}
	return v.VerifyToken(ctx, tokenString)
}

var errNoKeyID = errors.New("token has no kid header")

// VerifyToken verifies signature, expiry, issuer and audience of tokenString and
// returns its claims. All failures are of type *AuthError.
func (v *JwtVerifier) VerifyToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || len(kid) == 0 {
			return nil, errNoKeyID
		}
		return v.keys.Key(ctx, kid)
	})
	if err != nil {
		return nil, classify(err)
	}

	if !claims.VerifyIssuer(v.issuer, true) || !claims.VerifyAudience(v.audience, true) {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

// classify maps a jwt parser error to an AuthError. A bad signature wins over
// an expired token, so that an expired forged token is not reported as expired.
func classify(err error) *AuthError {
	var ve *jwt.ValidationError
	if !errors.As(err, &ve) {
		return ErrInvalidHeader
	}
	switch {
	case ve.Errors&jwt.ValidationErrorUnverifiable != 0:
		if errors.Is(err, ErrKeyNotFound) || errors.Is(err, errNoKeyID) {
			return ErrInvalidHeader.with("Unable to find the appropriate key.")
		}
		return ErrInvalidHeader
	case ve.Errors&(jwt.ValidationErrorMalformed|jwt.ValidationErrorSignatureInvalid) != 0:
		return ErrInvalidHeader
	case ve.Errors&jwt.ValidationErrorExpired != 0:
		return ErrTokenExpired
	case ve.Errors&(jwt.ValidationErrorIssuer|jwt.ValidationErrorAudience|
		jwt.ValidationErrorNotValidYet|jwt.ValidationErrorIssuedAt|jwt.ValidationErrorClaimsInvalid) != 0:
		return ErrInvalidClaims
	}
	return ErrInvalidHeader
}
