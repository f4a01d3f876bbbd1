/*Package access provides utilities for access control

Requests carry a JWT bearer token in the Authorization header. The token is
verified by a JwtVerifier against the identity provider's key set, and the
Guard checks the granted permission scopes before a protected handler runs.
The handler finds the result as Authorization in the request context:

	auth := access.AuthorizationFromContext(r.Context())
*/
package access

import (
	"context"
	"net/http"

	"github.com/relabs-tech/drinks/core/logger"
)

// contextKey is the type for context keys. Go linter does not like plain strings
type contextKey string

// the predefined context key
const (
	contextKeyAuthorization contextKey = "_authorization_"
)

// Authorization is a context object which stores the authorization of the
// caller: the token subject and the granted permission scopes, like
// "post:drinks".
type Authorization struct {
	Subject     string   `json:"subject"`
	Permissions []string `json:"permissions"`
}

// HasPermission returns true if the authorization contains the requested permission;
// otherwise it returns false.
func (a *Authorization) HasPermission(permission string) bool {
	if a == nil {
		return false
	}
	for _, p := range a.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// ContextWithAuthorization returns a new context with this authorization added to it
func ContextWithAuthorization(ctx context.Context, a *Authorization) context.Context {
	return context.WithValue(ctx, contextKeyAuthorization, a)
}

// AuthorizationFromContext retrieves an authorization from the context
func AuthorizationFromContext(ctx context.Context) *Authorization {
	a, ok := ctx.Value(contextKeyAuthorization).(*Authorization)
	if ok {
		return a
	}
	return nil
}

// CheckPermissions returns the authorization for claims if they grant permission.
// It fails with ErrPermissionsMissing if the claims have no permissions at all,
// and with ErrUnauthorized if the permission is not granted.
func CheckPermissions(claims *Claims, permission string) (*Authorization, error) {
	if claims == nil || claims.Permissions == nil {
		return nil, ErrPermissionsMissing
	}
	auth := &Authorization{
		Subject:     claims.Subject,
		Permissions: claims.Permissions,
	}
	if !auth.HasPermission(permission) {
		return nil, ErrUnauthorized
	}
	return auth, nil
}

// Guard protects handlers with a required permission
type Guard struct {
	verifier TokenVerifier
}

// NewGuard returns a guard which verifies tokens with verifier
func NewGuard(verifier TokenVerifier) *Guard {
	if verifier == nil {
		panic("verifier is missing")
	}
	return &Guard{verifier: verifier}
}

// RequiresAuth returns a handler which only calls h if the request carries a valid
// bearer token granting permission. The authorization is passed to h in the request
// context, and the request logger learns the identity of the caller. Failures are
// answered with WriteAuthError.
func (g *Guard) RequiresAuth(permission string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := g.verifier.VerifyAuthorizationHeader(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			WriteAuthError(w, r, err)
			return
		}
		auth, err := CheckPermissions(claims, permission)
		if err != nil {
			WriteAuthError(w, r, err)
			return
		}

		ctx, rlog := logger.ContextWithLoggerIdentity(r.Context(), auth.Subject)
		rlog.Debugln("granted", permission)
		ctx = ContextWithAuthorization(ctx, auth)
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}
