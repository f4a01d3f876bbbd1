package access

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/relabs-tech/drinks/core/logger"
)

// AuthErrorKind classifies an AuthError
type AuthErrorKind int

// all kinds of authentication and authorization failures
const (
	KindMissingToken AuthErrorKind = iota + 1
	KindMalformedHeader
	KindInvalidHeader
	KindTokenExpired
	KindInvalidClaims
	KindPermissionsMissing
	KindUnauthorized
)

// AuthError is returned by the token verifier and the guard. It carries the
// HTTP status code for the response, a machine readable code and a human
// readable description.
type AuthError struct {
	Kind        AuthErrorKind
	StatusCode  int
	Code        string
	Description string
}

func (e *AuthError) Error() string {
	return e.Code + ": " + e.Description
}

// Is reports whether target is an AuthError of the same kind, so that
// errors.Is(err, ErrTokenExpired) works regardless of the description.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Kind == e.Kind
}

// with returns a copy of the error with a different description
func (e *AuthError) with(description string) *AuthError {
	c := *e
	c.Description = description
	return &c
}

// Sentinel errors, one per kind. Compare with errors.Is.
var (
	ErrMissingToken = &AuthError{
		Kind:        KindMissingToken,
		StatusCode:  http.StatusUnauthorized,
		Code:        "authorization_header_missing",
		Description: "Authorization header is expected.",
	}
	ErrMalformedHeader = &AuthError{
		Kind:        KindMalformedHeader,
		StatusCode:  http.StatusUnauthorized,
		Code:        "malformed_header",
		Description: "Authorization header must be bearer token.",
	}
	ErrInvalidHeader = &AuthError{
		Kind:        KindInvalidHeader,
		StatusCode:  http.StatusUnauthorized,
		Code:        "invalid_header",
		Description: "Unable to parse authentication token.",
	}
	ErrTokenExpired = &AuthError{
		Kind:        KindTokenExpired,
		StatusCode:  http.StatusUnauthorized,
		Code:        "token_expired",
		Description: "Token expired.",
	}
	ErrInvalidClaims = &AuthError{
		Kind:        KindInvalidClaims,
		StatusCode:  http.StatusUnauthorized,
		Code:        "invalid_claims",
		Description: "Incorrect claims. Please, check the audience and issuer.",
	}
	ErrPermissionsMissing = &AuthError{
		Kind:        KindPermissionsMissing,
		StatusCode:  http.StatusBadRequest,
		Code:        "invalid_claims",
		Description: "Permissions not included in JWT.",
	}
	ErrUnauthorized = &AuthError{
		Kind:        KindUnauthorized,
		StatusCode:  http.StatusForbidden,
		Code:        "unauthorized",
		Description: "Permission not found.",
	}
)

// WriteAuthError writes err as JSON response of the form
//
//	{"success": false, "error": <status>, "message": <code>}
//
// Errors which are not an AuthError are reported as invalid header.
func WriteAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		authErr = ErrInvalidHeader
	}
	logger.FromContext(r.Context()).WithError(err).Infoln("rejected request for", r.URL, r.Method)

	body, _ := json.Marshal(map[string]interface{}{
		"success": false,
		"error":   authErr.StatusCode,
		"message": authErr.Code,
	})
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(authErr.StatusCode)
	w.Write(body)
}
