package identity

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials = "invalid_credentials"
	TextCodeDuplicateEmail     = "duplicate_email"
	TextCodeTokenInvalid       = "token_invalid"
	TextCodeTokenExpired       = "token_expired"
	TextCodeUserNotFound       = "user_not_found"
	TextCodeRepositoryFailure  = "repository_failure"
	TextCodeValidation         = "validation_error"
)

// ErrInvalidCredentials is returned for both an unknown email and a wrong
// password. The two cases must stay indistinguishable to callers.
var ErrInvalidCredentials = errors.New("invalid email or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrDuplicateEmail is returned when registering an email that already exists.
var ErrDuplicateEmail = errors.New("email already registered", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(errors.CodeConflict)

// ErrTokenInvalid is the single failure kind for missing, malformed, tampered,
// or expired tokens presented by a client.
var ErrTokenInvalid = errors.New("invalid authentication token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired distinguishes staleness from tampering for logs and
// internal decisions only; boundaries collapse it into ErrTokenInvalid.
var ErrTokenExpired = errors.New("authentication token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrUserNotFound is returned when a token subject no longer resolves to a user.
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrRepository wraps transient storage failures. Callers may retry lookups,
// never writes.
var ErrRepository = errors.New("credential repository failure", errors.CategoryInternal).
	WithTextCode(TextCodeRepositoryFailure)

// ErrMismatchedHashAndPassword is the hasher-level mismatch; the verifier maps
// it to ErrInvalidCredentials before it crosses a boundary.
var ErrMismatchedHashAndPassword = errors.New("mismatched password and hash", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrMalformedDigest signals a corrupted stored password hash. This is a data
// integrity problem, not a failed login.
var ErrMalformedDigest = errors.New("malformed password digest", errors.CategoryInternal)

// ErrNoEmptyString rejects empty input to the hasher.
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest)

// ErrUnableToFindSession is returned when a request context carries no token.
var ErrUnableToFindSession = errors.New("unable to find session in context", errors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToDecodeSession is returned when the context value is not a token.
var ErrUnableToDecodeSession = errors.New("unable to decode session token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToMapClaims is returned when token claims have the wrong shape.
var ErrUnableToMapClaims = errors.New("unable to map session claims", errors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(errors.CodeUnauthorized)

// IsDuplicateEmail reports whether err is the duplicate registration conflict.
func IsDuplicateEmail(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicateEmail) {
		return true
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.TextCode == TextCodeDuplicateEmail
	}
	return false
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// isUniqueViolation matches the driver-specific error text emitted when an
// insert trips the users email uniqueness constraint. Both sqlite and
// postgres spellings are covered so the race between concurrent registrations
// resolves to ErrDuplicateEmail regardless of backing store.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}
