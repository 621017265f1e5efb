package linking

import (
	"errors"

	"github.com/fitproapp/fitlink/internal/identity"
)

// Error taxonomy for linking outcomes. Callers branch on these with
// errors.Is; the wrapped detail carries the server message when there
// is one.
var (
	// ErrGatewayUnavailable: the authorization-URL request failed
	// (network error or non-2xx).
	ErrGatewayUnavailable = errors.New("backend gateway unavailable")

	// ErrProviderDenied: the provider redirect carried an error param.
	ErrProviderDenied = errors.New("provider denied authorization")

	// ErrStateMismatch: callback state does not match the stored pending
	// state. Possible CSRF or a stale session.
	ErrStateMismatch = errors.New("state parameter mismatch")

	// ErrExchangeFailed: the backend rejected the authorization code.
	ErrExchangeFailed = errors.New("code exchange failed")

	// ErrTimeout: no callback arrived within the session deadline.
	ErrTimeout = errors.New("authentication timed out")

	// ErrCancelled: the user backed out of the provider login.
	ErrCancelled = errors.New("authentication cancelled by user")

	// ErrSuperseded: a newer linking attempt for the same provider
	// replaced this one.
	ErrSuperseded = errors.New("superseded by a newer linking attempt")

	// ErrBadCallback: the redirect carried no recognizable parameters.
	ErrBadCallback = errors.New("no valid authentication response in callback")
)

// ErrNotAuthenticated re-exports the identity sentinel so callers of this
// package need only one import for the full taxonomy.
var ErrNotAuthenticated = identity.ErrNotAuthenticated

// Retryable reports whether the failure is a soft outcome the UI can
// present as "try again" rather than an error (cancellation, timeout).
func Retryable(err error) bool {
	return errors.Is(err, ErrCancelled) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrSuperseded)
}
