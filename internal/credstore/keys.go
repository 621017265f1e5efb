package credstore

import "github.com/fitproapp/fitlink/internal/provider"

// Key layout. Provider entries are namespaced by the provider's storage
// key so sessions for different providers can never collide; the bearer
// session token is app-wide and shared by every provider.
//
//	<ns>_auth_state  pending CSRF state (single linking attempt)
//	<ns>_user_id     linked account identifier
//	<ns>_user_info   linked profile JSON
//	session_token    application bearer credential

// SessionTokenKey is the app-wide bearer credential key.
const SessionTokenKey = "session_token"

// PendingStateKey returns the pending CSRF state key for a provider.
func PendingStateKey(p provider.Provider) string {
	return p.Namespace() + "_auth_state"
}

// AccountIDKey returns the linked account id key for a provider.
func AccountIDKey(p provider.Provider) string {
	return p.Namespace() + "_user_id"
}

// ProfileKey returns the linked profile JSON key for a provider.
func ProfileKey(p provider.Provider) string {
	return p.Namespace() + "_user_info"
}

// ProviderKeys lists every key owned by one provider, for unlink/logout.
func ProviderKeys(p provider.Provider) []string {
	return []string{
		PendingStateKey(p),
		AccountIDKey(p),
		ProfileKey(p),
	}
}
