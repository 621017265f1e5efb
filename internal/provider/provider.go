// Package provider defines the descriptors for the external services a
// user can link to their account. The linking protocol is generic: every
// provider-specific difference (backend path prefix, storage namespace)
// lives here, nothing else in the codebase branches on provider identity.
package provider

import (
	"errors"
	"strings"
)

// Provider describes one linkable external service.
type Provider struct {
	// Name is the canonical identifier used in the CLI, config and logs
	// (e.g. "music", "wearable").
	Name string

	// PathPrefix is the backend gateway route prefix for this provider
	// (e.g. "spotify" -> GET /spotify/status).
	PathPrefix string

	// StorageKey namespaces this provider's entries in the credential
	// store. Defaults to Name.
	StorageKey string

	// DisplayName is what the UI shows to the user.
	DisplayName string
}

// Built-in providers. The backend exposes the music service under the
// "spotify" prefix and the wearable service under "whoop".
var (
	Music = Provider{
		Name:        "music",
		PathPrefix:  "spotify",
		StorageKey:  "spotify",
		DisplayName: "Music",
	}
	Wearable = Provider{
		Name:        "wearable",
		PathPrefix:  "whoop",
		StorageKey:  "whoop",
		DisplayName: "Wearable",
	}
)

// ErrUnknown indicates the provider name is not registered.
var ErrUnknown = errors.New("unknown provider")

// All returns the built-in providers.
func All() []Provider {
	return []Provider{Music, Wearable}
}

// ByName resolves a provider by its canonical name. Backend prefixes are
// accepted as aliases so `fitlink link spotify` also works.
func ByName(name string) (Provider, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, p := range All() {
		if p.Name == n || p.PathPrefix == n {
			return p, nil
		}
	}
	return Provider{}, ErrUnknown
}

// Valid reports whether the descriptor is usable.
func (p Provider) Valid() bool {
	return p.Name != "" && p.PathPrefix != ""
}

// Namespace returns the storage namespace, falling back to Name.
func (p Provider) Namespace() string {
	if p.StorageKey != "" {
		return p.StorageKey
	}
	return p.Name
}
