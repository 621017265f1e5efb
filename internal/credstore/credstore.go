// Package credstore provides the local secure-credential capability used
// by the linking protocol: pending CSRF states, linked account identities
// and the app session token, stored as strings under namespaced keys.
//
// Backends:
//   - memory (in-process, for tests and ephemeral runs)
//   - file (encrypted JSON document, the default for the CLI)
//   - redis (shared, for rigs where several processes see one user session)
package credstore

import (
	"context"
	"errors"
	"time"
)

// Store defines the credential operations.
type Store interface {
	// Get returns a value. Returns ErrNotFound if the key is absent or
	// its TTL elapsed.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value. A ttl of 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver string // "memory" | "file" | "redis"

	// File backend.
	Path       string
	Passphrase string // optional; FITLINK_MASTER_KEY env is used otherwise

	// Redis backend.
	Addr     string
	Password string
	DB       int

	// Prefix namespaces every key (all backends).
	Prefix string
}

var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "credstore: key not found" }

// IsNotFound reports whether err means the key is absent, including
// wrapped sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// New creates a Store for the configured driver.
func New(cfg Config) (Store, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedis(cfg)
	case "file":
		return NewFile(cfg)
	case "memory", "":
		return NewMemory(cfg.Prefix), nil
	default:
		return nil, errUnknownDriver(cfg.Driver)
	}
}

type errUnknownDriver string

func (e errUnknownDriver) Error() string { return "credstore: unknown driver " + string(e) }
