// Package account is the per-provider facade the UI layer consumes:
// connection status, link/unlink, and reads of cached or live provider
// data. It hides the session machinery behind four calls.
package account

import (
	"context"
	"encoding/json"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/fitproapp/fitlink/internal/credstore"
	"github.com/fitproapp/fitlink/internal/linking"
	"github.com/fitproapp/fitlink/internal/observability/logger"
	"github.com/fitproapp/fitlink/internal/provider"
)

// Gateway is the slice of the backend client the facade needs.
type Gateway interface {
	Status(ctx context.Context, p provider.Provider) (bool, error)
	Disconnect(ctx context.Context, p provider.Provider) error
	Profile(ctx context.Context, p provider.Provider) (json.RawMessage, error)
	Recovery(ctx context.Context, p provider.Provider) (json.RawMessage, error)
	Workouts(ctx context.Context, p provider.Provider) (json.RawMessage, error)
	Playlist(ctx context.Context, p provider.Provider) (json.RawMessage, error)
	CurrentlyPlaying(ctx context.Context, p provider.Provider) (json.RawMessage, error)
}

// Linker runs linking attempts. Implemented by *linking.Manager.
type Linker interface {
	Link(ctx context.Context, p provider.Provider) (*linking.Result, error)
}

// Account wraps one provider.
type Account struct {
	prov   provider.Provider
	gw     Gateway
	store  credstore.Store
	linker Linker

	sf singleflight.Group

	mu        sync.Mutex
	connected bool
}

// New creates the facade for one provider.
func New(p provider.Provider, gw Gateway, store credstore.Store, linker Linker) *Account {
	return &Account{prov: p, gw: gw, store: store, linker: linker}
}

// Provider returns the wrapped provider descriptor.
func (a *Account) Provider() provider.Provider { return a.prov }

// CheckStatus reports whether the provider is linked. It never errors:
// any failure (network, auth, decode) degrades to false so a transient
// blip cannot block the dashboard. Concurrent checks are deduplicated.
func (a *Account) CheckStatus(ctx context.Context) bool {
	v, err, _ := a.sf.Do("status", func() (any, error) {
		return a.gw.Status(ctx, a.prov)
	})
	if err != nil {
		logger.From(ctx).Debug("status check degraded to not-connected",
			logger.Provider(a.prov.Name), logger.Err(err))
		a.setConnected(false)
		return false
	}
	connected, _ := v.(bool)
	a.setConnected(connected)
	return connected
}

// Link runs a full linking attempt and flips the local connected flag on
// success. Errors are the linking taxonomy.
func (a *Account) Link(ctx context.Context) (*linking.Result, error) {
	res, err := a.linker.Link(ctx, a.prov)
	if err != nil {
		return nil, err
	}
	a.setConnected(true)
	return res, nil
}

// Unlink disconnects the provider on the backend. True only on explicit
// success; on true the cached identity is removed locally.
func (a *Account) Unlink(ctx context.Context) (bool, error) {
	if err := a.gw.Disconnect(ctx, a.prov); err != nil {
		return false, err
	}
	a.setConnected(false)
	a.clearLocal(ctx)
	return true, nil
}

// Connected returns the last observed link state without a network call.
func (a *Account) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connected
}

func (a *Account) setConnected(v bool) {
	a.mu.Lock()
	a.connected = v
	a.mu.Unlock()
}

// StoredAccountID returns the cached linked account id, if any.
func (a *Account) StoredAccountID(ctx context.Context) (string, bool) {
	id, err := a.store.Get(ctx, credstore.AccountIDKey(a.prov))
	if err != nil || id == "" {
		return "", false
	}
	return id, true
}

// StoredProfile returns the cached provider profile JSON, if any.
func (a *Account) StoredProfile(ctx context.Context) (json.RawMessage, bool) {
	raw, err := a.store.Get(ctx, credstore.ProfileKey(a.prov))
	if err != nil || raw == "" {
		return nil, false
	}
	return json.RawMessage(raw), true
}

// ClearLocal removes every cached entry for this provider. Used by
// unlink and by application logout.
func (a *Account) ClearLocal(ctx context.Context) {
	a.setConnected(false)
	a.clearLocal(ctx)
}

func (a *Account) clearLocal(ctx context.Context) {
	for _, key := range credstore.ProviderKeys(a.prov) {
		if err := a.store.Delete(ctx, key); err != nil {
			logger.From(ctx).Warn("clear cached credential failed",
				logger.Provider(a.prov.Name), logger.Key(key), logger.Err(err))
		}
	}
}

// Live provider data, proxied by the backend. Provider-shaped JSON.

func (a *Account) Profile(ctx context.Context) (json.RawMessage, error) {
	return a.gw.Profile(ctx, a.prov)
}

func (a *Account) Recovery(ctx context.Context) (json.RawMessage, error) {
	return a.gw.Recovery(ctx, a.prov)
}

func (a *Account) Workouts(ctx context.Context) (json.RawMessage, error) {
	return a.gw.Workouts(ctx, a.prov)
}

func (a *Account) Playlist(ctx context.Context) (json.RawMessage, error) {
	return a.gw.Playlist(ctx, a.prov)
}

func (a *Account) CurrentlyPlaying(ctx context.Context) (json.RawMessage, error) {
	return a.gw.CurrentlyPlaying(ctx, a.prov)
}
