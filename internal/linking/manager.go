package linking

import (
	"context"
	"sync"
	"time"

	"github.com/fitproapp/fitlink/internal/provider"
)

// Manager enforces the single-flight invariant: at most one session per
// provider is awaiting its callback at any time. Starting a new attempt
// supersedes the previous one instead of letting two listeners race.
type Manager struct {
	deps    Deps
	timeout time.Duration

	mu     sync.Mutex
	active map[string]*inflight
}

type inflight struct {
	cancel context.CancelCauseFunc
}

// NewManager creates a Manager. A zero timeout uses DefaultTimeout.
func NewManager(deps Deps, timeout time.Duration) *Manager {
	return &Manager{
		deps:    deps,
		timeout: timeout,
		active:  map[string]*inflight{},
	}
}

// Link runs one full linking attempt for p, superseding any attempt
// already in flight for the same provider.
func (m *Manager) Link(ctx context.Context, p provider.Provider) (*Result, error) {
	sctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	entry := &inflight{cancel: cancel}

	m.mu.Lock()
	if prev := m.active[p.Name]; prev != nil {
		prev.cancel(ErrSuperseded)
	}
	m.active[p.Name] = entry
	m.mu.Unlock()

	res, err := NewSession(p, m.deps, m.timeout).Start(sctx)

	m.mu.Lock()
	if m.active[p.Name] == entry {
		delete(m.active, p.Name)
	}
	m.mu.Unlock()

	return res, err
}

// InFlight reports whether an attempt for p is currently running.
func (m *Manager) InFlight(p provider.Provider) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[p.Name] != nil
}
