// Package linking implements the third-party account linking protocol:
// one Session drives a full OAuth authorization-code attempt end to end —
// authorization URL from the backend, CSRF state persisted locally,
// system browser, exactly one redirect callback (or a deadline), state
// verification, code exchange, identity caching. The Manager guarantees
// at most one in-flight session per provider.
package linking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fitproapp/fitlink/internal/credstore"
	"github.com/fitproapp/fitlink/internal/deeplink"
	"github.com/fitproapp/fitlink/internal/gateway"
	"github.com/fitproapp/fitlink/internal/identity"
	"github.com/fitproapp/fitlink/internal/metrics"
	"github.com/fitproapp/fitlink/internal/observability/logger"
	"github.com/fitproapp/fitlink/internal/provider"
)

// DefaultTimeout is how long a session waits for the redirect callback.
const DefaultTimeout = 300 * time.Second

// stateTTLGrace keeps the stored pending state alive slightly past the
// session deadline so a callback racing the timer still finds it.
const stateTTLGrace = time.Minute

// Gateway is the slice of the backend client a session needs.
type Gateway interface {
	AuthLogin(ctx context.Context, p provider.Provider) (*gateway.LoginResponse, error)
	ExchangeCode(ctx context.Context, p provider.Provider, code, state string) (*gateway.AuthResult, error)
}

// Deps are the collaborators of a session.
type Deps struct {
	Gateway Gateway
	Store   credstore.Store
	Tokens  identity.TokenSource
	Links   *deeplink.Dispatcher

	// Open launches the provider login page. Nil skips the launch
	// (tests, or callers that surface the URL themselves).
	Open func(url string) error
}

// Result is what a successful session yields.
type Result struct {
	AccountID string
	// Profile is the provider-shaped user_info JSON.
	Profile json.RawMessage
}

// Session is one linking attempt. It is one-shot: construct, Start once,
// discard.
type Session struct {
	id      string
	prov    provider.Provider
	deps    Deps
	timeout time.Duration

	mu     sync.Mutex
	status Status
}

// NewSession creates an idle session. A zero timeout uses DefaultTimeout.
func NewSession(p provider.Provider, deps Deps, timeout time.Duration) *Session {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Session{
		id:      uuid.NewString(),
		prov:    p,
		deps:    deps,
		timeout: timeout,
	}
}

// ID identifies the attempt in logs.
func (s *Session) ID() string { return s.id }

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) transition(to Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return
	}
	s.status = to
}

// Start runs the session to a terminal state and returns its outcome.
// Regardless of outcome the provider's pending CSRF state is deleted
// before Start returns.
func (s *Session) Start(ctx context.Context) (*Result, error) {
	log := logger.From(ctx).With(
		logger.Component("linking"),
		logger.SessionID(s.id),
		logger.Provider(s.prov.Name),
	)
	started := time.Now()

	res, err := s.run(ctx, log)

	st := s.Status()
	metrics.LinkAttempts.WithLabelValues(s.prov.Name, st.String()).Inc()
	metrics.LinkDuration.WithLabelValues(s.prov.Name).Observe(time.Since(started).Seconds())
	if err != nil {
		log.Info("linking session settled", logger.Outcome(st.String()), logger.Err(err))
	} else {
		log.Info("linking session settled", logger.Outcome(st.String()), logger.AccountID(res.AccountID))
	}
	return res, err
}

func (s *Session) run(ctx context.Context, log *zap.Logger) (*Result, error) {
	s.mu.Lock()
	if s.status != StatusIdle {
		s.mu.Unlock()
		return nil, fmt.Errorf("linking: session already started")
	}
	s.status = StatusAwaitingAuthorizationURL
	s.mu.Unlock()

	// Fail fast before any network call: linking requires an app session.
	if _, err := s.deps.Tokens.Token(ctx); err != nil {
		s.transition(StatusFailed)
		return nil, err
	}

	login, err := s.deps.Gateway.AuthLogin(ctx, s.prov)
	if err != nil {
		s.transition(StatusFailed)
		if errors.Is(err, identity.ErrNotAuthenticated) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	stateKey := credstore.PendingStateKey(s.prov)
	if err := s.deps.Store.Set(ctx, stateKey, login.State, s.timeout+stateTTLGrace); err != nil {
		s.transition(StatusFailed)
		return nil, fmt.Errorf("persist pending state: %w", err)
	}
	// Consumed exactly once: gone after the session settles, whatever
	// the outcome. Background context so cancellation cannot skip it.
	// Compare-and-delete: a superseding session may have written a newer
	// state under the same key, which is not ours to remove.
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cur, err := s.deps.Store.Get(cctx, stateKey); err == nil && cur != login.State {
			return
		}
		if err := s.deps.Store.Delete(cctx, stateKey); err != nil {
			log.Warn("pending state cleanup failed", logger.Key(stateKey), logger.Err(err))
		}
	}()

	// At most one event is ever consumed: duplicates collapse in the
	// handler, and the subscription is removed as soon as the event is
	// received, so a near-simultaneous second redirect is never processed.
	// The handler must not touch the subscription handle itself; a
	// callback can arrive while Subscribe is still returning.
	events := make(chan string, 1)
	var once sync.Once
	sub := s.deps.Links.Subscribe(func(url string) {
		once.Do(func() { events <- url })
	})
	defer sub.Remove()

	s.transition(StatusAwaitingCallback)

	if s.deps.Open != nil {
		if err := s.deps.Open(login.AuthURL); err != nil {
			s.transition(StatusFailed)
			return nil, fmt.Errorf("open authorization page: %w", err)
		}
	}
	log.Debug("awaiting provider callback")

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case url := <-events:
		sub.Remove()
		return s.handleCallback(ctx, url)
	case <-timer.C:
		s.transition(StatusTimedOut)
		return nil, ErrTimeout
	case <-ctx.Done():
		s.transition(StatusCancelled)
		if cause := context.Cause(ctx); errors.Is(cause, ErrSuperseded) {
			return nil, ErrSuperseded
		}
		return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	}
}

// handleCallback classifies the redirect and runs the transition table.
// Precedence: cancellation > provider error > backend-redirect success >
// code+state exchange > no valid parameters.
func (s *Session) handleCallback(ctx context.Context, url string) (*Result, error) {
	params := deeplink.ParseCallbackParams(url)

	if params["cancelled"] == "true" {
		s.transition(StatusCancelled)
		return nil, ErrCancelled
	}

	if reason := params["error"]; reason != "" {
		s.transition(StatusFailed)
		return nil, fmt.Errorf("%w: %s", ErrProviderDenied, reason)
	}

	// Backend-redirect shape: the backend already exchanged the code and
	// redirects with the decoded identity.
	if params["success"] == "true" && params["user_id"] != "" {
		return s.settleSuccess(ctx, params["user_id"], redirectProfile(params))
	}

	code, state := params["code"], params["state"]
	if code != "" && state != "" {
		return s.exchange(ctx, code, state)
	}

	s.transition(StatusFailed)
	return nil, ErrBadCallback
}

func (s *Session) exchange(ctx context.Context, code, state string) (*Result, error) {
	// Exact, case-sensitive match against the value most recently stored
	// for this provider. Missing stored value is always a mismatch.
	stored, err := s.deps.Store.Get(ctx, credstore.PendingStateKey(s.prov))
	if err != nil || stored == "" || stored != state {
		s.transition(StatusFailed)
		return nil, ErrStateMismatch
	}

	s.transition(StatusExchangingCode)

	res, err := s.deps.Gateway.ExchangeCode(ctx, s.prov, code, state)
	if err != nil {
		s.transition(StatusFailed)
		var apiErr *gateway.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrExchangeFailed, apiErr.Message)
		}
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	if !res.Success {
		s.transition(StatusFailed)
		if res.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrExchangeFailed, res.Message)
		}
		return nil, ErrExchangeFailed
	}

	return s.settleSuccess(ctx, res.UserID, profileJSON(res.UserInfo))
}

// settleSuccess persists the linked identity and finishes the session.
func (s *Session) settleSuccess(ctx context.Context, accountID string, profile json.RawMessage) (*Result, error) {
	if err := s.deps.Store.Set(ctx, credstore.AccountIDKey(s.prov), accountID, 0); err != nil {
		s.transition(StatusFailed)
		return nil, fmt.Errorf("persist linked account: %w", err)
	}
	if len(profile) > 0 {
		if err := s.deps.Store.Set(ctx, credstore.ProfileKey(s.prov), string(profile), 0); err != nil {
			s.transition(StatusFailed)
			return nil, fmt.Errorf("persist linked profile: %w", err)
		}
	}
	s.transition(StatusSucceeded)
	return &Result{AccountID: accountID, Profile: profile}, nil
}

// redirectProfile builds a minimal profile from backend-redirect params.
func redirectProfile(params map[string]string) json.RawMessage {
	p := map[string]string{"id": params["user_id"]}
	if dn := params["display_name"]; dn != "" {
		p["display_name"] = dn
	}
	b, _ := json.Marshal(p)
	return b
}

// profileJSON prefers the verbatim provider payload over re-marshalling.
func profileJSON(info *gateway.UserInfo) json.RawMessage {
	if info == nil {
		return nil
	}
	if len(info.Raw) > 0 {
		return info.Raw
	}
	b, _ := json.Marshal(info)
	return b
}
