// Package identity resolves the application bearer credential that every
// authenticated gateway call carries. The token itself is issued by the
// app backend at sign-in; this package only loads and sanity-checks it.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/fitproapp/fitlink/internal/credstore"
)

// ErrNotAuthenticated means no usable app session credential is stored.
// Callers must fail fast on it before touching the network.
var ErrNotAuthenticated = errors.New("not authenticated: no app session credential")

// TokenSource yields the current bearer token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StoreSource loads the bearer token from the credential store.
type StoreSource struct {
	Store credstore.Store
}

// Token returns the stored session token. A missing token, or a JWT whose
// exp already passed, is ErrNotAuthenticated. Expiry inspection is
// unverified parsing only; the backend remains the authority and will
// reject anything else.
func (s *StoreSource) Token(ctx context.Context) (string, error) {
	tok, err := s.Store.Get(ctx, credstore.SessionTokenKey)
	if err != nil {
		if credstore.IsNotFound(err) {
			return "", ErrNotAuthenticated
		}
		return "", fmt.Errorf("load session credential: %w", err)
	}
	if tok == "" {
		return "", ErrNotAuthenticated
	}
	if expired(tok) {
		return "", fmt.Errorf("%w: session credential expired", ErrNotAuthenticated)
	}
	return tok, nil
}

// expired reports whether tok is a JWT with an exp claim in the past.
// Opaque tokens (not parseable as JWT) are passed through untouched.
func expired(tok string) bool {
	parser := jwtv5.NewParser()
	claims := jwtv5.MapClaims{}
	if _, _, err := parser.ParseUnverified(tok, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	// 30s grace, same as the backend applies to state tokens.
	return exp.Time.Before(time.Now().Add(-30 * time.Second))
}

// Static is a fixed-token source for tests.
type Static string

func (s Static) Token(ctx context.Context) (string, error) {
	if s == "" {
		return "", ErrNotAuthenticated
	}
	return string(s), nil
}
