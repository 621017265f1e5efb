package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/fitproapp/fitlink/internal/credstore"
)

func signedJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestStoreSource_MissingToken(t *testing.T) {
	src := &StoreSource{Store: credstore.NewMemory("")}
	if _, err := src.Token(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestStoreSource_OpaqueTokenPassesThrough(t *testing.T) {
	ctx := context.Background()
	store := credstore.NewMemory("")
	_ = store.Set(ctx, credstore.SessionTokenKey, "opaque-session-token", 0)

	src := &StoreSource{Store: store}
	got, err := src.Token(ctx)
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got != "opaque-session-token" {
		t.Fatalf("got %q", got)
	}
}

func TestStoreSource_ValidJWT(t *testing.T) {
	ctx := context.Background()
	store := credstore.NewMemory("")
	_ = store.Set(ctx, credstore.SessionTokenKey, signedJWT(t, time.Now().Add(time.Hour)), 0)

	src := &StoreSource{Store: store}
	if _, err := src.Token(ctx); err != nil {
		t.Fatalf("Token: %v", err)
	}
}

func TestStoreSource_ExpiredJWT(t *testing.T) {
	ctx := context.Background()
	store := credstore.NewMemory("")
	_ = store.Set(ctx, credstore.SessionTokenKey, signedJWT(t, time.Now().Add(-time.Hour)), 0)

	src := &StoreSource{Store: store}
	if _, err := src.Token(ctx); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated for expired token, got %v", err)
	}
}

func TestStatic(t *testing.T) {
	if _, err := Static("").Token(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("empty static token should be ErrNotAuthenticated, got %v", err)
	}
	got, err := Static("tok").Token(context.Background())
	if err != nil || got != "tok" {
		t.Fatalf("got %q err %v", got, err)
	}
}
