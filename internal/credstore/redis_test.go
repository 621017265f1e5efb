package credstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedisStore(t *testing.T) Store {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedis(Config{Driver: "redis", Addr: mr.Addr(), Prefix: "fitlink"})
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRedis_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestRedisStore(t)

	if err := s.Set(ctx, "whoop_auth_state", "abc123", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, "whoop_auth_state")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "abc123" {
		t.Fatalf("got %q want abc123", got)
	}

	if err := s.Delete(ctx, "whoop_auth_state"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "whoop_auth_state"); !IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRedis_MissingKeyIsNotFound(t *testing.T) {
	s := newTestRedisStore(t)
	if _, err := s.Get(context.Background(), "nope"); !IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
