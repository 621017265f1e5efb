package credstore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestFileStore(t *testing.T) (Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.json")
	s, err := NewFile(Config{Driver: "file", Path: path, Passphrase: "correct horse"})
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	return s, path
}

func TestFile_RoundTripSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	s, path := newTestFileStore(t)

	if err := s.Set(ctx, "spotify_user_id", "u1", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	_ = s.Close()

	// reopen with the same passphrase; salt is persisted in the document
	s2, err := NewFile(Config{Path: path, Passphrase: "correct horse"})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := s2.Get(ctx, "spotify_user_id")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got != "u1" {
		t.Fatalf("got %q want u1", got)
	}
}

func TestFile_ValuesAreSealedOnDisk(t *testing.T) {
	ctx := context.Background()
	s, path := newTestFileStore(t)

	secret := "very-secret-token"
	if err := s.Set(ctx, "session_token", secret, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if strings.Contains(string(raw), secret) {
		t.Fatalf("plaintext secret present on disk")
	}
}

func TestFile_WrongPassphraseFailsOpen(t *testing.T) {
	ctx := context.Background()
	s, path := newTestFileStore(t)
	if err := s.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	s2, err := NewFile(Config{Path: path, Passphrase: "wrong"})
	if err != nil {
		t.Fatalf("open with wrong passphrase: %v", err)
	}
	if _, err := s2.Get(ctx, "k"); err == nil {
		t.Fatalf("expected decrypt failure with wrong passphrase")
	}
}

func TestFile_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestFileStore(t)

	if err := s.Set(ctx, "pending", "abc", time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := s.Get(ctx, "pending"); err != nil {
		t.Fatalf("Get before expiry: %v", err)
	}
	// expiry is second-resolution in the document
	time.Sleep(1100 * time.Millisecond)
	if _, err := s.Get(ctx, "pending"); !IsNotFound(err) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestFile_EnvMasterKey(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 1)
	}
	t.Setenv("FITLINK_MASTER_KEY", base64.StdEncoding.EncodeToString(key))

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.json")
	s, err := NewFile(Config{Path: path})
	if err != nil {
		t.Fatalf("NewFile with env key: %v", err)
	}
	if err := s.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// no salt persisted for env-key stores
	raw, _ := os.ReadFile(path)
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("document not JSON: %v", err)
	}
	if _, ok := doc["salt"]; ok {
		t.Fatalf("unexpected salt in env-key document")
	}
}
