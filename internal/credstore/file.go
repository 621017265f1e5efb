package credstore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fitproapp/fitlink/internal/security/secretbox"
	"github.com/fitproapp/fitlink/internal/util/atomicwrite"
)

// fileStore implements Store as an encrypted JSON document on disk.
// Every value is sealed individually so the file stays diffable and a
// partial corruption loses one entry, not the whole store.
type fileStore struct {
	path   string
	prefix string
	box    *secretbox.Box

	mu  sync.Mutex
	doc fileDoc
}

type fileDoc struct {
	// Salt is present when the key is passphrase-derived.
	Salt    string               `json:"salt,omitempty"`
	Entries map[string]fileEntry `json:"entries"`
}

type fileEntry struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at,omitempty"` // unix seconds, 0 = no expiry
}

// NewFile opens (or creates) a file-backed credential store at cfg.Path.
// The sealing key comes from cfg.Passphrase (argon2id, salt persisted in
// the document) or, when empty, from the FITLINK_MASTER_KEY env var.
func NewFile(cfg Config) (Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("credstore: file driver requires a path")
	}

	s := &fileStore{path: cfg.Path, prefix: cfg.Prefix}
	if err := s.load(); err != nil {
		return nil, err
	}

	if cfg.Passphrase != "" {
		salt, err := s.ensureSalt()
		if err != nil {
			return nil, err
		}
		box, err := secretbox.NewFromPassphrase(cfg.Passphrase, salt)
		if err != nil {
			return nil, err
		}
		s.box = box
	} else {
		box, err := secretbox.NewFromEnv()
		if err != nil {
			return nil, err
		}
		s.box = box
	}

	return s, nil
}

func (s *fileStore) load() error {
	s.doc = fileDoc{Entries: map[string]fileEntry{}}

	b, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("credstore: read %s: %w", s.path, err)
	}
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, &s.doc); err != nil {
		return fmt.Errorf("credstore: parse %s: %w", s.path, err)
	}
	if s.doc.Entries == nil {
		s.doc.Entries = map[string]fileEntry{}
	}
	return nil
}

func (s *fileStore) ensureSalt() ([]byte, error) {
	if s.doc.Salt != "" {
		salt, err := base64.StdEncoding.DecodeString(s.doc.Salt)
		if err != nil {
			return nil, fmt.Errorf("credstore: decode salt: %w", err)
		}
		return salt, nil
	}
	salt, err := secretbox.NewSalt()
	if err != nil {
		return nil, err
	}
	s.doc.Salt = base64.StdEncoding.EncodeToString(salt)
	if err := s.persist(); err != nil {
		return nil, err
	}
	return salt, nil
}

// persist is called with mu held (or before the store is shared).
func (s *fileStore) persist() error {
	b, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("credstore: marshal: %w", err)
	}
	return atomicwrite.AtomicWriteFile(s.path, b, 0600)
}

func (s *fileStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *fileStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.doc.Entries[s.key(key)]
	if !ok {
		return "", ErrNotFound
	}
	if e.ExpiresAt != 0 && time.Now().Unix() >= e.ExpiresAt {
		delete(s.doc.Entries, s.key(key))
		_ = s.persist()
		return "", ErrNotFound
	}
	return s.box.Open(e.Value)
}

func (s *fileStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	sealed, err := s.box.Seal(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := fileEntry{Value: sealed}
	if ttl > 0 {
		e.ExpiresAt = time.Now().Add(ttl).Unix()
	}
	s.doc.Entries[s.key(key)] = e
	return s.persist()
}

func (s *fileStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.doc.Entries[s.key(key)]; !ok {
		return nil
	}
	delete(s.doc.Entries, s.key(key))
	return s.persist()
}

func (s *fileStore) Close() error { return nil }
