package cachestore

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// FilesystemStore is a Store backed by a directory tree, adapted from
// the teacher's tile cache: one file per key, keyed by a hash of the
// cache key rather than (x, y, z). Expiration is tracked with a sidecar
// ".exp" file holding a Unix timestamp; protection is tracked with a
// ".protected" marker file.
type FilesystemStore struct {
	baseDir    string
	defaultTTL time.Duration
	now        func() time.Time
}

var _ Store = (*FilesystemStore)(nil)

func NewFilesystemStore(baseDir string, defaultTTL time.Duration) (*FilesystemStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("cachestore: create base dir: %w", err)
	}
	return &FilesystemStore{baseDir: baseDir, defaultTTL: defaultTTL, now: time.Now}, nil
}

func (s *FilesystemStore) pathFor(key string) string {
	sum := sha1.Sum([]byte(key))
	return filepath.Join(s.baseDir, hex.EncodeToString(sum[:]))
}

func (s *FilesystemStore) isProtected(path string) bool {
	_, err := os.Stat(path + ".protected")
	return err == nil
}

func (s *FilesystemStore) expired(path string) bool {
	if s.isProtected(path) {
		return false
	}
	raw, err := os.ReadFile(path + ".exp")
	if err != nil {
		return false
	}
	expiresAt, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return false
	}
	return s.now().Unix() > expiresAt
}

func (s *FilesystemStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	path := s.pathFor(key)
	if s.expired(path) {
		s.removeFiles(path)
		return nil, false, nil
	}
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return content, true, nil
}

func (s *FilesystemStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	path := s.pathFor(key)
	if err := os.WriteFile(path, value, 0644); err != nil {
		return err
	}
	if err := os.WriteFile(path+".key", []byte(key), 0644); err != nil {
		return err
	}
	if ttl > 0 {
		exp := strconv.FormatInt(s.now().Add(ttl).Unix(), 10)
		return os.WriteFile(path+".exp", []byte(exp), 0644)
	}
	_ = os.Remove(path + ".exp")
	return nil
}

func (s *FilesystemStore) Contains(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

func (s *FilesystemStore) RemoveKeysWithPrefix(_ context.Context, prefix string) (bool, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return false, err
	}
	// Filesystem keys are content-addressed by hash, so we cannot derive
	// the hash from a prefix; fall back to a manifest-free linear scan by
	// re-hashing is impossible without the original key, so instead this
	// store keeps a ".key" sidecar recording the literal key for prefix
	// matching.
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".key") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		if strings.HasPrefix(string(raw), prefix) {
			base := strings.TrimSuffix(filepath.Join(s.baseDir, entry.Name()), ".key")
			s.removeFiles(base)
		}
	}
	return true, nil
}

func (s *FilesystemStore) removeFiles(path string) {
	_ = os.Remove(path)
	_ = os.Remove(path + ".exp")
	_ = os.Remove(path + ".key")
}

func (s *FilesystemStore) Protect(_ context.Context, keys []string) error {
	for _, key := range keys {
		path := s.pathFor(key)
		if err := os.WriteFile(path+".protected", nil, 0644); err != nil {
			return err
		}
		if err := os.WriteFile(path+".key", []byte(key), 0644); err != nil {
			return err
		}
	}
	return nil
}

func (s *FilesystemStore) Release(_ context.Context, keys []string) error {
	for _, key := range keys {
		path := s.pathFor(key)
		if err := os.Remove(path + ".protected"); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
