package cachestore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/kosma/geocatalog/internal/logger"
)

// SQLiteStore is a Store persisted to a SQLite database, adapted from
// the teacher's tile cache but keyed by arbitrary string rather than
// (x, y, z), and extended with TTL and a protected column so the
// registry's pin can survive a process restart.
type SQLiteStore struct {
	db         *sql.DB
	defaultTTL time.Duration
	log        logger.Logger
	now        func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (and migrates) the SQLite database at path.
func NewSQLiteStore(path string, defaultTTL time.Duration, l logger.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db, defaultTTL: defaultTTL, log: l, now: time.Now}
	if err := s.runMigrations(); err != nil {
		return nil, err
	}

	l.Info("sqlite cache store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) runMigrations() error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.Up(s.db, "migrations")
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const query = `SELECT value, expires_at, protected FROM cache_records WHERE key = ?`

	var value []byte
	var expiresAt sql.NullInt64
	var protected int
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value, &expiresAt, &protected)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		s.log.Error("sqlite cache get failed", "key", key, "error", err)
		return nil, false, err
	}

	if protected == 0 && expiresAt.Valid && expiresAt.Int64 < s.now().Unix() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM cache_records WHERE key = ?`, key)
		return nil, false, nil
	}
	return value, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = s.defaultTTL
	}

	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: s.now().Add(ttl).Unix(), Valid: true}
	}

	const query = `INSERT INTO cache_records (key, value, expires_at, protected)
	VALUES (?, ?, ?, 0)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`

	_, err := s.db.ExecContext(ctx, query, key, value, expiresAt)
	if err != nil {
		s.log.Error("sqlite cache put failed", "key", key, "error", err)
	}
	return err
}

func (s *SQLiteStore) Contains(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

func (s *SQLiteStore) RemoveKeysWithPrefix(ctx context.Context, prefix string) (bool, error) {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_records WHERE key LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%")
	if err != nil {
		s.log.Error("sqlite cache prefix removal failed", "prefix", prefix, "error", err)
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) Protect(ctx context.Context, keys []string) error {
	for _, key := range keys {
		_, err := s.db.ExecContext(ctx, `INSERT INTO cache_records (key, value, expires_at, protected)
			VALUES (?, x'', NULL, 1)
			ON CONFLICT(key) DO UPDATE SET protected = protected + 1`, key)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Release(ctx context.Context, keys []string) error {
	for _, key := range keys {
		_, err := s.db.ExecContext(ctx, `UPDATE cache_records SET protected = protected - 1
			WHERE key = ? AND protected > 0`, key)
		if err != nil {
			return err
		}
	}
	return nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
