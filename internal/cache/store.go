// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/apex/log"
	"golang.org/x/crypto/blake2b"

	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/staranto/catinfo/internal/apperr"
)

const (
	defaultQueryTimeout = 5 * time.Second
	lastSweepName       = "last_sweep"
)

const schema = `
CREATE TABLE IF NOT EXISTS cached_images (
	key              TEXT PRIMARY KEY,
	data             BLOB NOT NULL,
	checksum         BLOB NOT NULL,
	created_at       INTEGER NOT NULL,
	last_accessed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS cached_images_last_accessed
	ON cached_images (last_accessed_at);
CREATE TABLE IF NOT EXISTS cache_meta (
	name  TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);`

// Entry is a row of the disk tier without its data.
type Entry struct {
	Key            string
	Size           int64
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

// StoreStats summarizes the disk tier.
type StoreStats struct {
	Path      string
	Entries   int64
	Bytes     int64
	Oldest    time.Time
	Newest    time.Time
	LastSweep time.Time
}

// Store is the disk tier: one SQLite table keyed by cache key. Every
// operation runs on the store's worker goroutine in submission order.
// Failures are logged as storage errors and read as misses or no-ops.
type Store struct {
	db           *sql.DB
	path         string
	w            *worker
	now          func() time.Time
	queryTimeout time.Duration
	closeOnce    sync.Once
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithClock sets the time source used for created/accessed stamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithQueryTimeout bounds each statement run by the worker.
func WithQueryTimeout(d time.Duration) StoreOption {
	return func(s *Store) { s.queryTimeout = d }
}

// OpenStore opens (creating if needed) the SQLite database at path.
func OpenStore(path string, opts ...StoreOption) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, apperr.Storage("open cache database", err)
	}
	// The worker is the only writer; one connection keeps SQLite happy.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:           db,
		path:         path,
		now:          time.Now,
		queryTimeout: defaultQueryTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.queryTimeout)
	defer cancel()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, apperr.Storage("create cache schema", err)
	}

	s.w = newWorker()
	log.Debugf("opened image cache: %s", path)
	return s, nil
}

// Path is the database file.
func (s *Store) Path() string {
	return s.path
}

// Read returns the bytes stored under key and refreshes its access time in
// the same transaction. A row whose checksum does not match is deleted and
// reported as a miss.
func (s *Store) Read(ctx context.Context, key string) ([]byte, bool) {
	type result struct {
		data []byte
		ok   bool
	}
	out := make(chan result, 1)

	err := s.w.do(ctx, func() {
		data, ok, err := s.read(key)
		if err != nil {
			s.logFailure("read", key, err)
		}
		out <- result{data: data, ok: ok}
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			s.logFailure("read", key, err)
		}
		return nil, false
	}

	r := <-out
	return r.data, r.ok
}

// Write upserts data under key. created_at is kept when the row exists and
// last_accessed_at is always refreshed. data must not be modified after the
// call.
func (s *Store) Write(key string, data []byte) {
	s.enqueue("write", key, func(ctx context.Context) error {
		sum := blake2b.Sum256(data)
		now := s.now().UnixMilli()
		return s.inTx(ctx, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `
INSERT INTO cached_images (key, data, checksum, created_at, last_accessed_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	data = excluded.data,
	checksum = excluded.checksum,
	last_accessed_at = excluded.last_accessed_at`,
				key, data, sum[:], now, now)
			return err
		})
	})
}

// Touch refreshes the access time of key if it exists.
func (s *Store) Touch(key string) {
	s.enqueue("touch", key, func(ctx context.Context) error {
		now := s.now().UnixMilli()
		return s.inTx(ctx, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx,
				`UPDATE cached_images SET last_accessed_at = ? WHERE key = ?`, now, key)
			return err
		})
	})
}

// Delete removes key if it exists.
func (s *Store) Delete(key string) {
	s.enqueue("delete", key, func(ctx context.Context) error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `DELETE FROM cached_images WHERE key = ?`, key)
			return err
		})
	})
}

// DeleteAll removes every row.
func (s *Store) DeleteAll() {
	s.enqueue("delete all", "", func(ctx context.Context) error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `DELETE FROM cached_images`)
			return err
		})
	})
}

// DeleteOlderThan removes rows last accessed before threshold, records the
// sweep time and returns the number of rows removed.
func (s *Store) DeleteOlderThan(ctx context.Context, threshold time.Time) int64 {
	out := make(chan int64, 1)

	err := s.w.do(ctx, func() {
		var n int64
		err := s.withTimeout(func(qctx context.Context) error {
			return s.inTx(qctx, func(tx *sql.Tx) error {
				res, err := tx.ExecContext(qctx,
					`DELETE FROM cached_images WHERE last_accessed_at < ?`, threshold.UnixMilli())
				if err != nil {
					return err
				}
				if n, err = res.RowsAffected(); err != nil {
					return err
				}
				_, err = tx.ExecContext(qctx, `
INSERT INTO cache_meta (name, value) VALUES (?, ?)
ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
					lastSweepName, s.now().UnixMilli())
				return err
			})
		})
		if err != nil {
			s.logFailure("sweep", "", err)
			n = 0
		}
		out <- n
	})
	if err != nil {
		return 0
	}
	return <-out
}

// LastSweep returns when DeleteOlderThan last completed.
func (s *Store) LastSweep(ctx context.Context) (time.Time, bool) {
	out := make(chan int64, 1)

	err := s.w.do(ctx, func() {
		var ms int64
		err := s.withTimeout(func(qctx context.Context) error {
			return s.db.QueryRowContext(qctx,
				`SELECT value FROM cache_meta WHERE name = ?`, lastSweepName).Scan(&ms)
		})
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			s.logFailure("last sweep", "", err)
		}
		out <- ms
	})
	if err != nil {
		return time.Time{}, false
	}
	ms := <-out
	if ms == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// Entries lists rows ordered by most recent access.
func (s *Store) Entries(ctx context.Context) []Entry {
	out := make(chan []Entry, 1)

	err := s.w.do(ctx, func() {
		var entries []Entry
		err := s.withTimeout(func(qctx context.Context) error {
			rows, err := s.db.QueryContext(qctx, `
SELECT key, length(data), created_at, last_accessed_at
FROM cached_images ORDER BY last_accessed_at DESC, key`)
			if err != nil {
				return err
			}
			defer rows.Close()
			for rows.Next() {
				var (
					e                Entry
					created, touched int64
				)
				if err := rows.Scan(&e.Key, &e.Size, &created, &touched); err != nil {
					return err
				}
				e.CreatedAt = time.UnixMilli(created)
				e.LastAccessedAt = time.UnixMilli(touched)
				entries = append(entries, e)
			}
			return rows.Err()
		})
		if err != nil {
			s.logFailure("list", "", err)
		}
		out <- entries
	})
	if err != nil {
		return nil
	}
	return <-out
}

// Stats summarizes the table. ok is false when the database could not be
// read.
func (s *Store) Stats(ctx context.Context) (StoreStats, bool) {
	out := make(chan StoreStats, 1)
	failed := make(chan bool, 1)

	err := s.w.do(ctx, func() {
		st := StoreStats{Path: s.path}
		err := s.withTimeout(func(qctx context.Context) error {
			var oldest, newest, swept sql.NullInt64
			err := s.db.QueryRowContext(qctx, `
SELECT count(*), coalesce(sum(length(data)), 0),
	min(last_accessed_at), max(last_accessed_at)
FROM cached_images`).Scan(&st.Entries, &st.Bytes, &oldest, &newest)
			if err != nil {
				return err
			}
			if oldest.Valid {
				st.Oldest = time.UnixMilli(oldest.Int64)
			}
			if newest.Valid {
				st.Newest = time.UnixMilli(newest.Int64)
			}
			err = s.db.QueryRowContext(qctx,
				`SELECT value FROM cache_meta WHERE name = ?`, lastSweepName).Scan(&swept)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return err
			}
			if swept.Valid {
				st.LastSweep = time.UnixMilli(swept.Int64)
			}
			return nil
		})
		if err != nil {
			s.logFailure("stats", "", err)
		}
		failed <- err != nil
		out <- st
	})
	if err != nil {
		return StoreStats{Path: s.path}, false
	}
	return <-out, !<-failed
}

// Sync returns once every operation submitted before it has completed.
func (s *Store) Sync(ctx context.Context) error {
	return s.w.do(ctx, func() {})
}

// Close drains queued work, stops the worker and closes the database.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.w.close()
		err = s.db.Close()
	})
	return err
}

func (s *Store) read(key string) ([]byte, bool, error) {
	var (
		data []byte
		sum  []byte
		hit  bool
	)
	err := s.withTimeout(func(ctx context.Context) error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			err := tx.QueryRowContext(ctx,
				`SELECT data, checksum FROM cached_images WHERE key = ?`, key).Scan(&data, &sum)
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			if err != nil {
				return err
			}

			if want := blake2b.Sum256(data); !bytes.Equal(want[:], sum) {
				log.WithField("key", key).Warn("discarding corrupt image cache entry")
				_, err = tx.ExecContext(ctx, `DELETE FROM cached_images WHERE key = ?`, key)
				return err
			}

			hit = true
			_, err = tx.ExecContext(ctx,
				`UPDATE cached_images SET last_accessed_at = ? WHERE key = ?`,
				s.now().UnixMilli(), key)
			return err
		})
	})
	if err != nil {
		return nil, false, err
	}
	if !hit {
		return nil, false, nil
	}
	return data, true, nil
}

// enqueue schedules a fire-and-forget mutation.
func (s *Store) enqueue(op, key string, fn func(context.Context) error) {
	ok := s.w.submit(func() {
		if err := s.withTimeout(fn); err != nil {
			s.logFailure(op, key, err)
		}
	})
	if !ok {
		s.logFailure(op, key, errWorkerClosed)
	}
}

func (s *Store) withTimeout(fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.queryTimeout)
	defer cancel()
	return fn(ctx)
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) logFailure(op, key string, err error) {
	e := log.WithError(apperr.Storage("image cache "+op, err))
	if key != "" {
		e = e.WithField("key", key)
	}
	e.Warn("image cache storage failure")
}
