// Package sqlitekv is the storage adapter: relational persistence for
// items, statuses, tags, keywords, concepts, relations, and system
// state, backed by the embedded pure-Go CGO-free SQLite engine
// github.com/ncruces/go-sqlite3.
package sqlitekv

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver" // registers "sqlite3"
	_ "github.com/ncruces/go-sqlite3/embed"  // ships the wazero-compiled engine

	"github.com/shirokuma-kb/core/internal/kberrors"
	"github.com/shirokuma-kb/core/internal/kbtypes"
	"github.com/shirokuma-kb/core/internal/obs"
	"github.com/shirokuma-kb/core/internal/sqlitekv/migrations"
)

// busyTimeoutMillis bounds how long a single statement waits on a
// write lock before surfacing SQLITE_BUSY, the "5s recommended"
// ceiling from the concurrency model.
const busyTimeoutMillis = 5000

// Store wraps a *sql.DB capped to a single open connection: SQLite
// only ever has one writer at a time regardless of pool size, and a
// single connection keeps a transaction and the statements run
// against it on the same underlying connection rather than letting
// database/sql hand out a different one mid-transaction.
type Store struct {
	db *sql.DB
}

// Open parses a "file:<path>" database URL, opens the embedded engine
// with foreign keys enabled and a busy timeout, applies pending schema
// migrations (idempotent, safe to run on every start), and seeds the
// 12 default statuses if the table is empty.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, kberrors.Invalid("database URL must not be empty")
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(ON)&_pragma=busy_timeout(%d)", databaseURL, busyTimeoutMillis)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, kberrors.Internal("open database: %v", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, kberrors.Internal("ping database: %v", err)
	}

	s := &Store{db: db}
	if err := migrations.Apply(ctx, db); err != nil {
		_ = db.Close()
		return nil, kberrors.Internal("apply migrations: %v", err)
	}
	if err := s.seedStatuses(ctx); err != nil {
		_ = db.Close()
		return nil, kberrors.Internal("seed statuses: %v", err)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) seedStatuses(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM statuses`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, st := range kbtypes.DefaultStatuses {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO statuses (name, is_closable, sort_order) VALUES (?, ?, ?)`,
			st.Name, st.IsClosable, st.SortOrder,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// withRetry runs fn up to 3 attempts with exponential backoff when the
// underlying error is a transient SQLITE_BUSY/SQLITE_LOCKED condition.
func withRetry(ctx context.Context, fn func() error) error {
	const maxAttempts = 3
	backoff := 50 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
		}
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isBusyErr(err) {
			return err
		}
		obs.Debugf("sqlitekv: transient busy error, attempt %d/%d: %v", attempt+1, maxAttempts, err)
	}
	return fmt.Errorf("%w: %v", kberrors.ErrTransient, lastErr)
}

func isBusyErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return containsAny(msg, "SQLITE_BUSY", "database is locked", "SQLITE_LOCKED")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if len(sub) <= len(s) && indexOf(s, sub) >= 0 {
			return true
		}
	}
	return false
}

func indexOf(s, sub string) int {
	n, m := len(s), len(sub)
	if m == 0 {
		return 0
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == sub {
			return i
		}
	}
	return -1
}

// withTx runs fn inside a single transaction, committing on success and
// rolling back on any error or panic. The whole begin/fn/commit
// sequence runs under withRetry, so a busy error anywhere in it rolls
// back and retries the transaction from the start — every multi-row
// Item write executes in exactly one transaction.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	return withRetry(ctx, func() error {
		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return txErr
		}
		committed := false
		defer func() {
			if !committed {
				_ = tx.Rollback()
			}
		}()

		if fnErr := fn(tx); fnErr != nil {
			return fnErr
		}
		if commitErr := tx.Commit(); commitErr != nil {
			return commitErr
		}
		committed = true
		return nil
	})
}
