package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// txMaxRetries bounds how many times a transaction is replayed after a
// lock conflict before the error is surfaced to the caller.
const txMaxRetries = 3

// ErrTxContended is returned when a transaction kept losing lock conflicts
// after txMaxRetries attempts. Callers should surface it as a retryable
// service error rather than a client fault.
var ErrTxContended = errors.New("transaction contended, retries exhausted")

// WithTx runs fn inside a transaction and commits when fn returns nil.
// InnoDB deadlocks (1213) and lock wait timeouts (1205) roll the whole
// transaction back, so the closure is replayed from the start with a short
// backoff; any other error aborts immediately. fn must not retain the *sql.Tx
// beyond its return.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < txMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			if isLockConflict(err) {
				lastErr = err
				continue
			}
			return err
		}
		if err := tx.Commit(); err != nil {
			if isLockConflict(err) {
				lastErr = err
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("%w: %v", ErrTxContended, lastErr)
}

// isLockConflict reports whether err is a MySQL deadlock or lock wait
// timeout, the two conditions worth replaying a transaction for.
func isLockConflict(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1213 || me.Number == 1205
	}
	return false
}

// IsDuplicateEntry reports whether err is a MySQL unique-key violation
// (error 1062). Repositories use it to translate constraint hits into
// domain errors such as a duplicate lot name.
func IsDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return false
}
