package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"gorm.io/gorm"
)

// TxOptions controls RunInTransaction.
type TxOptions struct {
	Isolation sql.IsolationLevel
	// Retries is the number of replays after a serialization failure.
	Retries int
}

// ParseIsolation maps a policy value to a driver isolation level.
func ParseIsolation(name string) sql.IsolationLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "serializable":
		return sql.LevelSerializable
	case "repeatable_read":
		return sql.LevelRepeatableRead
	case "read_committed":
		return sql.LevelReadCommitted
	default:
		return sql.LevelDefault
	}
}

// RunInTransaction runs fn inside a transaction at the requested isolation.
// fn is replayed from scratch when the store aborts the transaction with a
// serialization failure or deadlock; any other error is returned as is.
func RunInTransaction(ctx context.Context, conn *gorm.DB, opts TxOptions, fn func(tx *gorm.DB) error) error {
	var txOpts []*sql.TxOptions
	if opts.Isolation != sql.LevelDefault && DialectName(conn) != DialectSQLite {
		txOpts = append(txOpts, &sql.TxOptions{Isolation: opts.Isolation})
	}

	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxInterval = 200 * time.Millisecond

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := conn.WithContext(ctx).Transaction(fn, txOpts...)
		if err != nil && !IsRetryableTxErr(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(uint(retries+1)))
	return err
}
