package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// LockRow serializes writers that share (table, id) until tx ends.
//
// postgres takes a transaction-scoped advisory lock, which also guards key
// ranges that have no rows yet. mysql locks the parent row. sqlite already
// allows a single writer per database, so nothing is taken.
func LockRow(ctx context.Context, tx *gorm.DB, table string, id int64) error {
	switch DialectName(tx) {
	case DialectPostgres:
		key := fmt.Sprintf("%s:%d", table, id)
		return tx.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtextextended(?, 0))", key).Error
	case DialectMySQL:
		var locked int64
		return tx.WithContext(ctx).
			Raw(fmt.Sprintf("SELECT id FROM %s WHERE id = ? FOR UPDATE", table), id).
			Scan(&locked).Error
	default:
		return nil
	}
}

// ForUpdate returns tx with a row lock clause where the dialect supports it.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	switch DialectName(tx) {
	case DialectPostgres, DialectMySQL:
		return tx.Clauses(clauseLockingUpdate)
	default:
		return tx
	}
}
