// Package testutil builds in-memory stores and fixtures for package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	catalogdomain "github.com/smallbiznis/spacebook/internal/catalog/domain"
	"github.com/smallbiznis/spacebook/internal/migration"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// OpenDB returns a migrated in-memory sqlite store. A single connection
// serializes writers the same way the file-backed store does.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:spacebook_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), dbSeq.Add(1))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migration.AutoMigrate(conn))
	return conn
}

func Node(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

// CreateSpace inserts an active space billed at ratePerHour minor units.
func CreateSpace(t *testing.T, db *gorm.DB, node *snowflake.Node, name string, ratePerHour int64) *catalogdomain.Space {
	t.Helper()
	space := &catalogdomain.Space{
		ID:          node.Generate(),
		Name:        name,
		Slug:        fmt.Sprintf("space-%d", node.Generate()),
		RatePerHour: ratePerHour,
		Currency:    "usd",
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, db.Create(space).Error)
	return space
}
