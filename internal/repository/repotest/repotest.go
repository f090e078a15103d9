// Package repotest opens an in-memory sqlite store with the full schema for tests.
package repotest

import (
	"testing"

	"github.com/khatape/khata-ledger/internal/repository"
	"github.com/khatape/khata-ledger/pkg/pg"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type TestDB struct {
	*pg.DB
	Raw *gorm.DB
}

// NewTestDB returns a private in-memory database. It is limited to one connection,
// so code under test must not open a second query while a transaction is held.
func NewTestDB(t testing.TB) *TestDB {
	t.Helper()

	cfg := pg.GormConfig()
	cfg.Logger = logger.Default.LogMode(logger.Silent)

	db, err := gorm.Open(sqlite.Open(":memory:"), cfg)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, repository.AutoMigrate(db))

	return &TestDB{DB: pg.New(db, db), Raw: db}
}
