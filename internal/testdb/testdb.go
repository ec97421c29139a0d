// Package testdb provides an in-memory database for tests.
package testdb

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aethra/upfronts/internal/database"
)

// New opens a fresh in-memory sqlite database with the full schema
// migrated. Each call returns an isolated database.
func New(t *testing.T) *gorm.DB {
	t.Helper()

	// Foreign keys are off by default in sqlite; cascades depend on them.
	db, err := gorm.Open(sqlite.Open(":memory:?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := database.RunMigrations(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}
