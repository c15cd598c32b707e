// Package repotest opens throwaway databases for repository and handler tests.
package repotest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/tnqbao/gau-playbook-orchestrator/infra"
	"gorm.io/gorm"
)

// OpenTestDB returns a migrated in-memory SQLite database private to t
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	db, err := infra.OpenDatabase("sqlite", dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := infra.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
