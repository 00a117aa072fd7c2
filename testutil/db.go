package testutil

import (
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zmagaj/questlog/models"
)

// NewTestDB creates an in-memory SQLite database for testing purposes.
// It auto-migrates the provided models and ensures the underlying connection
// is closed when the test finishes. TranslateError is on, matching the
// production gorm config, so unique-index violations surface as
// gorm.ErrDuplicatedKey.
func NewTestDB(t *testing.T, mods ...any) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if len(mods) > 0 {
		if err := db.AutoMigrate(mods...); err != nil {
			t.Fatalf("failed to migrate test database: %v", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB from gorm: %v", err)
	}

	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

// NewAppDB creates a test database migrated with the full application schema.
func NewAppDB(t *testing.T) *gorm.DB {
	t.Helper()
	return NewTestDB(t,
		&models.User{},
		&models.Profile{},
		&models.Stats{},
		&models.ActivityType{},
		&models.ActivityLog{},
		&models.Reward{},
		&models.Redemption{},
		&models.DailySummary{},
		&models.WeeklySummary{},
	)
}
