package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/linkbio/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:service-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})

	return gdb
}

func seedProfile(t *testing.T, gdb *gorm.DB, userID, displayName string) db.Profile {
	t.Helper()

	user := db.User{ID: userID, Name: displayName, Email: userID + "@example.com", Password: "x"}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	profile := db.Profile{UserID: userID, DisplayName: displayName, Username: slugify(displayName) + "-" + userID}
	if err := gdb.Create(&profile).Error; err != nil {
		t.Fatalf("failed to seed profile: %v", err)
	}
	return profile
}

func strPtr(v string) *string {
	return &v
}

func boolPtr(v bool) *bool {
	return &v
}

func intPtr(v int) *int {
	return &v
}
