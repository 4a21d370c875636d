package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Init 根据驱动初始化数据库连接并执行自动迁移。
// sqlite 驱动下 path 为空时回退到默认值 linkbio.db；mysql 驱动使用 dsn。
func Init(driver, path, dsn string) (*gorm.DB, error) {
	dialector, err := dialectorFor(driver, path, dsn)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(strings.TrimSpace(driver), "sqlite") || strings.TrimSpace(driver) == "" {
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		// sqlite 单写者，避免 database is locked
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(gdb); err != nil {
		return nil, err
	}

	return gdb, nil
}

// Migrate 为核心模型创建或更新表结构
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&User{},
		&Profile{},
		&Link{},
		&Social{},
		&DesignAttribute{},
		&Avatar{},
	)
}

func dialectorFor(driver, path, dsn string) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			trimmed = "linkbio.db"
		}
		if err := ensureParentDir(trimmed); err != nil {
			return nil, err
		}
		return sqlite.Open(trimmed), nil
	case "mysql":
		if strings.TrimSpace(dsn) == "" {
			return nil, errors.New("mysql dsn is required")
		}
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
