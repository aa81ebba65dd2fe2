package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Connect opens a GORM connection for the configured driver. sqlite is the
// default for single-host study deployments; mysql for anything shared.
func Connect(driver, dsn, sqlitePath string) (*gorm.DB, error) {
	switch driver {
	case "mysql":
		if dsn == "" {
			return nil, fmt.Errorf("db: DB_DSN is required for mysql")
		}
		return gorm.Open(mysql.Open(dsn), &gorm.Config{})
	case "", "sqlite":
		if dir := filepath.Dir(sqlitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("db: create data dir: %w", err)
			}
		}
		return gorm.Open(sqlite.Open(sqlitePath), &gorm.Config{})
	default:
		return nil, fmt.Errorf("db: unsupported driver %q", driver)
	}
}
