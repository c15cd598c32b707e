package infra

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/tnqbao/gau-playbook-orchestrator/config"
	"github.com/tnqbao/gau-playbook-orchestrator/entity"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DatabaseClient struct {
	DB     *gorm.DB
	Driver string
}

func InitDatabaseClient(cfg *config.EnvConfig) *DatabaseClient {
	var dsn string
	switch cfg.Database.Driver {
	case "postgres":
		dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			cfg.Database.HOST,
			cfg.Database.Username,
			cfg.Database.Password,
			cfg.Database.Name,
			cfg.Database.Port,
		)
	case "sqlite":
		if dir := filepath.Dir(cfg.Database.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				panic(fmt.Sprintf("Failed to create SQLite directory: %v", err))
			}
		}
		dsn = cfg.Database.SQLitePath + "?_busy_timeout=5000&_foreign_keys=on"
	default:
		panic(fmt.Sprintf("Unsupported database driver: %s", cfg.Database.Driver))
	}

	db, err := OpenDatabase(cfg.Database.Driver, dsn)
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to database: %v", err))
	}

	if err := Migrate(db); err != nil {
		panic(fmt.Sprintf("Failed to migrate database: %v", err))
	}

	log.Printf("Connected to %s database", cfg.Database.Driver)

	return &DatabaseClient{DB: db, Driver: cfg.Database.Driver}
}

// OpenDatabase opens a gorm connection for the given driver.
// SQLite is pinned to a single connection: it serializes writers anyway and
// in-memory databases are per-connection.
func OpenDatabase(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.Node{},
		&entity.NodeGroup{},
		&entity.PlaybookExecution{},
	)
}

func (d *DatabaseClient) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
