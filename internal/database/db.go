package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nikhil/rosters/internal/config"
	"github.com/nikhil/rosters/internal/logger"
	teammodels "github.com/nikhil/rosters/internal/models/teams"
	usermodels "github.com/nikhil/rosters/internal/models/users"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// InitDB opens the configured database, checks the connection and migrates
// the schema.
func InitDB(cfg config.DatabaseConfig, log *logger.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = gormmysql.Open(cfg.DSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := Open(dialector, gormConfig(cfg, log))
	if err != nil {
		return nil, err
	}

	log.Info("Database connected successfully", "driver", cfg.Driver)
	return db, nil
}

// Open connects through an already built dialector, sets pool limits and
// runs the migrations.
func Open(dialector gorm.Dialector, gcfg *gorm.Config) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the tables used by the application.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&usermodels.User{}, &teammodels.Team{}, &teammodels.TeamPlayer{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsDuplicateKey reports whether err is a unique constraint violation.
func IsDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	return false
}

func gormConfig(cfg config.DatabaseConfig, log *logger.Logger) *gorm.Config {
	level := gormlogger.Warn
	if cfg.LogSQL {
		level = gormlogger.Info
	}
	return &gorm.Config{
		TranslateError: true,
		// SQLite cannot add constraints to existing tables; cascades are
		// also carried out explicitly by the team service.
		DisableForeignKeyConstraintWhenMigrating: cfg.Driver == "sqlite",
		Logger: gormlogger.New(log, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	}
}
