package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/emilianohg/devtracker/internal/config"
	"github.com/emilianohg/devtracker/internal/dberr"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const pingTimeout = 10 * time.Second

// ErrExternalSchema is returned when migrations are requested against the
// host database, whose schema is owned by Web-CAT.
var ErrExternalSchema = errors.New("schema is managed by the host application")

// MigrationStatus holds information about database migration state
type MigrationStatus struct {
	CurrentVersion uint
	LatestVersion  uint
	Dirty          bool
	Pending        bool
}

// Open creates the connection pool described by cfg and waits until the
// database answers a ping. The caller owns the returned handle.
func Open(cfg config.DatabaseConfig) (*sql.DB, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	database, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, &dberr.ConnectionError{Op: "open", Err: err}
	}

	database.SetMaxOpenConns(cfg.MaxOpenConns)
	database.SetMaxIdleConns(cfg.MaxIdleConns)
	database.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := pingWithRetry(database, cfg.ConnectRetries, cfg.RetryBackoff); err != nil {
		database.Close()
		return nil, err
	}

	return database, nil
}

// OpenAndMigrate opens the database and brings the local mirror schema up to date
func OpenAndMigrate(cfg config.DatabaseConfig) (*sql.DB, error) {
	database, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(database, cfg.Driver); err != nil {
		database.Close()
		return nil, err
	}

	return database, nil
}

// DSN builds the driver connection string. Credentials go through the
// driver's own formatter, never string concatenation.
func DSN(cfg config.DatabaseConfig) (string, error) {
	switch cfg.Driver {
	case "mysql":
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		mc.DBName = cfg.Name
		mc.Loc = time.UTC
		return mc.FormatDSN(), nil
	case "sqlite3":
		return cfg.Path + "?_foreign_keys=on&_busy_timeout=5000", nil
	default:
		return "", fmt.Errorf("unsupported database driver: %q", cfg.Driver)
	}
}

func pingWithRetry(database *sql.DB, retries int, backoff time.Duration) error {
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * backoff)
		}

		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		err = database.PingContext(ctx)
		cancel()
		if err == nil {
			return nil
		}
	}
	return &dberr.ConnectionError{Op: "ping", Err: err}
}

// GetMigrationStatus returns the current migration status
func GetMigrationStatus(database *sql.DB, driver string) (*MigrationStatus, error) {
	m, err := getMigrator(database, driver)
	if err != nil {
		return nil, err
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return nil, err
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}

	var latestVersion uint
	first, err := source.First()
	if err == nil {
		latestVersion = first
		for {
			next, err := source.Next(latestVersion)
			if err != nil {
				break
			}
			latestVersion = next
		}
	}

	return &MigrationStatus{
		CurrentVersion: version,
		LatestVersion:  latestVersion,
		Dirty:          dirty,
		Pending:        version < latestVersion,
	}, nil
}

// RunMigrations runs all pending migrations
func RunMigrations(database *sql.DB, driver string) error {
	m, err := getMigrator(database, driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	return nil
}

func getMigrator(database *sql.DB, driver string) (*migrate.Migrate, error) {
	if driver != "sqlite3" {
		return nil, ErrExternalSchema
	}
	if database == nil {
		return nil, fmt.Errorf("database not open")
	}

	instance, err := sqlite3.WithInstance(database, &sqlite3.Config{})
	if err != nil {
		return nil, err
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}

	return migrate.NewWithInstance("iofs", source, "sqlite3", instance)
}
