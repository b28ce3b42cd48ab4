// Package migrations применяет встроенные SQL-миграции через golang-migrate.
// Схема хранится в двух диалектах: postgres для продакшена и sqlite для тестов.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

//go:embed postgres/*.sql sqlite/*.sql
var migrationFiles embed.FS

// Dialect — диалект SQL, для которого берутся файлы миграций
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// driverNames — имя database/sql драйвера для каждого диалекта
var driverNames = map[Dialect]string{
	Postgres: "postgres",
	SQLite:   "sqlite3",
}

// MigrateUpDSN применяет миграции через отдельное подключение, которое
// закрывается по завершении. Драйвер postgres занимает одно соединение
// db до его закрытия, поэтому пул приложения сюда не передаётся.
func MigrateUpDSN(dsn string, dialect Dialect) error {
	return withDedicatedDB(dsn, dialect, MigrateUp)
}

// CheckDBMigrationStatusDSN — CheckDBMigrationStatus на отдельном подключении
func CheckDBMigrationStatusDSN(dsn string, dialect Dialect) error {
	return withDedicatedDB(dsn, dialect, CheckDBMigrationStatus)
}

func withDedicatedDB(dsn string, dialect Dialect, fn func(*sql.DB, Dialect) error) error {
	name, ok := driverNames[dialect]
	if !ok {
		return fmt.Errorf("unknown dialect %q", dialect)
	}
	db, err := sql.Open(name, dsn)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	return fn(db, dialect)
}

// MigrateUp применяет все недостающие миграции на переданном db.
// m не закрывается, это закрыло бы db; для postgres одно соединение db
// остаётся занятым, пока db не закрыт. Продакшен использует MigrateUpDSN.
func MigrateUp(db *sql.DB, dialect Dialect) error {
	m, err := newMigrate(db, dialect)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// CheckDBMigrationStatus возвращает nil, если схема на последней версии.
func CheckDBMigrationStatus(db *sql.DB, dialect Dialect) error {
	m, err := newMigrate(db, dialect)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return fmt.Errorf("database has no schema version (needs migration)")
		}
		return fmt.Errorf("failed to get database version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d (migration failed previously)", version)
	}

	src, err := iofs.New(migrationFiles, string(dialect))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}
	defer src.Close()

	latest, err := latestVersion(src)
	if err != nil {
		return fmt.Errorf("failed to determine latest version: %w", err)
	}

	switch {
	case version < latest:
		return fmt.Errorf("database is at version %d but latest is %d", version, latest)
	case version > latest:
		return fmt.Errorf("database version %d is ahead of binary version %d", version, latest)
	}
	return nil
}

func newMigrate(db *sql.DB, dialect Dialect) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, string(dialect))
	if err != nil {
		return nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	var (
		driver     database.Driver
		driverName string
	)
	switch dialect {
	case Postgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
		driverName = "postgres"
	case SQLite:
		driver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
		driverName = "sqlite3"
	default:
		err = fmt.Errorf("unknown dialect %q", dialect)
	}
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driverName, driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

func latestVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(version)
		if err != nil {
			break
		}
		version = next
	}
	return version, nil
}
