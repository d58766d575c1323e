package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/IlianBuh/Wall/internal/config"
	cfgStorage "github.com/IlianBuh/Wall/internal/config/storage"
	"github.com/IlianBuh/Wall/internal/lib/logger/sl"
	"github.com/IlianBuh/Wall/migrations"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

func main() {
	var (
		migrationsPath string
		down           bool
	)

	flag.StringVar(&migrationsPath, "migrations-path", "", "path to directory with migration files, embedded migrations are used if empty")
	flag.BoolVar(&down, "down", false, "roll back all migrations")
	cfg := config.New().Storage

	m, err := newMigrator(cfg, migrationsPath)
	if err != nil {
		slog.Error("failed to create new migrator instance", sl.Err(err))
		os.Exit(1)
	}
	defer m.Close()

	if down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("no changes")
			return
		}
		slog.Error("failed to migrate", sl.Err(err))
		os.Exit(1)
	}

	slog.Info("migrations applied", slog.String("driver", cfg.Driver), slog.Bool("down", down))
}

func newMigrator(cfg cfgStorage.Config, migrationsPath string) (*migrate.Migrate, error) {
	var conn, dir string

	switch cfg.Driver {
	case cfgStorage.DriverPostgres:
		conn = fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=disable",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
		)
		dir = migrations.PostgresDir
	case cfgStorage.DriverSQLite:
		conn = "sqlite://" + cfg.Path
		dir = migrations.SQLiteDir
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}

	if migrationsPath != "" {
		return migrate.New("file://"+migrationsPath, conn)
	}

	src, err := iofs.New(migrations.FS, dir)
	if err != nil {
		return nil, err
	}

	return migrate.NewWithSourceInstance("iofs", src, conn)
}
