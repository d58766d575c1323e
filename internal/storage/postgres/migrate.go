package postgres

import (
	"errors"

	"github.com/IlianBuh/Wall/migrations"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Migrate applies embedded schema migrations. Up-to-date schema is not an error.
// The migrator is not closed as it would close the storage pool
func (s *Storage) Migrate() error {
	const op = "postgres.Migrate"

	src, err := iofs.New(migrations.FS, migrations.PostgresDir)
	if err != nil {
		return fail(op, err)
	}

	driver, err := migratepg.WithInstance(s.db, &migratepg.Config{})
	if err != nil {
		return fail(op, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fail(op, err)
	}

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fail(op, err)
	}

	return nil
}
