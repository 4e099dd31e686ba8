package postgres

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations applies the database migrations from the specified source URL using the provided Data Source Name (DSN).
func RunMigrations(sourceURL string, dsn string) error {
	const op = "postgres.RunMigrations"

	m, err := migrate.New(sourceURL, dsn)
	if err != nil {
		return fmt.Errorf("%s: failed to initialize migrations: %w", op, err)
	}

	return up(op, m)
}

// RunMigrationsFS applies the migrations stored under dir of fsys.
func RunMigrationsFS(fsys fs.FS, dir string, dsn string) error {
	const op = "postgres.RunMigrationsFS"

	src, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("%s: failed to open migrations source: %w", op, err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("%s: failed to initialize migrations: %w", op, err)
	}

	return up(op, m)
}

func up(op string, m *migrate.Migrate) error {
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	return nil
}
