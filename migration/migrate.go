package migration

import (
	"context"
	"database/sql"
	"quadnav/config"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

// WaitForDB pings the database until it answers, at most retries times.
func WaitForDB(ctx context.Context, db config.DBConfig, retries int, delay time.Duration) error {
	if retries < 1 {
		retries = 1
	}

	conn, err := sql.Open("postgres", db.DSN())
	if err != nil {
		return errors.New("opening database failed").Wrap(err)
	}
	defer conn.Close()

	for i := 0; i < retries; i++ {
		if err = conn.PingContext(ctx); err == nil {
			logs.WithTag("host", db.Host).Info("database is ready")
			return nil
		}

		logs.Warn(errors.New("database is not ready").
			WithTag("attempt", i+1).
			WithTag("retries", retries).
			Wrap(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return errors.New("could not connect to the database").
		WithTag("host", db.Host).
		WithTag("retries", retries).
		Wrap(err)
}

// Run waits for the database and applies every pending migration. Having
// nothing to apply is not an error.
func Run(ctx context.Context, db config.DBConfig, cfg config.MigrationsConfig) error {
	if err := WaitForDB(ctx, db, cfg.Retries, cfg.RetryDelay); err != nil {
		return err
	}

	m, err := migrate.New(cfg.Path, db.URL())
	if err != nil {
		return errors.New("could not start migrations").
			WithTag("path", cfg.Path).
			Wrap(err)
	}
	defer m.Close()

	err = m.Up()
	switch {
	case err == migrate.ErrNoChange:
		logs.WithTag("path", cfg.Path).Info("database schema is up to date")
		return nil

	case err != nil:
		return errors.New("migration failed").Wrap(err)
	}

	version, dirty, _ := m.Version()
	logs.WithTag("version", version).
		WithTag("dirty", dirty).
		Info("migrations applied successfully")
	return nil
}
