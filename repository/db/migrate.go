package db

import (
	"fmt"

	"assignado/internal/domain/errors"
	"assignado/internal/logging"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migration applies every pending up migration found under migratePath.
func Migration(dbDSN, migratePath string) error {
	if dbDSN == "" || migratePath == "" {
		return fmt.Errorf("%w: dsn and migrations path are required", errors.ErrBadRequest)
	}
	log := logging.Component("migrate")

	m, err := migrate.New("file://"+migratePath, dbDSN)
	if err != nil {
		return fmt.Errorf("%w: open migrations: %v", errors.ErrStore, err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.WithField("source", srcErr).WithField("database", dbErr).Warn("closing migrator")
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("schema is up to date")
			return nil
		}
		return fmt.Errorf("%w: apply migrations: %v", errors.ErrStore, err)
	}
	version, dirty, _ := m.Version()
	log.WithField("version", version).WithField("dirty", dirty).Info("migrations applied")
	return nil
}
