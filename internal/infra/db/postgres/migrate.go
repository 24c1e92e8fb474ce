package postgres

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
)

// Migrator applies the embedded schema through golang-migrate.
type Migrator struct {
	m   *migrate.Migrate
	log *zerolog.Logger
}

// NewMigrator opens a migrate instance reading *.sql files from src.
// dsn must be a postgres:// URL.
func NewMigrator(src fs.FS, dsn string, logger *zerolog.Logger) (*Migrator, error) {
	d, err := iofs.New(src, ".")
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", d, dsn)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	ml := logger.With().Str("component", "migrator").Logger()
	return &Migrator{m: m, log: &ml}, nil
}

func (mg *Migrator) Up() error {
	err := mg.m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		mg.log.Info().Msg("schema up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	mg.log.Info().Msg("migrations applied")
	return nil
}

func (mg *Migrator) Down() error {
	err := mg.m.Down()
	if errors.Is(err, migrate.ErrNoChange) {
		mg.log.Info().Msg("nothing to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	mg.log.Info().Msg("migrations rolled back")
	return nil
}

// Version returns the applied version; 0 with no error when nothing ran yet.
func (mg *Migrator) Version() (uint, bool, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// Force clears a dirty flag after a failed migration was fixed by hand.
func (mg *Migrator) Force(version int) error {
	return mg.m.Force(version)
}

func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}
