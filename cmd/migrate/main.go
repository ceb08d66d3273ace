package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"conti/migrations"
	"conti/shared/go/logging"
)

const usage = "usage: migrate [-database URL] up | down | version | force N"

func main() {
	logging.Setup(logging.Config{Level: "info", Format: "text"})

	if err := run(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
}

func run(args []string) error {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dsn := fs.String("database", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dsn == "" {
		return errors.New("DATABASE_URL is required")
	}
	if fs.NArg() < 1 {
		return errors.New(usage)
	}

	db, err := sql.Open("postgres", *dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	m, err := newMigrator(db)
	if err != nil {
		return err
	}

	switch cmd := fs.Arg(0); cmd {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("apply migrations: %w", err)
		}
		log.Info().Msg("migrations applied")
	case "down":
		if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("roll back migration: %w", err)
		}
		log.Info().Msg("rolled back one migration")
	case "version":
		version, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			return fmt.Errorf("read version: %w", err)
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("schema version")
	case "force":
		if fs.NArg() != 2 {
			return errors.New(usage)
		}
		version, err := strconv.Atoi(fs.Arg(1))
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", fs.Arg(1), err)
		}
		if err := m.Force(version); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
		log.Info().Int("version", version).Msg("forced schema version")
	default:
		return fmt.Errorf("unknown command %q: %s", cmd, usage)
	}
	return nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create postgres driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, nil
}
