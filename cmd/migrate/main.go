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
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"signal-market/internal/config"
)

func main() {
	dir := flag.String("dir", "migrations", "directory holding the *.up.sql / *.down.sql files")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: migrate [-dir migrations] up|down|version|force <version>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	log := logrus.New()

	cfg, err := config.LoadRaw()
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}
	if cfg.Database.Driver != "postgres" {
		log.Fatalf("migrations target postgres; DB_DRIVER is %q (sqlite uses AutoMigrate)", cfg.Database.Driver)
	}

	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		log.WithError(err).Fatal("Failed to open database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.WithError(err).Fatal("Failed to ping database")
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.WithError(err).Fatal("Failed to create migration driver")
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+*dir, "postgres", driver)
	if err != nil {
		log.WithError(err).Fatal("Failed to load migrations")
	}

	if err := run(m, flag.Args()); err != nil {
		log.WithError(err).Fatal("Migration failed")
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Info("Database has no migrations applied")
	case err != nil:
		log.WithError(err).Fatal("Failed to read migration version")
	default:
		log.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("Migration complete")
	}
}

func run(m *migrate.Migrate, args []string) error {
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "version":
		return nil
	case "force":
		if len(args) < 2 {
			return fmt.Errorf("force needs a version")
		}
		v, perr := strconv.Atoi(args[1])
		if perr != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], perr)
		}
		err = m.Force(v)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}
