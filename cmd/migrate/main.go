package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	appconfig "github.com/ikjoobang/xivix-ai-core-sub000/internal/config"
	appmigrations "github.com/ikjoobang/xivix-ai-core-sub000/migrations"
)

// command is one schema operation: up, down [n], force <version> or version.
type command struct {
	name string
	n    int
}

func parseCommand(args []string) (command, error) {
	if len(args) == 0 {
		return command{name: "up"}, nil
	}
	cmd := command{name: args[0]}
	switch cmd.name {
	case "up", "version":
		return cmd, nil
	case "down":
		cmd.n = 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return command{}, fmt.Errorf("down: invalid step count %q", args[1])
			}
			cmd.n = n
		}
		return cmd, nil
	case "force":
		if len(args) < 2 {
			return command{}, errors.New("force: version required")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return command{}, fmt.Errorf("force: invalid version %q", args[1])
		}
		cmd.n = v
		return cmd, nil
	default:
		return command{}, fmt.Errorf("unknown command %q (want up, down, force or version)", cmd.name)
	}
}

func main() {
	_ = godotenv.Load()

	cmd, err := parseCommand(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	cfg := appconfig.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	if err := run(cfg.DatabaseURL, cmd); err != nil {
		log.Fatal(err)
	}
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	dbDriver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "xivix_schema_migrations"})
	if err != nil {
		return nil, fmt.Errorf("migrate: db driver: %w", err)
	}
	src, err := iofs.New(appmigrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("migrate: source: %w", err)
	}
	return migrate.NewWithInstance("iofs", src, "postgres", dbDriver)
}

func run(databaseURL string, cmd command) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("migrate: open db: %w", err)
	}
	defer func() { _ = db.Close() }()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("migrate: ping db: %w", err)
	}

	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	switch cmd.name {
	case "force":
		err = m.Force(cmd.n)
	case "down":
		err = m.Steps(-cmd.n)
	case "up":
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate %s: %w", cmd.name, err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		fmt.Println("schema empty")
	case err != nil:
		return fmt.Errorf("migrate: version: %w", err)
	default:
		fmt.Printf("schema version %d (dirty=%t)\n", version, dirty)
	}
	return nil
}
