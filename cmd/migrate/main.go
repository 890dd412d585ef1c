package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/erp/receiving/internal/infrastructure/config"
	"github.com/erp/receiving/internal/infrastructure/logger"
	"github.com/erp/receiving/internal/infrastructure/migration"
	"github.com/erp/receiving/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// dbCommand runs against an open migrator. args excludes the command name.
type dbCommand func(m *migration.Migrator, log *zap.Logger, args []string) error

var dbCommands = map[string]dbCommand{
	"up":   func(m *migration.Migrator, _ *zap.Logger, _ []string) error { return m.Up() },
	"down": func(m *migration.Migrator, _ *zap.Logger, _ []string) error { return m.Down() },
	"step": func(m *migration.Migrator, _ *zap.Logger, args []string) error {
		n, err := intArg(args, "step <n>")
		if err != nil {
			return err
		}
		return m.Steps(n)
	},
	"goto": func(m *migration.Migrator, _ *zap.Logger, args []string) error {
		v, err := intArg(args, "goto <version>")
		if err != nil {
			return err
		}
		if v < 0 {
			return fmt.Errorf("version must not be negative: %d", v)
		}
		return m.GoTo(uint(v))
	},
	"force": func(m *migration.Migrator, _ *zap.Logger, args []string) error {
		v, err := intArg(args, "force <version>")
		if err != nil {
			return err
		}
		return m.Force(v)
	},
	"drop": func(m *migration.Migrator, _ *zap.Logger, args []string) error {
		if len(args) == 0 || (args[0] != "-confirm" && args[0] != "--confirm") {
			return errors.New("drop cancelled, rerun as 'migrate drop -confirm'")
		}
		return m.Drop()
	},
	"version": func(m *migration.Migrator, log *zap.Logger, _ []string) error {
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	},
	"status": func(m *migration.Migrator, _ *zap.Logger, _ []string) error {
		st, err := m.Status()
		if err != nil {
			return err
		}
		fmt.Printf("current=%d latest=%d pending=%d dirty=%t\n", st.Current, st.Latest, st.Pending, st.Dirty)
		return nil
	},
}

func main() {
	migrationsPath := flag.String("path", "", "Migrations directory (default: schema embedded in the binary)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command, rest := args[0], args[1:]

	log, err := logger.New(&logger.Config{
		Level:      *logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
		Service:    "erp-receiving-migrate",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync(log)

	var source fs.FS = migrations.FS
	if *migrationsPath != "" {
		source = os.DirFS(*migrationsPath)
	}

	switch command {
	case "create":
		if err := createMigration(*migrationsPath, rest, log); err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		return
	case "list":
		if err := listMigrations(source); err != nil {
			log.Fatal("Migration set is incomplete", zap.Error(err))
		}
		return
	}

	run, ok := dbCommands[command]
	if !ok {
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}

	db, err := openPostgres()
	if err != nil {
		log.Fatal("Database unavailable", zap.Error(err))
	}
	defer db.Close()

	m, err := migration.New(db, source, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	if err := run(m, log, rest); err != nil {
		log.Fatal("Migration command failed", zap.String("command", command), zap.Error(err))
	}
}

func openPostgres() (*sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return nil, fmt.Errorf("versioned migrations target postgres, %s databases use auto_migrate", cfg.Database.Driver)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func createMigration(dir string, args []string, log *zap.Logger) error {
	if dir == "" {
		return errors.New("create writes files and requires -path")
	}
	if len(args) == 0 {
		return errors.New("usage: migrate -path <dir> create <name> [description]")
	}
	description := ""
	if len(args) > 1 {
		description = args[1]
	}
	mf, err := migration.CreateMigration(dir, args[0], description)
	if err != nil {
		return err
	}
	log.Info("Migration created",
		zap.Uint("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func listMigrations(source fs.FS) error {
	entries, err := migration.ListMigrations(source)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("  %06d  %-40s up=%t down=%t\n", e.Version, e.Name, e.HasUp, e.HasDown)
	}
	return migration.Verify(source)
}

func intArg(args []string, usage string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("usage: migrate %s", usage)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", args[0])
	}
	return n, nil
}

func printUsage() {
	fmt.Println(`Receiving database migration tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (negative rolls back)
  goto <version>        Migrate to a specific version
  version               Show current migration version
  status                Show current, latest and pending counts
  force <version>       Force set migration version
  drop -confirm         Drop all database objects
  create <name> [desc]  Create a new migration file pair (requires -path)
  list                  List migrations and check up/down pairs

Flags:
  -path string          Migrations directory (default: embedded schema)
  -log-level string     Log level (default: info)

Environment:
  RECV_DATABASE_HOST, RECV_DATABASE_PORT, RECV_DATABASE_USER,
  RECV_DATABASE_PASSWORD, RECV_DATABASE_DBNAME, RECV_DATABASE_SSLMODE`)
}
