package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/lib/pq"

	"github.com/yourusername/livequiz-api/internal/config"
	"github.com/yourusername/livequiz-api/pkg/database"
)

const usage = `usage: migrate [-config path] [-dir migrations] <command>

commands:
  up         применить все миграции
  down N     откатить N миграций
  version    показать текущую версию
  force N    установить версию N и снять флаг dirty`

func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "config/config.yaml"), "путь к файлу конфигурации")
	dir := flag.String("dir", "", "каталог миграций (по умолчанию database.migrations)")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.Driver != "postgres" {
		log.Fatalf("Migrations require database.driver=postgres, got %q", cfg.Database.Driver)
	}
	if *dir == "" {
		*dir = cfg.Database.Migrations
	}

	db, err := sql.Open("postgres", cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	m, err := database.NewMigrator(db, *dir)
	if err != nil {
		log.Fatal(err)
	}

	if err := run(m, flag.Args()); err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}

func run(m *migrate.Migrate, args []string) error {
	switch args[0] {
	case "up":
		err := m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("No change: database is up to date.")
			return nil
		}
		return err
	case "down":
		steps, err := intArg(args)
		if err != nil {
			return err
		}
		return m.Steps(-steps)
	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("No migrations applied.")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("Version %d (dirty: %t)\n", version, dirty)
		return nil
	case "force":
		version, err := intArg(args)
		if err != nil {
			return err
		}
		// Снимает флаг dirty после неудачной миграции
		if err := m.Force(version); err != nil {
			return err
		}
		fmt.Printf("Forced version %d.\n", version)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func intArg(args []string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s requires a numeric argument", args[0])
	}
	n, err := strconv.Atoi(args[1])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid number %q", args[1])
	}
	return n, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
