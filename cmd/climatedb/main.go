// climatedb prepares the climate store: it applies schema migrations and
// loads the station and measurement CSV exports.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"

	"surfsup-server/internal/config"
	"surfsup-server/internal/importer"
	"surfsup-server/internal/logging"
	"surfsup-server/internal/migrate"
)

const appName = "climatedb"

// Set with -ldflags "-X main.version=...".
var version = "dev"

const usage = `usage: %s <command>
  migrate                                   apply pending schema migrations
  import <stations.csv> <measurements.csv>  migrate, then load CSV exports
`

func main() {
	envErr := godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(cfg, version, appName))
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		slog.Warn("failed to load .env", "error", envErr)
	}

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg.Path, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func run(ctx context.Context, dbPath string, args []string) error {
	switch args[0] {
	case "migrate":
		if len(args) != 1 {
			return errors.New("migrate takes no arguments")
		}
	case "import":
		if len(args) != 3 {
			return errors.New("import needs <stations.csv> <measurements.csv>")
		}
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}

	conn, err := Open(filepath.Clean(dbPath))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			slog.Error("db close", "err", closeErr)
		}
	}()

	applied, err := migrate.Run(ctx, conn)
	if err != nil {
		return err
	}
	slog.Info("migrations applied", "count", len(applied), "versions", applied)

	if args[0] != "import" {
		return nil
	}

	im, err := importer.New(conn, slog.Default())
	if err != nil {
		return err
	}
	results, err := im.ImportFiles(ctx, args[1], args[2])
	for _, res := range results {
		slog.Info("imported",
			"source", res.Source,
			"rows", res.Imported,
			"skipped", res.Skipped,
			"existing", res.Existing,
			"duration_ms", res.Duration.Milliseconds(),
		)
	}
	return err
}

// Open opens the store read-write, creating the file if needed.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", buildDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return db, nil
}

// buildDSN keeps the default rollback journal so the server can open the
// file with mode=ro without needing -wal/-shm files.
func buildDSN(dbPath string) string {
	params := []string{
		"_foreign_keys=on",
		"_busy_timeout=5000",
	}

	if strings.HasPrefix(dbPath, "file:") {
		sep := "?"
		if strings.Contains(dbPath, "?") {
			sep = "&"
		}
		return dbPath + sep + strings.Join(params, "&")
	}

	return fmt.Sprintf("file:%s?%s", dbPath, strings.Join(params, "&"))
}
