package database

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/p2pbot/core/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"log/slog"
)

// MigrationURL builds the golang-migrate database URL for cfg.
func MigrationURL(cfg Config) string {
	host := cfg.Host
	if cfg.Port != "" {
		host = net.JoinHostPort(cfg.Host, cfg.Port)
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   host,
		Path:   "/" + cfg.Name,
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}
	return u.String()
}

func migrationsPath(cfg Config) (string, error) {
	dir := cfg.Migrations()
	if filepath.IsAbs(dir) {
		return dir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return filepath.Join(cwd, dir), nil
}

// RollbackMigrations reverts the last steps migrations.
func RollbackMigrations(cfg Config, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("rollback steps must be > 0, got %d", steps)
	}
	ctx := logger.Background()
	path, err := migrationsPath(cfg)
	if err != nil {
		return err
	}
	m, err := migrate.New("file://"+path, MigrationURL(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer m.Close()

	fromVer, _, _ := m.Version()
	start := time.Now()
	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error(ctx, "db.migrate", "migrate.rollback",
			slog.String("status", "fail"),
			slog.Int("steps", steps),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("migration rollback failed: %w", err)
	}
	toVer, _, _ := m.Version()
	logger.Info(ctx, "db.migrate", "migrate.rollback",
		slog.String("status", "ok"),
		slog.Uint64("from_ver", uint64(fromVer)),
		slog.Uint64("to_ver", uint64(toVer)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// filesAttrs summarizes a list of migration files for debug logs.
func filesAttrs(files []string) []slog.Attr {
	preview, truncated := logger.SummarizeStrings(files, 6)
	attrs := []slog.Attr{slog.Int("files_total", len(files))}
	if preview != "" {
		attrs = append(attrs, slog.String("files_preview", preview))
	}
	if truncated {
		attrs = append(attrs, slog.Bool("files_truncated", true))
	}
	return attrs
}

// RunMigrations waits for the database and applies all up migrations from
// the configured directory.
func RunMigrations(cfg Config) error {
	ctx := logger.Background()
	fail := func(event string, err error) {
		logger.Error(ctx, "db.migrate", event,
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}

	dsn := MigrationURL(cfg)
	if err := WaitForPostgres(dsn, 30*time.Second); err != nil {
		fail("migrate.wait", err)
		return fmt.Errorf("database not ready: %w", err)
	}

	dir, err := migrationsPath(cfg)
	if err != nil {
		fail("migrate.resolve", err)
		return err
	}
	files := listMigrationFiles(dir)
	logger.Debug(ctx, "db.migrate", "migrate.resolve",
		append([]slog.Attr{slog.String("path", dir)}, filesAttrs(files)...)...)

	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		fail("migrate.init", err)
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer m.Close()

	fromVer, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	took := time.Since(start)
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		fail("migrate.apply", upErr)
		return fmt.Errorf("migration execution failed: %w", upErr)
	}

	toVer, _, _ := m.Version()
	applied := 0
	if upErr == nil {
		names := selectApplied(files, uint64(fromVer), uint64(toVer))
		applied = len(names)
		if applied > 0 {
			logger.Debug(ctx, "db.migrate", "migrate.apply", filesAttrs(names)...)
		}
	}

	logger.Info(ctx, "db.migrate", "migrate.summary",
		slog.String("status", "ok"),
		slog.Uint64("from_ver", uint64(fromVer)),
		slog.Uint64("to_ver", uint64(toVer)),
		slog.Int("files", applied),
		slog.Duration("duration", logger.RoundMS(took)),
	)
	return nil
}

func listMigrationFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".up.sql") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func parseVersion(name string) uint64 {
	parts := strings.SplitN(name, "_", 2)
	if len(parts) == 0 {
		return 0
	}
	v, _ := strconv.ParseUint(parts[0], 10, 64)
	return v
}

// selectApplied returns the files with versions in (from, to].
func selectApplied(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		v := parseVersion(f)
		if v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
