package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/m3rciful/p2pbot/app"
	coredatabase "github.com/m3rciful/p2pbot/core/database"
	"github.com/m3rciful/p2pbot/core/logger"
)

type migrateCmd struct {
	config string
	down   int
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply or roll back database migrations" }
func (*migrateCmd) Usage() string {
	return `p2pbot migrate [-config <path>] [-down <steps>]

  Applies all pending migrations, or rolls back the last <steps> ones when
  -down is given. The bot token is not required.
`
}

func (m *migrateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&m.config, "config", "", "Path to the YAML configuration. Overrides CONFIG_PATH.")
	f.IntVar(&m.down, "down", 0, "Number of migrations to roll back instead of applying.")
}

func (m *migrateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	path := m.config
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := app.LoadForMigrations(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := logger.InitLogger(cfg.CoreConfig()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer func() { _ = logger.Shutdown() }()

	if m.down > 0 {
		err = coredatabase.RollbackMigrations(cfg.Database, m.down)
	} else {
		err = coredatabase.RunMigrations(cfg.Database)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
