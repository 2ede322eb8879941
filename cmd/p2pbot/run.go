package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/m3rciful/p2pbot/app"
	corecmd "github.com/m3rciful/p2pbot/core/cmd"
)

const defaultConfigPath = "config.yaml"

type runCmd struct {
	config string
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "start the Telegram bot" }
func (*runCmd) Usage() string {
	return `p2pbot run [-config <path>]

  Loads the configuration (CONFIG_PATH or -config, then .env and the
  environment), applies database migrations and serves Telegram updates
  until interrupted.
`
}

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.config, "config", "", "Path to the YAML configuration. Overrides CONFIG_PATH.")
}

func (r *runCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	err := corecmd.Run(corecmd.Options{
		ConfigPath:        r.config,
		DefaultConfigPath: defaultConfigPath,
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return app.Load(path)
		},
		Bootstrap: func(cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			appCfg, ok := cfg.(*app.Config)
			if !ok {
				return nil, fmt.Errorf("unexpected config type %T", cfg)
			}
			return app.Bootstrap(appCfg)
		},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
