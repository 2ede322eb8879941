// Package app wires the P2P ledger bot: configuration, storage, the dialogue
// engine and its Telegram adapter.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/p2pbot/core/bootstrap"
	"github.com/m3rciful/p2pbot/core/logger"
	"github.com/m3rciful/p2pbot/core/observe"
	tgsender "github.com/m3rciful/p2pbot/core/telegram/sender"
	"github.com/m3rciful/p2pbot/core/telegram/state"
	"github.com/m3rciful/p2pbot/dialogue"
	"github.com/m3rciful/p2pbot/records"
)

const stopTimeout = 10 * time.Second

// App holds the wired bot components.
type App struct {
	cfg *Config

	db       *sqlx.DB
	records  records.Store
	sessions *state.MemoryStore[dialogue.State]
	engine   *dialogue.Engine
	seq      *dialogue.Sequencer

	metrics         *observe.Metrics
	shutdownMetrics func(context.Context) error

	dispatcher *tgsender.Dispatcher
	stopBg     context.CancelFunc
	bg         *errgroup.Group
}

// Bootstrap initializes logging, storage and the dialogue engine.
func Bootstrap(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	res, err := bootstrap.Run(bootstrap.Options{
		Config:       cfg.CoreConfig(),
		Database:     cfg.Database,
		SkipDatabase: cfg.Ledger.Storage == StorageMemory,
	})
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, db: res.DB}
	if a.db != nil {
		a.records = records.NewPostgresStore(a.db)
	} else {
		a.records = records.NewMemoryStore()
		logger.Warn(logger.Background(), "app", "storage",
			slog.String("mode", StorageMemory),
		)
	}

	a.metrics, a.shutdownMetrics, err = observe.InitProvider()
	if err != nil {
		a.closeDB()
		return nil, fmt.Errorf("app: metrics init failed: %w", err)
	}

	if err := a.buildEngine(); err != nil {
		a.close(context.Background())
		return nil, err
	}

	logger.Info(logger.Background(), "app", "bootstrap",
		slog.String("mode", cfg.Ledger.Storage),
		slog.String("currency", cfg.Ledger.Currency),
		slog.String("timezone", cfg.Location().String()),
	)
	return a, nil
}

// newWithStore wires an app around an existing store; used by tests.
func newWithStore(cfg *Config, store records.Store) (*App, error) {
	a := &App{cfg: cfg, records: store}
	if err := a.buildEngine(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) buildEngine() error {
	format, err := dialogue.NewFormatter(a.cfg.Ledger.Currency, a.cfg.Location())
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	a.sessions = state.NewMemoryStore[dialogue.State]()
	a.engine, err = dialogue.New(dialogue.Options{
		Records:       a.records,
		Sessions:      a.sessions,
		Format:        format,
		StoreTimeout:  a.cfg.Ledger.StoreTimeout,
		EditListLimit: a.cfg.Ledger.EditListLimit,
		RecentLimit:   a.cfg.Ledger.RecentLimit,
		Metrics:       a.metrics,
	})
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	a.seq = dialogue.NewSequencer(a.cfg.Ledger.QueueLimit)
	return nil
}

// startBackground runs the metrics server and the session janitor.
func (a *App) startBackground() {
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	a.stopBg = cancel
	a.bg = g

	if addr := a.cfg.Metrics.Listen; addr != "" {
		g.Go(func() error {
			return observe.Serve(gctx, addr, a.checkers()...)
		})
	}
	g.Go(func() error {
		return a.engine.RunJanitor(gctx, a.cfg.Ledger.SessionTTL, 0)
	})
}

func (a *App) checkers() []observe.Checker {
	var out []observe.Checker
	if p, ok := a.records.(interface{ Ping(context.Context) error }); ok {
		out = append(out, observe.Checker{Name: "database", Check: p.Ping})
	}
	return out
}

// close drains queued dialogue work, stops background services and
// releases storage.
func (a *App) close(ctx context.Context) error {
	var errs []error
	if a.seq != nil {
		if err := a.seq.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain dialogue queue: %w", err))
		}
	}
	if a.stopBg != nil {
		a.stopBg()
		if err := a.bg.Wait(); err != nil {
			errs = append(errs, fmt.Errorf("background services: %w", err))
		}
	}
	if a.shutdownMetrics != nil {
		if err := a.shutdownMetrics(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics shutdown: %w", err))
		}
	}
	if err := a.closeDB(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) closeDB() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	if err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
