package app

import (
	"context"
	"fmt"

	brcfg "spotbot/internal/config"
	"spotbot/internal/gateway/notifier"
	"spotbot/internal/logger"
	"spotbot/internal/store/sqlite"
	"spotbot/internal/trader"
	opshttp "spotbot/internal/transport/http/ops"

	"golang.org/x/sync/errgroup"
)

// App owns the trading loop and its supporting services.
type App struct {
	cfg     *brcfg.Config
	trader  *trader.Trader
	ops     *opshttp.Server
	queue   *notifier.Queue
	store   *sqlite.SqliteStore
	Summary *StartupSummary
}

// NewApp builds the application without starting anything.
func NewApp(cfg *brcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(cfg)
}

func newApp(cfg *brcfg.Config, tr *trader.Trader, ops *opshttp.Server, queue *notifier.Queue, st *sqlite.SqliteStore) *App {
	return &App{
		cfg:     cfg,
		trader:  tr,
		ops:     ops,
		queue:   queue,
		store:   st,
		Summary: newStartupSummary(cfg),
	}
}

// Run recovers persisted state and runs until ctx is cancelled or a
// component fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.trader == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.close()

	if a.Summary != nil {
		a.Summary.Print()
	}
	if err := a.trader.Recover(ctx); err != nil {
		return fmt.Errorf("recover trader state: %w", err)
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return a.queue.Run(gctx)
	})
	if a.ops != nil {
		group.Go(func() error {
			if err := a.ops.Start(gctx); err != nil {
				return fmt.Errorf("ops http server error: %w", err)
			}
			return nil
		})
	}
	group.Go(func() error {
		return a.trader.Run(gctx)
	})
	return group.Wait()
}

// Trader exposes the trading loop for tests and tooling.
func (a *App) Trader() *trader.Trader {
	if a == nil {
		return nil
	}
	return a.trader
}

func (a *App) close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		logger.Warnf("close store: %v", err)
	}
}
