package main

import (
	"github.com/urfave/cli/v3"

	"github.com/mysingle-lab/quant-backtest/internal/api"
	"github.com/mysingle-lab/quant-backtest/internal/backtest/engine"
	v1 "github.com/mysingle-lab/quant-backtest/internal/backtest/engine/engine_v1"
	"github.com/mysingle-lab/quant-backtest/internal/config"
	"github.com/mysingle-lab/quant-backtest/internal/logger"
	"github.com/mysingle-lab/quant-backtest/internal/store"
	"github.com/mysingle-lab/quant-backtest/internal/strategy"
	"github.com/mysingle-lab/quant-backtest/pkg/marketdata"
	"github.com/mysingle-lab/quant-backtest/pkg/marketdata/provider"
)

// app bundles the wired components shared by the CLI commands.
type app struct {
	cfg      *config.Config
	logger   *logger.Logger
	store    *store.SQLiteStore
	cache    *store.DuckDBCache
	client   *marketdata.Client
	engine   engine.Engine
	registry *strategy.Registry
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	path := cmd.String("config")
	if path == "" {
		return config.Default(), nil
	}

	return config.Load(path)
}

// newApp wires the stores, the market data client, and the backtest engine
// from the application config.
func newApp(cmd *cli.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	l, err := logger.NewLogger()
	if err != nil {
		return nil, err
	}

	runStore, err := store.NewSQLiteStore(cfg.Store.SQLitePath, l)
	if err != nil {
		return nil, err
	}

	var cache *store.DuckDBCache
	if cfg.Store.DuckDBPath != "" {
		cache, err = store.NewDuckDBCache(cfg.Store.DuckDBPath, l)
		if err != nil {
			runStore.Close()
			return nil, err
		}
	}

	dataProvider, err := provider.NewMarketDataProvider(cfg.MarketData.Provider, provider.Config{
		APIKey:    cfg.MarketData.APIKey,
		APISecret: cfg.MarketData.APISecret,
	})
	if err != nil {
		runStore.Close()
		if cache != nil {
			cache.Close()
		}
		return nil, err
	}

	var barCache marketdata.BarCache
	if cache != nil {
		barCache = cache
	}
	client := marketdata.NewClient(dataProvider, barCache, cfg.MarketData.RequestsPerMinute, l)

	var resultCache engine.ResultCache
	if cache != nil {
		resultCache = cache
	}
	registry := strategy.DefaultRegistry()
	backtestEngine := v1.NewBacktestEngineV1(runStore, client, resultCache, registry, l)

	return &app{
		cfg:      cfg,
		logger:   l,
		store:    runStore,
		cache:    cache,
		client:   client,
		engine:   backtestEngine,
		registry: registry,
	}, nil
}

func (a *app) server() *api.Server {
	var results api.ResultLister
	if a.cache != nil {
		results = a.cache
	}

	return api.NewServer(a.store, a.engine, results, a.registry, a.logger)
}

func (a *app) close() {
	a.store.Close()
	if a.cache != nil {
		a.cache.Close()
	}
}
