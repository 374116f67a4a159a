package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/mysingle-lab/quant-backtest/internal/backtest/engine"
	"github.com/mysingle-lab/quant-backtest/internal/logger"
	"github.com/mysingle-lab/quant-backtest/internal/strategy"
	"github.com/mysingle-lab/quant-backtest/internal/types"
	"github.com/mysingle-lab/quant-backtest/internal/version"
	"github.com/mysingle-lab/quant-backtest/pkg/errors"
)

// BacktestEngineV1 owns the full lifecycle of one backtest run: it loads the
// run, gates its config, marks it RUNNING before any work so a crash mid-run
// is observable, simulates, derives metrics and persists the outcome. Every
// run ends in exactly one of COMPLETED or FAILED.
type BacktestEngineV1 struct {
	store    engine.RunStore
	data     engine.DataProvider
	cache    engine.ResultCache
	registry *strategy.Registry
	logger   *logger.Logger
}

// NewBacktestEngineV1 wires the engine with its collaborators. cache may be
// nil; results are then not summarized but the run is unaffected.
func NewBacktestEngineV1(store engine.RunStore, data engine.DataProvider, cache engine.ResultCache, registry *strategy.Registry, l *logger.Logger) *BacktestEngineV1 {
	return &BacktestEngineV1{
		store:    store,
		data:     data,
		cache:    cache,
		registry: registry,
		logger:   l,
	}
}

// Execute implements engine.Engine.
func (e *BacktestEngineV1) Execute(ctx context.Context, runID string, callbacks engine.LifecycleCallbacks) (*types.Execution, error) {
	run, err := e.store.LoadRun(ctx, runID)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeLoadFailed, err, "failed to load run %s", runID)
	}

	if run == nil {
		return nil, errors.Newf(errors.ErrCodeRunNotFound, "run %s not found", runID)
	}

	if run.Status != types.RunStatusPending {
		return nil, errors.Newf(errors.ErrCodeRunNotPending, "run %s is %s, only PENDING runs are executable", runID, run.Status)
	}

	// Config errors reject the run before any state transition; it stays
	// PENDING and never reaches RUNNING.
	if err := run.Config.Validate(); err != nil {
		return nil, err
	}

	if err := version.CheckConfigCompatibility(version.GetVersion(), run.Config.Version); err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnsupportedVersion, "config version incompatible", err)
	}

	startedAt := time.Now()

	run.Status = types.RunStatusRunning
	run.StartTime = optional.Some(startedAt)
	run.UpdatedAt = startedAt

	// This write must land before any simulation work so a crash mid-run is
	// observably RUNNING instead of silently lost.
	if err := e.store.SaveRun(ctx, run); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeSaveFailed, err, "failed to mark run %s running", runID)
	}

	execution := &types.Execution{
		ID:        uuid.NewString(),
		RunID:     run.ID,
		Status:    types.RunStatusRunning,
		StartTime: startedAt,
		CreatedAt: startedAt,
	}

	bars, err := e.fetchBars(ctx, run)
	if err != nil {
		return e.failRun(ctx, run, execution, startedAt, callbacks, err)
	}

	strategyInstance, err := e.registry.Create(run.Config.Strategy)
	if err != nil {
		return e.failRun(ctx, run, execution, startedAt, callbacks, err)
	}

	totalSteps := TotalSteps(bars)
	if err := invokeRunStart(callbacks, run.ID, totalSteps); err != nil {
		return e.failRun(ctx, run, execution, startedAt, callbacks, err)
	}

	ledger := NewTradeLedger(run.Config.InitialCash, run.Config.CommissionRate, e.logger)
	loop := NewSimulationLoop(ledger, strategyInstance, e.logger)

	var onStep engine.OnStepCallback
	if callbacks.OnStep != nil {
		onStep = *callbacks.OnStep
	}

	values, err := loop.Run(ctx, bars, onStep)

	execution.Trades = ledger.Trades()
	execution.Positions = ledger.Positions()
	execution.PortfolioValues = values

	if err != nil {
		return e.failRun(ctx, run, execution, startedAt, callbacks, err)
	}

	metrics := CalculateMetrics(values, run.Config.InitialCash, ledger.Counts())

	finishedAt := time.Now()
	execution.Status = types.RunStatusCompleted
	execution.EndTime = optional.Some(finishedAt)

	// The primary store is fatal at the final save: a run whose result
	// cannot be durably recorded must not be marked COMPLETED.
	if err := e.store.SaveExecution(ctx, execution); err != nil {
		return e.failRun(ctx, run, execution, startedAt, callbacks,
			errors.Wrapf(errors.ErrCodeSaveFailed, err, "failed to save execution for run %s", run.ID))
	}

	run.Status = types.RunStatusCompleted
	run.Performance = optional.Some(metrics)
	run.EndTime = optional.Some(finishedAt)
	run.DurationSeconds = finishedAt.Sub(startedAt).Seconds()
	run.UpdatedAt = finishedAt

	if err := e.store.SaveRun(ctx, run); err != nil {
		return e.failRun(ctx, run, execution, startedAt, callbacks,
			errors.Wrapf(errors.ErrCodeSaveFailed, err, "failed to save run %s", run.ID))
	}

	e.saveSummary(ctx, run, execution)
	invokeRunEnd(callbacks, run.ID, run.Status)

	e.logger.Info("backtest completed",
		zap.String("run_id", run.ID),
		zap.Int("steps", totalSteps),
		zap.Int("trades", len(execution.Trades)),
		zap.Float64("total_return", metrics.TotalReturn),
	)

	return execution, nil
}

// fetchBars retrieves the bar series for every configured symbol. A fetch
// failure on one symbol is tolerated as long as another symbol has data; a
// run with no usable data at all is a failure, never an empty success.
func (e *BacktestEngineV1) fetchBars(ctx context.Context, run *types.BacktestRun) (map[string][]types.Bar, error) {
	bars := make(map[string][]types.Bar)

	for _, symbol := range run.Config.Symbols {
		series, err := e.data.GetBars(ctx, symbol, run.Config.StartDate, run.Config.EndDate)
		if err != nil {
			e.logger.Warn("failed to fetch bars",
				zap.String("run_id", run.ID),
				zap.String("symbol", symbol),
				zap.Error(err),
			)

			continue
		}

		if len(series) > 0 {
			bars[symbol] = series
		}
	}

	if len(bars) == 0 {
		return nil, errors.Newf(errors.ErrCodeNoMarketData, "no market data available for symbols %v", run.Config.Symbols)
	}

	return bars, nil
}

// failRun marks run and execution FAILED, persists both best-effort and
// returns the original cause. Execution records exist for failed runs too,
// carrying any trades made before the fault.
func (e *BacktestEngineV1) failRun(ctx context.Context, run *types.BacktestRun, execution *types.Execution, startedAt time.Time, callbacks engine.LifecycleCallbacks, cause error) (*types.Execution, error) {
	finishedAt := time.Now()

	run.Status = types.RunStatusFailed
	run.ErrorMessage = optional.Some(cause.Error())
	run.EndTime = optional.Some(finishedAt)
	run.DurationSeconds = finishedAt.Sub(startedAt).Seconds()
	run.UpdatedAt = finishedAt

	if err := e.store.SaveRun(ctx, run); err != nil {
		e.logger.Error("failed to persist failed run",
			zap.String("run_id", run.ID),
			zap.Error(err),
		)
	}

	execution.Status = types.RunStatusFailed
	execution.ErrorMessage = optional.Some(cause.Error())
	execution.EndTime = optional.Some(finishedAt)

	if err := e.store.SaveExecution(ctx, execution); err != nil {
		e.logger.Error("failed to persist failed execution",
			zap.String("run_id", run.ID),
			zap.String("execution_id", execution.ID),
			zap.Error(err),
		)
	}

	invokeRunEnd(callbacks, run.ID, run.Status)

	e.logger.Error("backtest failed",
		zap.String("run_id", run.ID),
		zap.Error(cause),
	)

	return execution, cause
}

// saveSummary writes the cached result summary. Cache failures log and
// continue; they never fail the run.
func (e *BacktestEngineV1) saveSummary(ctx context.Context, run *types.BacktestRun, execution *types.Execution) {
	if e.cache == nil {
		return
	}

	if err := e.cache.SaveResultSummary(ctx, run, execution); err != nil {
		e.logger.Warn("failed to cache result summary",
			zap.String("run_id", run.ID),
			zap.Error(err),
		)
	}
}

func invokeRunStart(callbacks engine.LifecycleCallbacks, runID string, totalSteps int) error {
	if callbacks.OnRunStart == nil {
		return nil
	}

	return (*callbacks.OnRunStart)(runID, totalSteps)
}

func invokeRunEnd(callbacks engine.LifecycleCallbacks, runID string, status types.RunStatus) {
	if callbacks.OnRunEnd == nil {
		return
	}

	(*callbacks.OnRunEnd)(runID, status)
}
