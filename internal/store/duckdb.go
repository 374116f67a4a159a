package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"

	"github.com/mysingle-lab/quant-backtest/internal/logger"
	"github.com/mysingle-lab/quant-backtest/internal/types"
	"github.com/mysingle-lab/quant-backtest/pkg/errors"
)

// ResultSummary is the flattened, queryable view of one completed run kept
// in the analytical cache. It is derived data; the primary store remains the
// source of truth.
type ResultSummary struct {
	RunID            string    `json:"run_id"`
	Name             string    `json:"name"`
	StrategyType     string    `json:"strategy_type"`
	TotalReturn      float64   `json:"total_return"`
	AnnualizedReturn float64   `json:"annualized_return"`
	Volatility       float64   `json:"volatility"`
	SharpeRatio      float64   `json:"sharpe_ratio"`
	MaxDrawdown      float64   `json:"max_drawdown"`
	TotalTrades      int       `json:"total_trades"`
	WinRate          float64   `json:"win_rate"`
	FinalValue       float64   `json:"final_value"`
	CompletedAt      time.Time `json:"completed_at"`
}

// DuckDBCache is the embedded analytical store: a daily-bar cache shared by
// all runs and a summary table of completed results. Losing it costs lookup
// latency, never correctness.
type DuckDBCache struct {
	db     *sql.DB
	sq     squirrel.StatementBuilderType
	logger *logger.Logger
}

// NewDuckDBCache opens the cache at path; ":memory:" gives an ephemeral one.
func NewDuckDBCache(path string, l *logger.Logger) (*DuckDBCache, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStoreUnavailable, err, "failed to open duckdb at %s", path)
	}

	c := &DuckDBCache{
		db:     db,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		logger: l,
	}

	if err := c.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return c, nil
}

func (c *DuckDBCache) initialize() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS daily_prices (
			symbol TEXT,
			date TIMESTAMP,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE,
			PRIMARY KEY (symbol, date)
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to create daily_prices table", err)
	}

	_, err = c.db.Exec(`
		CREATE TABLE IF NOT EXISTS backtest_results (
			run_id TEXT PRIMARY KEY,
			name TEXT,
			strategy_type TEXT,
			total_return DOUBLE,
			annualized_return DOUBLE,
			volatility DOUBLE,
			sharpe_ratio DOUBLE,
			max_drawdown DOUBLE,
			total_trades INTEGER,
			win_rate DOUBLE,
			final_value DOUBLE,
			completed_at TIMESTAMP
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to create backtest_results table", err)
	}

	_, err = c.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			run_id TEXT,
			trade_id TEXT,
			symbol TEXT,
			side TEXT,
			quantity BIGINT,
			price DOUBLE,
			timestamp TIMESTAMP,
			commission DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to create trades table", err)
	}

	return nil
}

// SaveBars inserts or refreshes the daily bars of one symbol.
func (c *DuckDBCache) SaveBars(ctx context.Context, bars []types.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeCacheFailed, "failed to begin bars transaction", err)
	}

	for _, bar := range bars {
		query := c.sq.
			Insert("daily_prices").
			Columns("symbol", "date", "open", "high", "low", "close", "volume").
			Values(bar.Symbol, bar.Date, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume).
			Suffix("ON CONFLICT (symbol, date) DO UPDATE SET open = excluded.open, high = excluded.high, low = excluded.low, close = excluded.close, volume = excluded.volume")

		sqlStr, args, err := query.ToSql()
		if err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeCacheFailed, "failed to build bar insert", err)
		}

		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			tx.Rollback()

			return errors.Wrapf(errors.ErrCodeDataWriteFailed, err, "failed to insert bar %s %s", bar.Symbol, bar.Date)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeCacheFailed, "failed to commit bars", err)
	}

	return nil
}

// GetBars returns the cached bars of one symbol in the date range, ordered
// by date. An empty result is not an error.
func (c *DuckDBCache) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]types.Bar, error) {
	query := c.sq.
		Select("symbol", "date", "open", "high", "low", "close", "volume").
		From("daily_prices").
		Where(squirrel.Eq{"symbol": symbol}).
		Where(squirrel.GtOrEq{"date": start}).
		Where(squirrel.LtOrEq{"date": end}).
		OrderBy("date ASC")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCacheFailed, "failed to build bars query", err)
	}

	rows, err := c.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeCacheFailed, err, "failed to query bars for %s", symbol)
	}
	defer rows.Close()

	var bars []types.Bar

	for rows.Next() {
		var bar types.Bar
		if err := rows.Scan(&bar.Symbol, &bar.Date, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeCacheFailed, "failed to scan bar row", err)
		}

		bars = append(bars, bar)
	}

	return bars, rows.Err()
}

// SaveResultSummary flattens a completed run into the results table.
// Implements the engine's ResultCache contract.
func (c *DuckDBCache) SaveResultSummary(ctx context.Context, run *types.BacktestRun, execution *types.Execution) error {
	metrics, err := run.Performance.Take()
	if err != nil {
		// Nothing to summarize without metrics.
		return nil
	}

	completedAt := run.EndTime.TakeOr(time.Now())

	query := c.sq.
		Insert("backtest_results").
		Columns(
			"run_id", "name", "strategy_type",
			"total_return", "annualized_return", "volatility", "sharpe_ratio", "max_drawdown",
			"total_trades", "win_rate", "final_value", "completed_at",
		).
		Values(
			run.ID, run.Name, run.Config.Strategy.Type,
			metrics.TotalReturn, metrics.AnnualizedReturn, metrics.Volatility, metrics.SharpeRatio, metrics.MaxDrawdown,
			metrics.TotalTrades, metrics.WinRate, execution.FinalValue(), completedAt,
		).
		Suffix("ON CONFLICT (run_id) DO UPDATE SET total_return = excluded.total_return, annualized_return = excluded.annualized_return, volatility = excluded.volatility, sharpe_ratio = excluded.sharpe_ratio, max_drawdown = excluded.max_drawdown, total_trades = excluded.total_trades, win_rate = excluded.win_rate, final_value = excluded.final_value, completed_at = excluded.completed_at")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeCacheFailed, "failed to build result upsert", err)
	}

	if _, err := c.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return errors.Wrapf(errors.ErrCodeCacheFailed, err, "failed to save result summary for run %s", run.ID)
	}

	return c.saveTrades(ctx, run.ID, execution.Trades)
}

func (c *DuckDBCache) saveTrades(ctx context.Context, runID string, trades []types.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	deleteQuery := c.sq.Delete("trades").Where(squirrel.Eq{"run_id": runID})

	sqlStr, args, err := deleteQuery.ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeCacheFailed, "failed to build trades delete", err)
	}

	if _, err := c.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return errors.Wrapf(errors.ErrCodeCacheFailed, err, "failed to clear trades of run %s", runID)
	}

	for _, trade := range trades {
		query := c.sq.
			Insert("trades").
			Columns("run_id", "trade_id", "symbol", "side", "quantity", "price", "timestamp", "commission").
			Values(runID, trade.ID, trade.Symbol, string(trade.Side), trade.Quantity, trade.Price, trade.Timestamp, trade.Commission)

		sqlStr, args, err := query.ToSql()
		if err != nil {
			return errors.Wrap(errors.ErrCodeCacheFailed, "failed to build trade insert", err)
		}

		if _, err := c.db.ExecContext(ctx, sqlStr, args...); err != nil {
			return errors.Wrapf(errors.ErrCodeCacheFailed, err, "failed to insert trade %s", trade.ID)
		}
	}

	return nil
}

// ListResultSummaries returns all cached summaries, best total return first.
func (c *DuckDBCache) ListResultSummaries(ctx context.Context) ([]ResultSummary, error) {
	query := c.sq.
		Select(
			"run_id", "name", "strategy_type",
			"total_return", "annualized_return", "volatility", "sharpe_ratio", "max_drawdown",
			"total_trades", "win_rate", "final_value", "completed_at",
		).
		From("backtest_results").
		OrderBy("total_return DESC")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCacheFailed, "failed to build results query", err)
	}

	rows, err := c.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCacheFailed, "failed to list result summaries", err)
	}
	defer rows.Close()

	var summaries []ResultSummary

	for rows.Next() {
		var summary ResultSummary
		if err := rows.Scan(
			&summary.RunID, &summary.Name, &summary.StrategyType,
			&summary.TotalReturn, &summary.AnnualizedReturn, &summary.Volatility, &summary.SharpeRatio, &summary.MaxDrawdown,
			&summary.TotalTrades, &summary.WinRate, &summary.FinalValue, &summary.CompletedAt,
		); err != nil {
			return nil, errors.Wrap(errors.ErrCodeCacheFailed, "failed to scan result row", err)
		}

		summaries = append(summaries, summary)
	}

	return summaries, rows.Err()
}

// ExportParquet writes both tables as parquet files into dir.
// Squirrel does not support COPY, so these stay raw SQL.
func (c *DuckDBCache) ExportParquet(dir string) error {
	pricesPath := filepath.Join(dir, "daily_prices.parquet")
	if _, err := c.db.Exec(fmt.Sprintf(`COPY daily_prices TO '%s' (FORMAT PARQUET)`, pricesPath)); err != nil {
		return errors.Wrap(errors.ErrCodeDataWriteFailed, "failed to export daily_prices", err)
	}

	resultsPath := filepath.Join(dir, "backtest_results.parquet")
	if _, err := c.db.Exec(fmt.Sprintf(`COPY backtest_results TO '%s' (FORMAT PARQUET)`, resultsPath)); err != nil {
		return errors.Wrap(errors.ErrCodeDataWriteFailed, "failed to export backtest_results", err)
	}

	tradesPath := filepath.Join(dir, "trades.parquet")
	if _, err := c.db.Exec(fmt.Sprintf(`COPY trades TO '%s' (FORMAT PARQUET)`, tradesPath)); err != nil {
		return errors.Wrap(errors.ErrCodeDataWriteFailed, "failed to export trades", err)
	}

	return nil
}

// Close closes the underlying database.
func (c *DuckDBCache) Close() error {
	return c.db.Close()
}
