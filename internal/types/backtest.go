package types

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"

	"github.com/mysingle-lab/quant-backtest/pkg/errors"
)

// RunStatus is the lifecycle state of a backtest run or execution.
type RunStatus string

const (
	RunStatusPending   RunStatus = "PENDING"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
)

// IsTerminal reports whether the status allows no further transitions.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// StrategySpec selects a strategy implementation and its parameters.
// Type is resolved through the strategy registry, never by reflection.
type StrategySpec struct {
	Type   string             `json:"type" yaml:"type" validate:"required"`
	Params map[string]float64 `json:"params,omitempty" yaml:"params,omitempty"`
}

// BacktestConfig is the immutable input of a backtest run. It is referenced,
// never mutated, by the run that owns it.
type BacktestConfig struct {
	// Version gates the config schema, checked against the supported range
	// with semver before anything else.
	Version        string       `json:"version" yaml:"version" validate:"required"`
	Symbols        []string     `json:"symbols" yaml:"symbols" validate:"required,min=1,dive,required"`
	StartDate      time.Time    `json:"start_date" yaml:"start_date" validate:"required"`
	EndDate        time.Time    `json:"end_date" yaml:"end_date" validate:"required,gtfield=StartDate"`
	InitialCash    float64      `json:"initial_cash" yaml:"initial_cash" validate:"required,gt=0"`
	CommissionRate float64      `json:"commission_rate" yaml:"commission_rate" validate:"gte=0"`
	Strategy       StrategySpec `json:"strategy" yaml:"strategy" validate:"required"`
	// RebalanceFrequency is optional; empty means no scheduled rebalancing.
	RebalanceFrequency string `json:"rebalance_frequency,omitempty" yaml:"rebalance_frequency,omitempty"`
}

// Validate checks the config before a run may leave PENDING.
func (c *BacktestConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, "invalid backtest config", err)
	}

	return nil
}

// GenerateSchemaJSON returns the JSON schema of the config.
func (c *BacktestConfig) GenerateSchemaJSON() (string, error) {
	schema := jsonschema.Reflect(c)

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// BacktestRun owns a single backtest's lifecycle. It is created once per
// request and mutated only by the orchestrator; COMPLETED and FAILED are
// terminal.
type BacktestRun struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Config      BacktestConfig `json:"config" yaml:"config"`
	Status      RunStatus      `json:"status" yaml:"status"`

	StartTime       optional.Option[time.Time] `json:"start_time" yaml:"start_time"`
	EndTime         optional.Option[time.Time] `json:"end_time" yaml:"end_time"`
	DurationSeconds float64                    `json:"duration_seconds" yaml:"duration_seconds"`

	Performance  optional.Option[PerformanceMetrics] `json:"performance" yaml:"performance"`
	ErrorMessage optional.Option[string]             `json:"error_message" yaml:"error_message"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Execution records one run-attempt. A BacktestRun may be re-executed,
// producing multiple executions. Immutable once written.
type Execution struct {
	ID     string    `json:"execution_id" yaml:"execution_id"`
	RunID  string    `json:"backtest_id" yaml:"backtest_id"`
	Status RunStatus `json:"status" yaml:"status"`

	StartTime time.Time                  `json:"start_time" yaml:"start_time"`
	EndTime   optional.Option[time.Time] `json:"end_time" yaml:"end_time"`

	Trades    []Trade             `json:"trades" yaml:"trades"`
	Positions map[string]Position `json:"positions" yaml:"positions"`
	// PortfolioValues holds one value per simulated day; the first element
	// is the initial cash.
	PortfolioValues []float64 `json:"portfolio_values" yaml:"portfolio_values"`

	ErrorMessage optional.Option[string] `json:"error_message" yaml:"error_message"`
	CreatedAt    time.Time               `json:"created_at" yaml:"created_at"`
}

// FinalValue returns the last portfolio value, or 0 for an empty series.
func (e *Execution) FinalValue() float64 {
	if len(e.PortfolioValues) == 0 {
		return 0
	}

	return e.PortfolioValues[len(e.PortfolioValues)-1]
}
