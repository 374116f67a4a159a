package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/mysingle-lab/quant-backtest/internal/backtest/engine"
	"github.com/mysingle-lab/quant-backtest/internal/types"
	"github.com/mysingle-lab/quant-backtest/pkg/errors"
)

// backtestDefinition is the YAML shape of a backtest file passed to
// `qbt backtest run`.
type backtestDefinition struct {
	Name        string               `yaml:"name"`
	Description string               `yaml:"description"`
	Config      types.BacktestConfig `yaml:"config"`
}

func backtestCommand() *cli.Command {
	return &cli.Command{
		Name:  "backtest",
		Usage: "Create and execute backtest runs",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Execute the backtest described by a YAML file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to the backtest definition file",
						Required: true,
					},
				},
				Action: runBacktestAction,
			},
			{
				Name:   "list",
				Usage:  "List stored backtest runs",
				Action: listBacktestsAction,
			},
		},
	}
}

func runBacktestAction(ctx context.Context, cmd *cli.Command) error {
	definition, err := readDefinition(cmd.String("file"))
	if err != nil {
		return err
	}

	application, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer application.close()

	now := time.Now().UTC()
	run := &types.BacktestRun{
		ID:          uuid.NewString(),
		Name:        definition.Name,
		Description: definition.Description,
		Config:      definition.Config,
		Status:      types.RunStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := application.store.SaveRun(ctx, run); err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	onStart := engine.OnRunStartCallback(func(runID string, totalSteps int) error {
		bar = progressbar.Default(int64(totalSteps), "simulating")
		return nil
	})
	onStep := engine.OnStepCallback(func(current, total int) error {
		return bar.Set(current)
	})

	execution, err := application.engine.Execute(ctx, run.ID, engine.LifecycleCallbacks{
		OnRunStart: &onStart,
		OnStep:     &onStep,
	})
	if err != nil {
		return err
	}

	updated, err := application.store.LoadRun(ctx, run.ID)
	if err != nil {
		return err
	}

	printSummary(updated, execution)

	return nil
}

func listBacktestsAction(ctx context.Context, cmd *cli.Command) error {
	application, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer application.close()

	runs, err := application.store.ListRuns(ctx)
	if err != nil {
		return err
	}

	for _, run := range runs {
		fmt.Printf("%s  %-9s  %s\n", run.ID, run.Status, run.Name)
	}

	return nil
}

func readDefinition(path string) (*backtestDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMissingConfiguration, err, "failed to read backtest file %s", path)
	}

	var definition backtestDefinition
	if err := yaml.Unmarshal(data, &definition); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfig, err, "failed to parse backtest file %s", path)
	}
	if definition.Name == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "backtest file is missing a name")
	}

	return &definition, nil
}

func printSummary(run *types.BacktestRun, execution *types.Execution) {
	fmt.Printf("\nBacktest %s (%s)\n", run.Name, run.ID)
	fmt.Printf("Status:       %s\n", run.Status)
	fmt.Printf("Duration:     %.2fs\n", run.DurationSeconds)

	metrics, err := run.Performance.Take()
	if err != nil {
		return
	}

	fmt.Printf("Final value:  %.2f\n", execution.FinalValue())
	fmt.Printf("Total return: %.4f%%\n", metrics.TotalReturn*100)
	fmt.Printf("Annualized:   %.4f%%\n", metrics.AnnualizedReturn*100)
	fmt.Printf("Volatility:   %.4f\n", metrics.Volatility)
	fmt.Printf("Sharpe:       %.4f\n", metrics.SharpeRatio)
	fmt.Printf("Max drawdown: %.4f%%\n", metrics.MaxDrawdown*100)
	fmt.Printf("Trades:       %d (%d win / %d loss, win rate %.2f%%)\n",
		metrics.TotalTrades, metrics.WinningTrades, metrics.LosingTrades, metrics.WinRate*100)
}
