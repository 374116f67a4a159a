package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/mysingle-lab/quant-backtest/internal/types"
)

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Generate the backtest config JSON schema and a sample file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "out",
				Usage: "Output directory",
				Value: "config",
			},
		},
		Action: schemaAction,
	}
}

func schemaAction(ctx context.Context, cmd *cli.Command) error {
	var config types.BacktestConfig

	schemaJSON, err := config.GenerateSchemaJSON()
	if err != nil {
		return err
	}

	outDir := cmd.String("out")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	schemaName := "backtest-config.json"
	schemaPath := filepath.Join(outDir, schemaName)
	if err := os.WriteFile(schemaPath, []byte(schemaJSON), 0644); err != nil {
		return err
	}
	fmt.Printf("Schema written to %s\n", schemaPath)

	samplePath := filepath.Join(outDir, "backtest-sample.yaml")
	if _, err := os.Stat(samplePath); os.IsNotExist(err) {
		sample := sampleDefinition()

		yamlBytes, err := yaml.Marshal(sample)
		if err != nil {
			return err
		}
		yamlBytes = append([]byte("# yaml-language-server: $schema="+schemaName+"\n"), yamlBytes...)

		if err := os.WriteFile(samplePath, yamlBytes, 0644); err != nil {
			return err
		}
		fmt.Printf("Sample backtest written to %s\n", samplePath)
	}

	return nil
}

func sampleDefinition() backtestDefinition {
	return backtestDefinition{
		Name:        "sample-buy-and-hold",
		Description: "Buys once on the first bar and holds",
		Config: types.BacktestConfig{
			Version:        "v1.0.0",
			Symbols:        []string{"AAPL"},
			StartDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:        time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
			InitialCash:    100000,
			CommissionRate: 0.001,
			Strategy: types.StrategySpec{
				Type: "buy_and_hold",
				Params: map[string]float64{
					"quantity": 10,
				},
			},
		},
	}
}
