package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/mysingle-lab/quant-backtest/pkg/errors"
	"github.com/mysingle-lab/quant-backtest/pkg/marketdata"
)

func dataCommand() *cli.Command {
	return &cli.Command{
		Name:  "data",
		Usage: "Manage historical market data",
		Commands: []*cli.Command{
			{
				Name:  "download",
				Usage: "Download daily bars into the local cache",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "symbols",
						Aliases:  []string{"s"},
						Usage:    "Comma-separated list of symbols",
						Required: true,
					},
					&cli.TimestampFlag{
						Name:     "start",
						Usage:    "Start date in `YYYY-MM-DD` format",
						Required: true,
						Config: cli.TimestampConfig{
							Layouts: []string{"2006-01-02"},
						},
					},
					&cli.TimestampFlag{
						Name:  "end",
						Usage: "End date in `YYYY-MM-DD` format. Defaults to today.",
						Value: time.Now(),
						Config: cli.TimestampConfig{
							Layouts: []string{"2006-01-02"},
						},
					},
				},
				Action: downloadAction,
			},
			{
				Name:  "export",
				Usage: "Export the analytical cache as Parquet files",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Output directory",
						Value: "export",
					},
				},
				Action: exportAction,
			},
		},
	}
}

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	symbols := splitSymbols(cmd.String("symbols"))
	if len(symbols) == 0 {
		return errors.New(errors.ErrCodeEmptySymbolList, "no symbols given")
	}

	application, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer application.close()

	bar := progressbar.Default(int64(len(symbols)), "downloading")
	onProgress := marketdata.OnDownloadProgress(func(current, total int, symbol string) {
		bar.Describe(fmt.Sprintf("downloading %s", symbol))
		_ = bar.Set(current)
	})

	downloaded, err := application.client.Download(ctx, symbols, cmd.Timestamp("start"), cmd.Timestamp("end"), onProgress)
	if err != nil {
		return err
	}

	fmt.Printf("\nDownloaded bars for %d of %d symbols\n", downloaded, len(symbols))

	return nil
}

func exportAction(ctx context.Context, cmd *cli.Command) error {
	application, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer application.close()

	if application.cache == nil {
		return errors.New(errors.ErrCodeMissingConfiguration, "no duckdb_path configured, nothing to export")
	}

	dir := cmd.String("dir")
	if err := application.cache.ExportParquet(dir); err != nil {
		return err
	}

	fmt.Printf("Exported Parquet files to %s\n", dir)

	return nil
}

func splitSymbols(raw string) []string {
	parts := strings.Split(raw, ",")
	symbols := make([]string, 0, len(parts))

	for _, part := range parts {
		symbol := strings.TrimSpace(part)
		if symbol != "" {
			symbols = append(symbols, symbol)
		}
	}

	return symbols
}
