package main

import (
	"context"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Serve the backtest HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "address",
				Aliases: []string{"a"},
				Usage:   "Listen address. Overrides the config file.",
			},
		},
		Action: serverAction,
	}
}

func serverAction(ctx context.Context, cmd *cli.Command) error {
	application, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer application.close()

	address := cmd.String("address")
	if address == "" {
		address = application.cfg.Server.Address
	}

	application.logger.Info("starting API server", zap.String("address", address))

	return application.server().ListenAndServe(address)
}
