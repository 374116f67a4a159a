package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"
)

func rootCommand() *cli.Command {
	return &cli.Command{
		Name:  "qbt",
		Usage: "Run and analyze trading strategy backtests",
		Flags: []cli.Flag{
			// Parent flags are visible in subcommands, so --config works on
			// every action.
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the application config file. Defaults are used when omitted.",
			},
		},
		Commands: []*cli.Command{
			backtestCommand(),
			dataCommand(),
			serverCommand(),
			schemaCommand(),
		},
	}
}

func main() {
	if err := rootCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
