package cli

import (
	"context"
	"fmt"

	"github.com/memvault/memvault/pkg/adapter"
	"github.com/memvault/memvault/pkg/usecase/timezone"
	"github.com/urfave/cli/v3"
)

func timezoneCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "timezone",
		Usage: "Rename downloaded files from UTC to their local capture time",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setup(ctx)

			ledger, err := cfg.openLedger()
			if err != nil {
				return err
			}

			uc := timezone.New(ledger, adapter.NewToolset(), cfg.outputDir,
				timezone.WithOutput(c.Root().Writer),
			)
			sum, err := uc.ConvertAll(ctx)
			if sum != nil {
				fmt.Fprintf(c.Root().Writer, "\nconverted %d entries (%d files renamed), skipped %d, failed %d\n",
					sum.Converted, sum.Renamed, sum.Skipped, sum.Failed)
			}
			return err
		},
	}
}
