package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/memvault/memvault/pkg/adapter"
	"github.com/memvault/memvault/pkg/usecase/fetch"
	"github.com/memvault/memvault/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func fetchCommand() *cli.Command {
	var cfg config
	var delay time.Duration

	flags := append(globalFlags(&cfg),
		&cli.DurationFlag{
			Name:        "delay",
			Usage:       "Pause between downloads",
			Value:       fetch.DefaultDelay,
			Sources:     cli.EnvVars("MEMVAULT_DELAY"),
			Destination: &delay,
		},
	)

	return &cli.Command{
		Name:  "fetch",
		Usage: "Download all memories listed in the export HTML",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setup(ctx)
			logger := logging.From(ctx)

			memories, err := cfg.parseExport(ctx)
			if err != nil {
				return err
			}
			logger.Info("parsed export", "records", len(memories))

			ledger, err := cfg.openLedger()
			if err != nil {
				return err
			}

			tools := adapter.NewToolset()
			if !tools.Metadata.Available() {
				logger.Warn("exiftool not found, GPS metadata will not be embedded")
			}

			uc := fetch.New(ledger, &http.Client{Timeout: 60 * time.Second}, tools, cfg.outputDir,
				fetch.WithDelay(delay),
				fetch.WithOutput(c.Root().Writer),
			)
			sum, err := uc.FetchAll(ctx, memories)
			if sum != nil {
				fmt.Fprintf(c.Root().Writer, "\ntotal %d: downloaded %d, skipped %d, failed %d\n",
					sum.Total, sum.Downloaded, sum.Skipped, sum.Failed)
				if sum.Failed > 0 {
					fmt.Fprintln(c.Root().Writer, "re-run fetch to retry failed items, or run verify for details")
				}
			}
			return err
		},
	}
}
