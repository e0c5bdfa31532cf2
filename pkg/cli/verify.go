package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/memvault/memvault/pkg/pairing"
	"github.com/memvault/memvault/pkg/usecase/verify"
	"github.com/urfave/cli/v3"
)

// reportLimit caps per-category item listings so a badly broken run
// does not flood the terminal.
const reportLimit = 10

func verifyCommand() *cli.Command {
	var cfg config
	var composites bool

	flags := append(globalFlags(&cfg),
		&cli.BoolFlag{
			Name:        "composites",
			Usage:       "Verify composited files instead of downloads",
			Destination: &composites,
		},
	)

	return &cli.Command{
		Name:  "verify",
		Usage: "Check progress against the ledger without any network activity",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setup(ctx)

			ledger, err := cfg.openLedger()
			if err != nil {
				return err
			}
			uc := verify.New(ledger)
			w := c.Root().Writer

			if composites {
				cache, err := pairing.BuildOrLoad(ctx, cfg.outputDir, cfg.cachePath, false)
				if err != nil {
					return err
				}
				r := uc.Composites(cache)
				fmt.Fprintf(w, "pairs: %d, composited: %d images + %d videos, missing: %d, failed: %d, unpaired overlays: %d\n",
					r.TotalPairs, r.CompositedImages, r.CompositedVideos, len(r.Missing), len(r.Failed), r.UnpairedOverlays)
				printItems(w, "missing", r.Missing)
				printItems(w, "failed", r.Failed)
				return nil
			}

			memories, err := cfg.parseExport(ctx)
			if err != nil {
				return err
			}
			r := uc.Downloads(memories)
			fmt.Fprintf(w, "records: %d, downloaded: %d, missing: %d, failed: %d\n",
				r.Total, r.Downloaded, len(r.Missing), len(r.Failed))
			printItems(w, "missing", r.Missing)
			printItems(w, "failed", r.Failed)
			return nil
		},
	}
}

func printItems(w io.Writer, label string, items []verify.Item) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", label)
	for i, it := range items {
		if i == reportLimit {
			fmt.Fprintf(w, "  ... and %d more\n", len(items)-reportLimit)
			return
		}
		if it.Attempts > 0 {
			fmt.Fprintf(w, "  %s %s (%d attempts)\n", it.SID, it.Date, it.Attempts)
		} else {
			fmt.Fprintf(w, "  %s %s\n", it.SID, it.Date)
		}
	}
}
