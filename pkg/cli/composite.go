package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/memvault/memvault/pkg/adapter"
	"github.com/memvault/memvault/pkg/pairing"
	"github.com/memvault/memvault/pkg/usecase/composite"
	"github.com/urfave/cli/v3"
)

func compositeCommand() *cli.Command {
	var cfg config
	var imagesOnly, videosOnly, rebuildCache, copyMetadata bool

	flags := append(globalFlags(&cfg),
		&cli.BoolFlag{
			Name:        "images-only",
			Usage:       "Composite only images",
			Destination: &imagesOnly,
		},
		&cli.BoolFlag{
			Name:        "videos-only",
			Usage:       "Composite only videos",
			Destination: &videosOnly,
		},
		&cli.BoolFlag{
			Name:        "rebuild-cache",
			Usage:       "Ignore the pairing cache and rescan the output folders",
			Destination: &rebuildCache,
		},
		&cli.BoolFlag{
			Name:        "copy-metadata",
			Usage:       "Copy metadata tags from base to composited files (requires exiftool)",
			Destination: &copyMetadata,
		},
	)

	return &cli.Command{
		Name:  "composite",
		Usage: "Merge downloaded overlays onto their base media",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setup(ctx)

			if imagesOnly && videosOnly {
				return goerr.New("--images-only and --videos-only are mutually exclusive")
			}
			filter := composite.All
			if imagesOnly {
				filter = composite.ImagesOnly
			} else if videosOnly {
				filter = composite.VideosOnly
			}

			ledger, err := cfg.openLedger()
			if err != nil {
				return err
			}
			cache, err := pairing.BuildOrLoad(ctx, cfg.outputDir, cfg.cachePath, rebuildCache)
			if err != nil {
				return err
			}

			uc := composite.New(ledger, adapter.NewToolset(), cfg.outputDir,
				composite.WithMetadataCopy(copyMetadata),
				composite.WithOutput(c.Root().Writer),
			)
			sum, err := uc.CompositeAll(ctx, cache, filter)
			if sum != nil {
				fmt.Fprintf(c.Root().Writer, "\ncomposited %d, failed %d, skipped %d, unpaired overlays %d\n",
					sum.Succeeded, sum.Failed, sum.Skipped(), sum.Unpaired)
			}
			return err
		},
	}
}
