package cli

import (
	"context"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/goerr/v2"
	"github.com/memvault/memvault/pkg/model"
	"github.com/memvault/memvault/pkg/parser"
	"github.com/memvault/memvault/pkg/repository"
	"github.com/memvault/memvault/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// config holds configuration values shared across commands
type config struct {
	htmlPath   string
	outputDir  string
	ledgerPath string
	cachePath  string
	logLevel   string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "html",
			Usage:       "Path to the memories export HTML file",
			Value:       "memories_history.html",
			Sources:     cli.EnvVars("MEMVAULT_HTML"),
			Destination: &cfg.htmlPath,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Output directory for downloaded memories",
			Value:       "memories",
			Sources:     cli.EnvVars("MEMVAULT_OUTPUT"),
			Destination: &cfg.outputDir,
		},
		&cli.StringFlag{
			Name:        "ledger",
			Usage:       "Path to the progress ledger file",
			Value:       "download_progress.yml",
			Sources:     cli.EnvVars("MEMVAULT_LEDGER"),
			Destination: &cfg.ledgerPath,
		},
		&cli.StringFlag{
			Name:        "pairs-cache",
			Usage:       "Path to the overlay pairing cache file",
			Value:       "overlay_pairs.yml",
			Sources:     cli.EnvVars("MEMVAULT_PAIRS_CACHE"),
			Destination: &cfg.cachePath,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("MEMVAULT_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
	}
}

// setup installs the configured logger and returns a context carrying
// it.
func (cfg *config) setup(ctx context.Context) context.Context {
	logger := logging.New(cfg.logLevel, os.Stderr)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

// openLedger loads the progress ledger, initializing an empty one when
// the file does not exist yet.
func (cfg *config) openLedger() (repository.Ledger, error) {
	ledger, err := repository.Open(cfg.ledgerPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open ledger")
	}
	return ledger, nil
}

// parseExport reads and parses the export HTML. Failing to read the
// file at all is fatal.
func (cfg *config) parseExport(ctx context.Context) ([]*model.Memory, error) {
	f, err := os.Open(cfg.htmlPath)
	if err != nil {
		return nil, goerr.Wrap(err, "cannot read export HTML", goerr.V("path", cfg.htmlPath))
	}
	defer f.Close()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " parsing export..."
	s.Start()
	defer s.Stop()

	memories, err := parser.Parse(ctx, f)
	if err != nil {
		return nil, err
	}
	return memories, nil
}
