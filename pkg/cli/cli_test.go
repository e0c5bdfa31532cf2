package cli_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/memvault/memvault/pkg/cli"
)

func TestDoctor(t *testing.T) {
	err := cli.Run(context.Background(), []string{"memvault", "doctor"})
	gt.Equal(t, err, nil)
}

func TestFetchMissingExport(t *testing.T) {
	dir := t.TempDir()
	err := cli.Run(context.Background(), []string{
		"memvault", "fetch",
		"--html", filepath.Join(dir, "missing.html"),
		"--output", filepath.Join(dir, "memories"),
		"--ledger", filepath.Join(dir, "progress.yml"),
	})
	gt.V(t, err).NotNil()
	gt.Equal(t, err.Code, 1)
	gt.S(t, err.Message).Contains("cannot read export HTML")
}
