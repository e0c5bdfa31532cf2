package timezone_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/memvault/memvault/pkg/adapter"
	"github.com/memvault/memvault/pkg/model"
	"github.com/memvault/memvault/pkg/repository"
	"github.com/memvault/memvault/pkg/usecase/fetch"
	"github.com/memvault/memvault/pkg/usecase/timezone"
)

func TestConvertAll(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	gt.NoError(t, fetch.EnsureLayout(dir))

	ledger, err := repository.Open(filepath.Join(dir, "progress.yml"))
	gt.NoError(t, err)

	capturedAt := time.Date(2024, 5, 17, 9, 30, 5, 0, time.UTC)
	id := model.MemoryID("abcd1234efgh")

	gt.NoError(t, ledger.RecordSuccess(id, &model.DownloadEntry{
		Date:      model.FormatCaptureTime(capturedAt),
		MediaType: model.KindImage,
		Location:  (&model.Coordinate{Latitude: 40.7128, Longitude: -74.006}).String(),
	}))

	utcName := model.Filename(capturedAt, model.KindImage, id.Short(), model.SuffixNone, "jpg")
	overlayName := model.Filename(capturedAt, model.KindImage, id.Short(), model.SuffixOverlay, "png")
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "images", utcName), []byte("x"), 0o644))
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "overlays", overlayName), []byte("x"), 0o644))

	uc := timezone.New(ledger, adapter.NewToolset(), dir, timezone.WithOutput(os.Stderr))
	sum, err := uc.ConvertAll(ctx)
	gt.NoError(t, err)
	gt.Equal(t, sum.Converted, 1)
	gt.Equal(t, sum.Renamed, 2)

	// 2024-05-17 09:30:05 UTC is 05:30:05 in New York (EDT).
	loc, err := time.LoadLocation("America/New_York")
	gt.NoError(t, err)
	local := capturedAt.In(loc)

	localName := model.Filename(local, model.KindImage, id.Short(), model.SuffixNone, "jpg")
	gt.Equal(t, localName, "2024-05-17_053005_Image_abcd1234.jpg")
	_, err = os.Stat(filepath.Join(dir, "images", localName))
	gt.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "images", utcName))
	gt.Error(t, err)
	_, err = os.Stat(filepath.Join(dir, "overlays",
		model.Filename(local, model.KindImage, id.Short(), model.SuffixOverlay, "png")))
	gt.NoError(t, err)

	entry, ok := ledger.Get(id)
	gt.True(t, ok)
	gt.Equal(t, entry.Timezone, model.TimezoneState("America/New_York"))
	gt.Equal(t, entry.LocalDate, "2024-05-17 05:30:05 America/New_York")

	// A second run touches nothing.
	sum, err = uc.ConvertAll(ctx)
	gt.NoError(t, err)
	gt.Equal(t, sum.Converted, 0)
	gt.Equal(t, sum.Skipped, 1)
	gt.Equal(t, sum.Renamed, 0)
}

func TestConvertAllFallsBackToSystemZone(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	gt.NoError(t, fetch.EnsureLayout(dir))

	ledger, err := repository.Open(filepath.Join(dir, "progress.yml"))
	gt.NoError(t, err)

	capturedAt := time.Date(2024, 5, 17, 9, 30, 5, 0, time.UTC)
	id := model.MemoryID("nogeo123xyz")
	gt.NoError(t, ledger.RecordSuccess(id, &model.DownloadEntry{
		Date:      model.FormatCaptureTime(capturedAt),
		MediaType: model.KindVideo,
	}))

	uc := timezone.New(ledger, adapter.NewToolset(), dir, timezone.WithOutput(os.Stderr))
	sum, err := uc.ConvertAll(ctx)
	gt.NoError(t, err)
	gt.Equal(t, sum.Converted, 1)

	entry, ok := ledger.Get(id)
	gt.True(t, ok)
	gt.Equal(t, entry.Timezone, model.TimezoneSystem)
	gt.True(t, entry.Timezone.Converted())
}

func TestConvertAllSkipsUnparseableDates(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	gt.NoError(t, fetch.EnsureLayout(dir))

	ledger, err := repository.Open(filepath.Join(dir, "progress.yml"))
	gt.NoError(t, err)
	gt.NoError(t, ledger.RecordSuccess("brokenid", &model.DownloadEntry{
		Date:      "not a date",
		MediaType: model.KindImage,
	}))

	uc := timezone.New(ledger, adapter.NewToolset(), dir, timezone.WithOutput(os.Stderr))
	sum, err := uc.ConvertAll(ctx)
	gt.NoError(t, err)
	gt.Equal(t, sum.Converted, 0)
	gt.Equal(t, sum.Failed, 1)
}
