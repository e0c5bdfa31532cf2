package repository_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/memvault/memvault/pkg/model"
	"github.com/memvault/memvault/pkg/repository"
)

func tempLedger(t *testing.T) (string, *repository.FileLedger) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "download_progress.yml")
	ledger, err := repository.Open(path)
	gt.NoError(t, err)
	return path, ledger
}

func TestOpenMissingFile(t *testing.T) {
	_, ledger := tempLedger(t)
	gt.Equal(t, len(ledger.Downloaded()), 0)
	gt.False(t, ledger.IsDownloaded("anything"))
}

func TestRecordSuccessPersists(t *testing.T) {
	path, ledger := tempLedger(t)
	id := model.MemoryID(uuid.NewString())

	entry := &model.DownloadEntry{
		Date:      "2024-05-17 09:30:05 UTC",
		MediaType: model.KindImage,
		Location:  "40.712800,-74.006000",
	}
	gt.NoError(t, ledger.RecordSuccess(id, entry))
	gt.True(t, ledger.IsDownloaded(id))

	// Defaults filled on write.
	got, ok := ledger.Get(id)
	gt.True(t, ok)
	gt.Equal(t, got.Timezone, model.TimezoneUTC)
	gt.False(t, got.Timestamp.IsZero())

	// A fresh handle sees the same state.
	reopened, err := repository.Open(path)
	gt.NoError(t, err)
	gt.True(t, reopened.IsDownloaded(id))
	got, ok = reopened.Get(id)
	gt.True(t, ok)
	gt.Equal(t, got.MediaType, model.KindImage)
	gt.Equal(t, got.Location, "40.712800,-74.006000")
}

func TestSuccessClearsFailureHistory(t *testing.T) {
	_, ledger := tempLedger(t)
	id := model.MemoryID(uuid.NewString())

	gt.NoError(t, ledger.RecordFailure(id, "https://example.com/dl", "boom"))
	gt.NoError(t, ledger.RecordFailure(id, "https://example.com/dl", "boom again"))
	gt.Equal(t, ledger.FailureCount(id), 2)

	failed, ok := ledger.Failure(id)
	gt.True(t, ok)
	gt.Equal(t, failed.URL, "https://example.com/dl")
	gt.A(t, failed.Errors).Length(2)
	gt.Equal(t, failed.Errors[1].Error, "boom again")

	gt.NoError(t, ledger.RecordSuccess(id, &model.DownloadEntry{
		Date:      "2024-05-17 09:30:05 UTC",
		MediaType: model.KindVideo,
	}))
	gt.Equal(t, ledger.FailureCount(id), 0)
	_, ok = ledger.Failure(id)
	gt.False(t, ok)
}

func TestCompositeState(t *testing.T) {
	path, ledger := tempLedger(t)

	gt.False(t, ledger.IsComposited("a1b2c3d4", model.KindImage))
	gt.NoError(t, ledger.RecordCompositeFailure("a1b2c3d4", model.KindImage, "base.jpg", "overlay.png", "tool crashed"))
	gt.Equal(t, ledger.CompositeFailureCount("a1b2c3d4", model.KindImage), 1)

	gt.NoError(t, ledger.RecordComposite("a1b2c3d4", model.KindImage, "base.jpg", "overlay.png"))
	gt.True(t, ledger.IsComposited("a1b2c3d4", model.KindImage))
	// Success wipes the failure history for the pair.
	gt.Equal(t, ledger.CompositeFailureCount("a1b2c3d4", model.KindImage), 0)
	// The video variant is tracked independently.
	gt.False(t, ledger.IsComposited("a1b2c3d4", model.KindVideo))

	reopened, err := repository.Open(path)
	gt.NoError(t, err)
	gt.True(t, reopened.IsComposited("a1b2c3d4", model.KindImage))
}

func TestRecordTimezone(t *testing.T) {
	_, ledger := tempLedger(t)
	id := model.MemoryID(uuid.NewString())

	gt.Error(t, ledger.RecordTimezone(id, "America/New_York", "2024-05-17 05:30:05 America/New_York"))

	gt.NoError(t, ledger.RecordSuccess(id, &model.DownloadEntry{
		Date:      "2024-05-17 09:30:05 UTC",
		MediaType: model.KindImage,
	}))
	gt.NoError(t, ledger.RecordTimezone(id, "America/New_York", "2024-05-17 05:30:05 America/New_York"))

	got, ok := ledger.Get(id)
	gt.True(t, ok)
	gt.True(t, got.Timezone.Converted())
	gt.Equal(t, got.LocalDate, "2024-05-17 05:30:05 America/New_York")
}

func TestUnknownFieldsSurviveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "download_progress.yml")
	doc := `downloaded:
  someid12345:
    date: 2024-05-17 09:30:05 UTC
    media_type: Image
    timestamp: 2024-06-01T00:00:00Z
    timezone: UTC
    future_field: kept
failed: {}
schema_hint: v2
`
	gt.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	ledger, err := repository.Open(path)
	gt.NoError(t, err)
	gt.True(t, ledger.IsDownloaded("someid12345"))

	// Any mutation rewrites the whole document; foreign keys must come
	// back out.
	gt.NoError(t, ledger.RecordFailure("otherid", "https://example.com/dl", "boom"))

	data, err := os.ReadFile(path)
	gt.NoError(t, err)
	gt.S(t, string(data)).Contains("future_field: kept")
	gt.S(t, string(data)).Contains("schema_hint: v2")
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "download_progress.yml")
	gt.NoError(t, os.WriteFile(path, []byte("{{{ not yaml"), 0o644))

	_, err := repository.Open(path)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, repository.ErrCorruptLedger))
}

func TestBackupKeepsPreviousRevision(t *testing.T) {
	path, ledger := tempLedger(t)

	gt.NoError(t, ledger.RecordFailure("first", "https://example.com/1", "boom"))
	gt.NoError(t, ledger.RecordFailure("second", "https://example.com/2", "boom"))

	backup, err := os.ReadFile(path + ".backup")
	gt.NoError(t, err)
	// The backup is the revision before the last write.
	gt.S(t, string(backup)).Contains("first")
	gt.S(t, string(backup)).NotContains("second")
}
