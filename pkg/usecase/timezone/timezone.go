package timezone

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	// The rewriter must resolve IANA zone names even on hosts without a
	// system zone database.
	_ "time/tzdata"

	"github.com/memvault/memvault/pkg/adapter"
	"github.com/memvault/memvault/pkg/model"
	"github.com/memvault/memvault/pkg/repository"
	"github.com/memvault/memvault/pkg/utils/logging"
)

// folders lists every output location that participates in the rename;
// an identity missing from one of them is simply skipped there.
var folders = []string{
	"images",
	"videos",
	"overlays",
	filepath.Join("composited", "images"),
	filepath.Join("composited", "videos"),
}

// Summary aggregates one conversion run.
type Summary struct {
	Converted int
	Skipped   int
	Failed    int
	Renamed   int // individual files renamed across all folders
}

// UseCase rewrites filenames and file timestamps from UTC to the zone
// covering each item's geocoordinate, falling back to the host zone.
type UseCase struct {
	ledger    repository.Ledger
	tools     *adapter.Toolset
	outputDir string
	output    io.Writer
}

// Option is a functional option for UseCase.
type Option func(*UseCase)

// WithOutput sets the writer for user-facing progress lines.
func WithOutput(w io.Writer) Option {
	return func(u *UseCase) { u.output = w }
}

// New creates the timezone rewriter.
func New(ledger repository.Ledger, tools *adapter.Toolset, outputDir string, opts ...Option) *UseCase {
	u := &UseCase{
		ledger:    ledger,
		tools:     tools,
		outputDir: outputDir,
		output:    os.Stdout,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// ConvertAll walks every downloaded entry. Entries already marked with
// a non-UTC state are no-ops, which makes re-running the conversion
// safe.
func (u *UseCase) ConvertAll(ctx context.Context) (*Summary, error) {
	logger := logging.From(ctx)
	sum := &Summary{}

	downloaded := u.ledger.Downloaded()
	ids := make([]model.MemoryID, 0, len(downloaded))
	for id := range downloaded {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		entry := downloaded[id]
		if entry.Timezone.Converted() {
			sum.Skipped++
			continue
		}

		capturedAt, err := model.ParseCaptureTime(entry.Date)
		if err != nil {
			logger.Warn("entry has unparseable capture date", "sid", id.Short(), "date", entry.Date)
			sum.Failed++
			continue
		}

		state, loc := u.resolveZone(entry)
		local := capturedAt.In(loc)

		renamed, err := u.renameAll(ctx, id.Short(), local)
		if err != nil {
			logger.Warn("rename failed", "sid", id.Short(), "error", err)
			sum.Failed++
			continue
		}
		sum.Renamed += renamed

		label := string(state)
		if state == model.TimezoneSystem {
			label = local.Format("MST")
		}
		if err := u.ledger.RecordTimezone(id, state, model.FormatZonedTime(local, label)); err != nil {
			return sum, err
		}
		sum.Converted++
		fmt.Fprintf(u.output, "converted %s -> %s (%s)\n", id.Short(), model.FormatZonedTime(local, label), state)
	}

	return sum, nil
}

// resolveZone picks the target zone for an entry: the zone covering its
// coordinate when one is known and resolvable, otherwise the host zone
// marked as the distinct system-fallback state.
func (u *UseCase) resolveZone(entry *model.DownloadEntry) (model.TimezoneState, *time.Location) {
	if c := entry.Coordinate(); c != nil && u.tools.Timezone.Available() {
		if zone, ok := u.tools.Timezone.Resolve(c.Latitude, c.Longitude); ok {
			if loc, err := time.LoadLocation(zone); err == nil {
				return model.TimezoneState(zone), loc
			}
		}
	}
	return model.TimezoneSystem, time.Local
}

// renameAll recomputes the date/time segment of every artifact carrying
// the identity prefix, across all participating folders, and re-applies
// file timestamps.
func (u *UseCase) renameAll(ctx context.Context, sid8 string, local time.Time) (int, error) {
	logger := logging.From(ctx)
	renamed := 0

	for _, folder := range folders {
		dir := filepath.Join(u.outputDir, folder)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue // folder absent, nothing to do there
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			parsed, ok := model.ParseFilename(e.Name())
			if !ok || parsed.SID8 != sid8 {
				continue
			}

			newName := model.Filename(local, parsed.Kind, sid8, parsed.Suffix, parsed.Ext)
			oldPath := filepath.Join(dir, e.Name())
			newPath := filepath.Join(dir, newName)

			if newName != e.Name() {
				if err := os.Rename(oldPath, newPath); err != nil {
					return renamed, err
				}
				renamed++
			}
			if err := u.tools.FileTimes.Apply(newPath, local); err != nil {
				logger.Warn("could not update file times", "path", newPath, "error", err)
			}
		}
	}
	return renamed, nil
}
