package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/memvault/memvault/pkg/adapter"
	"github.com/memvault/memvault/pkg/model"
	"github.com/memvault/memvault/pkg/repository"
	"github.com/memvault/memvault/pkg/utils/logging"
)

const (
	// DefaultDelay is the fixed pause between items; it exists to avoid
	// triggering rate limiting proactively.
	DefaultDelay = 2 * time.Second

	defaultBackoffBase = 5 * time.Second
	defaultMaxAttempts = 3

	// maxRecordedFailures gates automatic re-attempts, not possibility:
	// identities past the gate are reported as permanently failed but
	// stay in the ledger for manual retry.
	maxRecordedFailures = 5
)

var (
	errThrottled = goerr.New("rate limited by remote endpoint")
	errTransient = goerr.New("transient retrieval failure")
)

// Outcome is the per-item result of a fetch.
type Outcome int

const (
	OutcomeDownloaded Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

// Summary aggregates one run of the download loop.
type Summary struct {
	Total      int
	Downloaded int
	Skipped    int
	Failed     int
}

// UseCase drives the resumable download loop.
type UseCase struct {
	ledger      repository.Ledger
	client      adapter.HTTPClient
	tools       *adapter.Toolset
	outputDir   string
	delay       time.Duration
	backoffBase time.Duration
	maxAttempts int
	output      io.Writer
}

// Option is a functional option for UseCase.
type Option func(*UseCase)

// WithDelay sets the inter-item pause.
func WithDelay(d time.Duration) Option {
	return func(u *UseCase) { u.delay = d }
}

// WithBackoff overrides the retry policy constants.
func WithBackoff(base time.Duration, maxAttempts int) Option {
	return func(u *UseCase) {
		u.backoffBase = base
		u.maxAttempts = maxAttempts
	}
}

// WithOutput sets the writer for user-facing progress lines.
func WithOutput(w io.Writer) Option {
	return func(u *UseCase) { u.output = w }
}

// New creates the fetch engine.
func New(ledger repository.Ledger, client adapter.HTTPClient, tools *adapter.Toolset, outputDir string, opts ...Option) *UseCase {
	u := &UseCase{
		ledger:      ledger,
		client:      client,
		tools:       tools,
		outputDir:   outputDir,
		delay:       DefaultDelay,
		backoffBase: defaultBackoffBase,
		maxAttempts: defaultMaxAttempts,
		output:      os.Stdout,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// EnsureLayout creates the output folder structure.
func EnsureLayout(outputDir string) error {
	for _, dir := range []string{
		outputDir,
		filepath.Join(outputDir, "images"),
		filepath.Join(outputDir, "videos"),
		filepath.Join(outputDir, "overlays"),
		filepath.Join(outputDir, "composited", "images"),
		filepath.Join(outputDir, "composited", "videos"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return goerr.Wrap(err, "cannot create output folder", goerr.V("path", dir))
		}
	}
	return nil
}

// FetchAll processes the memories strictly sequentially: one item is
// fully fetched, including its retries, before the next begins. A
// failing item never unwinds past the loop.
func (u *UseCase) FetchAll(ctx context.Context, memories []*model.Memory) (*Summary, error) {
	logger := logging.From(ctx)

	if err := EnsureLayout(u.outputDir); err != nil {
		return nil, err
	}

	sum := &Summary{Total: len(memories)}
	for i, m := range memories {
		outcome, err := u.Fetch(ctx, m)
		switch outcome {
		case OutcomeDownloaded:
			sum.Downloaded++
			fmt.Fprintf(u.output, "[%d/%d] downloaded %s %s (%s)\n", i+1, sum.Total,
				model.FormatCaptureTime(m.CapturedAt), m.Kind, m.ID.Short())
		case OutcomeSkipped:
			sum.Skipped++
			logger.Debug("already downloaded", "sid", m.ID.Short())
			continue
		case OutcomeFailed:
			sum.Failed++
			fmt.Fprintf(u.output, "[%d/%d] failed %s (%s): %v\n", i+1, sum.Total,
				model.FormatCaptureTime(m.CapturedAt), m.ID.Short(), err)
		}

		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		if i < len(memories)-1 {
			if err := sleep(ctx, u.delay); err != nil {
				return sum, err
			}
		}
	}
	return sum, nil
}

// Fetch retrieves one memory. Repeat invocations are safe: an identity
// the ledger already shows as downloaded is a no-op beyond a
// best-effort metadata refresh of its existing files.
func (u *UseCase) Fetch(ctx context.Context, m *model.Memory) (Outcome, error) {
	logger := logging.From(ctx)

	if err := EnsureLayout(u.outputDir); err != nil {
		return OutcomeFailed, err
	}

	if u.ledger.IsDownloaded(m.ID) {
		u.refreshExisting(ctx, m)
		return OutcomeSkipped, nil
	}

	if n := u.ledger.FailureCount(m.ID); n >= maxRecordedFailures {
		return OutcomeFailed, goerr.New("gave up after repeated failures",
			goerr.V("sid", m.ID.Short()), goerr.V("attempts", n))
	}

	for attempts := 1; ; attempts++ {
		err := u.attempt(ctx, m)
		if err == nil {
			entry := &model.DownloadEntry{
				Date:      model.FormatCaptureTime(m.CapturedAt),
				MediaType: m.Kind,
				Timezone:  model.TimezoneUTC,
			}
			if m.Location != nil {
				entry.Location = m.Location.String()
			}
			if err := u.ledger.RecordSuccess(m.ID, entry); err != nil {
				return OutcomeFailed, err
			}
			return OutcomeDownloaded, nil
		}

		if err := u.ledger.RecordFailure(m.ID, m.DownloadURL, err.Error()); err != nil {
			return OutcomeFailed, err
		}

		if retryable(err) {
			if d := Decide(attempts, u.maxAttempts, u.backoffBase); d.Retry {
				logger.Warn("retrying after backoff", "sid", m.ID.Short(),
					"attempt", attempts, "wait", d.Wait.String(), "error", err)
				if serr := sleep(ctx, d.Wait); serr != nil {
					return OutcomeFailed, serr
				}
				continue
			}
		}
		return OutcomeFailed, err
	}
}

// attempt performs a single retrieval and unpacks the payload onto
// disk. Errors are tagged throttled/transient when another attempt may
// succeed.
func (u *UseCase) attempt(ctx context.Context, m *model.Memory) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.DownloadURL, nil)
	if err != nil {
		return goerr.Wrap(err, "retrieval URL is not usable", goerr.V("url", m.DownloadURL))
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return goerr.Wrap(errTransient, "request failed", goerr.V("cause", err.Error()))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return goerr.Wrap(errThrottled, "endpoint returned 429")
	}
	if resp.StatusCode != http.StatusOK {
		return goerr.Wrap(errTransient, "unexpected status", goerr.V("status", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return goerr.Wrap(errTransient, "reading response failed", goerr.V("cause", err.Error()))
	}

	cls := Classify(body)
	switch cls.Kind {
	case PayloadHTML:
		// The endpoint serves an HTML error page instead of media when
		// it is shedding load, whatever the declared content type says.
		return goerr.Wrap(errThrottled, "received error page instead of media")
	case PayloadArchive:
		return u.extractArchive(ctx, body, m)
	case PayloadImage, PayloadVideo:
		return u.saveDirect(ctx, body, cls, m)
	default:
		bad := filepath.Join(u.outputDir, "bad_"+m.ID.Short()+".dat")
		if werr := os.WriteFile(bad, body, 0o644); werr == nil {
			return goerr.New("payload has no recognized signature", goerr.V("saved", bad))
		}
		return goerr.New("payload has no recognized signature")
	}
}

// saveDirect stores a raw media payload. The folder follows the
// classified signature; the filename keeps the export's declared kind.
func (u *UseCase) saveDirect(ctx context.Context, body []byte, cls Classification, m *model.Memory) error {
	dir := filepath.Join(u.outputDir, model.MediaFolder(cls.MediaKind()))
	name := model.Filename(m.CapturedAt, m.Kind, m.ID.Short(), model.SuffixNone, cls.Ext)
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, body, 0o644); err != nil {
		return goerr.Wrap(err, "cannot write media file", goerr.V("path", path))
	}
	u.applyFileMeta(ctx, path, m)
	return nil
}

// refreshExisting re-applies timestamps and GPS metadata to files of an
// already-downloaded identity, picking up tools installed since the
// original download.
func (u *UseCase) refreshExisting(ctx context.Context, m *model.Memory) {
	marker := "_" + m.ID.Short()
	for _, sub := range []string{"images", "videos", "overlays"} {
		dir := filepath.Join(u.outputDir, sub)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.Contains(e.Name(), marker) {
				continue
			}
			u.applyFileMeta(ctx, filepath.Join(dir, e.Name()), m)
		}
	}
}

// applyFileMeta sets filesystem timestamps and, when possible, embeds
// GPS metadata. Both are best-effort and never fail the download.
func (u *UseCase) applyFileMeta(ctx context.Context, path string, m *model.Memory) {
	logger := logging.From(ctx)

	if err := u.tools.FileTimes.Apply(path, m.CapturedAt); err != nil {
		logger.Warn("could not set file times", "path", path, "error", err)
	}

	if m.Location == nil || !u.tools.Metadata.Available() || !gpsEligible(path) {
		return
	}
	if err := u.tools.Metadata.WriteGPS(ctx, path, m.Location.Latitude, m.Location.Longitude); err != nil {
		logger.Warn("could not embed GPS metadata", "path", path, "error", err)
	}
}

// gpsEligible excludes overlays and formats exiftool cannot tag.
func gpsEligible(path string) bool {
	if strings.Contains(path, string(model.SuffixOverlay)+".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".mp4", ".mov", ".avi":
		return true
	default:
		return false
	}
}

func retryable(err error) bool {
	return errors.Is(err, errThrottled) || errors.Is(err, errTransient)
}

// sleep blocks for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
