package composite

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/memvault/memvault/pkg/adapter"
	"github.com/memvault/memvault/pkg/model"
	"github.com/memvault/memvault/pkg/pairing"
	"github.com/memvault/memvault/pkg/repository"
	"github.com/memvault/memvault/pkg/utils/logging"
)

// Filter restricts which variant set a run processes.
type Filter int

const (
	All Filter = iota
	ImagesOnly
	VideosOnly
)

func (f Filter) allows(kind model.MediaKind) bool {
	switch f {
	case ImagesOnly:
		return kind == model.KindImage
	case VideosOnly:
		return kind == model.KindVideo
	default:
		return true
	}
}

// Summary aggregates one compositing run.
type Summary struct {
	Succeeded        int
	Failed           int
	SkippedDone      int // pairs the ledger already shows composited
	SkippedNoOverlay int // downloaded items with no overlay artifact
	SkippedNoTool    int // pairs whose external tool is missing
	Unpaired         int // overlays with no matching base
}

// Skipped is everything that was not attempted for a benign reason.
func (s *Summary) Skipped() int {
	return s.SkippedDone + s.SkippedNoOverlay + s.SkippedNoTool
}

// UseCase merges overlays onto their base media via external tools.
type UseCase struct {
	ledger       repository.Ledger
	tools        *adapter.Toolset
	outputDir    string
	copyMetadata bool
	output       io.Writer
}

// Option is a functional option for UseCase.
type Option func(*UseCase)

// WithMetadataCopy enables the exiftool tags-from-file pass on
// composited artifacts.
func WithMetadataCopy(enabled bool) Option {
	return func(u *UseCase) { u.copyMetadata = enabled }
}

// WithOutput sets the writer for user-facing progress lines.
func WithOutput(w io.Writer) Option {
	return func(u *UseCase) { u.output = w }
}

// New creates the compositor.
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

// CompositeAll processes every pair sequentially. A failure on one pair
// never blocks subsequent pairs; every outcome lands in the ledger's
// composite sub-state before the next pair starts.
func (u *UseCase) CompositeAll(ctx context.Context, cache *pairing.Cache, filter Filter) (*Summary, error) {
	logger := logging.From(ctx)
	sum := &Summary{}

	withOverlay := map[string]bool{}
	for _, p := range cache.Paired() {
		withOverlay[p.SID8] = true
	}
	for id, entry := range u.ledger.Downloaded() {
		if filter.allows(entry.MediaType) && !withOverlay[id.Short()] {
			sum.SkippedNoOverlay++
		}
	}
	for _, p := range cache.Unpaired() {
		if filter.allows(p.MediaType) {
			sum.Unpaired++
			logger.Warn("overlay has no matching base media", "overlay", p.OverlayFile)
		}
	}

	for _, p := range cache.Paired() {
		if !filter.allows(p.MediaType) {
			continue
		}
		if u.ledger.IsComposited(p.SID8, p.MediaType) {
			sum.SkippedDone++
			continue
		}
		if !u.toolFor(p.MediaType).Available() {
			// Degraded feature: the external tool is missing, the
			// variant is skipped without recording a failure.
			logger.Warn("compositing tool unavailable, skipping", "kind", p.MediaType, "sid", p.SID8)
			sum.SkippedNoTool++
			continue
		}

		if err := u.compositeOne(ctx, p); err != nil {
			sum.Failed++
			fmt.Fprintf(u.output, "composite failed %s: %v\n", filepath.Base(p.BaseFile), err)
			if rerr := u.ledger.RecordCompositeFailure(p.SID8, p.MediaType, p.BaseFile, p.OverlayFile, err.Error()); rerr != nil {
				return sum, rerr
			}
			continue
		}

		sum.Succeeded++
		fmt.Fprintf(u.output, "composited %s\n", filepath.Base(p.BaseFile))
		if err := u.ledger.RecordComposite(p.SID8, p.MediaType, p.BaseFile, p.OverlayFile); err != nil {
			return sum, err
		}
	}

	return sum, nil
}

type availabler interface{ Available() bool }

func (u *UseCase) toolFor(kind model.MediaKind) availabler {
	if kind == model.KindVideo {
		return u.tools.Video
	}
	return u.tools.Image
}

func (u *UseCase) compositeOne(ctx context.Context, p *pairing.Pair) error {
	logger := logging.From(ctx)

	info, err := os.Stat(p.OverlayFile)
	if err != nil {
		return goerr.Wrap(err, "overlay file is unreadable")
	}
	if info.Size() == 0 {
		// Known-bad export artifact; do not feed it to the tool.
		return goerr.New("empty overlay file", goerr.V("overlay", p.OverlayFile))
	}

	outPath := u.compositedPath(p)
	if p.MediaType == model.KindVideo {
		err = u.tools.Video.Overlay(ctx, p.BaseFile, p.OverlayFile, outPath)
	} else {
		err = u.tools.Image.Composite(p.BaseFile, p.OverlayFile, outPath)
	}
	if err != nil {
		return err
	}

	if base, serr := os.Stat(p.BaseFile); serr == nil {
		if terr := u.tools.FileTimes.Apply(outPath, base.ModTime()); terr != nil {
			logger.Warn("could not set composited file times", "path", outPath, "error", terr)
		}
	}

	// Metadata propagation failure degrades to "composited without
	// metadata", never to an overall failure.
	if u.copyMetadata && u.tools.Metadata.Available() {
		if merr := u.tools.Metadata.CopyTags(ctx, p.BaseFile, outPath); merr != nil {
			logger.Warn("could not copy metadata to composited file", "path", outPath, "error", merr)
		}
	}
	return nil
}

func (u *UseCase) compositedPath(p *pairing.Pair) string {
	base := filepath.Base(p.BaseFile)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext) + string(model.SuffixComposited) + ext
	return filepath.Join(u.outputDir, "composited", model.MediaFolder(p.MediaType), name)
}
