package adapter

import (
	"context"
	"net/http"
	"time"
)

// HTTPClient is the slice of *http.Client the fetch engine uses.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ImageCompositor merges a transparency overlay onto a base image.
type ImageCompositor interface {
	Available() bool
	Composite(basePath, overlayPath, outPath string) error
}

// VideoCompositor overlays a transparent graphic onto a video stream
// and re-muxes it, via an external process.
type VideoCompositor interface {
	Available() bool
	Overlay(ctx context.Context, basePath, overlayPath, outPath string) error
}

// MetadataTool reads and writes embedded media metadata via an external
// process.
type MetadataTool interface {
	Available() bool
	// WriteGPS embeds a coordinate pair into the file's metadata.
	WriteGPS(ctx context.Context, path string, lat, lon float64) error
	// CopyTags propagates all metadata from src to dst.
	CopyTags(ctx context.Context, src, dst string) error
}

// TimezoneLookup resolves the IANA zone covering a coordinate.
type TimezoneLookup interface {
	Available() bool
	Resolve(lat, lon float64) (string, bool)
}

// FileTimes applies filesystem timestamps to downloaded artifacts.
type FileTimes interface {
	// CanSetBirthTime reports whether the platform exposes a way to set
	// creation time. Its absence is not a failure.
	CanSetBirthTime() bool
	Apply(path string, ts time.Time) error
}

// Toolset bundles every external capability. Each is probed exactly
// once at construction; call sites branch on the cached result instead
// of re-probing.
type Toolset struct {
	Image     ImageCompositor
	Video     VideoCompositor
	Metadata  MetadataTool
	Timezone  TimezoneLookup
	FileTimes FileTimes
}

// NewToolset probes all external collaborators on the current host.
func NewToolset() *Toolset {
	return &Toolset{
		Image:     NewImageCompositor(),
		Video:     NewVideoCompositor(),
		Metadata:  NewMetadataTool(),
		Timezone:  NewTimezoneLookup(),
		FileTimes: NewFileTimes(),
	}
}
