package model

import "time"

// TimezoneState is the ledger's per-entry timezone sub-state. It is
// either "UTC" (never converted), an IANA zone name resolved from the
// entry's coordinate, or "system" when conversion fell back to the
// host's local zone.
type TimezoneState string

const (
	TimezoneUTC    TimezoneState = "UTC"
	TimezoneSystem TimezoneState = "system"
)

// Converted reports whether a conversion has been applied. A zone name
// and the system fallback both count; re-running conversion on such an
// entry is a no-op.
func (s TimezoneState) Converted() bool {
	return s != "" && s != TimezoneUTC
}

// FailureRecord is one failed attempt in an entry's failure history.
type FailureRecord struct {
	Timestamp time.Time `yaml:"timestamp"`
	Error     string    `yaml:"error"`

	Extra map[string]any `yaml:",inline"`
}

// DownloadEntry is the ledger record for one successfully downloaded
// memory.
type DownloadEntry struct {
	Date      string        `yaml:"date"` // capture timestamp, export format, always UTC
	MediaType MediaKind     `yaml:"media_type"`
	Timestamp time.Time     `yaml:"timestamp"` // when the download happened
	Location  string        `yaml:"location,omitempty"`
	Timezone  TimezoneState `yaml:"timezone"`
	LocalDate string        `yaml:"local_date,omitempty"` // timestamp currently encoded in filenames

	Extra map[string]any `yaml:",inline"`
}

// Coordinate decodes the entry's stored location, or nil if absent.
func (e *DownloadEntry) Coordinate() *Coordinate {
	if e.Location == "" {
		return nil
	}
	c, err := ParseCoordinate(e.Location)
	if err != nil {
		return nil
	}
	return c
}

// FailedEntry accumulates failed download attempts for one memory.
type FailedEntry struct {
	Count  int             `yaml:"count"`
	URL    string          `yaml:"url,omitempty"`
	Errors []FailureRecord `yaml:"errors"`

	Extra map[string]any `yaml:",inline"`
}

// CompositeEntry records one successful overlay composite, keyed by the
// 8-character identity prefix shared with the filenames.
type CompositeEntry struct {
	Timestamp   time.Time `yaml:"timestamp"`
	BaseFile    string    `yaml:"base_file"`
	OverlayFile string    `yaml:"overlay_file"`

	Extra map[string]any `yaml:",inline"`
}

// FailedComposite accumulates failed composite attempts for one pair.
type FailedComposite struct {
	Count       int             `yaml:"count"`
	BaseFile    string          `yaml:"base_file"`
	OverlayFile string          `yaml:"overlay_file"`
	Errors      []FailureRecord `yaml:"errors"`

	Extra map[string]any `yaml:",inline"`
}

// CompositeSection splits composite state by base media kind; the two
// variants are tracked independently.
type CompositeSection[T any] struct {
	Images map[string]*T `yaml:"images"`
	Videos map[string]*T `yaml:"videos"`

	Extra map[string]any `yaml:",inline"`
}

// ByKind returns the sub-map for a media kind, allocating it if needed.
func (s *CompositeSection[T]) ByKind(kind MediaKind) map[string]*T {
	if s.Images == nil {
		s.Images = map[string]*T{}
	}
	if s.Videos == nil {
		s.Videos = map[string]*T{}
	}
	if kind == KindVideo {
		return s.Videos
	}
	return s.Images
}

// Ledger is the persisted document. Unknown top-level and per-entry
// keys written by other versions survive a load/persist round trip via
// the inline maps.
type Ledger struct {
	Downloaded       map[MemoryID]*DownloadEntry       `yaml:"downloaded"`
	Failed           map[MemoryID]*FailedEntry         `yaml:"failed"`
	Composited       CompositeSection[CompositeEntry]  `yaml:"composited"`
	FailedComposites CompositeSection[FailedComposite] `yaml:"failed_composites"`

	Extra map[string]any `yaml:",inline"`
}

// NewLedger returns an empty document with all sections allocated.
func NewLedger() *Ledger {
	return &Ledger{
		Downloaded: map[MemoryID]*DownloadEntry{},
		Failed:     map[MemoryID]*FailedEntry{},
		Composited: CompositeSection[CompositeEntry]{
			Images: map[string]*CompositeEntry{},
			Videos: map[string]*CompositeEntry{},
		},
		FailedComposites: CompositeSection[FailedComposite]{
			Images: map[string]*FailedComposite{},
			Videos: map[string]*FailedComposite{},
		},
	}
}
