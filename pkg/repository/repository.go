package repository

import "github.com/memvault/memvault/pkg/model"

// Ledger is the single source of truth for what already happened to
// each memory. Every mutating call persists durably before returning,
// so an interrupt between any two operations leaves a consistent,
// parseable file. The format assumes exactly one writer.
type Ledger interface {
	// Get returns the download entry for an identity, if known.
	Get(id model.MemoryID) (*model.DownloadEntry, bool)

	// IsDownloaded reports whether the identity completed a download.
	IsDownloaded(id model.MemoryID) bool

	// Downloaded exposes the download section for iteration. Callers
	// must treat it as read-only.
	Downloaded() map[model.MemoryID]*model.DownloadEntry

	// Failure returns the accumulated failure state for an identity.
	Failure(id model.MemoryID) (*model.FailedEntry, bool)

	// FailureCount returns how many download attempts have failed.
	FailureCount(id model.MemoryID) int

	// RecordSuccess marks an identity downloaded and clears any failure
	// history for it.
	RecordSuccess(id model.MemoryID, entry *model.DownloadEntry) error

	// RecordFailure appends to the identity's failure history and
	// increments its retry counter.
	RecordFailure(id model.MemoryID, url, message string) error

	// IsComposited reports composite state per base media kind.
	IsComposited(sid8 string, kind model.MediaKind) bool

	// RecordComposite marks a pair composited and clears any composite
	// failure for it.
	RecordComposite(sid8 string, kind model.MediaKind, baseFile, overlayFile string) error

	// RecordCompositeFailure appends to the pair's composite failure
	// history.
	RecordCompositeFailure(sid8 string, kind model.MediaKind, baseFile, overlayFile, message string) error

	// CompositeFailureCount returns how many composite attempts failed.
	CompositeFailureCount(sid8 string, kind model.MediaKind) int

	// RecordTimezone updates the timezone sub-state and the timestamp
	// currently encoded in the identity's filenames.
	RecordTimezone(id model.MemoryID, state model.TimezoneState, localDate string) error
}
