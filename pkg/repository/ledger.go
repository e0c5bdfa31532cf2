package repository

import (
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/memvault/memvault/pkg/model"
	"gopkg.in/yaml.v3"
)

// ErrCorruptLedger is fatal: the file exists but is not parseable. The
// previous revision survives in the backup file; the ledger is never
// silently discarded.
var ErrCorruptLedger = goerr.New("ledger file is corrupt")

// FileLedger persists the ledger document as a YAML file. Every
// mutation rewrites the whole document through a temp file and an
// atomic rename; a backup of the previous revision is kept alongside.
type FileLedger struct {
	path string
	doc  *model.Ledger
	now  func() time.Time
}

var _ Ledger = (*FileLedger)(nil)

// Open loads the ledger at path, or initializes an empty one when the
// file does not exist yet.
func Open(path string) (*FileLedger, error) {
	l := &FileLedger{path: path, now: time.Now}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		l.doc = model.NewLedger()
		return l, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "cannot read ledger file", goerr.V("path", path))
	}

	doc := model.NewLedger()
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, goerr.Wrap(ErrCorruptLedger,
			"restore the backup or remove the file to start over",
			goerr.V("path", path),
			goerr.V("backup", l.backupPath()),
			goerr.V("cause", err.Error()))
	}
	if doc.Downloaded == nil {
		doc.Downloaded = map[model.MemoryID]*model.DownloadEntry{}
	}
	if doc.Failed == nil {
		doc.Failed = map[model.MemoryID]*model.FailedEntry{}
	}

	l.doc = doc
	return l, nil
}

// Path returns the location of the persisted document.
func (l *FileLedger) Path() string { return l.path }

func (l *FileLedger) backupPath() string { return l.path + ".backup" }

// persist writes the document atomically: back up the current file,
// marshal to a temp file, rename over the original. The file is never
// held open across network or media operations.
func (l *FileLedger) persist() error {
	data, err := yaml.Marshal(l.doc)
	if err != nil {
		return goerr.Wrap(err, "cannot marshal ledger")
	}

	if prev, err := os.ReadFile(l.path); err == nil {
		// Best effort; a failed backup must not block progress.
		_ = os.WriteFile(l.backupPath(), prev, 0o644)
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return goerr.Wrap(err, "cannot write ledger temp file", goerr.V("path", tmp))
	}
	if err := os.Rename(tmp, l.path); err != nil {
		_ = os.Remove(tmp)
		return goerr.Wrap(err, "cannot replace ledger file", goerr.V("path", l.path))
	}
	return nil
}

func (l *FileLedger) Get(id model.MemoryID) (*model.DownloadEntry, bool) {
	e, ok := l.doc.Downloaded[id]
	return e, ok
}

func (l *FileLedger) IsDownloaded(id model.MemoryID) bool {
	_, ok := l.doc.Downloaded[id]
	return ok
}

func (l *FileLedger) Downloaded() map[model.MemoryID]*model.DownloadEntry {
	return l.doc.Downloaded
}

func (l *FileLedger) Failure(id model.MemoryID) (*model.FailedEntry, bool) {
	e, ok := l.doc.Failed[id]
	return e, ok
}

func (l *FileLedger) FailureCount(id model.MemoryID) int {
	if e, ok := l.doc.Failed[id]; ok {
		return e.Count
	}
	return 0
}

func (l *FileLedger) RecordSuccess(id model.MemoryID, entry *model.DownloadEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now()
	}
	if entry.Timezone == "" {
		entry.Timezone = model.TimezoneUTC
	}
	l.doc.Downloaded[id] = entry
	delete(l.doc.Failed, id)
	return l.persist()
}

func (l *FileLedger) RecordFailure(id model.MemoryID, url, message string) error {
	e, ok := l.doc.Failed[id]
	if !ok {
		e = &model.FailedEntry{URL: url}
		l.doc.Failed[id] = e
	}
	e.Count++
	if e.URL == "" {
		e.URL = url
	}
	e.Errors = append(e.Errors, model.FailureRecord{Timestamp: l.now(), Error: message})
	return l.persist()
}

func (l *FileLedger) IsComposited(sid8 string, kind model.MediaKind) bool {
	_, ok := l.doc.Composited.ByKind(kind)[sid8]
	return ok
}

func (l *FileLedger) RecordComposite(sid8 string, kind model.MediaKind, baseFile, overlayFile string) error {
	l.doc.Composited.ByKind(kind)[sid8] = &model.CompositeEntry{
		Timestamp:   l.now(),
		BaseFile:    baseFile,
		OverlayFile: overlayFile,
	}
	delete(l.doc.FailedComposites.ByKind(kind), sid8)
	return l.persist()
}

func (l *FileLedger) RecordCompositeFailure(sid8 string, kind model.MediaKind, baseFile, overlayFile, message string) error {
	failed := l.doc.FailedComposites.ByKind(kind)
	e, ok := failed[sid8]
	if !ok {
		e = &model.FailedComposite{BaseFile: baseFile, OverlayFile: overlayFile}
		failed[sid8] = e
	}
	e.Count++
	e.Errors = append(e.Errors, model.FailureRecord{Timestamp: l.now(), Error: message})
	return l.persist()
}

func (l *FileLedger) CompositeFailureCount(sid8 string, kind model.MediaKind) int {
	if e, ok := l.doc.FailedComposites.ByKind(kind)[sid8]; ok {
		return e.Count
	}
	return 0
}

func (l *FileLedger) RecordTimezone(id model.MemoryID, state model.TimezoneState, localDate string) error {
	e, ok := l.doc.Downloaded[id]
	if !ok {
		return goerr.New("unknown identity in timezone update", goerr.V("sid", id.Short()))
	}
	e.Timezone = state
	e.LocalDate = localDate
	return l.persist()
}
