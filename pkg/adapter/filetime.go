package adapter

import (
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// chtimes sets access and modification times. Creation/birth time is
// not settable from portable userspace, so the capability probe
// reports false and callers treat it as best-effort.
type chtimes struct{}

// NewFileTimes returns the platform file-timestamp writer.
func NewFileTimes() FileTimes {
	return &chtimes{}
}

func (c *chtimes) CanSetBirthTime() bool { return false }

func (c *chtimes) Apply(path string, ts time.Time) error {
	if err := os.Chtimes(path, ts, ts); err != nil {
		return goerr.Wrap(err, "cannot set file times", goerr.V("path", path))
	}
	return nil
}
