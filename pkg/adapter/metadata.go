package adapter

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

const exiftoolTimeout = 30 * time.Second

// exiftoolAdapter shells out to exiftool. Located once at construction.
type exiftoolAdapter struct {
	bin string
}

// NewMetadataTool probes for exiftool on PATH.
func NewMetadataTool() MetadataTool {
	t := &exiftoolAdapter{}
	if p, err := exec.LookPath("exiftool"); err == nil {
		t.bin = p
	}
	return t
}

func (t *exiftoolAdapter) Available() bool { return t.bin != "" }

func (t *exiftoolAdapter) WriteGPS(ctx context.Context, path string, lat, lon float64) error {
	latRef, lonRef := "N", "E"
	if lat < 0 {
		latRef, lat = "S", -lat
	}
	if lon < 0 {
		lonRef, lon = "W", -lon
	}
	return t.run(ctx,
		fmt.Sprintf("-GPSLatitude=%f", lat),
		fmt.Sprintf("-GPSLatitudeRef=%s", latRef),
		fmt.Sprintf("-GPSLongitude=%f", lon),
		fmt.Sprintf("-GPSLongitudeRef=%s", lonRef),
		"-overwrite_original",
		"-q",
		path,
	)
}

func (t *exiftoolAdapter) CopyTags(ctx context.Context, src, dst string) error {
	return t.run(ctx,
		"-TagsFromFile", src,
		"-all:all",
		"-overwrite_original",
		"-q",
		dst,
	)
}

func (t *exiftoolAdapter) run(ctx context.Context, args ...string) error {
	if t.bin == "" {
		return goerr.New("exiftool is not available")
	}
	ctx, cancel := context.WithTimeout(ctx, exiftoolTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, t.bin, args...).CombinedOutput()
	if err != nil {
		return goerr.Wrap(err, "exiftool failed", goerr.V("output", tail(string(out), 200)))
	}
	return nil
}
