package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrInvalidMediaKind  = goerr.New("invalid media kind")
	ErrInvalidTimestamp  = goerr.New("invalid capture timestamp")
	ErrInvalidCoordinate = goerr.New("invalid coordinate pair")
)

// MemoryID is the session identifier embedded in a memory's retrieval
// URL. It is unique per memory within one export.
type MemoryID string

// Short returns the 8-character prefix used in filenames and in the
// composite sections of the ledger.
func (id MemoryID) Short() string {
	if len(id) <= 8 {
		return string(id)
	}
	return string(id[:8])
}

type MediaKind string

const (
	KindImage MediaKind = "Image"
	KindVideo MediaKind = "Video"
)

// ParseMediaKind normalizes the media-kind label from an export row.
func ParseMediaKind(s string) (MediaKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "image":
		return KindImage, nil
	case "video":
		return KindVideo, nil
	default:
		return "", goerr.Wrap(ErrInvalidMediaKind, "unknown media kind label", goerr.V("label", s))
	}
}

// Validate checks if the media kind is one of the known values.
func (k MediaKind) Validate() error {
	switch k {
	case KindImage, KindVideo:
		return nil
	default:
		return ErrInvalidMediaKind
	}
}

// Coordinate is an optional geolocation attached to a memory. Absence
// is represented by a nil *Coordinate, never by a zero value.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

func (c *Coordinate) String() string {
	return fmt.Sprintf("%f,%f", c.Latitude, c.Longitude)
}

// ParseCoordinate reads back the "lat,lon" form produced by String.
func ParseCoordinate(s string) (*Coordinate, error) {
	var lat, lon float64
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%f,%f", &lat, &lon); err != nil {
		return nil, goerr.Wrap(ErrInvalidCoordinate, "cannot parse coordinate pair", goerr.V("input", s))
	}
	return &Coordinate{Latitude: lat, Longitude: lon}, nil
}

// Memory is one exported photo/video record. Immutable once parsed.
type Memory struct {
	ID          MemoryID
	CapturedAt  time.Time // always UTC, second precision
	Kind        MediaKind
	Location    *Coordinate // nil when the export row has no location
	DownloadURL string
}

const (
	captureTimeLayout = "2006-01-02 15:04:05"

	// CaptureTimeSuffix is the explicit zone marker every export
	// timestamp carries.
	CaptureTimeSuffix = " UTC"
)

// ParseCaptureTime parses the export's fixed "YYYY-MM-DD HH:MM:SS UTC"
// timestamp format.
func ParseCaptureTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, CaptureTimeSuffix) {
		return time.Time{}, goerr.Wrap(ErrInvalidTimestamp, "missing UTC marker", goerr.V("input", s))
	}
	t, err := time.ParseInLocation(captureTimeLayout, strings.TrimSuffix(s, CaptureTimeSuffix), time.UTC)
	if err != nil {
		return time.Time{}, goerr.Wrap(ErrInvalidTimestamp, "malformed capture timestamp", goerr.V("input", s))
	}
	return t, nil
}

// FormatCaptureTime renders a timestamp in the export's textual format.
func FormatCaptureTime(t time.Time) string {
	return t.UTC().Format(captureTimeLayout) + CaptureTimeSuffix
}

// FormatZonedTime renders a timestamp in the same textual format but in
// its own zone, with the given zone label instead of "UTC".
func FormatZonedTime(t time.Time, label string) string {
	return t.Format(captureTimeLayout) + " " + label
}
