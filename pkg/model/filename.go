package model

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Suffix marks the role of an artifact sharing a memory's naming stem.
type Suffix string

const (
	SuffixNone       Suffix = ""
	SuffixOverlay    Suffix = "_overlay"
	SuffixComposited Suffix = "_composited"
)

// Filename builds the canonical artifact name:
//
//	{YYYY-MM-DD}_{HHMMSS}_{Kind}_{sid8}{suffix}.{ext}
//
// The timestamp is rendered in its own location; callers pass a UTC
// time for freshly downloaded artifacts and a zone-shifted time after
// timezone conversion.
func Filename(ts time.Time, kind MediaKind, sid8 string, suffix Suffix, ext string) string {
	return fmt.Sprintf("%s_%s_%s_%s%s.%s",
		ts.Format("2006-01-02"), ts.Format("150405"), kind, sid8, suffix, ext)
}

// MediaFolder is the output sub-folder holding base media of a kind.
func MediaFolder(kind MediaKind) string {
	if kind == KindVideo {
		return "videos"
	}
	return "images"
}

// ParsedName is the decomposition of a canonical artifact name.
type ParsedName struct {
	Timestamp time.Time // wall-clock fields only, location unknown
	Kind      MediaKind
	SID8      string
	Suffix    Suffix
	Ext       string
}

// ParseFilename decodes a canonical artifact name. The boolean result
// is false for names that do not follow the convention.
func ParseFilename(name string) (*ParsedName, bool) {
	base := filepath.Base(name)
	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	suffix := SuffixNone
	switch {
	case strings.HasSuffix(stem, string(SuffixOverlay)):
		suffix = SuffixOverlay
		stem = strings.TrimSuffix(stem, string(SuffixOverlay))
	case strings.HasSuffix(stem, string(SuffixComposited)):
		suffix = SuffixComposited
		stem = strings.TrimSuffix(stem, string(SuffixComposited))
	}

	parts := strings.Split(stem, "_")
	if len(parts) != 4 {
		return nil, false
	}

	ts, err := time.Parse("2006-01-02 150405", parts[0]+" "+parts[1])
	if err != nil {
		return nil, false
	}
	kind := MediaKind(parts[2])
	if kind.Validate() != nil {
		return nil, false
	}
	if parts[3] == "" || ext == "" {
		return nil, false
	}

	return &ParsedName{
		Timestamp: ts,
		Kind:      kind,
		SID8:      parts[3],
		Suffix:    suffix,
		Ext:       ext,
	}, true
}
