package parser

import (
	"context"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/m-mizutani/goerr/v2"
	"github.com/memvault/memvault/pkg/model"
	"github.com/memvault/memvault/pkg/utils/logging"
)

var (
	// ErrNoRecords means the document carries no recognizable memory
	// table at all. An empty but well-formed export is not an error.
	ErrNoRecords = goerr.New("no memory table found in export")

	ErrUnreadable = goerr.New("cannot read export document")
)

// downloadRe pulls the retrieval URL out of the script-bound download
// trigger: onclick="downloadMemories('URL', this, true)".
var downloadRe = regexp.MustCompile(`downloadMemories\('(.+?)',\s*this,\s*(?:true|false)\)`)

// locationRe matches the optional coordinate column, e.g.
// "Latitude, Longitude: 42.438072, -82.91975".
var locationRe = regexp.MustCompile(`Latitude,\s*Longitude:\s*(-?\d+(?:\.\d+)?),\s*(-?\d+(?:\.\d+)?)`)

// Parse extracts memory records from the export HTML. Rows missing a
// required field (timestamp, media kind, retrieval URL with a session
// identifier) are skipped with a warning; they never abort the batch.
// Duplicate identities within one export are deduplicated
// first-seen-wins.
func Parse(ctx context.Context, r io.Reader) ([]*model.Memory, error) {
	logger := logging.From(ctx)

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, goerr.Wrap(ErrUnreadable, "html parse failed", goerr.V("cause", err.Error()))
	}

	if doc.Find("table").Length() == 0 {
		return nil, ErrNoRecords
	}

	var memories []*model.Memory
	seen := map[model.MemoryID]bool{}

	doc.Find("tr").Each(func(i int, row *goquery.Selection) {
		rawURL := extractDownloadURL(row)
		if rawURL == "" {
			// Header or decorative row, not a data row.
			return
		}

		m, err := parseRow(row, rawURL)
		if err != nil {
			logger.Warn("skipping malformed export row", "row", i, "error", err)
			return
		}
		if seen[m.ID] {
			logger.Warn("duplicate identity in export, keeping first occurrence", "sid", m.ID.Short())
			return
		}
		seen[m.ID] = true
		memories = append(memories, m)
	})

	return memories, nil
}

func parseRow(row *goquery.Selection, rawURL string) (*model.Memory, error) {
	id, err := sessionID(rawURL)
	if err != nil {
		return nil, err
	}

	cells := row.Find("td")
	if cells.Length() < 2 {
		return nil, goerr.New("row has too few columns", goerr.V("columns", cells.Length()))
	}

	capturedAt, err := model.ParseCaptureTime(cells.Eq(0).Text())
	if err != nil {
		return nil, err
	}

	kind, err := model.ParseMediaKind(cells.Eq(1).Text())
	if err != nil {
		return nil, err
	}

	var loc *model.Coordinate
	if cells.Length() > 2 {
		loc = parseLocation(cells.Eq(2).Text())
	}

	return &model.Memory{
		ID:          id,
		CapturedAt:  capturedAt,
		Kind:        kind,
		Location:    loc,
		DownloadURL: rawURL,
	}, nil
}

// extractDownloadURL returns the decoded retrieval URL, or "" when the
// row has no download trigger. goquery exposes attribute values with
// HTML entities already unescaped, so the result is directly fetchable.
func extractDownloadURL(row *goquery.Selection) string {
	var found string
	row.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		onclick, ok := a.Attr("onclick")
		if !ok {
			return true
		}
		if m := downloadRe.FindStringSubmatch(onclick); m != nil {
			found = m[1]
			return false
		}
		return true
	})
	return found
}

func sessionID(rawURL string) (model.MemoryID, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", goerr.New("retrieval URL is not parseable", goerr.V("url", rawURL))
	}
	sid := u.Query().Get("sid")
	if sid == "" {
		return "", goerr.New("retrieval URL carries no session identifier", goerr.V("url", rawURL))
	}
	return model.MemoryID(sid), nil
}

// parseLocation decodes the coordinate column. Absence or garbage is
// represented as nil, never as a zero/zero pair.
func parseLocation(s string) *model.Coordinate {
	m := locationRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil
	}
	lat, err1 := strconv.ParseFloat(m[1], 64)
	lon, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	return &model.Coordinate{Latitude: lat, Longitude: lon}
}
