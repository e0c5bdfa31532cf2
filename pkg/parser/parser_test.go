package parser_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/memvault/memvault/pkg/model"
	"github.com/memvault/memvault/pkg/parser"
)

func row(date, kind, location, sid string) string {
	return fmt.Sprintf(`<tr>
<td>%s</td>
<td>%s</td>
<td>%s</td>
<td><a href="#" onclick="downloadMemories('https://example.com/dl?uid=u1&amp;sid=%s', this, true)">Download</a></td>
</tr>`, date, kind, location, sid)
}

func page(rows ...string) string {
	return `<html><body><table>
<tr><th>Date</th><th>Media Type</th><th>Location</th><th>Download Link</th></tr>
` + strings.Join(rows, "\n") + `
</table></body></html>`
}

func TestParse(t *testing.T) {
	ctx := context.Background()
	html := page(
		row("2024-05-17 09:30:05 UTC", "Image", "Latitude, Longitude: 40.7128, -74.006", "aaaa1111bbbb"),
		row("2024-06-01 22:10:00 UTC", "Video", "", "cccc2222dddd"),
	)

	memories, err := parser.Parse(ctx, strings.NewReader(html))
	gt.NoError(t, err)
	gt.A(t, memories).Length(2)

	first := memories[0]
	gt.Equal(t, first.ID, model.MemoryID("aaaa1111bbbb"))
	gt.Equal(t, first.Kind, model.KindImage)
	gt.Equal(t, first.CapturedAt, time.Date(2024, 5, 17, 9, 30, 5, 0, time.UTC))
	gt.V(t, first.Location).NotNil()
	gt.Equal(t, first.Location.Latitude, 40.7128)
	gt.Equal(t, first.Location.Longitude, -74.006)
	// The &amp; in the onclick attribute must come back as a plain
	// ampersand so the URL is directly fetchable.
	gt.S(t, first.DownloadURL).Contains("uid=u1&sid=aaaa1111bbbb")

	second := memories[1]
	gt.Equal(t, second.Kind, model.KindVideo)
	gt.Equal(t, second.Location, nil)
}

func TestParseSkipsMalformedRows(t *testing.T) {
	ctx := context.Background()
	html := page(
		row("not a date", "Image", "", "aaaa1111"),
		row("2024-05-17 09:30:05 UTC", "Hologram", "", "bbbb2222"),
		row("2024-05-17 09:30:05 UTC", "Image", "", "cccc3333"),
	)

	memories, err := parser.Parse(ctx, strings.NewReader(html))
	gt.NoError(t, err)
	gt.A(t, memories).Length(1)
	gt.Equal(t, memories[0].ID, model.MemoryID("cccc3333"))
}

func TestParseGarbageLocationIsNil(t *testing.T) {
	ctx := context.Background()
	html := page(row("2024-05-17 09:30:05 UTC", "Image", "somewhere nice", "aaaa1111"))

	memories, err := parser.Parse(ctx, strings.NewReader(html))
	gt.NoError(t, err)
	gt.A(t, memories).Length(1)
	gt.Equal(t, memories[0].Location, nil)
}

func TestParseDeduplicatesFirstSeen(t *testing.T) {
	ctx := context.Background()
	html := page(
		row("2024-05-17 09:30:05 UTC", "Image", "", "aaaa1111"),
		row("2024-06-01 22:10:00 UTC", "Video", "", "aaaa1111"),
	)

	memories, err := parser.Parse(ctx, strings.NewReader(html))
	gt.NoError(t, err)
	gt.A(t, memories).Length(1)
	gt.Equal(t, memories[0].Kind, model.KindImage)
}

func TestParseMissingSessionID(t *testing.T) {
	ctx := context.Background()
	html := page(`<tr>
<td>2024-05-17 09:30:05 UTC</td><td>Image</td><td></td>
<td><a href="#" onclick="downloadMemories('https://example.com/dl?uid=u1', this, true)">Download</a></td>
</tr>`)

	memories, err := parser.Parse(ctx, strings.NewReader(html))
	gt.NoError(t, err)
	gt.A(t, memories).Length(0)
}

func TestParseNoTable(t *testing.T) {
	ctx := context.Background()
	_, err := parser.Parse(ctx, strings.NewReader("<html><body><p>nothing here</p></body></html>"))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, parser.ErrNoRecords))
}

func TestParseEmptyTable(t *testing.T) {
	ctx := context.Background()
	memories, err := parser.Parse(ctx, strings.NewReader(page()))
	gt.NoError(t, err)
	gt.A(t, memories).Length(0)
}
