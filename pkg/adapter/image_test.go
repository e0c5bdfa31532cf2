package adapter_test

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/m-mizutani/gt"
	"github.com/memvault/memvault/pkg/adapter"
)

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	gt.NoError(t, err)
	defer f.Close()
	gt.NoError(t, png.Encode(f, img))
}

func TestImageComposite(t *testing.T) {
	dir := t.TempDir()
	basePath := filepath.Join(dir, "base.png")
	overlayPath := filepath.Join(dir, "overlay.png")
	outPath := filepath.Join(dir, "out.jpg")

	base := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			base.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	writePNG(t, basePath, base)

	// Smaller, partially transparent overlay; it must be scaled up to
	// the base dimensions.
	overlay := image.NewRGBA(image.Rect(0, 0, 4, 3))
	overlay.Set(0, 0, color.RGBA{B: 255, A: 255})
	writePNG(t, overlayPath, overlay)

	c := adapter.NewImageCompositor()
	gt.True(t, c.Available())
	gt.NoError(t, c.Composite(basePath, overlayPath, outPath))

	out, err := imaging.Open(outPath)
	gt.NoError(t, err)
	gt.Equal(t, out.Bounds().Dx(), 8)
	gt.Equal(t, out.Bounds().Dy(), 6)
}

func TestImageCompositeMissingBase(t *testing.T) {
	dir := t.TempDir()
	c := adapter.NewImageCompositor()
	gt.Error(t, c.Composite(
		filepath.Join(dir, "missing.png"),
		filepath.Join(dir, "overlay.png"),
		filepath.Join(dir, "out.jpg")))
}

func TestTimezoneLookup(t *testing.T) {
	lookup := adapter.NewTimezoneLookup()
	gt.True(t, lookup.Available())

	zone, ok := lookup.Resolve(40.7128, -74.006)
	gt.True(t, ok)
	gt.Equal(t, zone, "America/New_York")

	// Open ocean nearest-matches to the closest zone rather than
	// failing the lookup.
	zone, ok = lookup.Resolve(0, -160)
	gt.True(t, ok)
	gt.Equal(t, zone, "Pacific/Kiritimati")
}
