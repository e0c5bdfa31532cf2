package adapter

import (
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/m-mizutani/goerr/v2"
)

// imagingCompositor implements ImageCompositor with the imaging
// library. It is always available since the library is linked in.
type imagingCompositor struct{}

// NewImageCompositor returns the library-backed image compositor.
func NewImageCompositor() ImageCompositor {
	return &imagingCompositor{}
}

func (c *imagingCompositor) Available() bool { return true }

func (c *imagingCompositor) Composite(basePath, overlayPath, outPath string) error {
	base, err := imaging.Open(basePath)
	if err != nil {
		return goerr.Wrap(err, "cannot open base image", goerr.V("path", basePath))
	}
	overlay, err := imaging.Open(overlayPath)
	if err != nil {
		return goerr.Wrap(err, "cannot open overlay image", goerr.V("path", overlayPath))
	}

	bounds := base.Bounds()
	if overlay.Bounds().Dx() != bounds.Dx() || overlay.Bounds().Dy() != bounds.Dy() {
		overlay = imaging.Resize(overlay, bounds.Dx(), bounds.Dy(), imaging.Linear)
	}

	// Flatten onto white so alpha regions survive JPEG output.
	merged := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	merged = imaging.Overlay(merged, base, image.Pt(0, 0), 1.0)
	merged = imaging.Overlay(merged, overlay, image.Pt(0, 0), 1.0)

	var opts []imaging.EncodeOption
	if ext := strings.ToLower(outPath); strings.HasSuffix(ext, ".jpg") || strings.HasSuffix(ext, ".jpeg") {
		opts = append(opts, imaging.JPEGQuality(95))
	}
	if err := imaging.Save(merged, outPath, opts...); err != nil {
		return goerr.Wrap(err, "cannot save composited image", goerr.V("path", outPath))
	}
	return nil
}
