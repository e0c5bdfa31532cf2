package fetch

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/memvault/memvault/pkg/model"
)

// extractArchive splits an archive payload into the main media file and
// an optional overlay image, distinguished by filename convention
// inside the archive.
func (u *UseCase) extractArchive(ctx context.Context, body []byte, m *model.Memory) error {
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return goerr.Wrap(err, "payload was not a valid archive", goerr.V("sid", m.ID.Short()))
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if err := u.extractMember(ctx, f, m); err != nil {
			return err
		}
	}
	return nil
}

func (u *UseCase) extractMember(ctx context.Context, f *zip.File, m *model.Memory) error {
	isOverlay := strings.Contains(strings.ToLower(f.Name), "overlay")

	var dir, name string
	if isOverlay {
		dir = filepath.Join(u.outputDir, "overlays")
		// Overlays are transparency graphics; they are always PNG.
		name = model.Filename(m.CapturedAt, m.Kind, m.ID.Short(), model.SuffixOverlay, "png")
	} else {
		dir = filepath.Join(u.outputDir, model.MediaFolder(m.Kind))
		ext := strings.TrimPrefix(filepath.Ext(f.Name), ".")
		if ext == "" {
			if m.Kind == model.KindVideo {
				ext = "mp4"
			} else {
				ext = "jpg"
			}
		}
		name = model.Filename(m.CapturedAt, m.Kind, m.ID.Short(), model.SuffixNone, ext)
	}
	path := filepath.Join(dir, name)

	src, err := f.Open()
	if err != nil {
		return goerr.Wrap(err, "cannot open archive member", goerr.V("member", f.Name))
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return goerr.Wrap(err, "cannot create media file", goerr.V("path", path))
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return goerr.Wrap(err, "cannot extract archive member", goerr.V("path", path))
	}
	if err := dst.Close(); err != nil {
		return goerr.Wrap(err, "cannot finish media file", goerr.V("path", path))
	}

	u.applyFileMeta(ctx, path, m)
	return nil
}
