package pairing

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/memvault/memvault/pkg/model"
	"github.com/memvault/memvault/pkg/utils/logging"
	"gopkg.in/yaml.v3"
)

// Pair associates an overlay artifact with its base artifact, derived
// from the shared naming stem. An overlay with no matching base is
// retained as unpaired so the compositor can report it without
// re-scanning.
type Pair struct {
	SID8        string          `yaml:"sid"`
	MediaType   model.MediaKind `yaml:"media_type"`
	BaseFile    string          `yaml:"base_file,omitempty"`
	OverlayFile string          `yaml:"overlay_file"`
	Unpaired    bool            `yaml:"unpaired,omitempty"`
}

// Cache is the persisted pairing document. It is a performance cache,
// not a source of truth: losing it costs a rescan, never correctness.
type Cache struct {
	Created time.Time `yaml:"created"`
	Count   int       `yaml:"count"`
	Pairs   []*Pair   `yaml:"pairs"`

	Extra map[string]any `yaml:",inline"`
}

// Paired returns only the usable pairs.
func (c *Cache) Paired() []*Pair {
	out := make([]*Pair, 0, len(c.Pairs))
	for _, p := range c.Pairs {
		if !p.Unpaired {
			out = append(out, p)
		}
	}
	return out
}

// Unpaired returns the overlays that have no matching base.
func (c *Cache) Unpaired() []*Pair {
	var out []*Pair
	for _, p := range c.Pairs {
		if p.Unpaired {
			out = append(out, p)
		}
	}
	return out
}

// BuildOrLoad returns the overlay pairing for outputDir. An existing
// cache file is trusted verbatim unless forceRebuild is set; staleness
// after external file changes is an accepted limitation. A missing or
// corrupt cache triggers a rescan, never an error.
func BuildOrLoad(ctx context.Context, outputDir, cachePath string, forceRebuild bool) (*Cache, error) {
	logger := logging.From(ctx)

	if !forceRebuild {
		if c, err := load(cachePath); err == nil {
			logger.Debug("loaded overlay pairs from cache", "path", cachePath, "pairs", len(c.Pairs))
			return c, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("pairing cache unusable, rebuilding", "path", cachePath, "error", err)
		}
	}

	c, err := scan(outputDir)
	if err != nil {
		return nil, err
	}

	if err := save(cachePath, c); err != nil {
		// Cache write failure only costs the next run a rescan.
		logger.Warn("could not save pairing cache", "path", cachePath, "error", err)
	}
	return c, nil
}

func load(path string) (*Cache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "cannot read pairing cache")
	}
	var c Cache
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, goerr.Wrap(err, "cannot parse pairing cache", goerr.V("path", path))
	}
	return &c, nil
}

func save(path string, c *Cache) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return goerr.Wrap(err, "cannot marshal pairing cache")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return goerr.Wrap(err, "cannot write pairing cache", goerr.V("path", tmp))
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return goerr.Wrap(err, "cannot replace pairing cache", goerr.V("path", path))
	}
	return nil
}

// scan matches overlays against base media by naming stem.
func scan(outputDir string) (*Cache, error) {
	c := &Cache{Created: time.Now()}

	overlayDir := filepath.Join(outputDir, "overlays")
	entries, err := os.ReadDir(overlayDir)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "cannot scan overlay folder", goerr.V("path", overlayDir))
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		parsed, ok := model.ParseFilename(entry.Name())
		if !ok || parsed.Suffix != model.SuffixOverlay {
			continue
		}

		baseDir := filepath.Join(outputDir, "images")
		if parsed.Kind == model.KindVideo {
			baseDir = filepath.Join(outputDir, "videos")
		}

		p := &Pair{
			SID8:        parsed.SID8,
			MediaType:   parsed.Kind,
			OverlayFile: filepath.Join(overlayDir, entry.Name()),
		}

		stem := strings.TrimSuffix(entry.Name(), string(model.SuffixOverlay)+filepath.Ext(entry.Name()))
		if base := findBase(baseDir, stem); base != "" {
			p.BaseFile = base
		} else {
			p.Unpaired = true
		}
		c.Pairs = append(c.Pairs, p)
	}

	c.Count = len(c.Pairs)
	return c, nil
}

// findBase returns the first file in dir whose name is stem plus any
// extension.
func findBase(dir, stem string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.TrimSuffix(name, filepath.Ext(name)) == stem {
			return filepath.Join(dir, name)
		}
	}
	return ""
}
