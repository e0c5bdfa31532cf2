package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const videoTimeout = 5 * time.Minute

// ffmpegCompositor drives ffmpeg/ffprobe as external processes. The
// binaries are located once at construction.
type ffmpegCompositor struct {
	ffmpeg  string
	ffprobe string
}

// NewVideoCompositor probes for ffmpeg and ffprobe on PATH.
func NewVideoCompositor() VideoCompositor {
	c := &ffmpegCompositor{}
	if p, err := exec.LookPath("ffmpeg"); err == nil {
		c.ffmpeg = p
	}
	if p, err := exec.LookPath("ffprobe"); err == nil {
		c.ffprobe = p
	}
	return c
}

func (c *ffmpegCompositor) Available() bool { return c.ffmpeg != "" }

func (c *ffmpegCompositor) Overlay(ctx context.Context, basePath, overlayPath, outPath string) error {
	ctx, cancel := context.WithTimeout(ctx, videoTimeout)
	defer cancel()

	width, height := c.dimensions(ctx, basePath)

	// Scale the overlay to the (rotation-aware) video frame, then
	// composite it; the audio stream is copied untouched.
	filter := fmt.Sprintf("[1:v]scale=%d:%d[ovr];[0:v][ovr]overlay=0:0:format=auto", width, height)

	cmd := exec.CommandContext(ctx, c.ffmpeg,
		"-i", basePath,
		"-i", overlayPath,
		"-filter_complex", filter,
		"-codec:a", "copy",
		"-y",
		outPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("ffmpeg timed out after %s", videoTimeout)
		}
		return fmt.Errorf("ffmpeg failed: %s", tail(string(out), 200))
	}
	return nil
}

// dimensions returns the display size of the first video stream,
// swapping width and height when rotation metadata says the frame is
// stored sideways. Probe failures fall back to 1920x1080.
func (c *ffmpegCompositor) dimensions(ctx context.Context, path string) (int, int) {
	const defW, defH = 1920, 1080
	if c.ffprobe == "" {
		return defW, defH
	}

	cmd := exec.CommandContext(ctx, c.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height:stream_side_data=rotation",
		"-of", "json",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return defW, defH
	}

	var probe struct {
		Streams []struct {
			Width        int `json:"width"`
			Height       int `json:"height"`
			SideDataList []struct {
				Rotation int `json:"rotation"`
			} `json:"side_data_list"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(out, &probe); err != nil || len(probe.Streams) == 0 {
		return defW, defH
	}

	s := probe.Streams[0]
	if s.Width == 0 || s.Height == 0 {
		return defW, defH
	}
	for _, sd := range s.SideDataList {
		r := sd.Rotation
		if r < 0 {
			r = -r
		}
		if r == 90 || r == 270 {
			return s.Height, s.Width
		}
	}
	return s.Width, s.Height
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
