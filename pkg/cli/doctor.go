package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/memvault/memvault/pkg/adapter"
	"github.com/urfave/cli/v3"
)

func doctorCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "doctor",
		Usage: "Report which optional external tools are available",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			_ = cfg.setup(ctx)

			tools := adapter.NewToolset()
			w := c.Root().Writer

			capability(w, "image compositing", tools.Image.Available(),
				"image overlays cannot be merged")
			capability(w, "video compositing (ffmpeg)", tools.Video.Available(),
				"video overlays cannot be merged")
			capability(w, "metadata embedding (exiftool)", tools.Metadata.Available(),
				"GPS coordinates will not be written into media files")
			capability(w, "timezone lookup", tools.Timezone.Available(),
				"timezone conversion falls back to the host zone")
			capability(w, "creation time", tools.FileTimes.CanSetBirthTime(),
				"only modification times can be set on this platform")
			return nil
		},
	}
}

func capability(w io.Writer, name string, ok bool, degraded string) {
	if ok {
		fmt.Fprintf(w, "[ok]      %s\n", name)
		return
	}
	fmt.Fprintf(w, "[missing] %s: %s\n", name, degraded)
}
