package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/olablt/tilebridge/internal/config"
	"github.com/olablt/tilebridge/internal/snapshot"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Render one view of the layer to PNG",
	Long: `Render the canvas the layer would draw for a host map at --lon, --lat and
--zoom, wait for its tiles and write it as PNG. The geographic extent of the
image is printed to stdout.

Examples:
  tilebridge snapshot --lon 24.1 --lat 56.95 --zoom 10 -o riga.png
  tilebridge snapshot --config ortho.yaml --zoom 14 -o ortho.png -w`,
	RunE: runSnapshot,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)

	snapshotCmd.Flags().StringP("output", "o", "snapshot.png", "output file")
	snapshotCmd.Flags().BoolP("worldfile", "w", false, "write world file")
	snapshotCmd.Flags().Duration("wait", time.Minute, "maximum time to wait for tiles")

	viper.BindPFlag("snapshot.output", snapshotCmd.Flags().Lookup("output"))
	viper.BindPFlag("snapshot.worldfile", snapshotCmd.Flags().Lookup("worldfile"))
	viper.BindPFlag("snapshot.wait", snapshotCmd.Flags().Lookup("wait"))
}

func newRenderer(cfg config.Config) (*snapshot.Renderer, error) {
	return snapshot.New(cfg.SourceType(), cfg.OffscreenOptions())
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	output := viper.GetString("snapshot.output")

	r, err := newRenderer(cfg)
	if err != nil {
		return err
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), viper.GetDuration("snapshot.wait"))
	defer cancel()

	res, err := r.Snapshot(ctx, cfg.Center(), cfg.View.Zoom)
	if err != nil {
		if res.Image == nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v, writing partial image\n", err)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := res.WritePNG(f); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", output, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	if viper.GetBool("snapshot.worldfile") {
		wf := worldFileName(output)
		if err := os.WriteFile(wf, res.WorldFile(), 0o644); err != nil {
			return fmt.Errorf("write world file: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", wf)
	}

	e := res.Extent
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%dx%d)\n", output, res.Image.Bounds().Dx(), res.Image.Bounds().Dy())
	fmt.Fprintf(cmd.OutOrStdout(), "%.8f,%.8f,%.8f,%.8f\n", e[0], e[1], e[2], e[3])
	return nil
}

// worldFileName follows the ESRI convention: the first and last letters of
// the image extension plus "w", so map.png gets map.pgw.
func worldFileName(image string) string {
	ext := filepath.Ext(image)
	base := strings.TrimSuffix(image, ext)
	if len(ext) < 3 {
		return base + ".wld"
	}
	return base + "." + string(ext[1]) + string(ext[len(ext)-1]) + "w"
}
