package main

import (
	"os"

	"gioui.org/app"
	"gioui.org/op"
	"gioui.org/unit"
	"github.com/olablt/tilebridge/layer"
	"github.com/olablt/tilebridge/mapview"
	"github.com/olablt/tilebridge/offscreen"
	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show the offscreen canvas in a window",
	Long: `Open a window that shows the offscreen canvas itself, centered, while the
window acts as the host map driving it. Useful to check a tile source
configuration without a GL host.`,
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctrl, err := offscreen.New(cfg.SourceType(), cfg.OffscreenOptions())
	if err != nil {
		return err
	}

	refresh := make(chan struct{}, 1)
	mv := mapview.New(refresh)
	mv.On(layer.EventMove, func() { ctrl.SetViewFromHost(mv.Center(), mv.Zoom()) })
	ctrl.RegisterRepaintTrigger(mv.TriggerRepaint)
	mv.JumpTo(cfg.Center(), cfg.View.Zoom)

	go func() {
		w := new(app.Window)
		w.Option(
			app.Title("tilebridge preview"),
			app.Size(unit.Dp(cfg.Layer.Width), unit.Dp(cfg.Layer.Height)),
		)

		var ops op.Ops
		go func() {
			for range refresh {
				w.Invalidate()
			}
		}()
		for {
			switch e := w.Event().(type) {
			case app.DestroyEvent:
				ctrl.Detach()
				if e.Err != nil {
					cmd.PrintErrln(e.Err)
					os.Exit(1)
				}
				os.Exit(0)
			case app.FrameEvent:
				gtx := app.NewContext(&ops, e)
				mv.Layout(gtx, ctrl.RenderTargetPixels())
				e.Frame(gtx.Ops)
			}
		}
	}()
	app.Main()
	return nil
}
