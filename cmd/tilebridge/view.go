package main

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"gioui.org/f32"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/olablt/tilebridge/glquad/gogl"
	"github.com/olablt/tilebridge/layer"
	"github.com/olablt/tilebridge/mapview"
	"github.com/spf13/cobra"
)

func init() {
	// GL and window calls must stay on the main thread
	runtime.LockOSThread()

	viewCmd.Flags().Int("window-width", 1024, "window width")
	viewCmd.Flags().Int("window-height", 768, "window height")
	rootCmd.AddCommand(viewCmd)
}

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Open a GL window host map with the tile layer",
	Long: `Open an OpenGL window acting as the host map. Drag to pan, scroll to zoom;
the tile layer follows and is drawn as a textured quad every frame.`,
	RunE: runView,
}

func runView(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	width, _ := cmd.Flags().GetInt("window-width")
	height, _ := cmd.Flags().GetInt("window-height")

	l, err := layer.New(cfg.SourceType(), cfg.LayerOptions())
	if err != nil {
		return err
	}

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw init: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ContextVersionMajor, 2)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	window, err := glfw.CreateWindow(width, height, "tilebridge", nil, nil)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer window.Destroy()
	window.MakeContextCurrent()
	glfw.SwapInterval(1)

	glctx, err := gogl.New()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "OpenGL %s\n", glctx.Version())

	refresh := make(chan struct{}, 1)
	mv := mapview.New(refresh)
	mv.SetGL(glctx)
	mv.Resize(window.GetSize())
	mv.JumpTo(cfg.Center(), cfg.View.Zoom)

	if _, err := l.AddToMap(mv); err != nil {
		return err
	}
	// releases the GPU objects while the context is still current
	defer l.Remove()

	var dirty atomic.Bool
	dirty.Store(true)
	go func() {
		for range refresh {
			dirty.Store(true)
			glfw.PostEmptyEvent()
		}
	}()
	mv.On(layer.EventMove, func() { dirty.Store(true) })

	window.SetSizeCallback(func(_ *glfw.Window, w, h int) {
		mv.Resize(w, h)
		dirty.Store(true)
	})
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		switch action {
		case glfw.Press:
			mv.Press(cursor(w))
		case glfw.Release:
			mv.Release()
		}
	})
	window.SetCursorPosCallback(func(w *glfw.Window, x, y float64) {
		mv.Drag(f32.Pt(float32(x), float32(y)))
	})
	window.SetScrollCallback(func(w *glfw.Window, _, yoff float64) {
		// glfw reports scrolling up as positive
		mv.Scroll(cursor(w), float32(-yoff))
	})
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})

	for !window.ShouldClose() {
		if dirty.Swap(false) {
			fw, fh := window.GetFramebufferSize()
			glctx.Viewport(0, 0, fw, fh)
			glctx.Clear(0.93, 0.93, 0.93, 1)
			mv.RenderLayers()
			window.SwapBuffers()
		}
		glfw.WaitEvents()
	}
	return nil
}

func cursor(w *glfw.Window) f32.Point {
	x, y := w.GetCursorPos()
	return f32.Pt(float32(x), float32(y))
}
