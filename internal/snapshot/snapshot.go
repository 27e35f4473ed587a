// Package snapshot renders the offscreen map for a fixed host view, without a
// host, and encodes the result as PNG with an optional world file.
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"sync"

	"github.com/olablt/tilebridge/geo"
	"github.com/olablt/tilebridge/offscreen"
	"github.com/olablt/tilebridge/tiles"
)

// Result is one rendered canvas. Extent is in EPSG:4326 degrees and
// ProjectedExtent in the EPSG:3857 metres the pixels are laid out in.
type Result struct {
	Image           *image.NRGBA
	Extent          geo.Extent
	ProjectedExtent geo.Extent
	Center          geo.LngLat
	Zoom            float64
}

// Renderer serializes snapshots over one offscreen map so its tile cache is
// shared between requests.
type Renderer struct {
	mu   sync.Mutex
	ctrl *offscreen.Controller
}

func New(t tiles.SourceType, opts offscreen.Options) (*Renderer, error) {
	ctrl, err := offscreen.New(t, opts)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return &Renderer{ctrl: ctrl}, nil
}

// Snapshot renders the area a host map shows at center and zoom and waits
// for its tiles. A canceled ctx returns the partial canvas with the error.
func (r *Renderer) Snapshot(ctx context.Context, center geo.LngLat, zoom float64) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ctrl.SetViewFromHost(center, zoom)
	img, err := r.ctrl.RenderWhenLoaded(ctx)
	w, h := r.ctrl.Map().Size()
	res := Result{
		Image:           img,
		Extent:          r.ctrl.CurrentGeographicExtent(),
		ProjectedExtent: r.ctrl.Map().View().CalculateExtent(w, h),
		Center:          center,
		Zoom:            zoom,
	}
	if err != nil {
		return res, fmt.Errorf("snapshot: wait for tiles: %w", err)
	}
	return res, nil
}

// Close stops tile loading.
func (r *Renderer) Close() {
	r.ctrl.Detach()
}

// WritePNG encodes the snapshot image.
func (res Result) WritePNG(w io.Writer) error {
	return png.Encode(w, res.Image)
}

// WorldFile returns the six-line world file georeferencing the image in
// EPSG:3857. The last two lines locate the centre of the upper-left pixel.
func (res Result) WorldFile() []byte {
	b := res.Image.Bounds()
	e := res.ProjectedExtent
	px := (e[2] - e[0]) / float64(b.Dx())
	py := (e[3] - e[1]) / float64(b.Dy())

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%24.10f\n", px)
	fmt.Fprintf(&buf, "%24.10f\n", 0.0)
	fmt.Fprintf(&buf, "%24.10f\n", 0.0)
	fmt.Fprintf(&buf, "%24.10f\n", -py)
	fmt.Fprintf(&buf, "%24.10f\n", e[0]+px/2)
	fmt.Fprintf(&buf, "%24.10f\n", e[3]-py/2)
	return buf.Bytes()
}
