package mapview

import (
	"image"

	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
)

// Layout handles pointer input for the map and paints img, a canvas
// centered on the map center, over the full area.
func (mv *MapView) Layout(gtx layout.Context, img image.Image) layout.Dimensions {
	tag := mv

	// process events
	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target:  tag,
			Kinds:   pointer.Scroll | pointer.Drag | pointer.Press | pointer.Release | pointer.Cancel,
			ScrollY: pointer.ScrollRange{Min: -10, Max: 10},
		})
		if !ok {
			break
		}
		x, ok := ev.(pointer.Event)
		if !ok {
			continue
		}
		switch x.Kind {
		case pointer.Press:
			mv.Press(x.Position)
		case pointer.Scroll:
			mv.Scroll(x.Position, x.Scroll.Y)
		case pointer.Drag:
			mv.Drag(x.Position)
		case pointer.Release, pointer.Cancel:
			mv.Release()
		}
	}

	// Update size if changed
	size := gtx.Constraints.Max
	if mv.Size() != size {
		mv.Resize(size.X, size.Y)
	}

	// Confine the area of interest to a gtx Max
	defer clip.Rect{Max: size}.Push(gtx.Ops).Pop()
	event.Op(gtx.Ops, tag)

	if img != nil {
		b := img.Bounds()
		offset := image.Pt((size.X-b.Dx())/2, (size.Y-b.Dy())/2)
		transform := op.Offset(offset).Push(gtx.Ops)
		paint.NewImageOp(img).Add(gtx.Ops)
		paint.PaintOp{}.Add(gtx.Ops)
		transform.Pop()
	}

	return layout.Dimensions{Size: size}
}
