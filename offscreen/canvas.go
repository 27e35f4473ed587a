package offscreen

import (
	"image"
	"sync/atomic"
)

// Canvas is the render target of a Map. Every render publishes a new image;
// a published image is never written again, so readers may keep it for as
// long as they like.
type Canvas struct {
	img atomic.Pointer[image.NRGBA]
}

func NewCanvas(width, height int) *Canvas {
	c := &Canvas{}
	c.img.Store(image.NewNRGBA(image.Rect(0, 0, width, height)))
	return c
}

func (c *Canvas) Image() *image.NRGBA {
	return c.img.Load()
}

func (c *Canvas) publish(img *image.NRGBA) {
	c.img.Store(img)
}
