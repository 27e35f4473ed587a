package tiles

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DebugProvider renders a labelled placeholder for every tile, without any
// network access.
type DebugProvider struct {
	size int
}

func NewDebugProvider(tileSize int) *DebugProvider {
	if tileSize <= 0 {
		tileSize = TileSize
	}
	return &DebugProvider{size: tileSize}
}

func (p *DebugProvider) GetTile(_ context.Context, c Coord) (image.Image, error) {
	n := p.size
	img := image.NewRGBA(image.Rect(0, 0, n, n))

	// light blue background
	bgColor := color.RGBA{200, 220, 255, 255}
	draw.Draw(img, img.Bounds(), &image.Uniform{bgColor}, image.Point{}, draw.Src)

	drawLabel(img, c.Key())

	borderColor := color.RGBA{100, 100, 100, 255}
	borders := []image.Rectangle{
		image.Rect(0, 0, n, 1),   // Top
		image.Rect(0, n-1, n, n), // Bottom
		image.Rect(0, 0, 1, n),   // Left
		image.Rect(n-1, 0, n, n), // Right
	}
	for _, rect := range borders {
		draw.Draw(img, rect, &image.Uniform{borderColor}, image.Point{}, draw.Src)
	}
	return img, nil
}

func drawLabel(img *image.RGBA, text string) {
	n := img.Bounds().Dx()
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{40, 40, 40, 255}),
		Face: face,
	}

	textWidth := d.MeasureString(text).Round()
	textHeight := face.Metrics().Height.Round()

	padding := 10
	bg := image.Rect(
		(n-textWidth)/2-padding,
		n/2-textHeight/2-padding,
		(n+textWidth)/2+padding,
		n/2+textHeight/2+padding,
	)
	draw.Draw(img, bg, &image.Uniform{color.RGBA{255, 255, 255, 220}}, image.Point{}, draw.Over)

	d.Dot = fixed.Point26_6{
		X: fixed.I((n - textWidth) / 2),
		Y: fixed.I(n/2 + textHeight/2),
	}
	d.DrawString(text)
}

// FallbackProvider serves tiles from primary and substitutes the fallback's
// tile whenever primary fails.
type FallbackProvider struct {
	primary  Provider
	fallback Provider
}

func NewFallbackProvider(primary, fallback Provider) *FallbackProvider {
	return &FallbackProvider{primary: primary, fallback: fallback}
}

func (p *FallbackProvider) GetTile(ctx context.Context, c Coord) (image.Image, error) {
	img, err := p.primary.GetTile(ctx, c)
	if err == nil {
		return img, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	img, ferr := p.fallback.GetTile(ctx, c)
	if ferr != nil {
		return nil, fmt.Errorf("both primary and fallback providers failed: %v; %w", err, ferr)
	}
	return img, nil
}
