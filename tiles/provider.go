package tiles

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"net/http"

	_ "golang.org/x/image/webp"
)

// Provider loads the image of one tile. Implementations must be safe for
// concurrent use.
type Provider interface {
	GetTile(ctx context.Context, c Coord) (image.Image, error)
}

// HTTPProvider downloads tiles of a Source over HTTP.
type HTTPProvider struct {
	source    Source
	client    *http.Client
	userAgent string
}

func NewHTTPProvider(source Source, client *http.Client, userAgent string) *HTTPProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPProvider{
		source:    source,
		client:    client,
		userAgent: userAgent,
	}
}

func (p *HTTPProvider) GetTile(ctx context.Context, c Coord) (image.Image, error) {
	url, ok := p.source.TileURL(c)
	if !ok {
		return nil, fmt.Errorf("tile %v outside source", c)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	req.Header.Set("Accept", "image/png,image/jpeg,image/webp,*/*")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status code: %d", url, resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	log.Printf("loaded tile %v", c)
	return img, nil
}
