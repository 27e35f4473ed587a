package tiles

import (
	"math"
	"testing"
)

func TestPickURLDeepZoom(t *testing.T) {
	urls := []string{"a", "b", "c"}
	for _, c := range []Coord{
		{Z: 40, X: 1<<39 + 12345, Y: 7},
		{Z: 62, X: math.MaxInt, Y: math.MaxInt},
		{Z: 63, X: -1, Y: -1},
		{Z: 3, X: -9, Y: 2},
	} {
		if got := pickURL(urls, c); got == "" {
			t.Errorf("pickURL(%+v) = %q", c, got)
		}
	}

	seen := map[string]bool{}
	for y := 0; y < 3; y++ {
		seen[pickURL(urls, Coord{Z: 40, X: 1 << 39, Y: y})] = true
	}
	if len(seen) != 3 {
		t.Errorf("neighbouring tiles at z40 used hosts %v, want all three", seen)
	}
}
