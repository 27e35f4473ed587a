package tiles

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var ErrInvalidTemplate = errors.New("tiles: invalid url template")

var rangePattern = regexp.MustCompile(`\{(\d)-(\d)\}|\{([a-z])-([a-z])\}`)

// expandURL turns one template with a {a-c} or {0-3} range into one template
// per member of the range.
func expandURL(template string) []string {
	m := rangePattern.FindStringSubmatchIndex(template)
	if m == nil {
		return []string{template}
	}
	var lo, hi byte
	if m[2] >= 0 {
		lo, hi = template[m[2]], template[m[4]]
	} else {
		lo, hi = template[m[6]], template[m[8]]
	}
	if lo > hi {
		return []string{template}
	}
	urls := make([]string, 0, hi-lo+1)
	for c := lo; c <= hi; c++ {
		urls = append(urls, template[:m[0]]+string(c)+template[m[1]:])
	}
	return urls
}

func validateTemplate(template string, placeholders ...string) error {
	for _, p := range placeholders {
		if !strings.Contains(template, p) {
			return fmt.Errorf("%w: placeholder %v not found in %q", ErrInvalidTemplate, p, template)
		}
	}
	return nil
}

// pickURL chooses a template for the tile so neighbouring tiles spread over
// the available hosts.
func pickURL(urls []string, c Coord) string {
	if len(urls) == 1 {
		return urls[0]
	}
	// unsigned, so deep zooms and wrapped columns overflow harmlessly
	h := uint64(c.X)<<uint(c.Z) + uint64(c.Y)
	return urls[h%uint64(len(urls))]
}

func formatXYZ(template string, c Coord) string {
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(c.Z),
		"{x}", strconv.Itoa(c.X),
		"{y}", strconv.Itoa(c.Y),
		"{-y}", strconv.Itoa((1<<uint(c.Z))-c.Y-1),
	)
	return r.Replace(template)
}
