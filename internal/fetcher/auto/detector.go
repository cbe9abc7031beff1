package auto

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/JakeFAU/film-info-crawler/internal/film"
)

const defaultThreshold = 2048

// filmMarkers are present in every server-rendered film page.
var filmMarkers = [][]byte{
	[]byte("film_view_count"),
	[]byte(`itemprop="image"`),
}

var spaMarkers = [][]byte{
	[]byte("__next"),
	[]byte(`id="root"`),
	[]byte(`id="app"`),
	[]byte("data-reactroot"),
}

// Detector decides whether a plain HTTP response needs a headless render.
type Detector struct {
	BodyLengthThreshold int
}

// NewDetector creates a Detector. A zero threshold uses 2 KiB.
func NewDetector(threshold int) *Detector {
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	return &Detector{BodyLengthThreshold: threshold}
}

// ShouldPromote reports whether resp looks like a client-rendered shell.
// Error statuses are never promoted; a missing page stays missing.
func (d *Detector) ShouldPromote(resp film.FetchResponse) bool {
	if resp.StatusCode != http.StatusOK {
		return false
	}
	body := resp.Body
	if len(body) == 0 {
		return true
	}
	for _, marker := range filmMarkers {
		if bytes.Contains(body, marker) {
			return false
		}
	}
	if len(body) < d.BodyLengthThreshold && scriptHeavy(body) {
		return true
	}
	for _, marker := range spaMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return false
}

// scriptHeavy reports whether script elements cover at least a quarter of
// the document.
func scriptHeavy(body []byte) bool {
	lower := strings.ToLower(string(body))
	total := len(lower)
	if total == 0 {
		return false
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	covered := 0
	pos := 0
	for {
		rel := strings.Index(lower[pos:], openTag)
		if rel == -1 {
			break
		}
		start := pos + rel

		end := total
		if gt := strings.IndexByte(lower[start:], '>'); gt != -1 {
			contentStart := start + gt + 1
			if closeRel := strings.Index(lower[contentStart:], closeTag); closeRel != -1 {
				end = contentStart + closeRel + len(closeTag)
			}
		}
		covered += end - start
		pos = end
	}
	return covered*100/total >= 25
}
