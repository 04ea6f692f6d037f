package cloudinary

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	watermarkMarker = "l_modelcast_watermark"
	uploadSegment   = "/upload/"

	baseOverlay = watermarkMarker + ",o_60,g_south_east,x_20,y_20"
)

// WatermarkOptions tunes how the overlay transformation is rendered.
type WatermarkOptions struct {
	Width     int
	CacheBust bool
}

// EnsureWatermark injects the overlay transformation into a delivery URL.
// Idempotent: a URL that already carries the marker is returned unchanged,
// cache-busting included. URLs without an upload path segment pass through.
func EnsureWatermark(rawURL string, opts WatermarkOptions) string {
	return injectOverlay(rawURL, baseOverlay, opts.CacheBust)
}

// ApplyWatermark is the sized variant used where the output is rendered at a
// known width. Same idempotence guarantees as EnsureWatermark.
func ApplyWatermark(rawURL string, opts WatermarkOptions) string {
	overlay := baseOverlay
	if opts.Width > 0 {
		overlay += fmt.Sprintf(",w_%d", opts.Width)
	}
	return injectOverlay(rawURL, overlay, opts.CacheBust)
}

// IsWatermarked reports whether the URL already carries the overlay marker.
func IsWatermarked(rawURL string) bool {
	return strings.Contains(rawURL, watermarkMarker)
}

func injectOverlay(rawURL, overlay string, cacheBust bool) string {
	if !strings.Contains(rawURL, uploadSegment) {
		return rawURL
	}
	if IsWatermarked(rawURL) {
		return rawURL
	}
	out := strings.Replace(rawURL, uploadSegment, uploadSegment+overlay+"/", 1)
	if cacheBust {
		out = appendCacheBust(out)
	}
	return out
}

// appendCacheBust sets cb=<epoch-millis> on the query string. The timestamp is
// taken at call time, never memoized.
func appendCacheBust(rawURL string) string {
	stamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	parsed, err := url.Parse(rawURL)
	if err != nil {
		// Do not corrupt a URL the parser rejects.
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		return rawURL + sep + "cb=" + stamp
	}
	query := parsed.Query()
	query.Set("cb", stamp)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}
