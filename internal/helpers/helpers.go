package helpers

import (
	"html"
	"math"
	"net/url"
	"regexp"
	"strings"
)

// MaxDescriptionLength clamps provider descriptions; upstream text can be
// arbitrarily long and full of markup.
const MaxDescriptionLength = 500

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// SanitizeText strips HTML tags and entities from provider-supplied free
// text and collapses runs of whitespace.
func SanitizeText(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ClampText truncates s to at most max runes, appending an ellipsis when
// anything was cut.
func ClampText(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max-3])) + "..."
}

// Hosts known to serve real event imagery. Anything else must carry an
// image file extension to be accepted.
var trustedImageHosts = []string{
	"s1.ticketm.net",
	"images.universe.com",
	"img.evbuc.com",
	"cdn.evbuc.com",
	"images.unsplash.com",
	"lh3.googleusercontent.com",
	"encrypted-tbn0.gstatic.com",
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".avif"}

// IsPlausibleImageURL reports whether raw looks like a fetchable image: an
// absolute http(s) URL that either ends in a known image extension or lives
// on a trusted image host.
func IsPlausibleImageURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Host)
	for _, trusted := range trustedImageHosts {
		if host == trusted || strings.HasSuffix(host, "."+trusted) {
			return true
		}
	}
	path := strings.ToLower(u.Path)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

const earthRadiusMiles = 3958.8

// HaversineMiles returns the great-circle distance between two points.
func HaversineMiles(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMiles * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// BoundingBoxAround expands a point by radius miles into min/max lat/lng,
// clamped to the valid envelope. Longitude degrees shrink with latitude.
func BoundingBoxAround(lat, lng, radiusMiles float64) (minLat, maxLat, minLng, maxLng float64) {
	latDelta := radiusMiles / 69.0
	lngScale := math.Cos(lat * math.Pi / 180)
	if lngScale < 0.01 {
		lngScale = 0.01
	}
	lngDelta := radiusMiles / (69.0 * lngScale)

	minLat = math.Max(lat-latDelta, -90)
	maxLat = math.Min(lat+latDelta, 90)
	minLng = math.Max(lng-lngDelta, -180)
	maxLng = math.Min(lng+lngDelta, 180)
	return minLat, maxLat, minLng, maxLng
}

// NormalizeKey lowercases and strips non-alphanumerics so near-identical
// strings from different providers compare equal for deduplication.
func NormalizeKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
