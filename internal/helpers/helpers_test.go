package helpers

import (
	"math"
	"strings"
	"testing"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct{ in, want string }{
		{"<p>Hello <b>world</b></p>", "Hello world"},
		{"Food trucks &amp; live DJs", "Food trucks & live DJs"},
		{"  spaced   out \n text ", "spaced out text"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := SanitizeText(tt.in); got != tt.want {
			t.Errorf("SanitizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClampText(t *testing.T) {
	long := strings.Repeat("a", 600)
	got := ClampText(long, 500)
	if len([]rune(got)) > 500 {
		t.Errorf("clamped length = %d", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("truncation must be visible")
	}
	if ClampText("short", 500) != "short" {
		t.Error("short text must pass through untouched")
	}
}

func TestIsPlausibleImageURL(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"https://s1.ticketm.net/dam/a/abc.jpg", true},
		{"https://img.evbuc.com/render?h=200", true}, // trusted host, no extension
		{"https://example.com/photo.png", true},
		{"https://example.com/page.html", false},
		{"javascript:alert(1)", false},
		{"/relative/path.jpg", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsPlausibleImageURL(tt.in); got != tt.ok {
			t.Errorf("IsPlausibleImageURL(%q) = %v, want %v", tt.in, got, tt.ok)
		}
	}
}

func TestHaversineMiles(t *testing.T) {
	// NYC to Boston is roughly 190 miles.
	d := HaversineMiles(40.7128, -74.0060, 42.3601, -71.0589)
	if d < 180 || d > 200 {
		t.Errorf("NYC-Boston distance = %.1f, want ~190", d)
	}
	if z := HaversineMiles(40.7, -74.0, 40.7, -74.0); z != 0 {
		t.Errorf("zero distance = %v", z)
	}
}

func TestBoundingBoxAround(t *testing.T) {
	minLat, maxLat, minLng, maxLng := BoundingBoxAround(40.7128, -74.0060, 25)
	if minLat >= 40.7128 || maxLat <= 40.7128 || minLng >= -74.0060 || maxLng <= -74.0060 {
		t.Errorf("box does not contain center: %v %v %v %v", minLat, maxLat, minLng, maxLng)
	}
	// A point 25 miles due north must fall inside the latitude band.
	north := 40.7128 + 25.0/69.0
	if north > maxLat+1e-9 {
		t.Errorf("maxLat %v excludes point %v at radius", maxLat, north)
	}

	// Poles clamp instead of overflowing.
	minLat, maxLat, _, _ = BoundingBoxAround(89.9, 0, 100)
	if maxLat > 90 || minLat > maxLat {
		t.Errorf("polar box invalid: %v..%v", minLat, maxLat)
	}
	if math.IsNaN(minLat) {
		t.Error("NaN latitude")
	}
}

func TestNormalizeKey(t *testing.T) {
	if NormalizeKey("Summer  Jazz Night!") != NormalizeKey("summer jazz night") {
		t.Error("punctuation and case must not affect the key")
	}
	if NormalizeKey("abc") == NormalizeKey("xyz") {
		t.Error("distinct strings must not collide trivially")
	}
}
