package providers

import (
	"testing"

	"github.com/bestfriendai/newevents-api/internal/models"
)

func TestParsePriceText(t *testing.T) {
	tests := []struct {
		in       string
		min, max float64
		ok       bool
	}{
		{"Free", 0, 0, true},
		{"$10", 10, 10, true},
		{"$10 - $20", 10, 20, true},
		{"$15.50", 15.5, 15.5, true},
		{"Tickets from $25 to $75", 25, 75, true},
		{"doors at 8pm", 0, 0, false},
		{"", 0, 0, false},
		{"contact venue", 0, 0, false},
	}

	for _, tt := range tests {
		min, max, ok := ParsePriceText(tt.in)
		if ok != tt.ok {
			t.Errorf("ParsePriceText(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && (min != tt.min || max != tt.max) {
			t.Errorf("ParsePriceText(%q) = %v,%v, want %v,%v", tt.in, min, max, tt.min, tt.max)
		}
	}
}

func TestResolvePricePrefersExplicitRange(t *testing.T) {
	explicit := &models.PriceRange{Min: 30, Max: 90, Currency: "USD"}
	display, pr := resolvePrice(explicit, []string{"free entry all night"}, models.CategoryMusic, "")

	if pr != explicit {
		t.Fatal("explicit provider range must win over text heuristics")
	}
	if display != "$30 - $90" {
		t.Errorf("display = %q", display)
	}
}

func TestResolvePriceFreeKeyword(t *testing.T) {
	display, pr := resolvePrice(nil, []string{"Join us, free admission for everyone"}, models.CategoryArts, "")
	if display != models.PriceFree {
		t.Errorf("display = %q, want %q", display, models.PriceFree)
	}
	if pr == nil || pr.Min != 0 || pr.Max != 0 {
		t.Errorf("range = %+v, want zero range", pr)
	}
}

func TestResolvePriceEstimateIsTagged(t *testing.T) {
	display, pr := resolvePrice(nil, []string{"an evening of live sets"}, models.CategoryMusic, "Mercury Hall")
	if pr == nil || !pr.Estimated {
		t.Fatalf("category estimate must be tagged Estimated, got %+v", pr)
	}
	if display == "" || display == models.PriceTBA {
		t.Errorf("estimate should produce a band display, got %q", display)
	}
}

func TestResolvePriceBigVenueScalesEstimate(t *testing.T) {
	_, small := resolvePrice(nil, nil, models.CategorySports, "Local Gym")
	_, big := resolvePrice(nil, nil, models.CategorySports, "City Stadium")
	if big.Min <= small.Min {
		t.Errorf("stadium estimate (%v) should exceed base band (%v)", big.Min, small.Min)
	}
}

func TestResolvePriceFallsBackToTBA(t *testing.T) {
	display, pr := resolvePrice(nil, []string{"see you there"}, models.CategoryEvent, "")
	if display != models.PriceTBA {
		t.Errorf("display = %q, want %q", display, models.PriceTBA)
	}
	if pr != nil {
		t.Errorf("unknown price must not fabricate a range, got %+v", pr)
	}
}
