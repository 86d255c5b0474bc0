package providers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bestfriendai/newevents-api/internal/models"
)

var (
	dollarPattern = regexp.MustCompile(`\$\s*(\d+(?:\.\d{1,2})?)`)
	freePattern   = regexp.MustCompile(`(?i)\b(free admission|free entry|free event|no cover|admission is free|^free$)\b`)
)

// ParsePriceText extracts a min/max pair from a human price string.
// "Free" yields 0,0; "$10" yields 10,10; "$10 - $20" yields 10,20. Returns
// ok=false for anything it cannot read rather than guessing.
func ParsePriceText(s string) (min, max float64, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, false
	}
	if strings.EqualFold(s, "free") || freePattern.MatchString(s) {
		return 0, 0, true
	}

	matches := dollarPattern.FindAllStringSubmatch(s, 2)
	if len(matches) == 0 {
		return 0, 0, false
	}
	min, err := strconv.ParseFloat(matches[0][1], 64)
	if err != nil {
		return 0, 0, false
	}
	max = min
	if len(matches) > 1 {
		if v, err := strconv.ParseFloat(matches[1][1], 64); err == nil && v >= min {
			max = v
		}
	}
	return min, max, true
}

// Rough price bands by category, used only when neither provider data nor
// description text yields a price. These are fabrications and are tagged
// Estimated so consumers can tell fact from guess.
var estimateBands = map[string][2]float64{
	models.CategoryMusic:     {25, 85},
	models.CategorySports:    {30, 120},
	models.CategoryArts:      {20, 65},
	models.CategoryBusiness:  {0, 50},
	models.CategoryFamily:    {10, 35},
	models.CategoryNightlife: {10, 40},
	models.CategoryFestival:  {40, 150},
	models.CategoryBrunch:    {25, 60},
}

var bigVenuePattern = regexp.MustCompile(`(?i)\b(stadium|arena|amphitheat|coliseum)\b`)

// estimatePrice returns a heuristic band for the category and venue, or nil
// when no band applies.
func estimatePrice(category, venue string) *models.PriceRange {
	band, ok := estimateBands[category]
	if !ok {
		return nil
	}
	min, max := band[0], band[1]
	if bigVenuePattern.MatchString(venue) {
		min, max = min*1.5, max*1.5
	}
	return &models.PriceRange{Min: min, Max: max, Currency: "USD", Estimated: true}
}

// resolvePrice runs the fallback chain: explicit provider range → price
// text scanned out of the description fields → category/venue estimate →
// "Price TBA". The returned display string is what the UI shows.
func resolvePrice(explicit *models.PriceRange, texts []string, category, venue string) (string, *models.PriceRange) {
	if explicit != nil {
		return formatPrice(explicit), explicit
	}
	for _, t := range texts {
		if t == "" {
			continue
		}
		if freePattern.MatchString(t) {
			return models.PriceFree, &models.PriceRange{Currency: "USD"}
		}
		if min, max, ok := ParsePriceText(t); ok {
			pr := &models.PriceRange{Min: min, Max: max, Currency: "USD"}
			return formatPrice(pr), pr
		}
	}
	if pr := estimatePrice(category, venue); pr != nil {
		return formatPrice(pr), pr
	}
	return models.PriceTBA, nil
}

func formatPrice(pr *models.PriceRange) string {
	if pr.Min == 0 && pr.Max == 0 {
		return models.PriceFree
	}
	prefix := ""
	if pr.Estimated {
		prefix = "~"
	}
	if pr.Min == pr.Max {
		return fmt.Sprintf("%s$%s", prefix, trimZeros(pr.Min))
	}
	return fmt.Sprintf("%s$%s - $%s", prefix, trimZeros(pr.Min), trimZeros(pr.Max))
}

func trimZeros(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
