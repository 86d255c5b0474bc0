package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var Validate = validator.New()

// Sort keys accepted by the aggregator.
const (
	SortByDate       = "date"
	SortByDistance   = "distance"
	SortByPrice      = "price"
	SortByPopularity = "popularity"
	SortByRelevance  = "relevance"
)

// SearchParams is the canonical search request shared by the aggregator and
// every provider adapter. Binding tags cover the inbound query string;
// validate tags are checked synchronously before any network call.
type SearchParams struct {
	Query      string   `form:"query" json:"query"`
	Lat        *float64 `form:"lat" json:"lat,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Lng        *float64 `form:"lng" json:"lng,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Radius     float64  `form:"radius" json:"radius" validate:"gte=0,lte=500"` // miles
	Categories []string `form:"category" json:"categories,omitempty"`
	PriceMin   *float64 `form:"priceMin" json:"priceMin,omitempty" validate:"omitempty,gte=0"`
	PriceMax   *float64 `form:"priceMax" json:"priceMax,omitempty" validate:"omitempty,gte=0"`
	StartDate  string   `form:"startDate" json:"startDate,omitempty"` // RFC 3339 or YYYY-MM-DD
	EndDate    string   `form:"endDate" json:"endDate,omitempty"`
	SortBy     string   `form:"sortBy" json:"sortBy,omitempty" validate:"omitempty,oneof=date distance price popularity relevance"`
	SortOrder  string   `form:"sortOrder" json:"sortOrder,omitempty" validate:"omitempty,oneof=asc desc"`
	Limit      int      `form:"limit" json:"limit" validate:"gte=0,lte=100"`
	Offset     int      `form:"offset" json:"offset" validate:"gte=0"`
	// ForceRefresh skips the in-process cache tier.
	ForceRefresh bool `form:"forceRefresh" json:"forceRefresh,omitempty"`
}

// HasPoint reports whether the request carries a usable search point.
func (p *SearchParams) HasPoint() bool {
	return p.Lat != nil && p.Lng != nil
}

// DateRange resolves the optional start/end strings into timestamps. A bare
// YYYY-MM-DD end date is pushed to end of day so the day is inclusive.
func (p *SearchParams) DateRange() (start, end time.Time) {
	start = parseDateParam(p.StartDate, false)
	end = parseDateParam(p.EndDate, true)
	return start, end
}

func parseDateParam(s string, endOfDay bool) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return t
}

// UnifiedEventsResponse is the aggregator's reply to the UI.
type UnifiedEventsResponse struct {
	Events     []CanonicalEvent `json:"events"`
	TotalCount int              `json:"totalCount"`
	HasMore    bool             `json:"hasMore"`
	// Error carries soft, partial-failure information; the call itself
	// still succeeded.
	Error   string         `json:"error,omitempty"`
	Sources map[string]int `json:"sources"`
	// Fallback is set when the events are synthetic mock data served
	// because no live or cached results were available.
	Fallback bool `json:"fallback,omitempty"`
}
