package models

import (
	"hash/fnv"
	"time"
)

// Canonical category vocabulary shared by all provider adapters.
const (
	CategoryMusic     = "Music"
	CategorySports    = "Sports"
	CategoryArts      = "Arts"
	CategoryBusiness  = "Business"
	CategoryFamily    = "Family"
	CategoryNightlife = "Nightlife"
	CategoryFestival  = "Festival"
	CategoryBrunch    = "Brunch"
	CategoryEvent     = "Event" // unknown / uncategorized
)

// Event sources.
const (
	SourceTicketmaster = "ticketmaster"
	SourceRapidAPI     = "rapidapi"
	SourceEventbrite   = "eventbrite"
	SourceCached       = "cached"
	SourceMock         = "mock"
)

// DefaultDescription is substituted when a provider supplies no description.
const DefaultDescription = "No description available"

// Price display sentinels. Adapters that cannot resolve a structured price
// fall back to one of these.
const (
	PriceFree = "Free"
	PriceTBA  = "Price TBA"
)

type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Valid reports whether the pair is inside the WGS84 envelope.
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// PriceRange is the structured price when one could be resolved. Estimated
// marks values produced by the keyword/category heuristics rather than taken
// from provider data; consumers must not treat estimated prices as fact.
type PriceRange struct {
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Currency  string  `json:"currency"`
	Estimated bool    `json:"estimated,omitempty"`
}

type TicketLink struct {
	Source string `json:"source"`
	Link   string `json:"link"`
}

type Organizer struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// CanonicalEvent is the normalized representation every provider adapter
// produces. StartsAt is the authoritative timestamp; Date and Time are
// display strings formatted from it and are never parsed back.
type CanonicalEvent struct {
	ID          int          `json:"id"`
	ExternalID  string       `json:"externalId"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	StartsAt    time.Time    `json:"startsAt"`
	Date        string       `json:"date"`
	Time        string       `json:"time"`
	Location    string       `json:"location"`
	Address     string       `json:"address"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Price       string       `json:"price"`
	PriceRange  *PriceRange  `json:"priceRange,omitempty"`
	Image       string       `json:"image"`
	Organizer   Organizer    `json:"organizer"`
	// Attendees is a presentation-only estimate; most providers do not
	// expose real counts and adapters backfill a plausible number.
	Attendees   int          `json:"attendees,omitempty"`
	TicketLinks []TicketLink `json:"ticketLinks"`
	IsFavorite  bool         `json:"isFavorite"`
	Source      string       `json:"source"`
}

// SetStartsAt records the authoritative timestamp and derives the two
// display strings from it.
func (e *CanonicalEvent) SetStartsAt(t time.Time) {
	e.StartsAt = t
	e.Date = t.Format("Mon, Jan 2, 2006")
	e.Time = t.Format("3:04 PM")
}

// NumericID derives a stable positive id from a provider's native string id.
func NumericID(externalID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(externalID))
	return int(h.Sum32() & 0x7fffffff)
}
