package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const EventsTable = "events"

// BoundingBox is the approximate region used for warm-cache queries against
// the store. It is derived from the search point and radius; the precise
// haversine cut happens later in the aggregator.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// EventsRepo is the persisted warm tier of previously fetched events.
type EventsRepo interface {
	// QueryRegion returns stored events inside the bounding box, optionally
	// narrowed by category and date range.
	QueryRegion(ctx context.Context, bbox BoundingBox, categories []string, start, end time.Time, limit int) ([]CanonicalEvent, error)
	// InsertNew persists events not yet present under their
	// (external_id, source) key. Existing rows are left untouched;
	// first-seen data is authoritative.
	InsertNew(ctx context.Context, events []CanonicalEvent) (int, error)
}

// eventRow is the flattened table shape. Coordinates are stored as separate
// nullable columns so the region query can filter on them.
type eventRow struct {
	ExternalID  string    `json:"external_id"`
	Source      string    `json:"source"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	StartsAt    time.Time `json:"starts_at"`
	Location    string    `json:"location"`
	Address     string    `json:"address"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	Price       string    `json:"price"`
	PriceMin    *float64  `json:"price_min"`
	PriceMax    *float64  `json:"price_max"`
	Currency    string    `json:"currency,omitempty"`
	Estimated   bool      `json:"price_estimated"`
	Image       string    `json:"image"`
	Organizer   string    `json:"organizer"`
	TicketURL   string    `json:"ticket_url"`
}

func rowFromEvent(e CanonicalEvent) eventRow {
	row := eventRow{
		ExternalID:  e.ExternalID,
		Source:      e.Source,
		Title:       e.Title,
		Description: e.Description,
		Category:    e.Category,
		StartsAt:    e.StartsAt.UTC(),
		Location:    e.Location,
		Address:     e.Address,
		Price:       e.Price,
		Image:       e.Image,
		Organizer:   e.Organizer.Name,
	}
	if e.Coordinates != nil {
		lat, lng := e.Coordinates.Latitude, e.Coordinates.Longitude
		row.Latitude, row.Longitude = &lat, &lng
	}
	if e.PriceRange != nil {
		mn, mx := e.PriceRange.Min, e.PriceRange.Max
		row.PriceMin, row.PriceMax = &mn, &mx
		row.Currency = e.PriceRange.Currency
		row.Estimated = e.PriceRange.Estimated
	}
	if len(e.TicketLinks) > 0 {
		row.TicketURL = e.TicketLinks[0].Link
	}
	return row
}

func (r eventRow) toEvent() CanonicalEvent {
	e := CanonicalEvent{
		ID:          NumericID(r.ExternalID),
		ExternalID:  r.ExternalID,
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Location:    r.Location,
		Address:     r.Address,
		Price:       r.Price,
		Image:       r.Image,
		Organizer:   Organizer{Name: r.Organizer},
		Source:      SourceCached,
	}
	e.SetStartsAt(r.StartsAt)
	if r.Latitude != nil && r.Longitude != nil {
		e.Coordinates = &Coordinates{Latitude: *r.Latitude, Longitude: *r.Longitude}
	}
	if r.PriceMin != nil && r.PriceMax != nil {
		e.PriceRange = &PriceRange{Min: *r.PriceMin, Max: *r.PriceMax, Currency: r.Currency, Estimated: r.Estimated}
	}
	if r.TicketURL != "" {
		e.TicketLinks = []TicketLink{{Source: r.Source, Link: r.TicketURL}}
	}
	return e
}

func (su *SupabaseRepo) QueryRegion(ctx context.Context, bbox BoundingBox, categories []string, start, end time.Time, limit int) ([]CanonicalEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	q := su.supabaseClient.From(EventsTable).
		Select("*", "exact", false).
		Gte("latitude", fmt.Sprintf("%f", bbox.MinLat)).
		Lte("latitude", fmt.Sprintf("%f", bbox.MaxLat)).
		Gte("longitude", fmt.Sprintf("%f", bbox.MinLng)).
		Lte("longitude", fmt.Sprintf("%f", bbox.MaxLng))

	if len(categories) == 1 {
		q = q.Eq("category", categories[0])
	} else if len(categories) > 1 {
		q = q.In("category", categories)
	}
	if !start.IsZero() {
		q = q.Gte("starts_at", start.UTC().Format(time.RFC3339))
	}
	if !end.IsZero() {
		q = q.Lte("starts_at", end.UTC().Format(time.RFC3339))
	}

	data, count, err := q.Limit(limit, "").Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to query stored events: %w", err)
	}
	if count == 0 {
		return []CanonicalEvent{}, nil
	}

	var rows []eventRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stored events: %w", err)
	}

	events := make([]CanonicalEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.toEvent())
	}
	return events, nil
}

func (su *SupabaseRepo) InsertNew(ctx context.Context, events []CanonicalEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	// Skip-if-exists: look up which (external_id, source) keys are already
	// stored and only insert the remainder. A concurrent request may still
	// race an identical insert; the unique constraint catches that and the
	// error is reported to the caller to log and swallow.
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ExternalID)
	}

	data, _, err := su.supabaseClient.From(EventsTable).
		Select("external_id,source", "exact", false).
		In("external_id", ids).
		Execute()
	if err != nil {
		return 0, fmt.Errorf("failed to check existing events: %w", err)
	}

	var existing []struct {
		ExternalID string `json:"external_id"`
		Source     string `json:"source"`
	}
	if err := json.Unmarshal(data, &existing); err != nil {
		return 0, fmt.Errorf("failed to unmarshal existing keys: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, ex := range existing {
		seen[ex.ExternalID+"|"+ex.Source] = true
	}

	rows := make([]eventRow, 0, len(events))
	for _, e := range events {
		if seen[e.ExternalID+"|"+e.Source] {
			continue
		}
		rows = append(rows, rowFromEvent(e))
	}
	if len(rows) == 0 {
		return 0, nil
	}

	_, _, err = su.supabaseClient.From(EventsTable).
		Insert(rows, false, "", "", "exact").
		Execute()
	if err != nil {
		// Unique-violation from a concurrent insert of the same batch is
		// expected under load and not a data problem.
		if strings.Contains(err.Error(), "duplicate key") {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to insert events: %w", err)
	}
	return len(rows), nil
}
