// Package enrich post-processes canonical events so every one reaches the
// UI with a usable image and, when an address allows it, coordinates. All
// of it is best-effort: an enrichment failure never drops an event.
package enrich

import (
	"context"
	"log/slog"
	"time"

	"github.com/bestfriendai/newevents-api/internal/geocode"
	"github.com/bestfriendai/newevents-api/internal/helpers"
	"github.com/bestfriendai/newevents-api/internal/models"
	"golang.org/x/sync/errgroup"
)

// Per-category placeholder imagery served when a provider image is missing
// or fails validation.
var placeholders = map[string][]string{
	models.CategoryMusic: {
		"https://images.unsplash.com/photo-1470229722913-7c0e2dbbafd3?w=800&q=80",
		"https://images.unsplash.com/photo-1501386761578-eac5c94b800a?w=800&q=80",
	},
	models.CategorySports: {
		"https://images.unsplash.com/photo-1461896836934-ffe607ba8211?w=800&q=80",
		"https://images.unsplash.com/photo-1471295253337-3ceaaedca402?w=800&q=80",
	},
	models.CategoryArts: {
		"https://images.unsplash.com/photo-1499781350541-7783f6c6a0c8?w=800&q=80",
		"https://images.unsplash.com/photo-1460661419201-fd4cecdf8a8b?w=800&q=80",
	},
	models.CategoryBusiness: {
		"https://images.unsplash.com/photo-1540575467063-178a50c2df87?w=800&q=80",
	},
	models.CategoryFamily: {
		"https://images.unsplash.com/photo-1472162072942-cd5147eb3902?w=800&q=80",
	},
	models.CategoryNightlife: {
		"https://images.unsplash.com/photo-1566417713940-fe7c737a9ef2?w=800&q=80",
		"https://images.unsplash.com/photo-1514525253161-7a46d19cd819?w=800&q=80",
	},
	models.CategoryFestival: {
		"https://images.unsplash.com/photo-1533174072545-7a4b6ad7a6c3?w=800&q=80",
	},
	models.CategoryBrunch: {
		"https://images.unsplash.com/photo-1414235077428-338989a2e8c0?w=800&q=80",
	},
	models.CategoryEvent: {
		"https://images.unsplash.com/photo-1492684223066-81342ee5ff30?w=800&q=80",
		"https://images.unsplash.com/photo-1511795409834-ef04bbd61622?w=800&q=80",
	},
}

const (
	// Maximum simultaneous per-event enrichments; a 100-event batch must
	// not open 100 geocode requests at once.
	maxConcurrency = 8
	perItemTimeout = 3 * time.Second
)

type Enricher struct {
	geocoder geocode.Geocoder
	logger   *slog.Logger
}

// NewEnricher builds an enricher. geocoder may be nil (no Mapbox token
// configured), in which case only image enrichment runs.
func NewEnricher(geocoder geocode.Geocoder, logger *slog.Logger) *Enricher {
	return &Enricher{geocoder: geocoder, logger: logger}
}

// EnhanceBatch enriches events in place, concurrently with bounded fan-out.
// It always returns the full batch.
func (en *Enricher) EnhanceBatch(ctx context.Context, events []models.CanonicalEvent) []models.CanonicalEvent {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	for i := range events {
		g.Go(func() error {
			itemCtx, cancel := context.WithTimeout(gctx, perItemTimeout)
			defer cancel()
			en.enhance(itemCtx, &events[i])
			return nil
		})
	}
	_ = g.Wait()
	return events
}

func (en *Enricher) enhance(ctx context.Context, ev *models.CanonicalEvent) {
	if !helpers.IsPlausibleImageURL(ev.Image) {
		ev.Image = PlaceholderImage(ev.Category, ev.ExternalID)
	}

	if ev.Coordinates == nil && ev.Address != "" && en.geocoder != nil {
		loc, err := en.geocoder.Forward(ctx, ev.Address)
		if err != nil {
			// Swallowed: the event proceeds without coordinates.
			en.logger.Debug("geocode enrichment failed", "event", ev.ExternalID, "error", err)
			return
		}
		c := models.Coordinates{Latitude: loc.Lat, Longitude: loc.Lng}
		if c.Valid() {
			ev.Coordinates = &c
		}
	}
}

// PlaceholderImage picks a category placeholder, keyed by the event id so
// the same event always gets the same image.
func PlaceholderImage(category, externalID string) string {
	set, ok := placeholders[category]
	if !ok || len(set) == 0 {
		set = placeholders[models.CategoryEvent]
	}
	return set[models.NumericID(externalID)%len(set)]
}
