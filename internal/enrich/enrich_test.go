package enrich

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/bestfriendai/newevents-api/internal/geocode"
	"github.com/bestfriendai/newevents-api/internal/models"
)

type fakeGeocoder struct {
	loc   *geocode.Location
	err   error
	calls int
}

func (f *fakeGeocoder) Forward(ctx context.Context, query string) (*geocode.Location, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.loc, nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestEnhanceBatchSubstitutesPlaceholderImage(t *testing.T) {
	en := NewEnricher(nil, discard())
	events := []models.CanonicalEvent{
		{ExternalID: "ticketmaster_1", Category: models.CategoryMusic, Image: ""},
		{ExternalID: "ticketmaster_2", Category: models.CategoryMusic, Image: "javascript:alert(1)"},
		{ExternalID: "ticketmaster_3", Category: "NotARealCategory", Image: ""},
	}

	out := en.EnhanceBatch(context.Background(), events)
	for _, ev := range out {
		if ev.Image == "" || ev.Image == "javascript:alert(1)" {
			t.Errorf("event %s kept an unusable image: %q", ev.ExternalID, ev.Image)
		}
	}
}

func TestPlaceholderImageIsStablePerEvent(t *testing.T) {
	a := PlaceholderImage(models.CategoryNightlife, "rapidapi_abc")
	b := PlaceholderImage(models.CategoryNightlife, "rapidapi_abc")
	if a != b {
		t.Error("placeholder must be deterministic for the same event")
	}
}

func TestEnhanceBatchBackfillsCoordinates(t *testing.T) {
	geo := &fakeGeocoder{loc: &geocode.Location{Lat: 40.7, Lng: -74.0, DisplayName: "NYC"}}
	en := NewEnricher(geo, discard())

	events := []models.CanonicalEvent{
		{ExternalID: "e_1", Address: "610 W 56th St, New York"},
		{ExternalID: "e_2", Address: "no geocode needed", Coordinates: &models.Coordinates{Latitude: 1, Longitude: 2}},
		{ExternalID: "e_3"}, // no address, nothing to geocode
	}

	out := en.EnhanceBatch(context.Background(), events)
	if out[0].Coordinates == nil || out[0].Coordinates.Latitude != 40.7 {
		t.Errorf("address-bearing event not backfilled: %+v", out[0].Coordinates)
	}
	if out[1].Coordinates.Latitude != 1 {
		t.Error("existing coordinates must not be overwritten")
	}
	if out[2].Coordinates != nil {
		t.Error("event without address must stay coordinate-less")
	}
	if geo.calls != 1 {
		t.Errorf("geocoder called %d times, want 1", geo.calls)
	}
}

func TestGeocodeFailureIsSwallowed(t *testing.T) {
	geo := &fakeGeocoder{err: errors.New("rate limited")}
	en := NewEnricher(geo, discard())

	events := []models.CanonicalEvent{{ExternalID: "e_1", Address: "somewhere"}}
	out := en.EnhanceBatch(context.Background(), events)

	if len(out) != 1 {
		t.Fatal("a geocode failure must never drop the event")
	}
	if out[0].Coordinates != nil {
		t.Error("failed geocode must leave coordinates nil")
	}
}
