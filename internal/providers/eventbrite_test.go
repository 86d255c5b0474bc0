package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bestfriendai/newevents-api/internal/models"
)

const ebFixture = `{
  "events": [
    {
      "id": "7754321",
      "url": "https://www.eventbrite.com/e/7754321",
      "name": {"text": "Founders Breakfast &amp; Networking"},
      "description": {"text": "Monthly meetup for early-stage founders."},
      "start": {"utc": "2026-09-18T12:30:00Z"},
      "is_free": false,
      "logo": {"url": "https://img.evbuc.com/small", "original": {"url": "https://img.evbuc.com/original.jpg"}},
      "category_id": "101",
      "venue": {
        "name": "The Foundry",
        "address": {"localized_address_display": "42 Water St, Brooklyn, NY"},
        "latitude": "40.7033",
        "longitude": "-73.9881"
      },
      "organizer": {"name": "BK Founders Club", "logo": {"url": "https://img.evbuc.com/org.png"}},
      "ticket_availability": {
        "minimum_ticket_price": {"currency": "USD", "major_value": "15.00"},
        "maximum_ticket_price": {"currency": "USD", "major_value": "15.00"}
      }
    }
  ],
  "pagination": {"object_count": 1}
}`

func TestEventbriteSearchTransformsEvents(t *testing.T) {
	var auth string
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(ebFixture))
	}))
	defer srv.Close()

	eb := NewEventbrite(srv.URL, "eb-token", testLimiter(), 5*time.Second, testLogger())

	lat, lng := 40.7128, -74.0060
	res, err := eb.Search(context.Background(), models.SearchParams{
		Lat: &lat, Lng: &lng, Radius: 10,
		Categories: []string{models.CategoryBusiness},
		Limit:      25,
	})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}

	if auth != "Bearer eb-token" {
		t.Errorf("Authorization = %q", auth)
	}
	if got := gotQuery["location.within"]; len(got) == 0 || got[0] != "10mi" {
		t.Errorf("location.within = %v", gotQuery["location.within"])
	}
	if got := gotQuery["categories"]; len(got) == 0 || got[0] != "101" {
		t.Errorf("categories = %v, want Eventbrite id 101", gotQuery["categories"])
	}

	if len(res.Events) != 1 {
		t.Fatalf("got %d events", len(res.Events))
	}
	ev := res.Events[0]

	if ev.ExternalID != "eventbrite_7754321" {
		t.Errorf("ExternalID = %q", ev.ExternalID)
	}
	if ev.Title != "Founders Breakfast & Networking" {
		t.Errorf("entities not unescaped: %q", ev.Title)
	}
	if ev.Category != models.CategoryBusiness {
		t.Errorf("Category = %q", ev.Category)
	}
	if ev.Image != "https://img.evbuc.com/original.jpg" {
		t.Errorf("original logo preferred, got %q", ev.Image)
	}
	if ev.PriceRange == nil || ev.PriceRange.Min != 15 || ev.PriceRange.Max != 15 {
		t.Errorf("PriceRange = %+v", ev.PriceRange)
	}
	if ev.Price != "$15" {
		t.Errorf("Price display = %q", ev.Price)
	}
	if ev.Organizer.Name != "BK Founders Club" || ev.Organizer.Avatar == "" {
		t.Errorf("Organizer = %+v", ev.Organizer)
	}
}

func TestEventbriteFreeEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"events":[{"id":"1","name":{"text":"Open Gallery Night"},"description":{"text":"Come by"},"start":{"utc":"2026-10-02T23:00:00Z"},"is_free":true}],"pagination":{"object_count":1}}`))
	}))
	defer srv.Close()

	eb := NewEventbrite(srv.URL, "t", testLimiter(), 5*time.Second, testLogger())
	res, err := eb.Search(context.Background(), models.SearchParams{Limit: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Events[0].Price != models.PriceFree {
		t.Errorf("Price = %q, want %q", res.Events[0].Price, models.PriceFree)
	}
}
