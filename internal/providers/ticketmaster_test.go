package providers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bestfriendai/newevents-api/internal/models"
	"github.com/bestfriendai/newevents-api/internal/ratelimit"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testLimiter() *ratelimit.Limiter {
	return ratelimit.New("test", ratelimit.Limits{})
}

const tmFixture = `{
  "_embedded": {
    "events": [
      {
        "id": "vvG1zZ9pC",
        "name": "The Midnight <b>Live</b>",
        "url": "https://www.ticketmaster.com/event/vvG1zZ9pC",
        "info": "Synthwave night. Tickets $35 - $75.",
        "images": [
          {"url": "https://s1.ticketm.net/dam/small.jpg", "width": 205, "height": 115},
          {"url": "https://s1.ticketm.net/dam/large.jpg", "width": 1024, "height": 576}
        ],
        "dates": {"start": {"dateTime": "2026-09-12T01:00:00Z"}},
        "classifications": [{"segment": {"name": "Music"}}],
        "priceRanges": [{"currency": "USD", "min": 35, "max": 75}],
        "promoter": {"name": "Live Nation"},
        "_embedded": {
          "venues": [{
            "name": "Terminal 5",
            "address": {"line1": "610 W 56th St"},
            "city": {"name": "New York"},
            "state": {"stateCode": "NY"},
            "location": {"latitude": "40.7698", "longitude": "-73.9927"}
          }]
        }
      },
      {
        "id": "brokenRecord",
        "name": "No Date Event",
        "dates": {"start": {}}
      }
    ]
  },
  "page": {"totalElements": 2}
}`

func TestTicketmasterSearchTransformsEvents(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(tmFixture))
	}))
	defer srv.Close()

	tm := NewTicketmaster(srv.URL, "test-key", testLimiter(), 5*time.Second, testLogger())

	lat, lng := 40.7128, -74.0060
	res, err := tm.Search(context.Background(), models.SearchParams{
		Query:     "synthwave",
		Lat:       &lat,
		Lng:       &lng,
		Radius:    25,
		StartDate: "2026-09-01",
		EndDate:   "2026-09-30",
		Limit:     50,
	})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}

	// Request contract.
	if got := gotQuery["latlong"]; len(got) == 0 || !strings.HasPrefix(got[0], "40.7128") {
		t.Errorf("latlong = %v", gotQuery["latlong"])
	}
	if got := gotQuery["unit"]; len(got) == 0 || got[0] != "miles" {
		t.Errorf("unit = %v", gotQuery["unit"])
	}
	start := gotQuery["startDateTime"]
	if len(start) == 0 || strings.Contains(start[0], ".") || !strings.HasSuffix(start[0], "Z") {
		// Millisecond-bearing datetimes cause silent 400s from Discovery.
		t.Errorf("startDateTime = %v, want seconds-precision Z-suffixed", start)
	}

	// The record with no start time is skipped, not fatal.
	if len(res.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(res.Events))
	}
	ev := res.Events[0]

	if ev.ExternalID != "ticketmaster_vvG1zZ9pC" {
		t.Errorf("ExternalID = %q", ev.ExternalID)
	}
	if ev.Source != models.SourceTicketmaster {
		t.Errorf("Source = %q", ev.Source)
	}
	if ev.Title != "The Midnight Live" {
		t.Errorf("HTML not sanitized from title: %q", ev.Title)
	}
	if ev.Category != models.CategoryMusic {
		t.Errorf("Category = %q", ev.Category)
	}
	if ev.StartsAt.IsZero() || ev.Date == "" || ev.Time == "" {
		t.Error("authoritative timestamp and display strings must both be set")
	}
	if ev.Coordinates == nil || ev.Coordinates.Latitude != 40.7698 {
		t.Errorf("Coordinates = %+v", ev.Coordinates)
	}
	if ev.Image != "https://s1.ticketm.net/dam/large.jpg" {
		t.Errorf("expected widest image, got %q", ev.Image)
	}
	if ev.PriceRange == nil || ev.PriceRange.Min != 35 || ev.PriceRange.Max != 75 || ev.PriceRange.Estimated {
		t.Errorf("PriceRange = %+v", ev.PriceRange)
	}
	if len(ev.TicketLinks) != 1 || ev.TicketLinks[0].Source != models.SourceTicketmaster {
		t.Errorf("TicketLinks = %+v", ev.TicketLinks)
	}
}

func TestTicketmasterClampsPageSize(t *testing.T) {
	var size string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		size = r.URL.Query().Get("size")
		_, _ = w.Write([]byte(`{"_embedded":{"events":[]},"page":{"totalElements":0}}`))
	}))
	defer srv.Close()

	tm := NewTicketmaster(srv.URL, "k", testLimiter(), 5*time.Second, testLogger())
	if _, err := tm.Search(context.Background(), models.SearchParams{Limit: 0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if size != "199" {
		t.Errorf("size = %q, want clamped 199", size)
	}
}

func TestTicketmasterClassifiesAuthError(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, `{"fault":"invalid key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	tm := NewTicketmaster(srv.URL, "bad-key", testLimiter(), 5*time.Second, testLogger())
	_, err := tm.Search(context.Background(), models.SearchParams{})

	ue, ok := err.(*UpstreamError)
	if !ok {
		t.Fatalf("expected *UpstreamError, got %v", err)
	}
	if ue.Kind != KindAuth {
		t.Errorf("Kind = %q, want %q", ue.Kind, KindAuth)
	}
	if hits != 1 {
		t.Errorf("4xx must not be retried, server saw %d requests", hits)
	}
}

func TestTicketmasterRetriesServerErrors(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits < 3 {
			http.Error(w, "upstream blew up", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"_embedded":{"events":[]},"page":{"totalElements":0}}`))
	}))
	defer srv.Close()

	tm := NewTicketmaster(srv.URL, "k", testLimiter(), 5*time.Second, testLogger())
	if _, err := tm.Search(context.Background(), models.SearchParams{}); err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if hits != 3 {
		t.Errorf("server saw %d requests, want 3", hits)
	}
}
