package cache

import (
	"testing"
	"time"

	"github.com/bestfriendai/newevents-api/internal/models"
)

func TestKeyIdentity(t *testing.T) {
	lat, lng := 40.7128, -74.0060
	a := models.SearchParams{Query: "jazz", Lat: &lat, Lng: &lng, Radius: 25, Limit: 20}
	b := models.SearchParams{Query: "jazz", Lat: &lat, Lng: &lng, Radius: 25, Limit: 20}
	c := models.SearchParams{Query: "jazz", Lat: &lat, Lng: &lng, Radius: 50, Limit: 20}

	if Key(a) != Key(b) {
		t.Error("identical params must share a key")
	}
	if Key(a) == Key(c) {
		t.Error("any parameter difference must change the key")
	}
}

func TestKeyIgnoresForceRefresh(t *testing.T) {
	a := models.SearchParams{Query: "jazz"}
	b := models.SearchParams{Query: "jazz", ForceRefresh: true}
	if Key(a) != Key(b) {
		t.Error("forceRefresh controls cache behavior, not query identity")
	}
}

func TestGetSetRoundTrip(t *testing.T) {
	c := New(time.Minute)
	resp := &models.UnifiedEventsResponse{TotalCount: 3}

	key := Key(models.SearchParams{Query: "brunch"})
	if _, ok := c.Get(key); ok {
		t.Fatal("unexpected hit before set")
	}
	c.Set(key, resp)
	got, ok := c.Get(key)
	if !ok || got.TotalCount != 3 {
		t.Fatalf("got %+v ok=%v", got, ok)
	}
}

func TestEntriesExpire(t *testing.T) {
	c := New(20 * time.Millisecond)
	key := Key(models.SearchParams{Query: "expiring"})
	c.Set(key, &models.UnifiedEventsResponse{})

	time.Sleep(40 * time.Millisecond)
	if _, ok := c.Get(key); ok {
		t.Error("entry should have expired")
	}
}
