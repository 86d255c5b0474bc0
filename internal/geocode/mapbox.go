// Package geocode wraps the Mapbox forward-geocoding endpoint. It serves
// the UI's free-text location search and the enrichment step's address
// backfill.
package geocode

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
)

type Location struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	DisplayName string  `json:"displayName"`
}

// Geocoder resolves a free-text place or address to coordinates.
type Geocoder interface {
	Forward(ctx context.Context, query string) (*Location, error)
}

type MapboxGeocoder struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewMapbox(baseURL, token string, timeout time.Duration) *MapboxGeocoder {
	if baseURL == "" {
		baseURL = "https://api.mapbox.com"
	}
	return &MapboxGeocoder{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (m *MapboxGeocoder) Forward(ctx context.Context, query string) (*Location, error) {
	if query == "" {
		return nil, fmt.Errorf("empty geocode query")
	}

	endpoint := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json?access_token=%s&limit=1",
		m.baseURL, url.PathEscape(query), url.QueryEscape(m.token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("geocode returned HTTP %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		Features []struct {
			PlaceName string    `json:"place_name"`
			Center    []float64 `json:"center"` // [lng, lat]
		} `json:"features"`
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("unreadable geocode response: %w", err)
	}
	if len(payload.Features) == 0 || len(payload.Features[0].Center) < 2 {
		return nil, fmt.Errorf("no geocode match for %q", query)
	}

	f := payload.Features[0]
	return &Location{Lat: f.Center[1], Lng: f.Center[0], DisplayName: f.PlaceName}, nil
}
