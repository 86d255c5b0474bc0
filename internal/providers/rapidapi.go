package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bestfriendai/newevents-api/internal/helpers"
	"github.com/bestfriendai/newevents-api/internal/models"
	"github.com/bestfriendai/newevents-api/internal/ratelimit"
	"github.com/goccy/go-json"
)

const rapidAPIMaxResults = 100

// RapidAPI wraps the real-time events search API on the RapidAPI
// marketplace. Unlike the other providers it has no geo-radius parameter;
// location goes into the free-text query and the aggregator's haversine
// filter does the actual cut.
type RapidAPI struct {
	baseURL string
	apiKey  string
	host    string
	http    *httpClient
	logger  *slog.Logger
}

func NewRapidAPI(baseURL, apiKey, host string, limiter *ratelimit.Limiter, timeout time.Duration, logger *slog.Logger) *RapidAPI {
	if host == "" {
		host = "real-time-events-search.p.rapidapi.com"
	}
	if baseURL == "" {
		baseURL = "https://" + host
	}
	return &RapidAPI{
		baseURL: baseURL,
		apiKey:  apiKey,
		host:    host,
		http:    newHTTPClient(models.SourceRapidAPI, timeout, limiter, logger),
		logger:  logger,
	}
}

func (r *RapidAPI) Name() string { return models.SourceRapidAPI }

func (r *RapidAPI) Search(ctx context.Context, params models.SearchParams) (*Result, error) {
	query := params.Query
	if query == "" {
		query = "events"
	}
	if params.HasPoint() {
		query = fmt.Sprintf("%s near %.4f,%.4f", query, *params.Lat, *params.Lng)
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("start", strconv.Itoa(params.Offset))
	if bucket := rapidDateBucket(params); bucket != "" {
		q.Set("date", bucket)
	}

	headers := map[string]string{
		"X-RapidAPI-Key":  r.apiKey,
		"X-RapidAPI-Host": r.host,
	}
	body, err := r.http.get(ctx, r.baseURL+"/search-events?"+q.Encode(), headers)
	if err != nil {
		return nil, err
	}

	var payload rapidResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &UpstreamError{Provider: r.Name(), Kind: KindServer, Msg: "unreadable response: " + err.Error()}
	}

	limit := clampLimit(params.Limit, rapidAPIMaxResults)
	events := make([]models.CanonicalEvent, 0, len(payload.Data))
	for _, raw := range payload.Data {
		if len(events) >= limit {
			break
		}
		ev, err := r.transform(raw)
		if err != nil {
			r.logger.Debug("skipping malformed rapidapi record", "id", raw.EventID, "error", err)
			continue
		}
		events = append(events, ev)
	}
	return &Result{Events: events, TotalCount: len(payload.Data)}, nil
}

// rapidDateBucket maps a concrete date range onto the API's coarse named
// buckets; it only understands things like "today" and "week".
func rapidDateBucket(params models.SearchParams) string {
	start, end := params.DateRange()
	if start.IsZero() && end.IsZero() {
		return "any"
	}
	now := time.Now()
	if !end.IsZero() {
		switch {
		case end.Before(now.Add(48 * time.Hour)):
			return "today"
		case end.Before(now.Add(8 * 24 * time.Hour)):
			return "week"
		case end.Before(now.Add(32 * 24 * time.Hour)):
			return "month"
		}
	}
	return "any"
}

type rapidResponse struct {
	Data []rapidEvent `json:"data"`
}

type rapidEvent struct {
	EventID     string   `json:"event_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Link        string   `json:"link"`
	StartTime   string   `json:"start_time"`
	Thumbnail   string   `json:"thumbnail"`
	Tags        []string `json:"tags"`
	Venue       struct {
		Name        string  `json:"name"`
		FullAddress string  `json:"full_address"`
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
	} `json:"venue"`
	TicketLinks []struct {
		Source string `json:"source"`
		Link   string `json:"link"`
	} `json:"ticket_links"`
	Publisher string `json:"publisher"`
}

func (r *RapidAPI) transform(raw rapidEvent) (models.CanonicalEvent, error) {
	if raw.EventID == "" || raw.Name == "" {
		return models.CanonicalEvent{}, fmt.Errorf("missing id or name")
	}

	externalID := models.SourceRapidAPI + "_" + raw.EventID
	ev := models.CanonicalEvent{
		ID:         models.NumericID(externalID),
		ExternalID: externalID,
		Title:      helpers.SanitizeText(raw.Name),
		Source:     models.SourceRapidAPI,
		Location:   raw.Venue.Name,
		Address:    raw.Venue.FullAddress,
		Attendees:  syntheticAttendees(externalID),
	}

	if raw.Description == "" {
		ev.Description = models.DefaultDescription
	} else {
		ev.Description = helpers.ClampText(helpers.SanitizeText(raw.Description), helpers.MaxDescriptionLength)
	}

	starts, err := parseRapidTime(raw.StartTime)
	if err != nil {
		return models.CanonicalEvent{}, err
	}
	ev.SetStartsAt(starts)

	ev.Category = rapidCategory(raw.Tags)

	// A zero pair here almost always means "unknown", not Null Island.
	if raw.Venue.Latitude != 0 || raw.Venue.Longitude != 0 {
		c := models.Coordinates{Latitude: raw.Venue.Latitude, Longitude: raw.Venue.Longitude}
		if c.Valid() {
			ev.Coordinates = &c
		}
	}

	ev.Price, ev.PriceRange = resolvePrice(nil, []string{raw.Description}, ev.Category, ev.Location)

	if helpers.IsPlausibleImageURL(raw.Thumbnail) {
		ev.Image = raw.Thumbnail
	}
	ev.Organizer = models.Organizer{Name: firstNonEmpty(raw.Publisher, "RapidAPI Events")}

	// At most one link per distinct platform, primary link first.
	seen := map[string]bool{}
	if raw.Link != "" {
		ev.TicketLinks = append(ev.TicketLinks, models.TicketLink{Source: models.SourceRapidAPI, Link: raw.Link})
		seen[models.SourceRapidAPI] = true
	}
	for _, tl := range raw.TicketLinks {
		src := strings.ToLower(firstNonEmpty(tl.Source, "other"))
		if tl.Link == "" || seen[src] {
			continue
		}
		seen[src] = true
		ev.TicketLinks = append(ev.TicketLinks, models.TicketLink{Source: src, Link: tl.Link})
	}
	return ev, nil
}

func parseRapidTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("no start time")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable start time %q", s)
}

func rapidCategory(tags []string) string {
	for _, tag := range tags {
		switch strings.ToLower(tag) {
		case "music", "concert", "concerts":
			return models.CategoryMusic
		case "sports", "sport":
			return models.CategorySports
		case "show", "shows", "art", "theater", "theatre":
			return models.CategoryArts
		case "festival", "festivals":
			return models.CategoryFestival
		case "nightlife", "party", "club":
			return models.CategoryNightlife
		case "family", "kids":
			return models.CategoryFamily
		case "business", "conference", "networking":
			return models.CategoryBusiness
		case "brunch", "food-and-drink":
			return models.CategoryBrunch
		}
	}
	return models.CategoryEvent
}
