package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/bestfriendai/newevents-api/internal/helpers"
	"github.com/bestfriendai/newevents-api/internal/models"
	"github.com/bestfriendai/newevents-api/internal/ratelimit"
	"github.com/goccy/go-json"
)

// Discovery API caps page size at 199; size=200 is rejected.
const ticketmasterMaxSize = 199

// The Discovery API requires start/end datetimes in exactly this shape.
// RFC 3339 with fractional seconds causes a silent 400.
const ticketmasterTimeLayout = "2006-01-02T15:04:05Z"

type Ticketmaster struct {
	baseURL string
	apiKey  string
	http    *httpClient
	logger  *slog.Logger
}

func NewTicketmaster(baseURL, apiKey string, limiter *ratelimit.Limiter, timeout time.Duration, logger *slog.Logger) *Ticketmaster {
	if baseURL == "" {
		baseURL = "https://app.ticketmaster.com"
	}
	return &Ticketmaster{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    newHTTPClient(models.SourceTicketmaster, timeout, limiter, logger),
		logger:  logger,
	}
}

func (t *Ticketmaster) Name() string { return models.SourceTicketmaster }

// Segment names understood by the Discovery classification filter.
var ticketmasterSegments = map[string]string{
	models.CategoryMusic:  "Music",
	models.CategorySports: "Sports",
	models.CategoryArts:   "Arts & Theatre",
	models.CategoryFamily: "Family",
}

func (t *Ticketmaster) Search(ctx context.Context, params models.SearchParams) (*Result, error) {
	q := url.Values{}
	q.Set("apikey", t.apiKey)
	q.Set("size", strconv.Itoa(clampLimit(params.Limit, ticketmasterMaxSize)))
	q.Set("sort", "date,asc")

	if params.Query != "" {
		q.Set("keyword", params.Query)
	}
	if params.HasPoint() {
		q.Set("latlong", fmt.Sprintf("%f,%f", *params.Lat, *params.Lng))
		radius := params.Radius
		if radius <= 0 {
			radius = 25
		}
		q.Set("radius", strconv.Itoa(int(radius)))
		q.Set("unit", "miles")
	}
	if start, end := params.DateRange(); !start.IsZero() || !end.IsZero() {
		if !start.IsZero() {
			q.Set("startDateTime", start.UTC().Format(ticketmasterTimeLayout))
		}
		if !end.IsZero() {
			q.Set("endDateTime", end.UTC().Format(ticketmasterTimeLayout))
		}
	}
	if len(params.Categories) == 1 {
		if seg, ok := ticketmasterSegments[params.Categories[0]]; ok {
			q.Set("classificationName", seg)
		}
	}

	body, err := t.http.get(ctx, t.baseURL+"/discovery/v2/events.json?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var payload tmResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &UpstreamError{Provider: t.Name(), Kind: KindServer, Msg: "unreadable response: " + err.Error()}
	}

	events := make([]models.CanonicalEvent, 0, len(payload.Embedded.Events))
	for _, raw := range payload.Embedded.Events {
		ev, err := t.transform(raw)
		if err != nil {
			t.logger.Debug("skipping malformed ticketmaster record", "id", raw.ID, "error", err)
			continue
		}
		events = append(events, ev)
	}
	return &Result{Events: events, TotalCount: payload.Page.TotalElements}, nil
}

type tmResponse struct {
	Embedded struct {
		Events []tmEvent `json:"events"`
	} `json:"_embedded"`
	Page struct {
		TotalElements int `json:"totalElements"`
	} `json:"page"`
}

type tmEvent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Info        string `json:"info"`
	Description string `json:"description"`
	PleaseNote  string `json:"pleaseNote"`
	Images      []struct {
		URL    string `json:"url"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	} `json:"images"`
	Dates struct {
		Start struct {
			DateTime  string `json:"dateTime"`
			LocalDate string `json:"localDate"`
			LocalTime string `json:"localTime"`
		} `json:"start"`
	} `json:"dates"`
	Classifications []struct {
		Segment struct {
			Name string `json:"name"`
		} `json:"segment"`
	} `json:"classifications"`
	PriceRanges []struct {
		Currency string  `json:"currency"`
		Min      float64 `json:"min"`
		Max      float64 `json:"max"`
	} `json:"priceRanges"`
	Promoter struct {
		Name string `json:"name"`
	} `json:"promoter"`
	Embedded struct {
		Venues []tmVenue `json:"venues"`
	} `json:"_embedded"`
}

type tmVenue struct {
	Name    string `json:"name"`
	Address struct {
		Line1 string `json:"line1"`
	} `json:"address"`
	City struct {
		Name string `json:"name"`
	} `json:"city"`
	State struct {
		StateCode string `json:"stateCode"`
	} `json:"state"`
	Location struct {
		Latitude  string `json:"latitude"`
		Longitude string `json:"longitude"`
	} `json:"location"`
}

func (t *Ticketmaster) transform(raw tmEvent) (models.CanonicalEvent, error) {
	if raw.ID == "" || raw.Name == "" {
		return models.CanonicalEvent{}, fmt.Errorf("missing id or name")
	}

	externalID := models.SourceTicketmaster + "_" + raw.ID
	ev := models.CanonicalEvent{
		ID:         models.NumericID(externalID),
		ExternalID: externalID,
		Title:      helpers.SanitizeText(raw.Name),
		Source:     models.SourceTicketmaster,
		Attendees:  syntheticAttendees(externalID),
	}

	desc := firstNonEmpty(raw.Description, raw.Info, raw.PleaseNote)
	if desc == "" {
		ev.Description = models.DefaultDescription
	} else {
		ev.Description = helpers.ClampText(helpers.SanitizeText(desc), helpers.MaxDescriptionLength)
	}

	starts, err := tmStartTime(raw)
	if err != nil {
		return models.CanonicalEvent{}, err
	}
	ev.SetStartsAt(starts)

	ev.Category = models.CategoryEvent
	if len(raw.Classifications) > 0 {
		ev.Category = tmCategory(raw.Classifications[0].Segment.Name)
	}

	if len(raw.Embedded.Venues) > 0 {
		v := raw.Embedded.Venues[0]
		ev.Location = v.Name
		ev.Address = composeAddress(v.Address.Line1, v.City.Name, v.State.StateCode)
		// Venue geocoding is frequently absent or malformed; a failed
		// parse leaves Coordinates nil rather than pinning 0,0.
		if lat, err1 := strconv.ParseFloat(v.Location.Latitude, 64); err1 == nil {
			if lng, err2 := strconv.ParseFloat(v.Location.Longitude, 64); err2 == nil {
				c := models.Coordinates{Latitude: lat, Longitude: lng}
				if c.Valid() {
					ev.Coordinates = &c
				}
			}
		}
	}

	var explicit *models.PriceRange
	if len(raw.PriceRanges) > 0 {
		pr := raw.PriceRanges[0]
		if pr.Min <= pr.Max {
			explicit = &models.PriceRange{Min: pr.Min, Max: pr.Max, Currency: pr.Currency}
		}
	}
	ev.Price, ev.PriceRange = resolvePrice(explicit, []string{raw.Info, raw.Description}, ev.Category, ev.Location)

	ev.Image = tmBestImage(raw)
	ev.Organizer = models.Organizer{Name: firstNonEmpty(raw.Promoter.Name, "Ticketmaster")}
	if raw.URL != "" {
		ev.TicketLinks = []models.TicketLink{{Source: models.SourceTicketmaster, Link: raw.URL}}
	}
	return ev, nil
}

func tmStartTime(raw tmEvent) (time.Time, error) {
	if raw.Dates.Start.DateTime != "" {
		return time.Parse(time.RFC3339, raw.Dates.Start.DateTime)
	}
	if raw.Dates.Start.LocalDate != "" {
		layout, value := "2006-01-02", raw.Dates.Start.LocalDate
		if raw.Dates.Start.LocalTime != "" {
			layout, value = "2006-01-02 15:04:05", raw.Dates.Start.LocalDate+" "+raw.Dates.Start.LocalTime
		}
		return time.Parse(layout, value)
	}
	return time.Time{}, fmt.Errorf("no start time")
}

func tmCategory(segment string) string {
	switch segment {
	case "Music":
		return models.CategoryMusic
	case "Sports":
		return models.CategorySports
	case "Arts & Theatre", "Film":
		return models.CategoryArts
	case "Family":
		return models.CategoryFamily
	case "Miscellaneous":
		return models.CategoryEvent
	default:
		return models.CategoryEvent
	}
}

// tmBestImage prefers the widest validated image; Ticketmaster ships the
// same artwork at several sizes.
func tmBestImage(raw tmEvent) string {
	best := ""
	bestWidth := 0
	for _, img := range raw.Images {
		if img.Width > bestWidth && helpers.IsPlausibleImageURL(img.URL) {
			best = img.URL
			bestWidth = img.Width
		}
	}
	return best
}

func composeAddress(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += p
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
