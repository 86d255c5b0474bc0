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

const eventbriteMaxSize = 200

type Eventbrite struct {
	baseURL string
	token   string
	http    *httpClient
	logger  *slog.Logger
}

func NewEventbrite(baseURL, token string, limiter *ratelimit.Limiter, timeout time.Duration, logger *slog.Logger) *Eventbrite {
	if baseURL == "" {
		baseURL = "https://www.eventbriteapi.com"
	}
	return &Eventbrite{
		baseURL: baseURL,
		token:   token,
		http:    newHTTPClient(models.SourceEventbrite, timeout, limiter, logger),
		logger:  logger,
	}
}

func (e *Eventbrite) Name() string { return models.SourceEventbrite }

// Eventbrite's category filter takes numeric ids.
var eventbriteCategories = map[string]string{
	models.CategoryMusic:     "103",
	models.CategoryBusiness:  "101",
	models.CategoryArts:      "105",
	models.CategorySports:    "108",
	models.CategoryFamily:    "115",
	models.CategoryNightlife: "104",
}

func (e *Eventbrite) Search(ctx context.Context, params models.SearchParams) (*Result, error) {
	q := url.Values{}
	q.Set("expand", "venue,organizer,ticket_availability")
	q.Set("page_size", strconv.Itoa(clampLimit(params.Limit, eventbriteMaxSize)))

	if params.Query != "" {
		q.Set("q", params.Query)
	}
	if params.HasPoint() {
		q.Set("location.latitude", fmt.Sprintf("%f", *params.Lat))
		q.Set("location.longitude", fmt.Sprintf("%f", *params.Lng))
		radius := params.Radius
		if radius <= 0 {
			radius = 25
		}
		q.Set("location.within", fmt.Sprintf("%dmi", int(radius)))
	}
	if start, end := params.DateRange(); !start.IsZero() || !end.IsZero() {
		// Same strictness as Ticketmaster: seconds precision, Z suffix,
		// no fractional part.
		if !start.IsZero() {
			q.Set("start_date.range_start", start.UTC().Format(ticketmasterTimeLayout))
		}
		if !end.IsZero() {
			q.Set("start_date.range_end", end.UTC().Format(ticketmasterTimeLayout))
		}
	}
	if len(params.Categories) == 1 {
		if id, ok := eventbriteCategories[params.Categories[0]]; ok {
			q.Set("categories", id)
		}
	}

	headers := map[string]string{"Authorization": "Bearer " + e.token}
	body, err := e.http.get(ctx, e.baseURL+"/v3/events/search/?"+q.Encode(), headers)
	if err != nil {
		return nil, err
	}

	var payload ebResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &UpstreamError{Provider: e.Name(), Kind: KindServer, Msg: "unreadable response: " + err.Error()}
	}

	events := make([]models.CanonicalEvent, 0, len(payload.Events))
	for _, raw := range payload.Events {
		ev, err := e.transform(raw)
		if err != nil {
			e.logger.Debug("skipping malformed eventbrite record", "id", raw.ID, "error", err)
			continue
		}
		events = append(events, ev)
	}
	return &Result{Events: events, TotalCount: payload.Pagination.ObjectCount}, nil
}

type ebResponse struct {
	Events     []ebEvent `json:"events"`
	Pagination struct {
		ObjectCount int `json:"object_count"`
	} `json:"pagination"`
}

type ebEvent struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Name struct {
		Text string `json:"text"`
	} `json:"name"`
	Description struct {
		Text string `json:"text"`
	} `json:"description"`
	Start struct {
		UTC string `json:"utc"`
	} `json:"start"`
	IsFree bool `json:"is_free"`
	Logo   struct {
		URL      string `json:"url"`
		Original struct {
			URL string `json:"url"`
		} `json:"original"`
	} `json:"logo"`
	CategoryID string `json:"category_id"`
	Venue      struct {
		Name    string `json:"name"`
		Address struct {
			LocalizedAddressDisplay string `json:"localized_address_display"`
		} `json:"address"`
		Latitude  string `json:"latitude"`
		Longitude string `json:"longitude"`
	} `json:"venue"`
	Organizer struct {
		Name string `json:"name"`
		Logo struct {
			URL string `json:"url"`
		} `json:"logo"`
	} `json:"organizer"`
	TicketAvailability struct {
		MinimumTicketPrice *ebPrice `json:"minimum_ticket_price"`
		MaximumTicketPrice *ebPrice `json:"maximum_ticket_price"`
	} `json:"ticket_availability"`
}

type ebPrice struct {
	Currency string `json:"currency"`
	// MajorValue is a decimal string such as "25.00".
	MajorValue string `json:"major_value"`
}

func (e *Eventbrite) transform(raw ebEvent) (models.CanonicalEvent, error) {
	if raw.ID == "" || raw.Name.Text == "" {
		return models.CanonicalEvent{}, fmt.Errorf("missing id or name")
	}

	externalID := models.SourceEventbrite + "_" + raw.ID
	ev := models.CanonicalEvent{
		ID:         models.NumericID(externalID),
		ExternalID: externalID,
		Title:      helpers.SanitizeText(raw.Name.Text),
		Source:     models.SourceEventbrite,
		Location:   raw.Venue.Name,
		Address:    raw.Venue.Address.LocalizedAddressDisplay,
		Attendees:  syntheticAttendees(externalID),
	}

	if raw.Description.Text == "" {
		ev.Description = models.DefaultDescription
	} else {
		ev.Description = helpers.ClampText(helpers.SanitizeText(raw.Description.Text), helpers.MaxDescriptionLength)
	}

	starts, err := time.Parse(time.RFC3339, raw.Start.UTC)
	if err != nil {
		return models.CanonicalEvent{}, fmt.Errorf("bad start time: %w", err)
	}
	ev.SetStartsAt(starts)

	ev.Category = ebCategory(raw.CategoryID)

	if lat, err1 := strconv.ParseFloat(raw.Venue.Latitude, 64); err1 == nil {
		if lng, err2 := strconv.ParseFloat(raw.Venue.Longitude, 64); err2 == nil {
			c := models.Coordinates{Latitude: lat, Longitude: lng}
			if c.Valid() {
				ev.Coordinates = &c
			}
		}
	}

	ev.Price, ev.PriceRange = e.resolveEbPrice(raw, ev.Category, ev.Location)

	image := firstNonEmpty(raw.Logo.Original.URL, raw.Logo.URL)
	if helpers.IsPlausibleImageURL(image) {
		ev.Image = image
	}
	ev.Organizer = models.Organizer{
		Name:   firstNonEmpty(raw.Organizer.Name, "Eventbrite"),
		Avatar: raw.Organizer.Logo.URL,
	}
	if raw.URL != "" {
		ev.TicketLinks = []models.TicketLink{{Source: models.SourceEventbrite, Link: raw.URL}}
	}
	return ev, nil
}

func (e *Eventbrite) resolveEbPrice(raw ebEvent, category, venue string) (string, *models.PriceRange) {
	if raw.IsFree {
		return models.PriceFree, &models.PriceRange{Currency: "USD"}
	}
	var explicit *models.PriceRange
	ta := raw.TicketAvailability
	if ta.MinimumTicketPrice != nil && ta.MaximumTicketPrice != nil {
		min, err1 := strconv.ParseFloat(ta.MinimumTicketPrice.MajorValue, 64)
		max, err2 := strconv.ParseFloat(ta.MaximumTicketPrice.MajorValue, 64)
		if err1 == nil && err2 == nil && min <= max {
			explicit = &models.PriceRange{Min: min, Max: max, Currency: firstNonEmpty(ta.MinimumTicketPrice.Currency, "USD")}
		}
	}
	return resolvePrice(explicit, []string{raw.Description.Text}, category, venue)
}

func ebCategory(id string) string {
	switch id {
	case "103":
		return models.CategoryMusic
	case "101":
		return models.CategoryBusiness
	case "105":
		return models.CategoryArts
	case "108":
		return models.CategorySports
	case "115":
		return models.CategoryFamily
	case "104":
		return models.CategoryNightlife
	case "110":
		return models.CategoryBrunch
	default:
		return models.CategoryEvent
	}
}
