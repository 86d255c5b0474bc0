package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bestfriendai/newevents-api/internal/cache"
	"github.com/bestfriendai/newevents-api/internal/enrich"
	"github.com/bestfriendai/newevents-api/internal/helpers"
	"github.com/bestfriendai/newevents-api/internal/metrics"
	"github.com/bestfriendai/newevents-api/internal/models"
	"github.com/bestfriendai/newevents-api/internal/providers"
)

const (
	defaultLimit           = 20
	defaultRadius          = 25 // miles
	defaultProviderTimeout = 10 * time.Second
	persistTimeout         = 15 * time.Second
	minTitleLength         = 3
)

// UnifiedEventsService orchestrates one search: cache tiers, concurrent
// provider fan-out, enrichment, dedupe/filter/sort/paginate, background
// persistence, and the mock fallback when nothing real is available.
type UnifiedEventsService struct {
	adapters        []providers.Adapter
	eventsRepo      models.EventsRepo // nil when the store is not configured
	responseCache   *cache.ResponseCache
	enricher        *enrich.Enricher
	fallback        *FallbackGenerator
	logger          *slog.Logger
	providerTimeout time.Duration

	// persistWG lets tests wait for the fire-and-forget store writes.
	persistWG sync.WaitGroup
}

func NewUnifiedEventsService(
	adapters []providers.Adapter,
	eventsRepo models.EventsRepo,
	responseCache *cache.ResponseCache,
	enricher *enrich.Enricher,
	fallback *FallbackGenerator,
	logger *slog.Logger,
) *UnifiedEventsService {
	return &UnifiedEventsService{
		adapters:        adapters,
		eventsRepo:      eventsRepo,
		responseCache:   responseCache,
		enricher:        enricher,
		fallback:        fallback,
		logger:          logger,
		providerTimeout: defaultProviderTimeout,
	}
}

// SearchEvents runs one full aggregation pass. The only hard error it
// returns is parameter validation; every upstream problem degrades to a
// soft error inside the response.
func (s *UnifiedEventsService) SearchEvents(ctx context.Context, params models.SearchParams) (*models.UnifiedEventsResponse, error) {
	started := time.Now()
	defer func() {
		metrics.SearchDuration.Observe(time.Since(started).Seconds())
	}()

	if err := s.validate(&params); err != nil {
		return nil, err
	}

	// Tier (a): identical query inside the TTL window.
	key := cache.Key(params)
	if !params.ForceRefresh {
		if cached, ok := s.responseCache.Get(key); ok {
			metrics.CacheLookups.WithLabelValues("memory", "hit").Inc()
			return cached, nil
		}
	}
	metrics.CacheLookups.WithLabelValues("memory", "miss").Inc()

	// Tier (b) and live providers run together. The store is additive: a
	// warm hit never suppresses the live fetch, trading latency for
	// freshness.
	stored := s.queryStore(ctx, params)
	results := s.fanOut(ctx, params)

	merged := make([]models.CanonicalEvent, 0, len(stored)+len(results)*8)
	merged = append(merged, stored...)

	sources := make(map[string]int, len(s.adapters)+2)
	var softErrors []string
	for _, res := range results {
		sources[res.source] = 0
		if res.err != nil {
			softErrors = append(softErrors, res.err.Error())
			metrics.ProviderRequests.WithLabelValues(res.source, "error").Inc()
			s.logger.Warn("provider search failed", "provider", res.source, "error", res.err)
			continue
		}
		metrics.ProviderRequests.WithLabelValues(res.source, "ok").Inc()
		merged = append(merged, res.events...)
		s.persistAsync(res.source, res.events)
	}

	deduped := Deduplicate(merged)
	deduped = s.enricher.EnhanceBatch(ctx, deduped)
	filtered := s.filter(deduped, params)
	s.sortEvents(filtered, params)

	for _, ev := range filtered {
		sources[ev.Source]++
	}

	page, hasMore := paginate(filtered, params.Offset, params.Limit)

	resp := &models.UnifiedEventsResponse{
		Events:     page,
		TotalCount: len(filtered),
		HasMore:    hasMore,
		Sources:    sources,
		Error:      strings.Join(softErrors, "; "),
	}

	if len(page) == 0 && params.Offset == 0 {
		// Never hand the UI an empty state: synthesize mock events and
		// say so.
		metrics.FallbackServed.Inc()
		mock := s.fallback.Generate(params, params.Limit)
		resp.Events = mock
		resp.TotalCount = len(mock)
		resp.HasMore = false
		resp.Fallback = true
		resp.Sources[models.SourceMock] = len(mock)
		if resp.Error == "" {
			resp.Error = "no live events found; showing illustrative data"
		}
		return resp, nil
	}

	s.responseCache.Set(key, resp)
	return resp, nil
}

func (s *UnifiedEventsService) validate(params *models.SearchParams) error {
	if err := models.Validate.Struct(params); err != nil {
		return fmt.Errorf("invalid search parameters: %w", err)
	}
	if (params.Lat == nil) != (params.Lng == nil) {
		return fmt.Errorf("invalid search parameters: lat and lng must be provided together")
	}
	if params.PriceMin != nil && params.PriceMax != nil && *params.PriceMin > *params.PriceMax {
		return fmt.Errorf("invalid search parameters: priceMin exceeds priceMax")
	}
	if start, end := params.DateRange(); !start.IsZero() && !end.IsZero() && start.After(end) {
		return fmt.Errorf("invalid search parameters: startDate is after endDate")
	}
	if params.Limit == 0 {
		params.Limit = defaultLimit
	}
	if params.Radius == 0 {
		params.Radius = defaultRadius
	}
	if params.SortBy == "" {
		params.SortBy = models.SortByDate
	}
	return nil
}

func (s *UnifiedEventsService) queryStore(ctx context.Context, params models.SearchParams) []models.CanonicalEvent {
	if s.eventsRepo == nil || !params.HasPoint() {
		return nil
	}
	minLat, maxLat, minLng, maxLng := helpers.BoundingBoxAround(*params.Lat, *params.Lng, params.Radius)
	start, end := params.DateRange()
	stored, err := s.eventsRepo.QueryRegion(ctx, models.BoundingBox{
		MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng,
	}, params.Categories, start, end, params.Limit*2)
	if err != nil {
		// Store problems never fail the search.
		metrics.CacheLookups.WithLabelValues("store", "error").Inc()
		s.logger.Warn("stored events query failed", "error", err)
		return nil
	}
	if len(stored) > 0 {
		metrics.CacheLookups.WithLabelValues("store", "hit").Inc()
	} else {
		metrics.CacheLookups.WithLabelValues("store", "miss").Inc()
	}
	return stored
}

type providerResult struct {
	source string
	events []models.CanonicalEvent
	err    error
}

// fanOut queries every adapter concurrently and waits for all of them to
// settle. Each call carries its own timeout so a hung provider cannot
// stall the rest, and a panic inside one adapter is contained.
func (s *UnifiedEventsService) fanOut(ctx context.Context, params models.SearchParams) []providerResult {
	results := make([]providerResult, len(s.adapters))
	var wg sync.WaitGroup
	for i, adapter := range s.adapters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = providerResult{source: adapter.Name(), err: fmt.Errorf("%s: panic: %v", adapter.Name(), r)}
				}
			}()

			callCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
			defer cancel()

			res, err := adapter.Search(callCtx, params)
			if err != nil {
				results[i] = providerResult{source: adapter.Name(), err: err}
				return
			}
			results[i] = providerResult{source: adapter.Name(), events: res.Events}
		}()
	}
	wg.Wait()
	return results
}

// persistAsync fire-and-forgets a store write of freshly fetched events.
// Failures are logged and swallowed.
func (s *UnifiedEventsService) persistAsync(source string, events []models.CanonicalEvent) {
	if s.eventsRepo == nil || len(events) == 0 {
		return
	}
	s.persistWG.Add(1)
	go func() {
		defer s.persistWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		inserted, err := s.eventsRepo.InsertNew(ctx, events)
		if err != nil {
			s.logger.Warn("event persistence failed", "provider", source, "error", err)
			return
		}
		if inserted > 0 {
			s.logger.Debug("persisted new events", "provider", source, "count", inserted)
		}
	}()
}

// WaitForPersistence blocks until in-flight background store writes finish.
func (s *UnifiedEventsService) WaitForPersistence() {
	s.persistWG.Wait()
}

// Deduplicate collapses duplicates keeping first-seen order. The key is the
// ExternalID when present, otherwise a composite of normalized title, start
// date and location so the same event surfaced by two providers collapses.
func Deduplicate(events []models.CanonicalEvent) []models.CanonicalEvent {
	seen := make(map[string]bool, len(events))
	out := make([]models.CanonicalEvent, 0, len(events))
	for _, ev := range events {
		// Both keys are checked: the composite catches the same event
		// surfaced by two providers under different external ids.
		ck := compositeKey(ev)
		if seen[ck] || (ev.ExternalID != "" && seen[ev.ExternalID]) {
			continue
		}
		seen[ck] = true
		if ev.ExternalID != "" {
			seen[ev.ExternalID] = true
		}
		out = append(out, ev)
	}
	return out
}

func compositeKey(ev models.CanonicalEvent) string {
	return helpers.NormalizeKey(ev.Title) + "|" + ev.StartsAt.UTC().Format("2006-01-02") + "|" + helpers.NormalizeKey(ev.Location)
}

func (s *UnifiedEventsService) filter(events []models.CanonicalEvent, params models.SearchParams) []models.CanonicalEvent {
	start, end := params.DateRange()
	categories := map[string]bool{}
	for _, c := range params.Categories {
		categories[strings.ToLower(c)] = true
	}

	out := make([]models.CanonicalEvent, 0, len(events))
	for _, ev := range events {
		if !qualityOK(ev) {
			continue
		}
		// Geo filter. Events without coordinates are retained on purpose:
		// coordinate absence is common and dropping them silently biases
		// results toward well-geocoded providers.
		if params.HasPoint() && params.Radius > 0 && ev.Coordinates != nil {
			d := helpers.HaversineMiles(*params.Lat, *params.Lng, ev.Coordinates.Latitude, ev.Coordinates.Longitude)
			if d > params.Radius {
				continue
			}
		}
		if len(categories) > 0 && !categories[strings.ToLower(ev.Category)] {
			continue
		}
		// Price filter applies only to events with a resolved range;
		// unknown prices are retained like unknown coordinates.
		if ev.PriceRange != nil {
			if params.PriceMin != nil && ev.PriceRange.Max < *params.PriceMin {
				continue
			}
			if params.PriceMax != nil && ev.PriceRange.Min > *params.PriceMax {
				continue
			}
		}
		if !start.IsZero() && ev.StartsAt.Before(start) {
			continue
		}
		if !end.IsZero() && ev.StartsAt.After(end) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// qualityOK excludes clearly broken records: a real title, a resolved
// start time, and either an actual description or at least one ticket link.
func qualityOK(ev models.CanonicalEvent) bool {
	if len([]rune(strings.TrimSpace(ev.Title))) < minTitleLength {
		return false
	}
	if ev.StartsAt.IsZero() {
		return false
	}
	hasDescription := ev.Description != "" && ev.Description != models.DefaultDescription
	return hasDescription || len(ev.TicketLinks) > 0
}

func (s *UnifiedEventsService) sortEvents(events []models.CanonicalEvent, params models.SearchParams) {
	desc := params.SortOrder == "desc"
	less := func(a, b models.CanonicalEvent) bool { return a.StartsAt.Before(b.StartsAt) }

	switch params.SortBy {
	case models.SortByDistance:
		if params.HasPoint() {
			lat, lng := *params.Lat, *params.Lng
			less = func(a, b models.CanonicalEvent) bool {
				return distanceOrInf(a, lat, lng) < distanceOrInf(b, lat, lng)
			}
		}
	case models.SortByPrice:
		less = func(a, b models.CanonicalEvent) bool {
			return priceOrInf(a) < priceOrInf(b)
		}
	case models.SortByPopularity:
		// Attendee counts are synthetic display estimates; this sort is a
		// naive proxy, not a ranking signal.
		less = func(a, b models.CanonicalEvent) bool { return a.Attendees > b.Attendees }
	case models.SortByRelevance:
		query := strings.ToLower(params.Query)
		less = func(a, b models.CanonicalEvent) bool {
			return relevanceScore(a, query) > relevanceScore(b, query)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if desc {
			return less(events[j], events[i])
		}
		return less(events[i], events[j])
	})
}

// Events missing the sort attribute go last regardless of order.
const sortInf = 1e18

func distanceOrInf(ev models.CanonicalEvent, lat, lng float64) float64 {
	if ev.Coordinates == nil {
		return sortInf
	}
	return helpers.HaversineMiles(lat, lng, ev.Coordinates.Latitude, ev.Coordinates.Longitude)
}

func priceOrInf(ev models.CanonicalEvent) float64 {
	if ev.PriceRange == nil {
		return sortInf
	}
	return ev.PriceRange.Min
}

func relevanceScore(ev models.CanonicalEvent, query string) int {
	if query == "" {
		return 0
	}
	score := 0
	title := strings.ToLower(ev.Title)
	desc := strings.ToLower(ev.Description)
	for _, term := range strings.Fields(query) {
		if strings.Contains(title, term) {
			score += 3
		}
		if strings.Contains(desc, term) {
			score++
		}
	}
	return score
}

func paginate(events []models.CanonicalEvent, offset, limit int) ([]models.CanonicalEvent, bool) {
	if offset >= len(events) {
		return []models.CanonicalEvent{}, false
	}
	end := offset + limit
	if end > len(events) {
		end = len(events)
	}
	return events[offset:end], end < len(events)
}
