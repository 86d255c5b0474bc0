package container

import (
	"log/slog"
	"time"

	"github.com/bestfriendai/newevents-api/internal/cache"
	"github.com/bestfriendai/newevents-api/internal/config"
	"github.com/bestfriendai/newevents-api/internal/enrich"
	"github.com/bestfriendai/newevents-api/internal/geocode"
	"github.com/bestfriendai/newevents-api/internal/models"
	"github.com/bestfriendai/newevents-api/internal/providers"
	"github.com/bestfriendai/newevents-api/internal/ratelimit"
	"github.com/bestfriendai/newevents-api/internal/services"
	"github.com/supabase-community/supabase-go"
)

// Documented quota tiers per provider. MinSpacing smooths bursts so a
// single search storm cannot exhaust a window instantly.
var providerLimits = map[string]ratelimit.Limits{
	models.SourceTicketmaster: {PerSecond: 5, PerDay: 5000, MinSpacing: 500 * time.Millisecond},
	models.SourceRapidAPI:     {PerSecond: 10, PerMinute: 300, PerDay: 1000, MinSpacing: 500 * time.Millisecond},
	models.SourceEventbrite:   {PerSecond: 3, PerMinute: 30, PerDay: 48000, MinSpacing: 500 * time.Millisecond},
}

// Container holds all application dependencies, constructed once at process
// start and handed to request handlers.
type Container struct {
	Logger         *slog.Logger
	SupabaseClient *supabase.Client
	EventsService  *services.UnifiedEventsService
	Geocoder       geocode.Geocoder
	Limiters       map[string]*ratelimit.Limiter
}

// NewContainer wires repositories, rate limiters, provider adapters,
// enrichment and the aggregator. Providers with missing credentials are
// skipped with a warning; the search degrades instead of failing.
func NewContainer(cfg *config.Config, logger *slog.Logger, supabaseClient *supabase.Client) *Container {
	limiters := make(map[string]*ratelimit.Limiter, len(providerLimits))
	for name, limits := range providerLimits {
		limiters[name] = ratelimit.New(name, limits)
	}

	var adapters []providers.Adapter
	if cfg.TicketmasterAPIKey != "" {
		adapters = append(adapters, providers.NewTicketmaster(
			"", cfg.TicketmasterAPIKey, limiters[models.SourceTicketmaster], cfg.ProviderTimeout, logger))
	} else {
		logger.Warn("TICKETMASTER_API_KEY not set, skipping Ticketmaster provider")
	}
	if cfg.RapidAPIKey != "" {
		adapters = append(adapters, providers.NewRapidAPI(
			"", cfg.RapidAPIKey, cfg.RapidAPIHost, limiters[models.SourceRapidAPI], cfg.ProviderTimeout, logger))
	} else {
		logger.Warn("RAPIDAPI_KEY not set, skipping RapidAPI events provider")
	}
	if cfg.EventbriteToken != "" {
		adapters = append(adapters, providers.NewEventbrite(
			"", cfg.EventbriteToken, limiters[models.SourceEventbrite], cfg.ProviderTimeout, logger))
	} else {
		logger.Warn("EVENTBRITE_TOKEN not set, skipping Eventbrite provider")
	}

	var geocoder geocode.Geocoder
	if cfg.MapboxToken != "" {
		geocoder = geocode.NewMapbox("", cfg.MapboxToken, cfg.ProviderTimeout)
	} else {
		logger.Warn("MAPBOX_TOKEN not set, geocoding disabled")
	}

	var eventsRepo models.EventsRepo
	if supabaseClient != nil {
		eventsRepo = models.SupabaseNewRepo(supabaseClient)
	}

	eventsService := services.NewUnifiedEventsService(
		adapters,
		eventsRepo,
		cache.New(cfg.CacheTTL),
		enrich.NewEnricher(geocoder, logger),
		services.NewFallbackGenerator(),
		logger,
	)

	return &Container{
		Logger:         logger,
		SupabaseClient: supabaseClient,
		EventsService:  eventsService,
		Geocoder:       geocoder,
		Limiters:       limiters,
	}
}
