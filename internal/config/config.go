package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	SupabaseURL     string
	SupabaseAnonKey string

	TicketmasterAPIKey string
	RapidAPIKey        string
	RapidAPIHost       string
	EventbriteToken    string
	MapboxToken        string

	CacheTTL        time.Duration
	ProviderTimeout time.Duration
}

// LoadConfig reads the environment. Provider credentials are optional on
// purpose: a missing key skips that provider instead of aborting startup.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:        getEnvWithDefault("PORT", "8080"),
		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),

		SupabaseURL:     os.Getenv("SUPABASE_URL"),
		SupabaseAnonKey: os.Getenv("SUPABASE_ANON_KEY"),

		TicketmasterAPIKey: os.Getenv("TICKETMASTER_API_KEY"),
		RapidAPIKey:        os.Getenv("RAPIDAPI_KEY"),
		RapidAPIHost:       getEnvWithDefault("RAPIDAPI_HOST", "real-time-events-search.p.rapidapi.com"),
		EventbriteToken:    os.Getenv("EVENTBRITE_TOKEN"),
		MapboxToken:        os.Getenv("MAPBOX_TOKEN"),
	}

	var err error
	if cfg.CacheTTL, err = durationEnv("CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ProviderTimeout, err = durationEnv("PROVIDER_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func durationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s is not a valid duration: %v", key, err)
	}
	return d, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// HasSupabase reports whether the persisted event store is configured.
func (c *Config) HasSupabase() bool {
	return c.SupabaseURL != "" && c.SupabaseAnonKey != ""
}
