package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/gridcap-etl/internal/domain"
)

const (
	defaultCapacityURL = "https://e-redes.opendatasoft.com/api/explore/v2.1/catalog/datasets/capacidade-rececao-rnd/records"
	defaultSearchURL   = "https://e-redes.opendatasoft.com/api/records/1.0/search/"
	maxPageSize        = 10000
)

// Config holds all tool settings, populated from environment variables.
type Config struct {
	LogLevel  string
	LogFormat string

	// OpenDataSoft endpoints.
	CapacityURL string
	SearchURL   string
	PageSize    int
	HTTPTimeout time.Duration

	LongitudeDefault domain.SignConvention
	AliasesFile      string

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Change feed; disabled when KafkaBrokers is empty.
	KafkaBrokers      []string
	KafkaChangesTopic string

	// Metrics push; disabled when PushgatewayURL is empty.
	PushgatewayURL string
	PushgatewayJob string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	pageSize, err := parsePageSize()
	if err != nil {
		return nil, err
	}

	httpTimeout, err := parsePositiveDuration("HTTP_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	conv, err := domain.ParseSignConvention(os.Getenv("GRIDCAP_LONGITUDE_DEFAULT"))
	if err != nil {
		return nil, fmt.Errorf("invalid GRIDCAP_LONGITUDE_DEFAULT: %w", err)
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		LogLevel:    sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:   sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
		CapacityURL: sharedcfg.EnvOrDefault("EREDES_API_URL", defaultCapacityURL),
		SearchURL:   sharedcfg.EnvOrDefault("ODS_SEARCH_URL", defaultSearchURL),
		PageSize:    pageSize,
		HTTPTimeout: httpTimeout,

		LongitudeDefault: conv,
		AliasesFile:      os.Getenv("GRIDCAP_ALIASES_FILE"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),

		KafkaBrokers:      sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaChangesTopic: sharedcfg.EnvOrDefault("KAFKA_CHANGES_TOPIC", "substation-capacity-changes"),

		PushgatewayURL: os.Getenv("PUSHGATEWAY_URL"),
		PushgatewayJob: sharedcfg.EnvOrDefault("PUSHGATEWAY_JOB", "gridcap"),
	}

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, errors.New("LOG_FORMAT must be text or json")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaChangesTopic == "" {
		return nil, errors.New("KAFKA_CHANGES_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// ChangeFeedEnabled reports whether change events are published to Kafka.
func (c *Config) ChangeFeedEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePageSize() (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault("EREDES_PAGE_SIZE", "1000"))
	if err != nil || n < 1 || n > maxPageSize {
		return 0, fmt.Errorf("invalid EREDES_PAGE_SIZE: must be between 1 and %d", maxPageSize)
	}
	return n, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
