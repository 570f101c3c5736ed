// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingSigningKey is returned when tokens cannot be signed outside development.
var ErrMissingSigningKey = errors.New("JWT_SIGNING_KEY is required outside development")

// Config is the full process configuration.
type Config struct {
	Server     ServerConfig
	Telemetry  TelemetryConfig
	Auth       AuthConfig
	Providers  ProviderConfig
	Routing    RoutingConfig
	Safety     SafetyConfig
	Navigation NavigationConfig
	Alerts     AlertConfig
	Streams    StreamConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string
	Environment     string
	RequireTLS      bool
	ShutdownTimeout time.Duration
}

// IsDevelopment reports whether the process runs in a development environment.
func (s ServerConfig) IsDevelopment() bool {
	return s.Environment == "development" || s.Environment == "dev" || s.Environment == "local"
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRatio  float64
}

// AuthConfig holds token settings.
type AuthConfig struct {
	SigningKey  string
	Issuer      string
	Audience    string
	TokenExpiry time.Duration
	DevMode     bool

	// PreviousSigningKeys verify tokens issued before a key rotation.
	PreviousSigningKeys []string
}

// ProviderConfig holds upstream API settings. An empty key disables the provider.
type ProviderConfig struct {
	GoogleMapsAPIKey  string
	DirectionsBaseURL string
	PlacesBaseURL     string

	// OpenRouteServiceAPIKey enables ORS as a fallback directions provider.
	OpenRouteServiceAPIKey string

	LightingInspectorURL    string
	LightingInspectorAPIKey string
}

// RoutingConfig holds candidate building and planning settings.
type RoutingConfig struct {
	DuplicateTolerance    float64
	MaxCandidates         int
	DirectionsCacheTTL    time.Duration
	DirectionsCacheSize   int
	RouteTTL              time.Duration
	DisableSyntheticRoute bool
}

// SafetyConfig holds analyzer settings.
type SafetyConfig struct {
	SampleCount          int
	DensityRadiusMeters  float64
	SafeSpotRadiusMeters float64
	ReportWindow         time.Duration
	ReportRadiusMeters   float64
	AnalyzerTimeout      time.Duration
	PlacesCacheTTL       time.Duration
	PlacesCacheSize      int
	ImageryCacheTTL      time.Duration
	ImageryCacheSize     int

	// TimeZone is an IANA zone name for time-of-day rules; empty means local time.
	TimeZone string
}

// Location resolves TimeZone.
func (s SafetyConfig) Location() (*time.Location, error) {
	if s.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("SAFETY_TIME_ZONE: %w", err)
	}
	return loc, nil
}

// NavigationConfig holds session thresholds.
type NavigationConfig struct {
	StepAdvanceMeters float64
	ArrivalMeters     float64
	DeviationMeters   float64
	MaxNavigators     int
}

// AlertConfig holds emergency alert settings.
type AlertConfig struct {
	DefaultRadiusMeters float64
	MaxRadiusMeters     float64
	NotifiedCapacity    int
	MaxWatchers         int
}

// StreamConfig holds messaging settings. Empty values disable a transport.
type StreamConfig struct {
	PubSubProjectID    string
	AlertTopic         string
	AlertSubscription  string
	MQTTBroker         string
	MQTTClientID       string
	MQTTUsername       string
	MQTTPassword       string
	MQTTPositionTopic  string
	AMQPURL            string
	NotificationsQueue string
}

// Load reads optional dotenv files, then builds a Config from the environment.
// Variables already set in the environment win over dotenv values.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load dotenv: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables.
func FromEnv() (Config, error) {
	var p parser

	cfg := Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("APP_PORT", "8080"),
			Environment:     getEnvOrDefault("APP_ENV", "development"),
			RequireTLS:      p.bool("REQUIRE_TLS", false),
			ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Telemetry: TelemetryConfig{
			Enabled:      p.bool("OTEL_ENABLED", false),
			OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRatio:  p.float("OTEL_SAMPLE_RATIO", 1),
		},
		Auth: AuthConfig{
			SigningKey:          os.Getenv("JWT_SIGNING_KEY"),
			PreviousSigningKeys: list("JWT_PREVIOUS_SIGNING_KEYS"),
			Issuer:              getEnvOrDefault("JWT_ISSUER", "saferoute"),
			Audience:            getEnvOrDefault("JWT_AUDIENCE", "saferoute-app"),
			TokenExpiry:         p.duration("JWT_ACCESS_TOKEN_EXPIRY", time.Hour),
			DevMode:             p.bool("AUTH_DEV_MODE", false),
		},
		Providers: ProviderConfig{
			GoogleMapsAPIKey:        os.Getenv("GOOGLE_MAPS_API_KEY"),
			DirectionsBaseURL:       os.Getenv("GOOGLE_DIRECTIONS_BASE_URL"),
			PlacesBaseURL:           os.Getenv("GOOGLE_PLACES_BASE_URL"),
			OpenRouteServiceAPIKey:  os.Getenv("ORS_API_KEY"),
			LightingInspectorURL:    os.Getenv("LIGHTING_INSPECTOR_URL"),
			LightingInspectorAPIKey: os.Getenv("LIGHTING_INSPECTOR_API_KEY"),
		},
		Routing: RoutingConfig{
			DuplicateTolerance:    p.float("ROUTE_DUPLICATE_TOLERANCE", 0.05),
			MaxCandidates:         p.int("ROUTE_MAX_CANDIDATES", 3),
			DirectionsCacheTTL:    p.duration("DIRECTIONS_CACHE_TTL", 30*time.Minute),
			DirectionsCacheSize:   p.int("DIRECTIONS_CACHE_SIZE", 2048),
			RouteTTL:              p.duration("ROUTE_TTL", time.Hour),
			DisableSyntheticRoute: p.bool("ROUTE_DISABLE_SYNTHETIC", false),
		},
		Safety: SafetyConfig{
			SampleCount:          p.int("SAFETY_SAMPLE_COUNT", 5),
			DensityRadiusMeters:  p.float("SAFETY_DENSITY_RADIUS_METERS", 200),
			SafeSpotRadiusMeters: p.float("SAFETY_SAFE_SPOT_RADIUS_METERS", 1000),
			ReportWindow:         p.duration("SAFETY_REPORT_WINDOW", 7*24*time.Hour),
			ReportRadiusMeters:   p.float("SAFETY_REPORT_RADIUS_METERS", 500),
			AnalyzerTimeout:      p.duration("SAFETY_ANALYZER_TIMEOUT", 5*time.Second),
			PlacesCacheTTL:       p.duration("PLACES_CACHE_TTL", 24*time.Hour),
			PlacesCacheSize:      p.int("PLACES_CACHE_SIZE", 8192),
			ImageryCacheTTL:      p.duration("IMAGERY_CACHE_TTL", 7*24*time.Hour),
			ImageryCacheSize:     p.int("IMAGERY_CACHE_SIZE", 8192),
			TimeZone:             os.Getenv("SAFETY_TIME_ZONE"),
		},
		Navigation: NavigationConfig{
			StepAdvanceMeters: p.float("NAV_STEP_ADVANCE_METERS", 15),
			ArrivalMeters:     p.float("NAV_ARRIVAL_METERS", 10),
			DeviationMeters:   p.float("NAV_DEVIATION_METERS", 50),
			MaxNavigators:     p.int("NAV_MAX_NAVIGATORS", 10000),
		},
		Alerts: AlertConfig{
			DefaultRadiusMeters: p.float("ALERT_DEFAULT_RADIUS_METERS", 500),
			MaxRadiusMeters:     p.float("ALERT_MAX_RADIUS_METERS", 5000),
			NotifiedCapacity:    p.int("ALERT_NOTIFIED_CAPACITY", 256),
			MaxWatchers:         p.int("ALERT_MAX_WATCHERS", 50000),
		},
		Streams: StreamConfig{
			PubSubProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
			AlertTopic:         getEnvOrDefault("PUBSUB_ALERT_TOPIC", "saferoute-alerts"),
			AlertSubscription:  getEnvOrDefault("PUBSUB_ALERT_SUBSCRIPTION", "saferoute-alerts-worker"),
			MQTTBroker:         os.Getenv("MQTT_BROKER"),
			MQTTClientID:       getEnvOrDefault("MQTT_CLIENT_ID", "saferoute-worker"),
			MQTTUsername:       os.Getenv("MQTT_USERNAME"),
			MQTTPassword:       os.Getenv("MQTT_PASSWORD"),
			MQTTPositionTopic:  os.Getenv("MQTT_POSITION_TOPIC"),
			AMQPURL:            os.Getenv("AMQP_URL"),
			NotificationsQueue: os.Getenv("AMQP_NOTIFICATIONS_QUEUE"),
		},
	}

	if err := p.err(); err != nil {
		return Config{}, err
	}
	if cfg.Auth.SigningKey == "" && !cfg.Server.IsDevelopment() {
		return Config{}, ErrMissingSigningKey
	}
	if cfg.Auth.DevMode && !cfg.Server.IsDevelopment() {
		return Config{}, fmt.Errorf("AUTH_DEV_MODE is not allowed in %q", cfg.Server.Environment)
	}
	return cfg, nil
}

// parser collects every malformed variable instead of stopping at the first.
type parser struct {
	errs []error
}

func (p *parser) fail(key, value string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s=%q: %w", key, value, err))
}

func (p *parser) err() error {
	return errors.Join(p.errs...)
}

func (p *parser) int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return f
}

func (p *parser) bool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}

// list splits a comma-separated variable, dropping empty entries.
func list(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
