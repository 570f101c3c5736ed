package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"APP_PORT", "APP_ENV", "REQUIRE_TLS", "SHUTDOWN_TIMEOUT",
	"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SAMPLE_RATIO",
	"JWT_SIGNING_KEY", "JWT_PREVIOUS_SIGNING_KEYS", "JWT_ISSUER", "JWT_AUDIENCE", "JWT_ACCESS_TOKEN_EXPIRY", "AUTH_DEV_MODE",
	"GOOGLE_MAPS_API_KEY", "LIGHTING_INSPECTOR_URL",
	"ROUTE_DUPLICATE_TOLERANCE", "ROUTE_MAX_CANDIDATES", "ROUTE_TTL",
	"SAFETY_SAMPLE_COUNT", "SAFETY_REPORT_WINDOW", "SAFETY_TIME_ZONE",
	"NAV_DEVIATION_METERS", "ALERT_DEFAULT_RADIUS_METERS", "ALERT_NOTIFIED_CAPACITY",
	"PUBSUB_PROJECT_ID", "MQTT_BROKER", "AMQP_URL",
}

// clearEnv blanks every variable the tests rely on; empty counts as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Server.IsDevelopment())
	assert.False(t, cfg.Server.RequireTLS)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

	assert.InDelta(t, 0.05, cfg.Routing.DuplicateTolerance, 1e-9)
	assert.Equal(t, 3, cfg.Routing.MaxCandidates)

	assert.Equal(t, 5, cfg.Safety.SampleCount)
	assert.Equal(t, 7*24*time.Hour, cfg.Safety.ReportWindow)
	assert.InDelta(t, 500, cfg.Safety.ReportRadiusMeters, 1e-9)

	assert.InDelta(t, 15, cfg.Navigation.StepAdvanceMeters, 1e-9)
	assert.InDelta(t, 10, cfg.Navigation.ArrivalMeters, 1e-9)
	assert.InDelta(t, 50, cfg.Navigation.DeviationMeters, 1e-9)

	assert.InDelta(t, 500, cfg.Alerts.DefaultRadiusMeters, 1e-9)
	assert.Equal(t, 256, cfg.Alerts.NotifiedCapacity)

	assert.Equal(t, "saferoute-alerts", cfg.Streams.AlertTopic)
	assert.Empty(t, cfg.Streams.PubSubProjectID)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_PORT", "9090")
	t.Setenv("REQUIRE_TLS", "true")
	t.Setenv("ROUTE_MAX_CANDIDATES", "2")
	t.Setenv("SAFETY_REPORT_WINDOW", "72h")
	t.Setenv("NAV_DEVIATION_METERS", "35.5")
	t.Setenv("MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("JWT_PREVIOUS_SIGNING_KEYS", " key-a, ,key-b ")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.Server.RequireTLS)
	assert.Equal(t, 2, cfg.Routing.MaxCandidates)
	assert.Equal(t, 72*time.Hour, cfg.Safety.ReportWindow)
	assert.InDelta(t, 35.5, cfg.Navigation.DeviationMeters, 1e-9)
	assert.Equal(t, "tcp://broker:1883", cfg.Streams.MQTTBroker)
	assert.Equal(t, []string{"key-a", "key-b"}, cfg.Auth.PreviousSigningKeys)
}

func TestFromEnv_ReportsEveryMalformedValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("ROUTE_MAX_CANDIDATES", "three")
	t.Setenv("SAFETY_REPORT_WINDOW", "a week")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ROUTE_MAX_CANDIDATES")
	assert.Contains(t, err.Error(), "SAFETY_REPORT_WINDOW")
}

func TestFromEnv_ProductionRequiresSigningKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")

	_, err := FromEnv()
	assert.ErrorIs(t, err, ErrMissingSigningKey)

	t.Setenv("JWT_SIGNING_KEY", "secret")
	_, err = FromEnv()
	assert.NoError(t, err)
}

func TestFromEnv_DevModeOnlyInDevelopment(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SIGNING_KEY", "secret")
	t.Setenv("AUTH_DEV_MODE", "true")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_DEV_MODE")
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	// dotenv only fills variables that are absent, not merely empty.
	// clearEnv restores them after the test.
	os.Unsetenv("APP_PORT")
	os.Unsetenv("ROUTE_MAX_CANDIDATES")
	t.Setenv("MQTT_BROKER", "tcp://from-env:1883")

	path := filepath.Join(t.TempDir(), ".env")
	content := "APP_PORT=7070\nROUTE_MAX_CANDIDATES=2\nMQTT_BROKER=tcp://from-file:1883\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, 2, cfg.Routing.MaxCandidates)
	assert.Equal(t, "tcp://from-env:1883", cfg.Streams.MQTTBroker)
}

func TestLoad_MissingFileIsIgnored(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestSafetyConfig_Location(t *testing.T) {
	loc, err := SafetyConfig{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = SafetyConfig{TimeZone: "UTC"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	_, err = SafetyConfig{TimeZone: "Nowhere/Land"}.Location()
	assert.Error(t, err)
}
