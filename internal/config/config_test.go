package config

import (
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/ems-dispatch-sim/internal/auth"
	"github.com/ukydev/ems-dispatch-sim/internal/events"
	"github.com/ukydev/ems-dispatch-sim/internal/sim"
)

func envOf(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "ems_sim", cfg.MongoDB)
	assert.False(t, cfg.MongoEnabled())
	assert.False(t, cfg.MQTTEnabled())
	assert.Equal(t, auth.DefaultSecret, cfg.JWTSecret)
	assert.Equal(t, auth.DefaultExpiry, cfg.JWTExpiry)
	assert.Equal(t, events.DefaultTopicPrefix, cfg.MQTTTopicPrefix)
	assert.Equal(t, log.InfoLevel, cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, sim.DefaultBaseInterval, cfg.BaseTick)
	assert.False(t, cfg.AutoStart)
	assert.Zero(t, cfg.Seed)
	assert.Zero(t, cfg.Ticks)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"PORT":              "9090",
		"MONGO_URI":         "mongodb://localhost:27017",
		"JWT_EXPIRY":        "2h",
		"MQTT_BROKER":       "tcp://localhost:1883",
		"MQTT_TOPIC_PREFIX": "city/ems",
		"LOG_LEVEL":         "debug",
		"LOG_FORMAT":        "JSON",
		"SIM_BASE_TICK":     "250ms",
		"SIM_AUTO_START":    "true",
		"SIM_SEED":          "42",
		"SIM_TICKS":         "300",
		"HOSPITALS_FILE":    "hospitals.json",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.MongoEnabled())
	assert.True(t, cfg.MQTTEnabled())
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTOptions().Broker)
	assert.Equal(t, "ems-sim", cfg.MQTTOptions().ClientID)
	assert.Equal(t, "city/ems", cfg.MQTTTopicPrefix)
	assert.Equal(t, 2*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, log.DebugLevel, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 250*time.Millisecond, cfg.BaseTick)
	assert.True(t, cfg.AutoStart)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 300, cfg.Ticks)
	assert.Equal(t, "hospitals.json", cfg.HospitalsFile)
}

func TestFromEnv_Invalid(t *testing.T) {
	_, err := FromEnv(envOf(map[string]string{
		"SIM_BASE_TICK":  "soon",
		"SIM_AUTO_START": "maybe",
		"LOG_FORMAT":     "xml",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SIM_BASE_TICK")
	assert.Contains(t, err.Error(), "SIM_AUTO_START")
	assert.Contains(t, err.Error(), "LOG_FORMAT")

	_, err = FromEnv(envOf(map[string]string{"SIM_BASE_TICK": "-1s"}))
	assert.Error(t, err)

	_, err = FromEnv(envOf(map[string]string{"LOG_LEVEL": "chatty"}))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{"LOG_LEVEL": "warn", "LOG_FORMAT": "json"}))
	require.NoError(t, err)

	logger := cfg.NewLogger()
	assert.Equal(t, log.WarnLevel, logger.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, logger.Formatter)
}
