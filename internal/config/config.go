package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/ems-dispatch-sim/internal/auth"
	"github.com/ukydev/ems-dispatch-sim/internal/events"
	"github.com/ukydev/ems-dispatch-sim/internal/sim"
)

// Config is the process configuration read from the environment.
type Config struct {
	Port string

	MongoURI string
	MongoDB  string

	JWTSecret string
	JWTExpiry time.Duration

	AdminUsername string
	AdminPassword string

	MQTTBroker      string
	MQTTClientID    string
	MQTTTopicPrefix string

	LogLevel  log.Level
	LogFormat string

	BaseTick  time.Duration
	AutoStart bool
	Seed      int64
	// Ticks bounds the headless simulator; zero runs until interrupted.
	Ticks int

	HospitalsFile string
}

// Load reads an optional .env file from the working directory, then the
// environment. A .env value never overrides a variable already set.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	p := parser{getenv: getenv}
	cfg := Config{
		Port:            p.str("PORT", "8080"),
		MongoURI:        p.str("MONGO_URI", ""),
		MongoDB:         p.str("MONGO_DB", "ems_sim"),
		JWTSecret:       p.str("JWT_SECRET", auth.DefaultSecret),
		JWTExpiry:       p.duration("JWT_EXPIRY", auth.DefaultExpiry),
		AdminUsername:   p.str("ADMIN_USERNAME", ""),
		AdminPassword:   p.str("ADMIN_PASSWORD", ""),
		MQTTBroker:      p.str("MQTT_BROKER", ""),
		MQTTClientID:    p.str("MQTT_CLIENT_ID", "ems-sim"),
		MQTTTopicPrefix: p.str("MQTT_TOPIC_PREFIX", events.DefaultTopicPrefix),
		LogFormat:       strings.ToLower(p.str("LOG_FORMAT", "text")),
		BaseTick:        p.duration("SIM_BASE_TICK", sim.DefaultBaseInterval),
		AutoStart:       p.boolean("SIM_AUTO_START", false),
		Seed:            p.int64("SIM_SEED", 0),
		Ticks:           int(p.int64("SIM_TICKS", 0)),
		HospitalsFile:   p.str("HOSPITALS_FILE", ""),
	}

	level, err := log.ParseLevel(p.str("LOG_LEVEL", "info"))
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("LOG_LEVEL: %v", err))
	}
	cfg.LogLevel = level

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		p.errs = append(p.errs, fmt.Sprintf("LOG_FORMAT: unknown format %q", cfg.LogFormat))
	}
	if cfg.BaseTick <= 0 {
		p.errs = append(p.errs, "SIM_BASE_TICK: must be positive")
	}
	if cfg.JWTExpiry <= 0 {
		p.errs = append(p.errs, "JWT_EXPIRY: must be positive")
	}
	if cfg.Ticks < 0 {
		p.errs = append(p.errs, "SIM_TICKS: must not be negative")
	}

	if len(p.errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(p.errs, "; "))
	}
	return cfg, nil
}

// MongoEnabled reports whether a database was configured.
func (c Config) MongoEnabled() bool { return c.MongoURI != "" }

// MQTTEnabled reports whether a broker was configured.
func (c Config) MQTTEnabled() bool { return c.MQTTBroker != "" }

// MQTTOptions returns the publisher options for the configured broker.
func (c Config) MQTTOptions() events.MQTTOptions {
	return events.MQTTOptions{Broker: c.MQTTBroker, ClientID: c.MQTTClientID}
}

// NewLogger returns a logrus logger with the configured level and format.
func (c Config) NewLogger() *log.Logger {
	logger := log.New()
	logger.SetLevel(c.LogLevel)
	if c.LogFormat == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return logger
}

type parser struct {
	getenv func(string) string
	errs   []string
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return d
}

func (p *parser) boolean(key string, def bool) bool {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return b
}

func (p *parser) int64(key string, def int64) int64 {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return n
}
