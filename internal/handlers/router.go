package handlers

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/ems-dispatch-sim/internal/middleware"
	"github.com/ukydev/ems-dispatch-sim/internal/models"
)

// Command endpoints allow this many requests per client per window.
const (
	commandRateLimit  = 60
	commandRateWindow = time.Minute
)

// RouterConfig wires the handlers into one mux.
type RouterConfig struct {
	Auth   *AuthHandler
	Sim    *SimHandler
	Stream http.Handler
	Tokens middleware.TokenValidator
	Logger log.FieldLogger
}

// NewRouter builds the control API.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = log.StandardLogger()
	}
	authMW := middleware.NewAuthMiddleware(cfg.Tokens)
	limiter := middleware.NewRateLimitMiddleware()

	allow := func(action string, h http.HandlerFunc) http.Handler {
		return authMW.RequirePermission(action)(h)
	}
	command := func(action string, h http.HandlerFunc) http.Handler {
		return limiter.RateLimit(commandRateLimit, commandRateWindow)(allow(action, h))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", cfg.Sim.Health)
	mux.HandleFunc("/api/auth/login", cfg.Auth.Login)
	mux.HandleFunc("/api/auth/register", cfg.Auth.Register)
	mux.HandleFunc("GET /api/auth/me", cfg.Auth.GetProfile)

	mux.Handle("GET /api/sim/state", allow(models.ActionViewSimulation, cfg.Sim.State))
	mux.Handle("POST /api/sim/start", command(models.ActionControlSimulation, cfg.Sim.Start))
	mux.Handle("POST /api/sim/stop", command(models.ActionControlSimulation, cfg.Sim.Stop))
	mux.Handle("POST /api/sim/reset", command(models.ActionControlSimulation, cfg.Sim.Reset))
	mux.Handle("POST /api/sim/speed", command(models.ActionControlSimulation, cfg.Sim.SetSpeed))
	mux.Handle("POST /api/sim/incidents", command(models.ActionControlSimulation, cfg.Sim.AddIncident))
	mux.Handle("PUT /api/sim/config", command(models.ActionEditSettings, cfg.Sim.UpdateConfig))
	mux.Handle("GET /api/settings", allow(models.ActionViewSimulation, cfg.Sim.GetSettings))
	mux.Handle("DELETE /api/settings", command(models.ActionEditSettings, cfg.Sim.ClearSettings))
	mux.Handle("GET /api/deliveries", allow(models.ActionViewSimulation, cfg.Sim.Deliveries))
	if cfg.Stream != nil {
		mux.Handle("GET /ws", cfg.Stream)
	}

	return middleware.RequestLogger(cfg.Logger)(authMW.Authenticate(mux))
}
