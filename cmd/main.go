package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/ems-dispatch-sim/internal/auth"
	"github.com/ukydev/ems-dispatch-sim/internal/config"
	"github.com/ukydev/ems-dispatch-sim/internal/data"
	"github.com/ukydev/ems-dispatch-sim/internal/db"
	"github.com/ukydev/ems-dispatch-sim/internal/events"
	"github.com/ukydev/ems-dispatch-sim/internal/handlers"
	"github.com/ukydev/ems-dispatch-sim/internal/settings"
	"github.com/ukydev/ems-dispatch-sim/internal/sim"
	"github.com/ukydev/ems-dispatch-sim/internal/stream"
	"go.mongodb.org/mongo-driver/mongo"
)

const shutdownTimeout = 10 * time.Second

// server holds the wired components of the API process.
type server struct {
	runner  *sim.Runner
	hub     *stream.Hub
	handler http.Handler
	closers []func()
}

func (s *server) Close() {
	s.runner.Stop()
	s.hub.Close()
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// newServer wires storage, the engine, observers and routes. MongoDB and
// MQTT are optional; without them settings, accounts and the delivery log
// live in memory and nothing is published.
func newServer(ctx context.Context, cfg config.Config, logger *log.Logger) (*server, error) {
	hospitals, err := data.HospitalsFrom(cfg.HospitalsFile)
	if err != nil {
		return nil, err
	}

	s := &server{}

	var (
		settingsBackend db.SettingsCollection = settings.NewMemoryBackend()
		users           db.UserCollection     = db.NewMemoryUserCollection()
		deliveries      handlers.DeliveryLog
		recorder        sim.Observer
	)
	buffer := events.NewDeliveryBuffer(0)
	deliveries, recorder = buffer, buffer

	if cfg.MongoEnabled() {
		client, err := db.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			logger.WithError(err).Warn("MongoDB unavailable, using in-memory storage")
		} else {
			logger.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")
			s.closers = append(s.closers, func() { disconnect(client, logger) })
			database := client.Database(cfg.MongoDB)
			settingsBackend = &db.MongoCollection{Collection: database.Collection("settings")}
			users = &db.MongoUserCollection{Collection: database.Collection("users")}
			rec := events.NewDeliveryRecorder(&db.MongoCollection{Collection: database.Collection("deliveries")}, logger)
			deliveries, recorder = rec, rec
		}
	}

	store := settings.NewStore(settingsBackend, logger)
	var rng *rand.Rand
	if cfg.Seed != 0 {
		rng = rand.New(rand.NewSource(cfg.Seed))
	}
	engine, err := sim.New(sim.Options{
		Hospitals: hospitals,
		Config:    store.Load(ctx),
		Rand:      rng,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	s.runner = sim.NewRunner(engine, sim.RunnerOptions{BaseInterval: cfg.BaseTick, Logger: logger})
	s.runner.AddObserver(recorder)

	s.hub = stream.NewHub(s.runner, logger)
	s.runner.AddObserver(s.hub)

	if cfg.MQTTEnabled() {
		pub, err := events.NewMQTTPublisher(cfg.MQTTOptions(), logger)
		if err != nil {
			logger.WithError(err).Warn("MQTT unavailable, events will not be published")
		} else {
			s.closers = append(s.closers, pub.Close)
			s.runner.AddObserver(events.NewNotifier(pub, cfg.MQTTTopicPrefix, logger))
		}
	}

	authService := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	authHandler := handlers.NewAuthHandler(authService, users, logger)
	if err := authHandler.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		s.Close()
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}

	s.handler = handlers.NewRouter(handlers.RouterConfig{
		Auth:   authHandler,
		Sim:    handlers.NewSimHandler(s.runner, store, deliveries, logger),
		Stream: s.hub,
		Tokens: authService,
		Logger: logger,
	})
	return s, nil
}

func disconnect(client *mongo.Client, logger log.FieldLogger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		logger.WithError(err).Warn("MongoDB disconnect failed")
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := newServer(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialise server")
	}
	defer srv.Close()

	if cfg.AutoStart {
		if err := srv.runner.Start(nil); err != nil {
			logger.WithError(err).Fatal("Failed to start simulation")
		}
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.WithFields(log.Fields{"port": cfg.Port, "auto_start": cfg.AutoStart}).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP shutdown incomplete")
	}
}
