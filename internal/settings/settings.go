// Package settings persists the simulation settings between restarts.
//
// Loading never fails: a missing or unreadable document falls back to the
// defaults, a wrongly typed key falls back to its own default, and the
// problem is logged.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/ems-dispatch-sim/internal/db"
	"github.com/ukydev/ems-dispatch-sim/internal/sim"
)

// Key names the single settings document.
const Key = "ems_simulation_settings"

// Store loads and saves sim.Config through a settings backend.
type Store struct {
	backend db.SettingsCollection
	logger  log.FieldLogger
}

func NewStore(backend db.SettingsCollection, logger log.FieldLogger) *Store {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Store{backend: backend, logger: logger.WithField("component", "settings")}
}

// Load merges the saved settings over the defaults and normalizes the result.
func (s *Store) Load(ctx context.Context) sim.Config {
	cfg := sim.DefaultConfig()
	raw, err := s.backend.LoadSettings(ctx, Key)
	if err != nil {
		if !errors.Is(err, db.ErrSettingsNotFound) {
			s.logger.WithError(err).Warn("Failed to read saved settings, using defaults")
		}
		return cfg
	}

	// A wrongly typed key leaves its field unset while the well-typed keys
	// still decode, so only unparseable documents fall back to the defaults.
	var partial sim.PartialConfig
	if err := json.Unmarshal(raw, &partial); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			s.logger.WithError(err).Warn("Saved settings are corrupt, using defaults")
			return cfg
		}
		s.logger.WithError(err).WithField("key", typeErr.Field).Warn("Saved setting has the wrong type, using its default")
	}
	return cfg.Apply(partial).Normalize()
}

// Save writes the full config.
func (s *Store) Save(ctx context.Context, cfg sim.Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.backend.SaveSettings(ctx, Key, raw); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Clear removes the saved settings so the next Load returns the defaults.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.backend.ClearSettings(ctx, Key); err != nil {
		return fmt.Errorf("clear settings: %w", err)
	}
	return nil
}

// MemoryBackend keeps settings documents in memory. It is used when MongoDB
// is unavailable and in tests.
type MemoryBackend struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: make(map[string][]byte)}
}

func (m *MemoryBackend) LoadSettings(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.docs[key]
	if !ok {
		return nil, db.ErrSettingsNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (m *MemoryBackend) SaveSettings(_ context.Context, key string, raw []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = append([]byte(nil), raw...)
	return nil
}

func (m *MemoryBackend) ClearSettings(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, key)
	return nil
}
