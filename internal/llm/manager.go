// Package llm selects a model profile and calls its provider, in blocking
// or streaming mode, speaking each provider's wire format.
package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// RuntimeConfig is the operator-editable part of model selection, stored
// as models.json in the config directory.
type RuntimeConfig struct {
	SelectedModel string          `json:"selectedModel,omitempty"`
	Priority      []string        `json:"priority,omitempty"`
	Enabled       map[string]bool `json:"enabled,omitempty"`
}

// Manager owns the profile registry and runtime selection config. The
// config file is re-read on every selection so admin edits apply without
// a restart.
type Manager struct {
	configPath string
	profiles   map[string]Profile
	client     *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

func NewManager(configDir string, timeout time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Manager{
		configPath: filepath.Join(configDir, "models.json"),
		profiles:   Profiles(),
		client:     &http.Client{},
		timeout:    timeout,
		logger:     logger,
	}
}

// LoadConfig reads models.json, returning defaults when the file is
// missing or unreadable. A broken config must not take the service down.
func (m *Manager) LoadConfig() RuntimeConfig {
	var cfg RuntimeConfig
	data, err := os.ReadFile(m.configPath)
	if err == nil {
		if jsonErr := json.Unmarshal(data, &cfg); jsonErr != nil {
			m.logger.Warn("invalid model config, using defaults", "path", m.configPath, "error", jsonErr)
			cfg = RuntimeConfig{}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		m.logger.Warn("cannot read model config, using defaults", "path", m.configPath, "error", err)
	}
	if len(cfg.Priority) == 0 {
		cfg.Priority = append([]string(nil), defaultPriority...)
	}
	return cfg
}

// SaveConfig writes runtime selection config, rejecting unknown model IDs.
func (m *Manager) SaveConfig(cfg RuntimeConfig) error {
	if cfg.SelectedModel != "" {
		if _, ok := m.profiles[cfg.SelectedModel]; !ok {
			return fmt.Errorf("unknown model %q", cfg.SelectedModel)
		}
	}
	for _, id := range cfg.Priority {
		if _, ok := m.profiles[id]; !ok {
			return fmt.Errorf("unknown model %q in priority", id)
		}
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(m.configPath, data, 0o644)
}

func (m *Manager) enabled(cfg RuntimeConfig, id string) bool {
	if cfg.Enabled == nil {
		return true
	}
	on, ok := cfg.Enabled[id]
	return !ok || on
}

// Select resolves the model to call. The explicitly selected model wins
// when it is known, enabled, and has a key; otherwise the priority list is
// scanned for the first usable model. With no usable model anywhere the
// priority head is returned with ErrMissingAPIKey so callers can fail fast
// with a precise message.
func (m *Manager) Select() (Profile, string, error) {
	cfg := m.LoadConfig()

	if cfg.SelectedModel != "" {
		if p, ok := m.profiles[cfg.SelectedModel]; ok && m.enabled(cfg, p.ID) {
			if key, ok := ResolveKey(p); ok {
				return p, key, nil
			}
			m.logger.Warn("selected model has no api key, falling back to priority",
				"model", cfg.SelectedModel)
		}
	}

	for _, id := range cfg.Priority {
		p, ok := m.profiles[id]
		if !ok || !m.enabled(cfg, id) {
			continue
		}
		if key, ok := ResolveKey(p); ok {
			return p, key, nil
		}
	}

	if len(cfg.Priority) > 0 {
		if p, ok := m.profiles[cfg.Priority[0]]; ok {
			return p, "", fmt.Errorf("%w for model %s (set %s)", ErrMissingAPIKey, p.ID, p.KeyEnvVars[0])
		}
	}
	return Profile{}, "", ErrNoModelAvailable
}

// ModelStatus is the per-model availability report for the status endpoint.
type ModelStatus struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	HasKey   bool   `json:"hasKey"`
	Enabled  bool   `json:"enabled"`
	Selected bool   `json:"selected"`
	Current  bool   `json:"current"`
}

// Status reports every known model in priority order plus the one Select
// would currently use.
func (m *Manager) Status() []ModelStatus {
	cfg := m.LoadConfig()
	current, _, selErr := m.Select()

	seen := make(map[string]bool)
	ordered := make([]string, 0, len(m.profiles))
	for _, id := range cfg.Priority {
		if _, ok := m.profiles[id]; ok && !seen[id] {
			ordered = append(ordered, id)
			seen[id] = true
		}
	}
	for _, p := range builtinProfiles {
		if !seen[p.ID] {
			ordered = append(ordered, p.ID)
		}
	}

	statuses := make([]ModelStatus, 0, len(ordered))
	for _, id := range ordered {
		p := m.profiles[id]
		_, hasKey := ResolveKey(p)
		statuses = append(statuses, ModelStatus{
			ID:       id,
			Provider: p.Provider,
			Model:    p.Model,
			HasKey:   hasKey,
			Enabled:  m.enabled(cfg, id),
			Selected: cfg.SelectedModel == id,
			Current:  selErr == nil && current.ID == id,
		})
	}
	return statuses
}
