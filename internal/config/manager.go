package config

import (
	"fmt"
	"sync"
)

// ConfigManager provides thread-safe access to live configuration, the same
// Get/Set/Reload shape the teacher's TOML config manager exposes, ported to
// the value-typed Config this package defines (SPEC_FULL.md A.1).
type ConfigManager interface {
	Get() Config
	Set(cfg Config)
	Reload(path string) error
}

// RWMutexManager provides thread-safe read-heavy config access using RWMutex.
type RWMutexManager struct {
	mu  sync.RWMutex
	cfg Config
}

// NewManager constructs a manager with an initial config.
func NewManager(initial Config) *RWMutexManager {
	return &RWMutexManager{cfg: initial.Clone()}
}

// Get returns a cloned config snapshot under a shared lock. Returning a
// clone prevents shared mutable state from leaking across readers.
func (m *RWMutexManager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Clone()
}

// Set replaces the current config under an exclusive lock.
func (m *RWMutexManager) Set(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg.Clone()
}

// Reload loads config from path and atomically swaps it into place; a
// parse or validation failure leaves the previous configuration untouched.
func (m *RWMutexManager) Reload(path string) error {
	if path == "" {
		return fmt.Errorf("config reload path is required")
	}
	loaded, err := Load(path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = loaded.Clone()
	return nil
}

var _ ConfigManager = (*RWMutexManager)(nil)
