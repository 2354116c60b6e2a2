package config

import "sync"

// Holder wraps a Config for safe concurrent access and in-place reload.
// Reload re-runs the full hierarchy (defaults < YAML < ENV) and swaps the
// config only when the result validates; a bad edit keeps the old config.
type Holder struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
}

// NewHolder creates a Holder around an already-loaded config.
func NewHolder(cfg *Config, yamlPath string) *Holder {
	return &Holder{cfg: cfg, path: yamlPath}
}

// Get returns the current config.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// Reload reloads from the original YAML path.
func (h *Holder) Reload() error {
	cfg, err := LoadFrom(h.path)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.cfg = cfg
	h.mu.Unlock()
	return nil
}
