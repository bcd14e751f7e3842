package config

import (
	"encoding/json"
	"sync"

	"github.com/c360/keystream/errors"
)

// Notifier provides thread-safe read and merge access to a live session
// configuration. It satisfies the engine's ConfigNotifier contract.
type Notifier struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewNotifier wraps cfg (or a default configuration when nil).
func NewNotifier(cfg *Config) *Notifier {
	if cfg == nil {
		cfg = Default()
	}
	return &Notifier{cfg: cfg}
}

// JSON renders the current configuration as JSON.
func (n *Notifier) JSON() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	data, err := json.Marshal(n.cfg)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// MergeJSON parses s as a partial configuration and overlays it onto the
// current one.
func (n *Notifier) MergeJSON(s string) error {
	var partial Config
	if err := json.Unmarshal([]byte(s), &partial); err != nil {
		return errors.Wrap(err, "Notifier", "MergeJSON", "parse json")
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.cfg.Merge(&partial)
	return nil
}

// Snapshot returns a deep copy of the current configuration.
func (n *Notifier) Snapshot() *Config {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.cfg.Clone()
}
