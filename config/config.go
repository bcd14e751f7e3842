package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360/keystream/errors"
)

// Session modes
const (
	ModePeer   = "peer"
	ModeClient = "client"
)

// Config is a session configuration. Fields left at their zero value fall
// back to the documented defaults of the corresponding configuration keys.
type Config struct {
	Mode               string            `json:"mode,omitempty" yaml:"mode,omitempty"`
	Connect            []string          `json:"connect,omitempty" yaml:"connect,omitempty"`
	Listen             []string          `json:"listen,omitempty" yaml:"listen,omitempty"`
	User               string            `json:"user,omitempty" yaml:"user,omitempty"`
	Password           string            `json:"password,omitempty" yaml:"password,omitempty"`
	MulticastScouting  *bool             `json:"multicast_scouting,omitempty" yaml:"multicast_scouting,omitempty"`
	MulticastInterface string            `json:"multicast_interface,omitempty" yaml:"multicast_interface,omitempty"`
	MulticastAddress   string            `json:"multicast_address,omitempty" yaml:"multicast_address,omitempty"`
	ScoutingTimeout    float64           `json:"scouting_timeout,omitempty" yaml:"scouting_timeout,omitempty"`
	ScoutingDelay      float64           `json:"scouting_delay,omitempty" yaml:"scouting_delay,omitempty"`
	AddTimestamp       bool              `json:"add_timestamp,omitempty" yaml:"add_timestamp,omitempty"`
	LocalRouting       *bool             `json:"local_routing,omitempty" yaml:"local_routing,omitempty"`
	// Extra holds engine-specific keys not covered by the fields above.
	Extra map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Default returns a configuration with the default mode.
func Default() *Config {
	return &Config{Mode: ModePeer}
}

// Client returns a client-mode configuration connecting to the given
// locators.
func Client(connect ...string) *Config {
	return &Config{Mode: ModeClient, Connect: connect}
}

// FromFile loads a configuration from a JSON or YAML file, chosen by
// extension (.yaml/.yml for YAML, anything else JSON).
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "Config", "FromFile", "read file")
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "Config", "FromFile", "parse yaml")
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "Config", "FromFile", "parse json")
		}
	}
	return cfg, nil
}

// Properties flattens the configuration into the well-known key table
// form consumed by engines.
func (c *Config) Properties() map[string]string {
	props := map[string]string{}
	if c.Mode != "" {
		props[ModeKey] = c.Mode
	}
	if len(c.Connect) > 0 {
		props[ConnectKey] = strings.Join(c.Connect, ",")
	}
	if len(c.Listen) > 0 {
		props[ListenKey] = strings.Join(c.Listen, ",")
	}
	if c.User != "" {
		props[UserKey] = c.User
	}
	if c.Password != "" {
		props[PasswordKey] = c.Password
	}
	if c.MulticastScouting != nil {
		props[MulticastScoutingKey] = strconv.FormatBool(*c.MulticastScouting)
	}
	if c.MulticastInterface != "" {
		props[MulticastInterfaceKey] = c.MulticastInterface
	}
	if c.MulticastAddress != "" {
		props[MulticastAddressKey] = c.MulticastAddress
	}
	if c.ScoutingTimeout != 0 {
		props[ScoutingTimeoutKey] = fmt.Sprintf("%g", c.ScoutingTimeout)
	}
	if c.ScoutingDelay != 0 {
		props[ScoutingDelayKey] = fmt.Sprintf("%g", c.ScoutingDelay)
	}
	if c.AddTimestamp {
		props[AddTimestampKey] = "true"
	}
	if c.LocalRouting != nil {
		props[LocalRoutingKey] = strconv.FormatBool(*c.LocalRouting)
	}
	for k, v := range c.Extra {
		props[k] = v
	}
	return props
}

// Merge overlays non-zero fields of other onto c.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if other.Mode != "" {
		c.Mode = other.Mode
	}
	if len(other.Connect) > 0 {
		c.Connect = append(c.Connect, other.Connect...)
	}
	if len(other.Listen) > 0 {
		c.Listen = append(c.Listen, other.Listen...)
	}
	if other.User != "" {
		c.User = other.User
	}
	if other.Password != "" {
		c.Password = other.Password
	}
	if other.MulticastScouting != nil {
		c.MulticastScouting = other.MulticastScouting
	}
	if other.MulticastInterface != "" {
		c.MulticastInterface = other.MulticastInterface
	}
	if other.MulticastAddress != "" {
		c.MulticastAddress = other.MulticastAddress
	}
	if other.ScoutingTimeout != 0 {
		c.ScoutingTimeout = other.ScoutingTimeout
	}
	if other.ScoutingDelay != 0 {
		c.ScoutingDelay = other.ScoutingDelay
	}
	if other.AddTimestamp {
		c.AddTimestamp = true
	}
	if other.LocalRouting != nil {
		c.LocalRouting = other.LocalRouting
	}
	if len(other.Extra) > 0 {
		if c.Extra == nil {
			c.Extra = map[string]string{}
		}
		for k, v := range other.Extra {
			c.Extra[k] = v
		}
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	out.Connect = append([]string(nil), c.Connect...)
	out.Listen = append([]string(nil), c.Listen...)
	if c.MulticastScouting != nil {
		v := *c.MulticastScouting
		out.MulticastScouting = &v
	}
	if c.LocalRouting != nil {
		v := *c.LocalRouting
		out.LocalRouting = &v
	}
	if c.Extra != nil {
		out.Extra = make(map[string]string, len(c.Extra))
		for k, v := range c.Extra {
			out.Extra[k] = v
		}
	}
	return &out
}
