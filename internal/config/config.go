// Package config loads the wingsctl profile file.
//
// The file is YAML with named profiles, each naming a database URL and the
// table it serves:
//
//	default_profile: local
//	log_level: info
//	server:
//	  grpc_address: 127.0.0.1:7070
//	  metrics_address: 127.0.0.1:9090
//	profiles:
//	  local:
//	    url: sqlite:///var/lib/wings/people.db
//	    table: people
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/redbco/wings/pkg/adapter"
	"github.com/redbco/wings/pkg/logger"
)

// DefaultProfileName is the profile written to a new config file.
const DefaultProfileName = "default"

// ErrProfileNotFound is returned for an unknown profile name.
var ErrProfileNotFound = errors.New("profile not found")

// File is the on-disk configuration.
type File struct {
	DefaultProfile string             `yaml:"default_profile"`
	LogLevel       string             `yaml:"log_level"`
	Server         Server             `yaml:"server"`
	Profiles       map[string]Profile `yaml:"profiles"`
}

// Server holds the listen addresses of `wingsctl serve`.
type Server struct {
	GRPCAddress    string `yaml:"grpc_address"`
	MetricsAddress string `yaml:"metrics_address"`
}

// Profile is one database table the CLI can operate on.
type Profile struct {
	URL   string `yaml:"url"`
	Table string `yaml:"table"`
	ID    string `yaml:"id,omitempty"`
	// Strict rejects unknown query operators. Unset means true.
	Strict          *bool    `yaml:"strict,omitempty"`
	Fields          []string `yaml:"fields,omitempty"`
	Paginate        Paginate `yaml:"paginate,omitempty"`
	ConcurrentCount bool     `yaml:"concurrent_count,omitempty"`
}

// Paginate holds the page size defaults of a profile.
type Paginate struct {
	Default int `yaml:"default,omitempty"`
	Max     int `yaml:"max,omitempty"`
}

// IsStrict reports the effective strictness.
func (p Profile) IsStrict() bool {
	return p.Strict == nil || *p.Strict
}

// Validate checks that the profile can open a backend.
func (p Profile) Validate() error {
	if p.URL == "" {
		return fmt.Errorf("%w: url is required", adapter.ErrInvalidConfiguration)
	}
	if p.Table == "" {
		return fmt.Errorf("%w: table is required", adapter.ErrInvalidConfiguration)
	}
	if p.Paginate.Default < 0 || p.Paginate.Max < 0 {
		return fmt.Errorf("%w: page sizes must not be negative", adapter.ErrInvalidConfiguration)
	}
	return nil
}

// BackendConfig returns the registry configuration for the profile.
func (p Profile) BackendConfig(log *logger.Logger) adapter.BackendConfig {
	return adapter.BackendConfig{Table: p.Table, ID: p.ID, Strict: p.IsStrict(), Logger: log}
}

// Options returns the service options for the profile.
func (p Profile) Options(log *logger.Logger) adapter.Options {
	return adapter.Options{
		ID:              p.ID,
		Fields:          p.Fields,
		Paginate:        adapter.PaginateOptions{Default: p.Paginate.Default, Max: p.Paginate.Max},
		ConcurrentCount: p.ConcurrentCount,
		Strict:          p.IsStrict(),
		Logger:          log,
	}
}

// Default returns the configuration written when no file exists.
func Default() File {
	return File{
		DefaultProfile: DefaultProfileName,
		LogLevel:       "info",
		Server: Server{
			GRPCAddress:    "127.0.0.1:7070",
			MetricsAddress: "127.0.0.1:9090",
		},
		Profiles: map[string]Profile{
			DefaultProfileName: {URL: "memory://", Table: "records"},
		},
	}
}

// DefaultPath returns $HOME/.wings/config.yaml.
func DefaultPath() string {
	return os.ExpandEnv("$HOME/.wings/config.yaml")
}

// Config is a loaded configuration file. It is safe for concurrent use.
type Config struct {
	mu   sync.RWMutex
	path string
	file File
}

// Load reads the configuration at path, writing the default configuration
// there first if the file does not exist.
func Load(path string) (*Config, error) {
	c := &Config{path: path, file: Default()}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		//nolint:gosec // path is chosen by the operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		var f File
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		if f.Profiles == nil {
			f.Profiles = map[string]Profile{}
		}
		c.file = f
		return c, nil
	}

	if err := c.Save(); err != nil {
		return nil, fmt.Errorf("failed to write default config file: %w", err)
	}
	return c, nil
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

// Save writes the configuration back to its file.
func (c *Config) Save() error {
	c.mu.RLock()
	data, err := yaml.Marshal(c.file)
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(c.path, data, 0o600)
}

// Profile returns the named profile. An empty name selects the default.
func (c *Config) Profile(name string) (Profile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if name == "" {
		name = c.file.DefaultProfile
	}
	p, ok := c.file.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	return p, nil
}

// ProfileNames returns the profile names in sorted order.
func (c *Config) ProfileNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.file.Profiles))
	for name := range c.file.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultProfile returns the name of the default profile.
func (c *Config) DefaultProfile() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.file.DefaultProfile
}

// SetProfile adds or replaces a profile after validating it.
func (c *Config) SetProfile(name string, p Profile) error {
	if name == "" {
		return fmt.Errorf("%w: profile name is required", adapter.ErrInvalidConfiguration)
	}
	if err := p.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.file.Profiles[name] = p
	return nil
}

// DeleteProfile removes a profile. Deleting the default profile clears the
// default.
func (c *Config) DeleteProfile(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.file.Profiles[name]; !ok {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	delete(c.file.Profiles, name)
	if c.file.DefaultProfile == name {
		c.file.DefaultProfile = ""
	}
	return nil
}

// SetDefaultProfile selects the profile used when none is named.
func (c *Config) SetDefaultProfile(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.file.Profiles[name]; !ok {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	c.file.DefaultProfile = name
	return nil
}

// Server returns the server addresses.
func (c *Config) Server() Server {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.file.Server
}

// LogLevel returns the configured log level.
func (c *Config) LogLevel() (logger.Level, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return logger.ParseLevel(c.file.LogLevel)
}
