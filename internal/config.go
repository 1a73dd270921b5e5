package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Remote RemoteConfig      `yaml:"remote"`
	Cache  CacheConfig       `yaml:"cache"`
	Import ImportConfig      `yaml:"import"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Remote.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	return c.Import.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// RemoteConfig holds the storage backend endpoint and credentials.
type RemoteConfig struct {
	BaseURL   string `yaml:"base_url"`
	Token     string `yaml:"token"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// Timeout returns the request timeout as a duration.
func (c *RemoteConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// Validate validates the remote configuration.
func (c *RemoteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.TimeoutMS, validation.Required, validation.Min(1)),
	)
}

// CacheConfig holds the local cache database path and entry lifetimes.
type CacheConfig struct {
	Path          string `yaml:"path"`
	MediaTTLMS    int    `yaml:"media_ttl_ms"`
	TimelineTTLMS int    `yaml:"timeline_ttl_ms"`
}

// MediaTTL returns the media list cache lifetime.
func (c *CacheConfig) MediaTTL() time.Duration {
	return time.Duration(c.MediaTTLMS) * time.Millisecond
}

// TimelineTTL returns the timeline cache lifetime.
func (c *CacheConfig) TimelineTTL() time.Duration {
	return time.Duration(c.TimelineTTLMS) * time.Millisecond
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.MediaTTLMS, validation.Min(0)),
		validation.Field(&c.TimelineTTLMS, validation.Min(0)),
	)
}

// ImportConfig holds the media drop directory configuration.
//
// When Enabled is true, files dropped into Dir are uploaded into the
// project identified by ProjectID.
type ImportConfig struct {
	Dir       string `yaml:"dir"`
	ProjectID string `yaml:"project_id"`
	Enabled   bool   `yaml:"enabled"`
}

// Validate validates the import configuration.
func (c *ImportConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Dir == "" {
		return fmt.Errorf("import: enabled but dir is empty")
	}
	if c.ProjectID == "" {
		return fmt.Errorf("import: enabled but project_id is empty")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Remote: RemoteConfig{
			BaseURL:   "http://localhost:8080/api",
			TimeoutMS: 10000,
		},
		Cache: CacheConfig{
			Path:          "./atelier.db",
			MediaTTLMS:    300000,
			TimelineTTLMS: 60000,
		},
		Import: ImportConfig{
			Enabled: false,
		},
	}
}
