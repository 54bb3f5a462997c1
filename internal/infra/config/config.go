// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const appName = "radiobox"

// Config represents the application configuration.
type Config struct {
	Catalog CatalogConfig           `yaml:"catalog"`
	Audio   AudioConfig             `yaml:"audio"`
	Player  PlayerConfig            `yaml:"player"`
	Filters map[string]FilterConfig `yaml:"filters"`
	History HistoryConfig           `yaml:"history"`
	Log     LogConfig               `yaml:"log"`
	Hooks   HooksConfig             `yaml:"hooks"`
	LastFM  LastFMConfig            `yaml:"lastfm"`
}

// CatalogConfig selects the station source. Settings are decoded by the
// chosen catalog type.
type CatalogConfig struct {
	Type     string         `yaml:"type" default:"static" validate:"oneof=pandora spotify static"`
	Settings map[string]any `yaml:"settings"`
}

// AudioConfig represents decoding and output configuration.
type AudioConfig struct {
	Output         string `yaml:"output" default:"speaker" validate:"oneof=speaker null"`
	Quality        string `yaml:"quality" default:"high" validate:"oneof=high medium low"`
	SampleRate     int    `yaml:"sample_rate" default:"44100" validate:"gte=8000,lte=192000"`
	ChunkMs        int    `yaml:"chunk_ms" default:"100" validate:"gte=10,lte=1000"`
	BufferMs       int    `yaml:"buffer_ms" default:"200" validate:"gte=10,lte=5000"`
	MaxTrackMB     int    `yaml:"max_track_mb" default:"64" validate:"gte=1,lte=1024"`
	HTTPTimeoutSec int    `yaml:"http_timeout_sec" default:"30" validate:"gte=1,lte=600"`
}

// PlayerConfig represents player configuration.
type PlayerConfig struct {
	Prefetch      *bool  `yaml:"prefetch"` // nil means on
	StatusBuffer  int    `yaml:"status_buffer" default:"256" validate:"gte=1"`
	CommandBuffer int    `yaml:"command_buffer" default:"16" validate:"gte=1"`
	Station       string `yaml:"station"` // Station to start on, by ID or name
}

// PrefetchEnabled reports whether the next track is opened ahead of time.
func (p PlayerConfig) PrefetchEnabled() bool {
	return p.Prefetch == nil || *p.Prefetch
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// HistoryConfig represents listening history configuration.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`
	// Database path; empty uses the XDG data dir.
	Path string `yaml:"path"`
	// Days of history kept; 0 keeps everything.
	Window int `yaml:"window" default:"90" validate:"gte=0,lte=3650"`
}

// HooksConfig represents shell commands run on player events.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnTrack   []string `yaml:"on_track"`
	OnStopped []string `yaml:"on_stopped"`
}

// LastFMConfig represents Last.fm credentials. The API key also enables
// similar-track seeding for the spotify catalog.
type LastFMConfig struct {
	APIKey     string `yaml:"api_key" validate:"required_if=Scrobble true"`
	APISecret  string `yaml:"api_secret" validate:"required_if=Scrobble true"`
	SessionKey string `yaml:"session_key" validate:"required_if=Scrobble true"`
	Scrobble   bool   `yaml:"scrobble"`
}

// LogConfig represents log outputs beyond the main logger.
type LogConfig struct {
	Journal string `yaml:"journal"` // Status journal path; empty disables it
}

// DefaultPath returns the config file path under the XDG config dir.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses configuration from YAML.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides catalog settings with environment variables.
// Only the variables matching the configured catalog type apply.
func (c *Config) overrideFromEnv() {
	var env map[string]string
	switch c.Catalog.Type {
	case "pandora":
		env = map[string]string{
			"PANDORA_USERNAME": "username",
			"PANDORA_PASSWORD": "password",
		}
	case "spotify":
		env = map[string]string{
			"SPOTIFY_CLIENT_ID":     "client_id",
			"SPOTIFY_CLIENT_SECRET": "client_secret",
			"SPOTIFY_REFRESH_TOKEN": "refresh_token",
		}
	case "static":
		env = map[string]string{
			"RADIOBOX_STATIONS_FILE": "path",
		}
	}

	for name, key := range env {
		if v := os.Getenv(name); v != "" {
			c.setCatalogSetting(key, v)
		}
	}

	for name, field := range map[string]*string{
		"LASTFM_API_KEY":     &c.LastFM.APIKey,
		"LASTFM_API_SECRET":  &c.LastFM.APISecret,
		"LASTFM_SESSION_KEY": &c.LastFM.SessionKey,
	} {
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}

	// The spotify catalog seeds new stations from Last.fm when it has a key.
	if c.Catalog.Type == "spotify" && c.LastFM.APIKey != "" {
		if _, ok := c.Catalog.Settings["lastfm_api_key"]; !ok {
			c.setCatalogSetting("lastfm_api_key", c.LastFM.APIKey)
		}
	}
}

func (c *Config) setCatalogSetting(key string, v any) {
	if c.Catalog.Settings == nil {
		c.Catalog.Settings = make(map[string]any)
	}
	c.Catalog.Settings[key] = v
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}
