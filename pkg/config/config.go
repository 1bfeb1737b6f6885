// Package config loads the client settings: credentials, API version
// prefix, debug flags, global request overrides and the conditional
// caching toggle. Settings are read once at startup from defaults, an
// optional YAML file and GRAPH_* environment variables, in that order.
// The core packages only ever read them.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings holds the session-wide configuration.
type Settings struct {
	// AppToken is the default credential. It identifies the batch scope
	// and is attached to every physical batch as its access_token.
	AppToken string `yaml:"app_token"`

	// APIVersion is prefixed to issued paths, e.g. "v2.12". Empty
	// disables prefixing. Pagination links are never prefixed because
	// they arrive with the version already embedded.
	APIVersion string `yaml:"api_version"`

	// BaseURL is the provider's batch endpoint root.
	BaseURL string `yaml:"base_url"`

	// DebugRequests logs every batch entry and per-entry result at
	// debug level when flushing.
	DebugRequests bool `yaml:"debug_requests"`

	// DebugHeaders retains sub-response headers on stored responses and
	// includes them in debug logs. Off by default to keep stored
	// responses small.
	DebugHeaders bool `yaml:"debug_headers"`

	// Migrations is serialized to JSON and injected into every request
	// as the migrations_override query parameter.
	Migrations map[string]bool `yaml:"migrations"`

	// ETags enables conditional sub-requests backed by the Redis
	// response cache. Requires a Redis client at session construction.
	ETags bool `yaml:"etags"`

	// CacheTTL bounds how long cached sub-responses are kept. The
	// provider protocol carries no per-entry expiry, so the TTL is
	// configuration.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// HTTPTimeout bounds one physical batch round trip.
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// RewritePath, when set, receives every assembled relative URL as
	// the final normalization step. Programmatic only.
	RewritePath func(string) string `yaml:"-"`
}

// DefaultSettings returns a safe default configuration. Conditional
// caching is opt-in because it needs a Redis backend.
func DefaultSettings() Settings {
	return Settings{
		BaseURL:     "https://graph.facebook.com",
		APIVersion:  "v2.12",
		ETags:       false,
		CacheTTL:    5 * time.Minute,
		HTTPTimeout: 30 * time.Second,
	}
}

// Load builds Settings from defaults, the YAML file at path (skipped
// when path is empty) and GRAPH_* environment variables, later layers
// overriding earlier ones.
func Load(path string) (Settings, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment lookup for tests.
func LoadWithEnv(path string, lookupEnv func(string) (string, bool)) (Settings, error) {
	s := DefaultSettings()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("read settings file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("parse settings file %s: %w", path, err)
		}
	}

	if err := s.applyEnv(lookupEnv); err != nil {
		return Settings{}, err
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// applyEnv overrides fields from GRAPH_* environment variables.
func (s *Settings) applyEnv(lookupEnv func(string) (string, bool)) error {
	if v, ok := lookupEnv("GRAPH_APP_TOKEN"); ok {
		s.AppToken = v
	}
	if v, ok := lookupEnv("GRAPH_API_VERSION"); ok {
		s.APIVersion = v
	}
	if v, ok := lookupEnv("GRAPH_BASE_URL"); ok {
		s.BaseURL = v
	}
	if v, ok := lookupEnv("GRAPH_DEBUG_REQUESTS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("GRAPH_DEBUG_REQUESTS: %w", err)
		}
		s.DebugRequests = b
	}
	if v, ok := lookupEnv("GRAPH_DEBUG_HEADERS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("GRAPH_DEBUG_HEADERS: %w", err)
		}
		s.DebugHeaders = b
	}
	if v, ok := lookupEnv("GRAPH_ETAGS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("GRAPH_ETAGS: %w", err)
		}
		s.ETags = b
	}
	if v, ok := lookupEnv("GRAPH_CACHE_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("GRAPH_CACHE_TTL: %w", err)
		}
		s.CacheTTL = d
	}
	if v, ok := lookupEnv("GRAPH_HTTP_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("GRAPH_HTTP_TIMEOUT: %w", err)
		}
		s.HTTPTimeout = d
	}
	return nil
}

// Validate checks the settings for internal consistency.
func (s Settings) Validate() error {
	if s.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url %q is not an absolute URL", s.BaseURL)
	}
	if s.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be positive (got %s)", s.HTTPTimeout)
	}
	if s.ETags && s.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl must be positive when etags are enabled (got %s)", s.CacheTTL)
	}
	return nil
}
