package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultRedirectURI matches the redirect registered for the public client.
	DefaultRedirectURI = "http://localhost:8080/auth/callback"

	// DefaultRequestTimeoutSeconds bounds a single hop when the config leaves it unset.
	DefaultRequestTimeoutSeconds = 30

	// DefaultCallbackTimeoutSeconds bounds the wait for the browser redirect.
	DefaultCallbackTimeoutSeconds = 300

	// DefaultUserAgent identifies the launcher to the identity and game services.
	DefaultUserAgent = "CryovexLauncher/1.0.0"

	// DefaultHost keeps the control API on the loopback interface.
	DefaultHost = "127.0.0.1"

	// DefaultPort is the control API port.
	DefaultPort = 8317

	// SessionStoreFile, SessionStorePostgres and SessionStoreObject select the session backend.
	SessionStoreFile     = "file"
	SessionStorePostgres = "postgres"
	SessionStoreObject   = "object"
)

// DefaultScopes are requested from the identity provider.
var DefaultScopes = []string{"XboxLive.signin", "offline_access"}

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	SDKConfig `yaml:",inline"`

	// ClientID is the public client registered with the identity provider.
	ClientID string `yaml:"client-id" json:"client-id"`

	// RedirectURI is where the identity provider sends the browser after consent.
	// It must point at a loopback address when the built-in browsing surface is used.
	RedirectURI string `yaml:"redirect-uri" json:"redirect-uri"`

	// Scopes requested during authorization.
	Scopes []string `yaml:"scopes,omitempty" json:"scopes,omitempty"`

	// AuthDir is the directory holding the saved session.
	AuthDir string `yaml:"auth-dir" json:"auth-dir"`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug" json:"debug"`

	// LoggingToFile switches log output to a rotating file under the logs directory.
	LoggingToFile bool `yaml:"logging-to-file" json:"logging-to-file"`

	// LogsMaxTotalSizeMB limits the total size of the logs directory. <= 0 disables the limit.
	LogsMaxTotalSizeMB int `yaml:"logs-max-total-size-mb" json:"logs-max-total-size-mb"`

	// CallbackTimeoutSeconds bounds how long the chain waits for the browser redirect.
	CallbackTimeoutSeconds int `yaml:"callback-timeout-seconds,omitempty" json:"callback-timeout-seconds,omitempty"`

	// NoBrowser prints the authorization URL instead of opening the system browser.
	NoBrowser bool `yaml:"no-browser" json:"no-browser"`

	// Host and Port address the local control API.
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`

	// SessionStore selects where the session is persisted: file, postgres or object.
	SessionStore string `yaml:"session-store" json:"session-store"`

	// PostgresStore configures the postgres session backend.
	PostgresStore PostgresStoreConfig `yaml:"postgres-store" json:"postgres-store"`

	// ObjectStore configures the S3-compatible session backend.
	ObjectStore ObjectStoreConfig `yaml:"object-store" json:"object-store"`

	// Endpoints overrides the service URLs used by the login chain.
	Endpoints EndpointsConfig `yaml:"endpoints" json:"endpoints"`
}

// PostgresStoreConfig holds connection details for the postgres session backend.
type PostgresStoreConfig struct {
	DSN    string `yaml:"dsn" json:"dsn"`
	Schema string `yaml:"schema" json:"schema"`
	Table  string `yaml:"table" json:"table"`
}

// ObjectStoreConfig holds connection details for the S3-compatible session backend.
type ObjectStoreConfig struct {
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	Bucket    string `yaml:"bucket" json:"bucket"`
	AccessKey string `yaml:"access-key" json:"access-key"`
	SecretKey string `yaml:"secret-key" json:"secret-key"`
	Region    string `yaml:"region" json:"region"`
	Prefix    string `yaml:"prefix" json:"prefix"`
	UseSSL    bool   `yaml:"use-ssl" json:"use-ssl"`
	PathStyle bool   `yaml:"path-style" json:"path-style"`
}

// EndpointsConfig overrides individual service URLs. Empty fields keep the defaults.
type EndpointsConfig struct {
	Authorize        string `yaml:"authorize,omitempty" json:"authorize,omitempty"`
	Token            string `yaml:"token,omitempty" json:"token,omitempty"`
	XboxLive         string `yaml:"xbox-live,omitempty" json:"xbox-live,omitempty"`
	XSTS             string `yaml:"xsts,omitempty" json:"xsts,omitempty"`
	LoginWithXbox    string `yaml:"login-with-xbox,omitempty" json:"login-with-xbox,omitempty"`
	MinecraftProfile string `yaml:"minecraft-profile,omitempty" json:"minecraft-profile,omitempty"`
}

// LoadConfig reads and parses the YAML configuration file at configFile.
func LoadConfig(configFile string) (*Config, error) {
	return LoadConfigOptional(configFile, false)
}

// LoadConfigOptional reads the configuration file. When optional is true a missing or empty
// file yields a default configuration instead of an error. Environment overrides are applied
// in both cases.
func LoadConfigOptional(configFile string, optional bool) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(configFile)
	if err != nil {
		if !optional || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		data = nil
	}

	if len(strings.TrimSpace(string(data))) > 0 {
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.ApplyEnvOverrides(os.LookupEnv)
	cfg.SanitizeDefaults()
	return cfg, nil
}

// ApplyEnvOverrides copies environment variables over file values. lookup is usually os.LookupEnv.
func (cfg *Config) ApplyEnvOverrides(lookup func(string) (string, bool)) {
	if cfg == nil || lookup == nil {
		return
	}
	get := func(keys ...string) (string, bool) {
		for _, key := range keys {
			if value, ok := lookup(key); ok {
				if trimmed := strings.TrimSpace(value); trimmed != "" {
					return trimmed, true
				}
			}
		}
		return "", false
	}

	if v, ok := get("CRYOVEX_CLIENT_ID"); ok {
		cfg.ClientID = v
	}
	if v, ok := get("CRYOVEX_REDIRECT_URI"); ok {
		cfg.RedirectURI = v
	}
	if v, ok := get("PGSTORE_DSN", "pgstore_dsn"); ok {
		cfg.SessionStore = SessionStorePostgres
		cfg.PostgresStore.DSN = v
	}
	if v, ok := get("PGSTORE_SCHEMA", "pgstore_schema"); ok {
		cfg.PostgresStore.Schema = v
	}
	if v, ok := get("OBJECTSTORE_ENDPOINT", "objectstore_endpoint"); ok {
		cfg.SessionStore = SessionStoreObject
		cfg.ObjectStore.Endpoint = v
	}
	if v, ok := get("OBJECTSTORE_BUCKET", "objectstore_bucket"); ok {
		cfg.ObjectStore.Bucket = v
	}
	if v, ok := get("OBJECTSTORE_ACCESS_KEY", "objectstore_access_key"); ok {
		cfg.ObjectStore.AccessKey = v
	}
	if v, ok := get("OBJECTSTORE_SECRET_KEY", "objectstore_secret_key"); ok {
		cfg.ObjectStore.SecretKey = v
	}
}

// SanitizeDefaults fills unset fields with their defaults.
func (cfg *Config) SanitizeDefaults() {
	if cfg == nil {
		return
	}
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	cfg.RedirectURI = strings.TrimSpace(cfg.RedirectURI)
	if cfg.RedirectURI == "" {
		cfg.RedirectURI = DefaultRedirectURI
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = append([]string(nil), DefaultScopes...)
	}
	if cfg.AuthDir == "" {
		cfg.AuthDir = "~/.cryovex"
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		cfg.RequestTimeoutSeconds = DefaultRequestTimeoutSeconds
	}
	if cfg.CallbackTimeoutSeconds <= 0 {
		cfg.CallbackTimeoutSeconds = DefaultCallbackTimeoutSeconds
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port <= 0 {
		cfg.Port = DefaultPort
	}
	switch strings.ToLower(strings.TrimSpace(cfg.SessionStore)) {
	case SessionStorePostgres:
		cfg.SessionStore = SessionStorePostgres
	case SessionStoreObject:
		cfg.SessionStore = SessionStoreObject
	default:
		cfg.SessionStore = SessionStoreFile
	}
}

// RequestTimeout returns the per-hop timeout.
func (cfg *Config) RequestTimeout() time.Duration {
	if cfg == nil || cfg.RequestTimeoutSeconds <= 0 {
		return DefaultRequestTimeoutSeconds * time.Second
	}
	return time.Duration(cfg.RequestTimeoutSeconds) * time.Second
}

// CallbackTimeout returns how long to wait for the browser redirect.
func (cfg *Config) CallbackTimeout() time.Duration {
	if cfg == nil || cfg.CallbackTimeoutSeconds <= 0 {
		return DefaultCallbackTimeoutSeconds * time.Second
	}
	return time.Duration(cfg.CallbackTimeoutSeconds) * time.Second
}
