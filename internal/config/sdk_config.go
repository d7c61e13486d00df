// Package config provides configuration management for the launcher authentication service.
// It handles loading and parsing YAML configuration files, and provides structured
// access to application settings including the OAuth client registration, callback
// address, auth directory, debug settings, proxy configuration, and session storage.
package config

// SDKConfig holds the settings shared by every outbound HTTP client in the login chain.
type SDKConfig struct {
	// ProxyURL is the URL of an optional proxy server to use for outbound requests.
	ProxyURL string `yaml:"proxy-url" json:"proxy-url"`

	// RequestTimeoutSeconds bounds every single hop of the login chain.
	// <= 0 falls back to DefaultRequestTimeoutSeconds.
	RequestTimeoutSeconds int `yaml:"request-timeout-seconds,omitempty" json:"request-timeout-seconds,omitempty"`

	// UserAgent is sent on every hop. Empty uses DefaultUserAgent.
	UserAgent string `yaml:"user-agent,omitempty" json:"user-agent,omitempty"`
}
