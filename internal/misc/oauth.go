package misc

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// GenerateRandomState returns a 32 character hex nonce for the OAuth state parameter.
func GenerateRandomState() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// OAuthCallback captures the parameters of an authorization redirect.
type OAuthCallback struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// HasError reports whether the provider redirected with an error instead of a code.
func (c *OAuthCallback) HasError() bool {
	return c != nil && c.Error != ""
}

// ParseOAuthCallback extracts OAuth parameters from a redirect URL. Parameters are read from
// the query first and from the fragment when the query lacks them. Input without a scheme is
// accepted so that a user can paste just the query part of the address bar.
//
// Missing parameters are returned as empty strings; deciding whether that is an error is up to
// the caller.
func ParseOAuthCallback(input string) (*OAuthCallback, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, fmt.Errorf("empty callback URL")
	}

	candidate := trimmed
	if !strings.Contains(candidate, "://") {
		switch {
		case strings.HasPrefix(candidate, "?"):
			candidate = "http://localhost/" + candidate
		case strings.ContainsAny(candidate, "/?#") || strings.Contains(candidate, ":"):
			candidate = "http://" + candidate
		case strings.Contains(candidate, "="):
			candidate = "http://localhost/?" + candidate
		default:
			return nil, fmt.Errorf("invalid callback URL")
		}
	}

	parsedURL, err := url.Parse(candidate)
	if err != nil {
		return nil, fmt.Errorf("parse callback URL: %w", err)
	}

	query := parsedURL.Query()
	var fragment url.Values
	if parsedURL.Fragment != "" {
		if fragQuery, errFrag := url.ParseQuery(parsedURL.Fragment); errFrag == nil {
			fragment = fragQuery
		}
	}
	get := func(key string) string {
		if v := strings.TrimSpace(query.Get(key)); v != "" {
			return v
		}
		if fragment != nil {
			return strings.TrimSpace(fragment.Get(key))
		}
		return ""
	}

	cb := &OAuthCallback{
		Code:             get("code"),
		State:            get("state"),
		Error:            get("error"),
		ErrorDescription: get("error_description"),
	}
	if cb.Error == "" && cb.ErrorDescription != "" {
		cb.Error = cb.ErrorDescription
		cb.ErrorDescription = ""
	}
	return cb, nil
}
