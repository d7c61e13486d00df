// Package misc provides small helpers shared by the login chain and its callback surfaces:
// OAuth state generation, redirect parsing, request header defaults and console output
// for saved sessions.
package misc

import (
	"net/http"
	"strings"
)

// EnsureHeader sets key on target to defaultValue unless target already carries a
// non-empty value for it.
func EnsureHeader(target http.Header, key, defaultValue string) {
	if target == nil {
		return
	}
	if strings.TrimSpace(target.Get(key)) != "" {
		return
	}
	if val := strings.TrimSpace(defaultValue); val != "" {
		target.Set(key, val)
	}
}

// ApplyDefaultHeaders fills the headers every hop sends: Accept, User-Agent and, when the
// request has a body, Content-Type.
func ApplyDefaultHeaders(req *http.Request, contentType, userAgent string) {
	if req == nil {
		return
	}
	EnsureHeader(req.Header, "Accept", "application/json")
	EnsureHeader(req.Header, "User-Agent", userAgent)
	if req.Body != nil && req.Body != http.NoBody {
		EnsureHeader(req.Header, "Content-Type", contentType)
	}
}
