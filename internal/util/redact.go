package util

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// tokenFieldPattern matches JSON string members whose key looks like a credential.
var tokenFieldPattern = regexp.MustCompile(`(?i)("(?:[a-z_]*token|code|code_verifier|rpsticket|uhs)"\s*:\s*")([^"]*)(")`)

// tokenRunPattern matches long base64/JWT-like runs that survive field redaction,
// for example inside a truncated body.
var tokenRunPattern = regexp.MustCompile(`[A-Za-z0-9\-_.~+/=]{32,}`)

// RedactSecret replaces a credential with a marker that keeps only its length.
func RedactSecret(secret string) string {
	if secret == "" {
		return ""
	}
	return fmt.Sprintf("[redacted len=%d]", len(secret))
}

// HideAPIKey obscures a value for logging purposes, showing only the first and last few characters.
func HideAPIKey(apiKey string) string {
	if len(apiKey) > 8 {
		return apiKey[:4] + "..." + apiKey[len(apiKey)-4:]
	} else if len(apiKey) > 4 {
		return apiKey[:2] + "..." + apiKey[len(apiKey)-2:]
	} else if len(apiKey) > 2 {
		return apiKey[:1] + "..." + apiKey[len(apiKey)-1:]
	}
	return apiKey
}

// MaskAuthorizationHeader masks the Authorization header value while preserving the auth type prefix.
func MaskAuthorizationHeader(value string) string {
	parts := strings.SplitN(strings.TrimSpace(value), " ", 2)
	if len(parts) < 2 {
		return RedactSecret(value)
	}
	return parts[0] + " " + RedactSecret(parts[1])
}

// MaskSensitiveQuery masks the authorization code, state, verifier and token parameters
// within a raw query string.
func MaskSensitiveQuery(raw string) string {
	if raw == "" {
		return ""
	}
	parts := strings.Split(raw, "&")
	changed := false
	for i, part := range parts {
		if part == "" {
			continue
		}
		keyPart := part
		valuePart := ""
		if idx := strings.Index(part, "="); idx >= 0 {
			keyPart = part[:idx]
			valuePart = part[idx+1:]
		}
		decodedKey, err := url.QueryUnescape(keyPart)
		if err != nil {
			decodedKey = keyPart
		}
		if !shouldMaskQueryParam(decodedKey) {
			continue
		}
		decodedValue, err := url.QueryUnescape(valuePart)
		if err != nil {
			decodedValue = valuePart
		}
		parts[i] = keyPart + "=" + url.QueryEscape(RedactSecret(strings.TrimSpace(decodedValue)))
		changed = true
	}
	if !changed {
		return raw
	}
	return strings.Join(parts, "&")
}

// MaskURL returns rawURL with its sensitive query and fragment parameters masked.
func MaskURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return RedactSecret(rawURL)
	}
	parsed.RawQuery = MaskSensitiveQuery(parsed.RawQuery)
	if parsed.Fragment != "" {
		parsed.Fragment = MaskSensitiveQuery(parsed.Fragment)
		parsed.RawFragment = ""
	}
	return parsed.String()
}

// RedactBody masks credential-looking JSON members and long token-like runs in a response
// body so it can be logged.
func RedactBody(body []byte) string {
	out := tokenFieldPattern.ReplaceAllStringFunc(string(body), func(match string) string {
		sub := tokenFieldPattern.FindStringSubmatch(match)
		if len(sub) != 4 {
			return match
		}
		return sub[1] + RedactSecret(sub[2]) + sub[3]
	})
	return tokenRunPattern.ReplaceAllStringFunc(out, RedactSecret)
}

func shouldMaskQueryParam(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return false
	}
	switch key {
	case "code", "state", "code_verifier", "code_challenge", "client_secret":
		return true
	}
	return strings.Contains(key, "token") || strings.Contains(key, "secret")
}
