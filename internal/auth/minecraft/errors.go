package minecraft

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies why a login attempt failed.
type ErrorKind string

const (
	// KindNetworkFailure is a transport error, timeout or 5xx. The whole attempt may be retried.
	KindNetworkFailure ErrorKind = "network_failure"
	// KindMalformedResponse means a response body was not a JSON object.
	KindMalformedResponse ErrorKind = "malformed_response"
	// KindProviderError is an explicit rejection such as access_denied or an XSTS XErr.
	KindProviderError ErrorKind = "provider_error"
	// KindIncompleteData means a required response field was missing or empty.
	KindIncompleteData ErrorKind = "incomplete_data"
	// KindBrowserUnavailable means the login page could not be presented.
	KindBrowserUnavailable ErrorKind = "browser_unavailable"
	// KindCancelled is a user or caller initiated abort.
	KindCancelled ErrorKind = "cancelled"
	// KindInvalidState means the redirect carried a state that does not belong to this attempt.
	KindInvalidState ErrorKind = "invalid_state"
	// KindCallbackTimeout means no redirect arrived within the callback timeout.
	KindCallbackTimeout ErrorKind = "callback_timeout"
	// KindSetupFailure means the attempt could not be prepared locally, for example because
	// the secure random source failed.
	KindSetupFailure ErrorKind = "setup_failure"
)

// ChainError is the single error type produced by a failed login attempt.
// It never carries token values; Cause holds transport errors only.
type ChainError struct {
	// Kind is the failure class.
	Kind ErrorKind `json:"kind"`
	// Hop is the exchange that failed, empty when the failure is not tied to one.
	Hop Hop `json:"hop,omitempty"`
	// Message is a short description of the failure.
	Message string `json:"message"`
	// Field names the missing response field for KindIncompleteData.
	Field string `json:"field,omitempty"`
	// Code and Description carry the provider's error for KindProviderError.
	Code        string `json:"code,omitempty"`
	Description string `json:"description,omitempty"`
	// StatusCode is the HTTP status of the failing response, if any.
	StatusCode int `json:"status,omitempty"`
	// Timeout is set when a NetworkFailure was caused by a deadline.
	Timeout bool `json:"timeout,omitempty"`
	// Cause is the underlying error.
	Cause error `json:"-"`
}

// Error returns a string representation of the chain error.
func (e *ChainError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Hop != "" {
		b.WriteString(" at ")
		b.WriteString(string(e.Hop))
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Field != "" {
		fmt.Fprintf(&b, " (field %s)", e.Field)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " [%s]", e.Code)
		if e.Description != "" {
			b.WriteString(" ")
			b.WriteString(e.Description)
		}
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *ChainError) Unwrap() error {
	return e.Cause
}

// Is matches any *ChainError of the same Kind, so errors.Is(err, ErrCancelled) works
// for every cancelled attempt.
func (e *ChainError) Is(target error) bool {
	t, ok := target.(*ChainError)
	return ok && t.Kind == e.Kind
}

// Retryable reports whether a brand-new attempt may succeed. Individual hops are never retried.
func (e *ChainError) Retryable() bool {
	return e.Kind == KindNetworkFailure
}

// Error templates, one per kind. Use errors.Is to test a returned error against them.
var (
	ErrNetworkFailure = &ChainError{
		Kind:    KindNetworkFailure,
		Message: "request failed",
	}

	ErrMalformedResponse = &ChainError{
		Kind:    KindMalformedResponse,
		Message: "response is not a JSON object",
	}

	ErrProviderError = &ChainError{
		Kind:    KindProviderError,
		Message: "request rejected",
	}

	ErrIncompleteData = &ChainError{
		Kind:    KindIncompleteData,
		Message: "required field missing from response",
	}

	ErrBrowserUnavailable = &ChainError{
		Kind:    KindBrowserUnavailable,
		Message: "login page cannot be displayed",
	}

	ErrCancelled = &ChainError{
		Kind:    KindCancelled,
		Message: "login cancelled",
	}

	ErrInvalidState = &ChainError{
		Kind:    KindInvalidState,
		Message: "OAuth state parameter is invalid",
	}

	ErrCallbackTimeout = &ChainError{
		Kind:    KindCallbackTimeout,
		Message: "timeout waiting for the authorization redirect",
	}

	ErrSetupFailure = &ChainError{
		Kind:    KindSetupFailure,
		Message: "login attempt could not be prepared",
	}
)

// newChainError copies base and attaches hop and cause.
func newChainError(base *ChainError, hop Hop, cause error) *ChainError {
	return &ChainError{
		Kind:    base.Kind,
		Hop:     hop,
		Message: base.Message,
		Cause:   cause,
	}
}

func providerError(hop Hop, code, description string, statusCode int) *ChainError {
	err := newChainError(ErrProviderError, hop, nil)
	err.Code = code
	err.Description = description
	err.StatusCode = statusCode
	return err
}

func incompleteData(hop Hop, field string) *ChainError {
	err := newChainError(ErrIncompleteData, hop, nil)
	err.Field = field
	return err
}

// IsChainError checks if an error is a chain error.
func IsChainError(err error) bool {
	_, ok := errors.AsType[*ChainError](err)
	return ok
}

// XSTS XErr codes with a dedicated user message.
const (
	xerrNoXboxAccount     = "2148916233"
	xerrRegionUnavailable = "2148916235"
	xerrAdultVerification = "2148916236"
	xerrAgeVerification   = "2148916237"
	xerrChildAccount      = "2148916238"
)

// GetUserFriendlyMessage returns a message suitable for the launcher UI. Cancelled attempts
// return an empty string because the user already knows.
func GetUserFriendlyMessage(err error) string {
	if err == nil {
		return ""
	}
	chainErr, ok := errors.AsType[*ChainError](err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}
	switch chainErr.Kind {
	case KindCancelled:
		return ""
	case KindNetworkFailure:
		if chainErr.Timeout {
			return "The login service took too long to respond. Check your connection and try again."
		}
		if chainErr.StatusCode >= http.StatusInternalServerError {
			return "The login service is temporarily unavailable. Please try again later."
		}
		return "Could not reach the login service. Check your connection and try again."
	case KindMalformedResponse:
		return "The login service returned an unexpected response. Please try again later."
	case KindIncompleteData:
		return "The login service response was missing required data. The launcher may need an update."
	case KindBrowserUnavailable:
		return "Could not open the Microsoft sign-in page. Please copy the sign-in link into a browser."
	case KindInvalidState:
		return "The sign-in response did not match this login attempt. Please try again."
	case KindCallbackTimeout:
		return "Sign-in timed out. Please try again."
	case KindSetupFailure:
		return "The sign-in could not be prepared on this computer. Please try again."
	case KindProviderError:
		return providerMessage(chainErr)
	default:
		return "Authentication failed. Please try again."
	}
}

func providerMessage(err *ChainError) string {
	switch err.Code {
	case "access_denied":
		return "Sign-in was cancelled or denied."
	case "invalid_grant":
		return "The sign-in code expired. Please try again."
	case xerrNoXboxAccount:
		return "This Microsoft account has no Xbox profile. Create one at xbox.com and try again."
	case xerrRegionUnavailable:
		return "Xbox Live is not available in your country or region."
	case xerrAdultVerification, xerrAgeVerification:
		return "This account needs adult verification on xbox.com before it can sign in."
	case xerrChildAccount:
		return "This is a child account. An adult must add it to a Microsoft family before it can sign in."
	case "NOT_FOUND":
		if err.Hop == HopProfile {
			return "This Microsoft account does not own Minecraft."
		}
	}
	if err.StatusCode == http.StatusUnauthorized || err.StatusCode == http.StatusForbidden {
		return "The account was not authorized to sign in. Please try again."
	}
	if err.Description != "" {
		return fmt.Sprintf("Sign-in failed: %s", err.Description)
	}
	return "Sign-in was rejected. Please try again."
}
