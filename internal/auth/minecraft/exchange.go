package minecraft

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cryovex/mcauth/internal/logging"
	"github.com/cryovex/mcauth/internal/misc"
	"github.com/cryovex/mcauth/internal/util"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 1 << 20

	// maxLoggedBodyBytes caps how much of a malformed body is logged.
	maxLoggedBodyBytes = 512

	contentTypeForm = "application/x-www-form-urlencoded"
	contentTypeJSON = "application/json"
)

// hopRequest describes one HTTP exchange of the chain.
type hopRequest struct {
	hop         Hop
	method      string
	url         string
	body        []byte
	contentType string
	bearer      string
	// required lists gjson paths that must be present and non-empty in the response.
	required []string
}

// exchanger issues hop requests and classifies their outcome.
type exchanger struct {
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
}

// do runs one hop with its own deadline and returns the parsed response body.
// Every failure is a *ChainError tagged with the hop.
func (x *exchanger) do(ctx context.Context, hr hopRequest) (gjson.Result, error) {
	reqCtx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	var body io.Reader = http.NoBody
	if hr.body != nil {
		body = bytes.NewReader(hr.body)
	}
	req, err := http.NewRequestWithContext(reqCtx, hr.method, hr.url, body)
	if err != nil {
		return gjson.Result{}, newChainError(ErrNetworkFailure, hr.hop, fmt.Errorf("failed to create request: %w", err))
	}
	misc.ApplyDefaultHeaders(req, hr.contentType, x.userAgent)
	if hr.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+hr.bearer)
	}

	entry := logging.FromContext(ctx).WithField("hop", string(hr.hop))
	if authorization := req.Header.Get("Authorization"); authorization != "" {
		entry.WithField("authorization", util.MaskAuthorizationHeader(authorization)).Debugf("%s %s", hr.method, hr.url)
	} else {
		entry.Debugf("%s %s", hr.method, hr.url)
	}

	start := time.Now()
	resp, err := x.httpClient.Do(req)
	if err != nil {
		chainErr := transportError(ctx, hr.hop, err)
		entry.WithField("kind", chainErr.Kind).Warn("hop request failed")
		return gjson.Result{}, chainErr
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Errorf("failed to close response body: %v", errClose)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		chainErr := transportError(ctx, hr.hop, fmt.Errorf("failed to read response: %w", err))
		entry.WithField("kind", chainErr.Kind).Warn("hop response could not be read")
		return gjson.Result{}, chainErr
	}

	entry = entry.WithFields(log.Fields{
		"status":  resp.StatusCode,
		"len":     len(data),
		"elapsed": time.Since(start).Truncate(time.Millisecond),
	})

	result, chainErr := classifyResponse(hr, resp.StatusCode, data)
	if chainErr != nil {
		entry = entry.WithField("kind", chainErr.Kind)
		switch chainErr.Kind {
		case KindMalformedResponse:
			entry.Warnf("hop returned a malformed body: %s", loggableBody(data))
		case KindIncompleteData:
			entry.Warnf("hop response is missing %s", chainErr.Field)
		default:
			entry.Warnf("hop rejected: %s", chainErr.Error())
		}
		return gjson.Result{}, chainErr
	}
	entry.Debug("hop succeeded")
	return result, nil
}

// transportError classifies a failed round trip. A cancelled parent context is a
// cancellation; anything else, including the per-hop deadline, is a network failure.
func transportError(parent context.Context, hop Hop, err error) *ChainError {
	if errors.Is(parent.Err(), context.Canceled) {
		return newChainError(ErrCancelled, hop, nil)
	}
	chainErr := newChainError(ErrNetworkFailure, hop, err)
	if errors.Is(err, context.DeadlineExceeded) {
		chainErr.Timeout = true
	} else if netErr, ok := errors.AsType[net.Error](err); ok && netErr.Timeout() {
		chainErr.Timeout = true
	}
	if chainErr.Timeout {
		chainErr.Message = "request timed out"
	}
	return chainErr
}

// classifyResponse turns a status and body into either the parsed body or a *ChainError.
func classifyResponse(hr hopRequest, status int, data []byte) (gjson.Result, *ChainError) {
	trimmed := bytes.TrimSpace(data)
	isObject := len(trimmed) > 0 && trimmed[0] == '{' && gjson.ValidBytes(trimmed)

	var parsed gjson.Result
	if isObject {
		parsed = gjson.ParseBytes(trimmed)
		if chainErr := providerErrorFromBody(hr.hop, status, parsed); chainErr != nil {
			return gjson.Result{}, chainErr
		}
	}

	switch {
	case status >= http.StatusInternalServerError:
		chainErr := newChainError(ErrNetworkFailure, hr.hop, nil)
		chainErr.StatusCode = status
		chainErr.Message = "service unavailable"
		return gjson.Result{}, chainErr
	case status < http.StatusOK || status >= http.StatusMultipleChoices:
		return gjson.Result{}, providerError(hr.hop, fmt.Sprintf("http_%d", status), http.StatusText(status), status)
	case !isObject:
		chainErr := newChainError(ErrMalformedResponse, hr.hop, nil)
		chainErr.StatusCode = status
		return gjson.Result{}, chainErr
	}

	for _, path := range hr.required {
		if !present(parsed.Get(path)) {
			return gjson.Result{}, incompleteData(hr.hop, path)
		}
	}
	return parsed, nil
}

// providerErrorFromBody recognises the error shapes of the services in the chain:
// OAuth {"error","error_description"}, Xbox {"XErr","Message"} and
// Minecraft services {"error","errorMessage"}.
func providerErrorFromBody(hop Hop, status int, body gjson.Result) *ChainError {
	if xerr := body.Get("XErr"); present(xerr) {
		description := strings.TrimSpace(body.Get("Message").String())
		if description == "" {
			description = strings.TrimSpace(body.Get("Redirect").String())
		}
		return providerError(hop, xerr.String(), description, status)
	}
	if code := body.Get("error"); present(code) && code.Type == gjson.String {
		description := strings.TrimSpace(body.Get("error_description").String())
		if description == "" {
			description = strings.TrimSpace(body.Get("errorMessage").String())
		}
		return providerError(hop, code.String(), description, status)
	}
	if status >= http.StatusBadRequest {
		if msg := body.Get("errorMessage"); present(msg) {
			code := strings.TrimSpace(body.Get("errorType").String())
			if code == "" {
				code = fmt.Sprintf("http_%d", status)
			}
			return providerError(hop, code, msg.String(), status)
		}
	}
	return nil
}

// present reports whether v exists and is non-empty. Arrays must have at least one element.
func present(v gjson.Result) bool {
	if !v.Exists() || v.Type == gjson.Null {
		return false
	}
	if v.IsArray() {
		return len(v.Array()) > 0
	}
	if v.IsObject() {
		return len(v.Map()) > 0
	}
	return strings.TrimSpace(v.String()) != ""
}

// loggableBody returns a truncated body with credential-looking members redacted.
func loggableBody(data []byte) string {
	truncated := len(data) > maxLoggedBodyBytes
	if truncated {
		data = data[:maxLoggedBodyBytes]
	}
	out := util.RedactBody(data)
	if truncated {
		out += "...(truncated)"
	}
	return out
}
