package minecraft

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClassifyResponse(t *testing.T) {
	t.Parallel()

	hr := hopRequest{hop: HopXSTS, required: []string{"Token", "DisplayClaims.xui", "DisplayClaims.xui.0.uhs"}}

	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   ErrorKind
		wantCode   string
		wantField  string
		wantStatus int
	}{
		{name: "ok", status: 200, body: `{"Token":"c","DisplayClaims":{"xui":[{"uhs":"h"}]}}`},
		{name: "empty body", status: 200, body: ``, wantKind: KindMalformedResponse, wantStatus: 200},
		{name: "json array", status: 200, body: `[1,2]`, wantKind: KindMalformedResponse, wantStatus: 200},
		{name: "truncated json", status: 200, body: `{"Token":"c"`, wantKind: KindMalformedResponse, wantStatus: 200},
		{name: "missing token", status: 200, body: `{"DisplayClaims":{"xui":[{"uhs":"h"}]}}`, wantKind: KindIncompleteData, wantField: "Token"},
		{name: "blank token", status: 200, body: `{"Token":"  ","DisplayClaims":{"xui":[{"uhs":"h"}]}}`, wantKind: KindIncompleteData, wantField: "Token"},
		{name: "null claims", status: 200, body: `{"Token":"c","DisplayClaims":{"xui":null}}`, wantKind: KindIncompleteData, wantField: "DisplayClaims.xui"},
		{name: "empty claims", status: 200, body: `{"Token":"c","DisplayClaims":{"xui":[]}}`, wantKind: KindIncompleteData, wantField: "DisplayClaims.xui"},
		{name: "claim without uhs", status: 200, body: `{"Token":"c","DisplayClaims":{"xui":[{}]}}`, wantKind: KindIncompleteData, wantField: "DisplayClaims.xui.0.uhs"},
		{name: "oauth error on 200", status: 200, body: `{"error":"invalid_request","error_description":"bad"}`, wantKind: KindProviderError, wantCode: "invalid_request", wantStatus: 200},
		{name: "xerr", status: 401, body: `{"XErr":2148916238,"Message":""}`, wantKind: KindProviderError, wantCode: "2148916238", wantStatus: 401},
		{name: "minecraft error", status: 401, body: `{"errorType":"UNAUTHORIZED","errorMessage":"Invalid app registration"}`, wantKind: KindProviderError, wantCode: "UNAUTHORIZED", wantStatus: 401},
		{name: "plain 403", status: 403, body: `Forbidden`, wantKind: KindProviderError, wantCode: "http_403", wantStatus: 403},
		{name: "server error", status: 502, body: `<html>Bad Gateway</html>`, wantKind: KindNetworkFailure, wantStatus: 502},
		{name: "server error with oauth body", status: 500, body: `{"error":"server_error"}`, wantKind: KindProviderError, wantCode: "server_error", wantStatus: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, chainErr := classifyResponse(hr, tt.status, []byte(tt.body))
			if tt.wantKind == "" {
				if chainErr != nil {
					t.Fatalf("unexpected error: %v", chainErr)
				}
				if result.Get("DisplayClaims.xui.0.uhs").String() != "h" {
					t.Fatalf("parsed body lost the user hash: %s", result.Raw)
				}
				return
			}
			if chainErr == nil {
				t.Fatalf("expected %s, got success", tt.wantKind)
			}
			if chainErr.Kind != tt.wantKind {
				t.Fatalf("kind = %s, want %s (%v)", chainErr.Kind, tt.wantKind, chainErr)
			}
			if chainErr.Hop != HopXSTS {
				t.Errorf("hop = %s, want xsts", chainErr.Hop)
			}
			if chainErr.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", chainErr.Code, tt.wantCode)
			}
			if chainErr.Field != tt.wantField {
				t.Errorf("field = %q, want %q", chainErr.Field, tt.wantField)
			}
			if chainErr.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", chainErr.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestExchangerTimeoutIsNetworkFailure(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	x := &exchanger{httpClient: srv.Client(), timeout: 50 * time.Millisecond, userAgent: "test"}
	_, err := x.do(context.Background(), hopRequest{hop: HopProfile, method: http.MethodGet, url: srv.URL})

	chainErr, ok := errors.AsType[*ChainError](err)
	if !ok || chainErr.Kind != KindNetworkFailure || !chainErr.Timeout {
		t.Fatalf("expected timed out NetworkFailure, got %v", err)
	}
	if got := GetUserFriendlyMessage(err); got != "The login service took too long to respond. Check your connection and try again." {
		t.Errorf("GetUserFriendlyMessage() = %q", got)
	}
}

func TestExchangerParentCancelIsCancelled(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	x := &exchanger{httpClient: srv.Client(), timeout: 5 * time.Second, userAgent: "test"}
	_, err := x.do(ctx, hopRequest{hop: HopXboxLive, method: http.MethodPost, url: srv.URL, body: []byte(`{}`), contentType: contentTypeJSON})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected Cancelled, got %v", err)
	}
}

func TestExchangerSendsDefaultHeaders(t *testing.T) {
	t.Parallel()

	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte(`{"ok":"yes"}`))
	}))
	defer srv.Close()

	x := &exchanger{httpClient: srv.Client(), timeout: time.Second, userAgent: "CryovexLauncher/test"}
	if _, err := x.do(context.Background(), hopRequest{hop: HopXboxLive, method: http.MethodPost, url: srv.URL, body: []byte(`{}`), contentType: contentTypeJSON, required: []string{"ok"}}); err != nil {
		t.Fatalf("do() error = %v", err)
	}
	if got.Get("Accept") != "application/json" || got.Get("Content-Type") != contentTypeJSON || got.Get("User-Agent") != "CryovexLauncher/test" {
		t.Fatalf("unexpected headers: %v", got)
	}
}
