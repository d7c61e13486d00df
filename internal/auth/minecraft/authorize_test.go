package minecraft

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"
)

func launchForTest(t *testing.T, surface *fakeSurface) (*PendingAuthorization, string) {
	t.Helper()
	auth := NewMinecraftAuthWithClient(testConfig("http://127.0.0.1:1"), http.DefaultClient)
	pending, err := NewLauncher(auth, factoryFor(surface)).Launch(context.Background(), fixedPKCE, "state-1")
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	shown, _, _ := surface.snapshot()
	return pending, shown
}

func TestLauncherCapturesCode(t *testing.T) {
	t.Parallel()

	surface := newFakeSurface("code=ABC123&state={state}")
	pending, shown := launchForTest(t, surface)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := pending.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if !result.Succeeded() || result.Code != "ABC123" {
		t.Fatalf("result = %+v, want code ABC123", result)
	}

	parsed, err := url.Parse(shown)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Query().Get("state") != "state-1" {
		t.Fatalf("authorization URL state = %q", parsed.Query().Get("state"))
	}
}

func TestLauncherIgnoresUnrelatedNavigation(t *testing.T) {
	t.Parallel()

	surface := newFakeSurface("")
	pending, _ := launchForTest(t, surface)

	surface.mu.Lock()
	navigate := surface.navigate
	surface.mu.Unlock()
	navigate("https://login.live.com/oauth20_authorize.srf?code=NOTME&state=state-1")
	navigate("http://localhost:9999/auth/callback?code=NOTME&state=state-1")
	navigate(testRedirectURI + "?code=REAL&state=state-1")

	result, err := pending.Wait(context.Background())
	if err != nil || result.Code != "REAL" {
		t.Fatalf("Wait() = (%+v, %v), want code REAL", result, err)
	}
}

func TestLauncherCancel(t *testing.T) {
	t.Parallel()

	surface := newFakeSurface("")
	pending, _ := launchForTest(t, surface)
	pending.Cancel()
	pending.Cancel()

	if _, err := pending.Wait(context.Background()); !errors.Is(err, ErrCancelled) {
		t.Fatalf("Wait() error = %v, want Cancelled", err)
	}
	if _, _, closed := surface.snapshot(); closed != 1 {
		t.Fatalf("surface closed %d times, want 1", closed)
	}
}

func TestLauncherBrowserUnavailableBeforeURL(t *testing.T) {
	t.Parallel()

	auth := NewMinecraftAuthWithClient(testConfig("http://127.0.0.1:1"), http.DefaultClient)
	_, err := NewLauncher(auth, nil).Launch(context.Background(), fixedPKCE, "s")
	if !errors.Is(err, ErrBrowserUnavailable) {
		t.Fatalf("Launch() error = %v, want BrowserUnavailable", err)
	}
}
