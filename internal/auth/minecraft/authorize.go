package minecraft

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/cryovex/mcauth/internal/logging"
	"github.com/cryovex/mcauth/internal/misc"
	"github.com/cryovex/mcauth/internal/util"
)

// Surface is the interactive browsing surface that presents the Microsoft login page.
// Implementations must not share cookies or storage with other sessions.
type Surface interface {
	// Show presents authURL to the user.
	Show(authURL string) error
	// Hide removes the login page once the redirect has been captured.
	Hide()
	// OnNavigated registers fn to receive every URL the surface navigates to.
	OnNavigated(fn func(navigatedURL string))
	// Close releases the surface.
	Close() error
}

// CloseNotifier is implemented by surfaces that can be closed by the user.
// The callback cancels the pending authorization.
type CloseNotifier interface {
	OnClosed(fn func())
}

// RedirectReporter is implemented by surfaces that may serve a different redirect URI than the
// configured one, such as a loopback listener bound to an ephemeral port.
type RedirectReporter interface {
	RedirectURI() string
}

// SurfaceFactory constructs a Surface or reports why none can be shown.
type SurfaceFactory func() (Surface, error)

// Launcher opens the authorization page and captures the redirect.
type Launcher struct {
	auth       *MinecraftAuth
	newSurface SurfaceFactory
}

// NewLauncher returns a Launcher that presents pages through surfaces built by newSurface.
func NewLauncher(auth *MinecraftAuth, newSurface SurfaceFactory) *Launcher {
	return &Launcher{auth: auth, newSurface: newSurface}
}

// Launch creates the surface, shows the authorization URL and returns the pending redirect.
// A surface that cannot be created fails with BrowserUnavailable before the URL is built.
func (l *Launcher) Launch(ctx context.Context, pkceCodes *PKCECodes, state string) (*PendingAuthorization, error) {
	if l.newSurface == nil {
		return nil, newChainError(ErrBrowserUnavailable, HopAuthorization, errors.New("no browsing surface configured"))
	}
	surface, err := l.newSurface()
	if err != nil {
		return nil, newChainError(ErrBrowserUnavailable, HopAuthorization, err)
	}
	if surface == nil {
		return nil, newChainError(ErrBrowserUnavailable, HopAuthorization, errors.New("browsing surface factory returned nil"))
	}

	redirectURI := l.auth.RedirectURI()
	if reporter, ok := surface.(RedirectReporter); ok {
		if served := reporter.RedirectURI(); served != "" {
			redirectURI = served
		}
	}
	authURL := l.auth.authCodeURL(redirectURI, state, pkceCodes)
	pending := &PendingAuthorization{
		ctx:         ctx,
		surface:     surface,
		redirectURI: redirectURI,
		state:       state,
		outcome:     make(chan authOutcome, 1),
	}
	surface.OnNavigated(pending.navigated)
	if notifier, ok := surface.(CloseNotifier); ok {
		notifier.OnClosed(pending.Cancel)
	}

	logging.FromContext(ctx).WithField("client_id", util.HideAPIKey(l.auth.clientID)).Debugf("opening authorization page %s", util.MaskURL(authURL))
	if err = surface.Show(authURL); err != nil {
		pending.release()
		return nil, newChainError(ErrBrowserUnavailable, HopAuthorization, err)
	}
	return pending, nil
}

type authOutcome struct {
	result *AuthorizationResult
	err    error
}

// PendingAuthorization is an authorization page waiting for its redirect.
// It resolves exactly once: with the redirect, or with a cancellation.
type PendingAuthorization struct {
	ctx         context.Context
	surface     Surface
	redirectURI string
	state       string

	resolveOnce sync.Once
	releaseOnce sync.Once
	outcome     chan authOutcome
}

// navigated inspects a URL reported by the surface. Only URLs starting with the redirect URI
// resolve the authorization; everything else is the provider's own login pages.
func (p *PendingAuthorization) navigated(navigatedURL string) {
	if !strings.HasPrefix(navigatedURL, p.redirectURI) {
		return
	}
	entry := logging.FromContext(p.ctx).WithField("hop", string(HopAuthorization))
	entry.Debugf("captured redirect %s", util.MaskURL(navigatedURL))

	cb, err := misc.ParseOAuthCallback(navigatedURL)
	switch {
	case err != nil:
		chainErr := newChainError(ErrMalformedResponse, HopAuthorization, err)
		chainErr.Message = "redirect URL could not be parsed"
		p.resolve(authOutcome{err: chainErr})
	case cb.State != p.state:
		entry.Warn("redirect state does not match this attempt")
		p.resolve(authOutcome{err: newChainError(ErrInvalidState, HopAuthorization, nil)})
	case cb.HasError():
		p.resolve(authOutcome{result: &AuthorizationResult{State: cb.State, ErrorCode: cb.Error, ErrorDescription: cb.ErrorDescription, RedirectURI: p.redirectURI}})
	case cb.Code == "":
		p.resolve(authOutcome{err: incompleteData(HopAuthorization, "code")})
	default:
		p.resolve(authOutcome{result: &AuthorizationResult{Code: cb.Code, State: cb.State, RedirectURI: p.redirectURI}})
	}
	p.surface.Hide()
}

func (p *PendingAuthorization) resolve(o authOutcome) {
	p.resolveOnce.Do(func() {
		p.outcome <- o
	})
}

// Cancel resolves the authorization as cancelled. It is a no-op once a redirect was captured.
func (p *PendingAuthorization) Cancel() {
	p.resolve(authOutcome{err: newChainError(ErrCancelled, HopAuthorization, nil)})
}

// Wait blocks until the redirect arrives, the authorization is cancelled, or ctx ends.
// A ctx deadline yields CallbackTimeout; any other ctx end yields Cancelled.
// The surface is closed before Wait returns.
func (p *PendingAuthorization) Wait(ctx context.Context) (*AuthorizationResult, error) {
	defer p.release()
	select {
	case o := <-p.outcome:
		return o.result, o.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, newChainError(ErrCallbackTimeout, HopAuthorization, nil)
		}
		return nil, newChainError(ErrCancelled, HopAuthorization, nil)
	}
}

func (p *PendingAuthorization) release() {
	p.releaseOnce.Do(func() {
		if err := p.surface.Close(); err != nil {
			logging.FromContext(p.ctx).Debugf("failed to close browsing surface: %v", err)
		}
	})
}
