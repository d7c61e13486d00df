package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cryovex/mcauth/internal/auth/minecraft"
	"github.com/cryovex/mcauth/internal/browser"
	"github.com/cryovex/mcauth/internal/config"
	log "github.com/sirupsen/logrus"
)

// SurfaceBuilder creates the browsing surface for one attempt.
type SurfaceBuilder func(redirectURI string, opts *LoginOptions) (minecraft.Surface, error)

// MinecraftAuthenticator runs the Microsoft to Minecraft login chain.
type MinecraftAuthenticator struct {
	// NewSurface overrides the browsing surface. Defaults to a loopback listener plus the
	// system browser.
	NewSurface SurfaceBuilder
	// HTTPClient overrides the client used for the token hops.
	HTTPClient *http.Client
}

// NewMinecraftAuthenticator constructs an authenticator with the default browsing surface.
func NewMinecraftAuthenticator() *MinecraftAuthenticator {
	return &MinecraftAuthenticator{}
}

// Start begins a new attempt. Every call uses a fresh orchestrator, so PKCE and state are
// never reused. The configuration's no-browser setting is merged into opts.
func (a *MinecraftAuthenticator) Start(ctx context.Context, cfg *config.Config, opts *LoginOptions) (*minecraft.Attempt, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mcauth: configuration is required")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("mcauth: client-id is not configured")
	}
	var attemptOpts LoginOptions
	if opts != nil {
		attemptOpts = *opts
	}
	if cfg.NoBrowser {
		attemptOpts.NoBrowser = true
	}
	opts = &attemptOpts

	var mcAuth *minecraft.MinecraftAuth
	if a.HTTPClient != nil {
		mcAuth = minecraft.NewMinecraftAuthWithClient(cfg, a.HTTPClient)
	} else {
		mcAuth = minecraft.NewMinecraftAuth(cfg)
	}

	build := a.NewSurface
	if build == nil {
		build = loopbackSurface
	}
	redirectURI := mcAuth.RedirectURI()
	newSurface := func() (minecraft.Surface, error) {
		return build(redirectURI, opts)
	}

	var orchestratorOpts []minecraft.Option
	if opts.OnTransition != nil {
		orchestratorOpts = append(orchestratorOpts, minecraft.WithTransitionHook(opts.OnTransition))
	}
	return minecraft.NewOrchestrator(mcAuth, newSurface, orchestratorOpts...).Start(ctx)
}

func loopbackSurface(redirectURI string, opts *LoginOptions) (minecraft.Surface, error) {
	noBrowser := opts.NoBrowser
	if !noBrowser && !browser.IsAvailable() {
		log.Debug("no browser command found, using manual sign-in")
		noBrowser = true
	}
	surface, err := browser.NewLoopbackSurface(redirectURI, browser.SurfaceOptions{
		NoBrowser: noBrowser,
		Out:       opts.Out,
		Prompt:    opts.Prompt,
		OnShow:    opts.OnShow,
	})
	if err != nil {
		return nil, err
	}
	return surface, nil
}
