// Package auth exposes the Minecraft login to embedding applications: an authenticator that
// runs the browser login chain, session stores, and a Manager that admits one attempt at a time
// and persists its result.
package auth

import (
	"context"
	"io"

	"github.com/cryovex/mcauth/internal/auth/minecraft"
	"github.com/cryovex/mcauth/internal/config"
)

// LoginOptions captures knobs for a single login attempt.
type LoginOptions struct {
	// NoBrowser prints the authorization URL instead of opening the system browser. The
	// configuration's no-browser setting also applies; this field can only switch it on.
	NoBrowser bool
	// Out receives user-facing instructions. Nil discards them.
	Out io.Writer
	// Prompt, when set, is read for a pasted redirect URL.
	Prompt io.Reader
	// OnTransition observes state changes of the attempt.
	OnTransition minecraft.TransitionFunc
	// OnShow receives the authorization URL when the sign-in page is presented.
	OnShow func(authURL string)
}

// Authenticator starts interactive login attempts.
type Authenticator interface {
	Start(ctx context.Context, cfg *config.Config, opts *LoginOptions) (*minecraft.Attempt, error)
}

// Store persists the single saved session.
type Store interface {
	// Save writes the session and returns a description of where it went.
	Save(ctx context.Context, session *minecraft.AuthSession) (string, error)
	// Load returns the saved session or minecraft.ErrNoSession.
	Load(ctx context.Context) (*minecraft.AuthSession, error)
	// Delete removes the saved session. Deleting nothing is not an error.
	Delete(ctx context.Context) error
}
