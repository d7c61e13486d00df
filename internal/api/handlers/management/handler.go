// Package management implements the local control endpoints a launcher front-end uses to drive
// the Minecraft login: start, poll and cancel an attempt, inspect or delete the saved session.
package management

import (
	"context"

	sdkauth "github.com/cryovex/mcauth/sdk/auth"
)

// Handler serves the management endpoints.
type Handler struct {
	mgr *sdkauth.Manager
	// baseCtx bounds attempts started over HTTP; a request context ends with its response.
	baseCtx context.Context
}

// NewHandler creates a handler. Attempts it starts are cancelled when baseCtx ends.
func NewHandler(baseCtx context.Context, mgr *sdkauth.Manager) *Handler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Handler{mgr: mgr, baseCtx: baseCtx}
}
