package cmd

import (
	"context"
	"io"
	"time"

	"github.com/cryovex/mcauth/internal/config"
	sdkAuth "github.com/cryovex/mcauth/sdk/auth"
	log "github.com/sirupsen/logrus"
)

const storeOpenTimeout = 15 * time.Second

// newAuthManager opens the configured session store and wires it to a Minecraft authenticator.
// The returned release func closes the store's connections.
//
// Returns:
//   - *sdkAuth.Manager: A configured authentication manager instance
//   - func(): Releases store resources
//   - error: An error if the store could not be opened
func newAuthManager(cfg *config.Config) (*sdkAuth.Manager, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeOpenTimeout)
	defer cancel()

	store, err := sdkAuth.OpenStore(ctx, cfg)
	if err != nil {
		return nil, func() {}, err
	}
	release := func() {
		if closer, ok := store.(io.Closer); ok {
			if errClose := closer.Close(); errClose != nil {
				log.Warnf("failed to close session store: %v", errClose)
			}
		}
	}
	return sdkAuth.NewManager(cfg, store, sdkAuth.NewMinecraftAuthenticator()), release, nil
}
