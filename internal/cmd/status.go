package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cryovex/mcauth/internal/auth/minecraft"
	"github.com/cryovex/mcauth/internal/config"
	log "github.com/sirupsen/logrus"
)

// DoStatus prints the saved profile, or that nobody is logged in. Tokens are never printed.
func DoStatus(cfg *config.Config, out io.Writer) error {
	if out == nil {
		out = os.Stdout
	}
	manager, release, err := newAuthManager(cfg)
	if err != nil {
		log.Errorf("failed to open session store: %v", err)
		return err
	}
	defer release()

	session, err := manager.Session(context.Background())
	switch {
	case errors.Is(err, minecraft.ErrNoSession):
		fmt.Fprintln(out, "Not logged in.")
		return nil
	case err != nil:
		log.Errorf("failed to load session: %v", err)
		return err
	}
	fmt.Fprintf(out, "Logged in as %s (%s)\n", session.Username, session.AccountID)
	if expiresAt, ok := session.ExpiresAt(); ok {
		if session.Expired(time.Now()) {
			fmt.Fprintln(out, "The access token has expired; run -login again.")
		} else {
			fmt.Fprintf(out, "Access token valid until %s\n", expiresAt.Local().Format(time.RFC1123))
		}
	}
	return nil
}

// DoLogout deletes the saved session.
func DoLogout(cfg *config.Config, out io.Writer) error {
	if out == nil {
		out = os.Stdout
	}
	manager, release, err := newAuthManager(cfg)
	if err != nil {
		log.Errorf("failed to open session store: %v", err)
		return err
	}
	defer release()

	if err = manager.Logout(context.Background()); err != nil {
		log.Errorf("failed to delete session: %v", err)
		return err
	}
	fmt.Fprintln(out, "Logged out.")
	return nil
}
