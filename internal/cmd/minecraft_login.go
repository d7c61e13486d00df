package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cryovex/mcauth/internal/auth/minecraft"
	"github.com/cryovex/mcauth/internal/config"
	sdkAuth "github.com/cryovex/mcauth/sdk/auth"
	log "github.com/sirupsen/logrus"
)

// LoginOptions contains options for the login process.
type LoginOptions struct {
	// NoBrowser indicates whether to skip opening the browser automatically.
	NoBrowser bool

	// Out receives instructions for the user. Defaults to stdout.
	Out io.Writer

	// Prompt is read for a pasted redirect URL in no-browser mode. Defaults to stdin.
	Prompt io.Reader
}

// DoMinecraftLogin runs the interactive Microsoft sign-in and saves the resulting session.
// Ctrl+C cancels the attempt.
//
// Parameters:
//   - cfg: The application configuration
//   - options: Login options including browser behavior
//
// Returns:
//   - error: The failure, already reported to the user; nil on success or cancellation
func DoMinecraftLogin(cfg *config.Config, options *LoginOptions) error {
	if options == nil {
		options = &LoginOptions{}
	}
	out := options.Out
	if out == nil {
		out = os.Stdout
	}
	prompt := options.Prompt
	if prompt == nil && options.NoBrowser {
		prompt = os.Stdin
	}

	manager, release, err := newAuthManager(cfg)
	if err != nil {
		log.Errorf("failed to open session store: %v", err)
		return err
	}
	defer release()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	authOpts := &sdkAuth.LoginOptions{
		NoBrowser: options.NoBrowser,
		Out:       out,
		Prompt:    prompt,
		OnTransition: func(_, to minecraft.State) {
			if to == minecraft.StateExchangingHop1 {
				_, _ = fmt.Fprintln(out, "Sign-in received, finishing login...")
			}
		},
	}

	session, savedPath, err := manager.Login(ctx, authOpts)
	if err != nil {
		return reportLoginError(out, err)
	}

	if savedPath != "" {
		fmt.Fprintf(out, "Authentication saved to %s\n", savedPath)
	}
	fmt.Fprintf(out, "Logged in as %s\n", session.Username)
	return nil
}

func reportLoginError(out io.Writer, err error) error {
	chainErr, ok := errors.AsType[*minecraft.ChainError](err)
	if !ok {
		fmt.Fprintf(out, "Minecraft authentication failed: %v\n", err)
		return err
	}
	if chainErr.Kind == minecraft.KindCancelled {
		fmt.Fprintln(out, "Login cancelled.")
		return nil
	}
	log.Debugf("login failed: %v", chainErr)
	fmt.Fprintln(out, minecraft.GetUserFriendlyMessage(chainErr))
	if chainErr.Retryable() {
		fmt.Fprintln(out, "This looks temporary; run the login again.")
	}
	return err
}
