package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cryovex/mcauth/internal/api"
	"github.com/cryovex/mcauth/internal/config"
	"github.com/cryovex/mcauth/internal/watcher"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

// StartService runs the control API until SIGINT or SIGTERM. Attempts started over the API are
// cancelled on shutdown. When configPath names an existing file, edits to it apply to the next
// attempt.
func StartService(cfg *config.Config, configPath string) error {
	manager, release, err := newAuthManager(cfg)
	if err != nil {
		log.Errorf("failed to open session store: %v", err)
		return err
	}
	defer release()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if configPath != "" {
		if _, errStat := os.Stat(configPath); errStat == nil {
			configWatcher, errWatcher := watcher.NewWatcher(configPath, cfg, manager.SetConfig)
			if errWatcher != nil {
				log.Warnf("config hot reload disabled: %v", errWatcher)
			} else if errStart := configWatcher.Start(ctx); errStart != nil {
				log.Warnf("config hot reload disabled: %v", errStart)
				_ = configWatcher.Stop()
			} else {
				defer func() { _ = configWatcher.Stop() }()
			}
		}
	}

	server := api.NewServer(ctx, cfg, manager)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err = <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	manager.Cancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = server.Stop(shutdownCtx); err != nil {
		log.Warnf("control API shutdown: %v", err)
	}
	return <-errCh
}
