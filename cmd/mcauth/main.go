// Package main provides the mcauth command: it signs a player into Minecraft through the
// Microsoft account flow, manages the saved session, and can serve a small control API.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cryovex/mcauth/internal/buildinfo"
	"github.com/cryovex/mcauth/internal/cmd"
	"github.com/cryovex/mcauth/internal/config"
	"github.com/cryovex/mcauth/internal/logging"
	"github.com/cryovex/mcauth/internal/util"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

var (
	Version           = "dev"
	Commit            = "none"
	BuildDate         = "unknown"
	DefaultConfigPath = ""
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	var login bool
	var logout bool
	var status bool
	var serve bool
	var noBrowser bool
	var configPath string

	flag.BoolVar(&login, "login", false, "Sign in with a Microsoft account and save the Minecraft session")
	flag.BoolVar(&logout, "logout", false, "Delete the saved session")
	flag.BoolVar(&status, "status", false, "Show the saved profile")
	flag.BoolVar(&serve, "serve", false, "Run the control API")
	flag.BoolVar(&noBrowser, "no-browser", false, "Don't open browser automatically; paste the redirect URL instead")
	flag.StringVar(&configPath, "config", DefaultConfigPath, "Configure File Path")

	flag.CommandLine.Usage = func() {
		out := flag.CommandLine.Output()
		_, _ = fmt.Fprintf(out, "Usage of %s\n", os.Args[0])
		flag.CommandLine.VisitAll(func(f *flag.Flag) {
			s := fmt.Sprintf("  -%s", f.Name)
			name, unquoteUsage := flag.UnquoteUsage(f)
			if name != "" {
				s += " " + name
			}
			s += "\n    " + unquoteUsage
			if f.DefValue != "" && f.DefValue != "false" {
				s += fmt.Sprintf(" (default %s)", f.DefValue)
			}
			_, _ = fmt.Fprint(out, s+"\n")
		})
	}
	flag.Parse()

	wd, err := os.Getwd()
	if err != nil {
		log.Errorf("failed to get working directory: %v", err)
		return err
	}

	// Load environment variables from .env if present.
	if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil {
		if !errors.Is(errLoad, os.ErrNotExist) {
			log.WithError(errLoad).Warn("failed to load .env file")
		}
	}

	// An explicit -config must exist; the default config.yaml is optional.
	optional := configPath == ""
	if optional {
		configPath = filepath.Join(wd, "config.yaml")
	}
	cfg, err := config.LoadConfigOptional(configPath, optional)
	if err != nil {
		log.Errorf("failed to load config: %v", err)
		return err
	}

	if err = logging.ConfigureLogOutput(cfg); err != nil {
		log.Errorf("failed to configure log output: %v", err)
		return err
	}
	log.Debugf("mcauth Version: %s, Commit: %s, BuiltAt: %s", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)

	util.SetLogLevel(cfg)

	resolvedAuthDir, err := util.ResolveAuthDir(cfg.AuthDir)
	if err != nil {
		log.Errorf("failed to resolve auth directory: %v", err)
		return err
	}
	cfg.AuthDir = resolvedAuthDir

	switch {
	case logout:
		return cmd.DoLogout(cfg, os.Stdout)
	case status:
		return cmd.DoStatus(cfg, os.Stdout)
	case serve:
		return cmd.StartService(cfg, configPath)
	case login:
		return cmd.DoMinecraftLogin(cfg, &cmd.LoginOptions{NoBrowser: noBrowser || cfg.NoBrowser})
	default:
		flag.CommandLine.Usage()
		return nil
	}
}
