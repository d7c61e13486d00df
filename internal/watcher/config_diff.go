package watcher

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/cryovex/mcauth/internal/config"
)

// configChangeDetails lists changed settings. Secrets are reported as changed, never printed.
func configChangeDetails(oldCfg, newCfg *config.Config) []string {
	if oldCfg == nil || newCfg == nil {
		return nil
	}
	var details []string
	add := func(name string, before, after any) {
		if !reflect.DeepEqual(before, after) {
			details = append(details, fmt.Sprintf("%s: %v -> %v", name, before, after))
		}
	}
	secret := func(name, before, after string) {
		if before != after {
			details = append(details, name+": updated")
		}
	}

	add("client-id", oldCfg.ClientID, newCfg.ClientID)
	add("redirect-uri", oldCfg.RedirectURI, newCfg.RedirectURI)
	add("scopes", strings.Join(oldCfg.Scopes, " "), strings.Join(newCfg.Scopes, " "))
	add("auth-dir", oldCfg.AuthDir, newCfg.AuthDir)
	add("debug", oldCfg.Debug, newCfg.Debug)
	add("logging-to-file", oldCfg.LoggingToFile, newCfg.LoggingToFile)
	add("logs-max-total-size-mb", oldCfg.LogsMaxTotalSizeMB, newCfg.LogsMaxTotalSizeMB)
	add("request-timeout-seconds", oldCfg.RequestTimeoutSeconds, newCfg.RequestTimeoutSeconds)
	add("callback-timeout-seconds", oldCfg.CallbackTimeoutSeconds, newCfg.CallbackTimeoutSeconds)
	add("user-agent", oldCfg.UserAgent, newCfg.UserAgent)
	add("no-browser", oldCfg.NoBrowser, newCfg.NoBrowser)
	add("host", oldCfg.Host, newCfg.Host)
	add("port", oldCfg.Port, newCfg.Port)
	add("session-store", oldCfg.SessionStore, newCfg.SessionStore)
	add("endpoints", oldCfg.Endpoints, newCfg.Endpoints)
	secret("proxy-url", oldCfg.ProxyURL, newCfg.ProxyURL)
	secret("postgres-store.dsn", oldCfg.PostgresStore.DSN, newCfg.PostgresStore.DSN)
	secret("object-store.secret-key", oldCfg.ObjectStore.SecretKey, newCfg.ObjectStore.SecretKey)
	return details
}

// needsRestart reports changes that only take effect when the process starts.
func needsRestart(oldCfg, newCfg *config.Config) bool {
	if oldCfg == nil || newCfg == nil {
		return false
	}
	return oldCfg.SessionStore != newCfg.SessionStore ||
		oldCfg.AuthDir != newCfg.AuthDir ||
		oldCfg.PostgresStore != newCfg.PostgresStore ||
		oldCfg.ObjectStore != newCfg.ObjectStore ||
		oldCfg.LoggingToFile != newCfg.LoggingToFile ||
		oldCfg.Host != newCfg.Host ||
		oldCfg.Port != newCfg.Port
}
