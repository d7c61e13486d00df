package misc

import (
	"fmt"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Separator used to visually group related log lines.
var credentialSeparator = strings.Repeat("-", 67)

// LogSavingCredentials tells the user where the session was written.
// Non-file locations such as "postgres://.../session" are printed as given.
func LogSavingCredentials(location string) {
	if location == "" {
		return
	}
	if !strings.Contains(location, "://") {
		location = filepath.Clean(location)
	}
	fmt.Printf("Saving session to %s\n", location)
}

// LogCredentialSeparator adds a visual separator around a login attempt in debug output.
func LogCredentialSeparator() {
	log.Debug(credentialSeparator)
}
