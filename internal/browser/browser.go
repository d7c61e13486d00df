// Package browser shows the Microsoft sign-in page to the user. It opens the system browser
// and runs the loopback listener that receives the OAuth redirect.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"

	log "github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
)

var linuxBrowsers = []string{"xdg-open", "x-www-browser", "www-browser", "firefox", "chromium", "google-chrome"}

// OpenURL opens url in the default browser. open-golang is tried first; when it fails the
// platform command is started directly.
func OpenURL(url string) error {
	err := open.Run(url)
	if err == nil {
		log.Debug("opened sign-in page with the default browser")
		return nil
	}
	log.Debugf("open-golang failed: %v, trying platform-specific commands", err)
	return openURLPlatformSpecific(url)
}

func openURLPlatformSpecific(url string) error {
	name, args, err := platformCommand()
	if err != nil {
		return err
	}
	cmd := exec.Command(name, append(args, url)...)
	log.Debugf("running browser command %s", cmd.Path)
	if err = cmd.Start(); err != nil {
		return fmt.Errorf("failed to start browser command: %w", err)
	}
	// Reap the child so it does not linger as a zombie.
	go func() { _ = cmd.Wait() }()
	return nil
}

// platformCommand resolves the command used to open a URL on this OS.
func platformCommand() (string, []string, error) {
	switch runtime.GOOS {
	case "darwin":
		return "open", nil, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler"}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		for _, candidate := range linuxBrowsers {
			if _, err := exec.LookPath(candidate); err == nil {
				return candidate, nil, nil
			}
		}
		return "", nil, fmt.Errorf("no suitable browser found on %s", runtime.GOOS)
	default:
		return "", nil, fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// IsAvailable reports whether a browser command can be found. It does not launch anything.
func IsAvailable() bool {
	name, _, err := platformCommand()
	if err != nil {
		return false
	}
	_, err = exec.LookPath(name)
	return err == nil
}
