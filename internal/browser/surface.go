package browser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 2 * time.Second

// SurfaceOptions tunes a LoopbackSurface.
type SurfaceOptions struct {
	// NoBrowser skips the system browser and prints the sign-in URL instead.
	NoBrowser bool
	// Out receives the manual-mode instructions. Nil discards them.
	Out io.Writer
	// Prompt, when set, is read line by line for a pasted redirect URL.
	Prompt io.Reader
	// OpenURL overrides the browser opener. Defaults to OpenURL.
	OpenURL func(string) error
	// CopyToClipboard overrides the clipboard writer. Defaults to clipboard.WriteAll.
	CopyToClipboard func(string) error
	// OnShow receives the sign-in URL before it is opened or printed.
	OnShow func(string)
}

// LoopbackSurface presents the sign-in page in the system browser and listens on the
// redirect URI's loopback address for the provider's redirect.
type LoopbackSurface struct {
	opts        SurfaceOptions
	origin      string
	redirectURI string
	listener    net.Listener
	server   *http.Server

	mu          sync.Mutex
	onNavigated []func(string)
	onClosed    []func()
	hidden      bool
	closed      bool
	closeOnce   sync.Once
	closeErr    error
	done        chan struct{}
}

// NewLoopbackSurface binds the listener for redirectURI. The redirect host must be a loopback
// address; port 0 picks a free port, reported by RedirectURI.
func NewLoopbackSurface(redirectURI string, opts SurfaceOptions) (*LoopbackSurface, error) {
	parsed, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URI: %w", err)
	}
	if parsed.Scheme != "http" {
		return nil, fmt.Errorf("redirect URI %q must use http to be served locally", redirectURI)
	}
	host := parsed.Hostname()
	if !isLoopbackHost(host) {
		return nil, fmt.Errorf("redirect URI host %q is not a loopback address", host)
	}
	origin := "http://" + parsed.Host
	port := parsed.Port()
	if port == "" {
		port = "80"
	}
	bindHost := host
	if strings.EqualFold(host, "localhost") {
		bindHost = "127.0.0.1"
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(bindHost, port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen for the sign-in redirect: %w", err)
	}
	served := redirectURI
	if port == "0" {
		parsed.Host = net.JoinHostPort(host, fmt.Sprint(listener.Addr().(*net.TCPAddr).Port))
		origin = "http://" + parsed.Host
		served = parsed.String()
	}

	if opts.OpenURL == nil {
		opts.OpenURL = OpenURL
	}
	if opts.CopyToClipboard == nil {
		opts.CopyToClipboard = clipboard.WriteAll
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	s := &LoopbackSurface{
		opts:        opts,
		origin:      origin,
		redirectURI: served,
		listener:    listener,
		done:        make(chan struct{}),
	}
	s.server = &http.Server{
		Handler:           http.HandlerFunc(s.handle),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	go func() {
		if errServe := s.server.Serve(listener); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			log.Errorf("sign-in redirect listener stopped: %v", errServe)
		}
	}()
	log.Debugf("listening for sign-in redirect on %s", listener.Addr())
	return s, nil
}

func isLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// RedirectURI returns the redirect URI the listener serves. It is the configured URI verbatim
// unless that asked for port 0, in which case the bound port is filled in.
func (s *LoopbackSurface) RedirectURI() string {
	return s.redirectURI
}

// Addr returns the bound listener address.
func (s *LoopbackSurface) Addr() net.Addr {
	return s.listener.Addr()
}

// OnNavigated registers fn to receive every URL requested on the listener or pasted at the prompt.
func (s *LoopbackSurface) OnNavigated(fn func(string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onNavigated = append(s.onNavigated, fn)
}

// OnClosed registers fn to run once when the surface is closed.
func (s *LoopbackSurface) OnClosed(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClosed = append(s.onClosed, fn)
}

// Show opens authURL in the system browser. Without a browser, or in no-browser mode, the URL
// is printed and copied to the clipboard instead.
func (s *LoopbackSurface) Show(authURL string) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return errors.New("browsing surface is closed")
	}
	if s.opts.OnShow != nil {
		s.opts.OnShow(authURL)
	}

	if !s.opts.NoBrowser {
		err := s.opts.OpenURL(authURL)
		if err == nil {
			_, _ = fmt.Fprintln(s.opts.Out, "Opened the Microsoft sign-in page in your browser.")
			return nil
		}
		log.Warnf("failed to open browser automatically: %v", err)
	}

	_, _ = fmt.Fprintf(s.opts.Out, "Open this URL in your browser to sign in:\n\n%s\n\n", authURL)
	if err := s.opts.CopyToClipboard(authURL); err != nil {
		log.Debugf("failed to copy sign-in URL to clipboard: %v", err)
	} else {
		_, _ = fmt.Fprintln(s.opts.Out, "The URL has been copied to your clipboard.")
	}
	if s.opts.Prompt != nil {
		_, _ = fmt.Fprintln(s.opts.Out, "If the browser cannot reach this machine, paste the final redirect URL here and press Enter.")
		go s.readPasted(s.opts.Prompt)
	}
	return nil
}

// Hide marks the sign-in as finished; the listener answers with the completion page from now on.
func (s *LoopbackSurface) Hide() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hidden = true
}

// Close shuts the listener down and notifies OnClosed observers. It is safe to call repeatedly.
func (s *LoopbackSurface) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		observers := append([]func(){}, s.onClosed...)
		s.mu.Unlock()
		close(s.done)

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			s.closeErr = fmt.Errorf("failed to stop redirect listener: %w", err)
		}
		for _, fn := range observers {
			fn()
		}
	})
	return s.closeErr
}

func (s *LoopbackSurface) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.notify(s.origin + r.URL.RequestURI())

	s.mu.Lock()
	hidden := s.hidden
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	switch {
	case !hidden:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, waitingPage())
	case r.URL.Query().Get("error") != "":
		reason := r.URL.Query().Get("error_description")
		if reason == "" {
			reason = r.URL.Query().Get("error")
		}
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, loginFailedPage(reason))
	default:
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, loginSuccessPage())
	}
}

func (s *LoopbackSurface) notify(navigatedURL string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	observers := append([]func(string){}, s.onNavigated...)
	s.mu.Unlock()
	for _, fn := range observers {
		fn(navigatedURL)
	}
}

// readPasted forwards pasted redirect URLs until the surface closes or the reader ends.
// A blocked Read cannot be interrupted, so lines are pumped from a separate goroutine that
// exits on the next line or EOF once the surface is closed.
func (s *LoopbackSurface) readPasted(r io.Reader) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-s.done:
				return
			}
		}
	}()

	for {
		select {
		case <-s.done:
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			s.notify(s.normalizePasted(line))
		}
	}
}

// normalizePasted turns a pasted query string or schemeless address into an absolute URL on
// the redirect origin.
func (s *LoopbackSurface) normalizePasted(input string) string {
	switch {
	case strings.Contains(input, "://"):
		return input
	case strings.HasPrefix(input, "?"), strings.HasPrefix(input, "#"):
		return s.RedirectURI() + input
	case strings.HasPrefix(input, "/"):
		return s.origin + input
	case !strings.ContainsAny(input, "/:") && strings.Contains(input, "="):
		return s.RedirectURI() + "?" + input
	default:
		return "http://" + input
	}
}
