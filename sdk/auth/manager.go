package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cryovex/mcauth/internal/auth/minecraft"
	"github.com/cryovex/mcauth/internal/config"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

const saveTimeout = 30 * time.Second

// Manager admits one login attempt at a time and persists successful sessions via a Store.
type Manager struct {
	cfg           *config.Config
	authenticator Authenticator
	store         Store
	sem           *semaphore.Weighted

	mu      sync.Mutex
	current *LoginHandle
}

// NewManager constructs a manager. store may be nil, in which case sessions are returned but
// not saved.
func NewManager(cfg *config.Config, store Store, authenticator Authenticator) *Manager {
	return &Manager{
		cfg:           cfg,
		authenticator: authenticator,
		store:         store,
		sem:           semaphore.NewWeighted(1),
	}
}

// Config returns the configuration used for the next attempt.
func (m *Manager) Config() *config.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// SetConfig swaps the configuration. A running attempt keeps the one it started with. The
// session store is not reopened.
func (m *Manager) SetConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
}

// Store returns the configured session store.
func (m *Manager) Store() Store {
	return m.store
}

// Start begins a login attempt in the background. It fails with ErrLoginInProgress while
// another attempt is still running. ctx bounds the attempt.
func (m *Manager) Start(ctx context.Context, opts *LoginOptions) (*LoginHandle, error) {
	if !m.sem.TryAcquire(1) {
		return nil, ErrLoginInProgress
	}

	handle := &LoginHandle{done: make(chan struct{}), startedAt: time.Now()}
	handle.state.Store(int32(minecraft.StateIdle))

	cfg := m.Config()
	var attemptOpts LoginOptions
	if opts != nil {
		attemptOpts = *opts
	}
	observer := attemptOpts.OnTransition
	attemptOpts.OnTransition = func(from, to minecraft.State) {
		handle.state.Store(int32(to))
		if observer != nil {
			observer(from, to)
		}
	}
	onShow := attemptOpts.OnShow
	attemptOpts.OnShow = func(authURL string) {
		handle.authURL.Store(authURL)
		if onShow != nil {
			onShow(authURL)
		}
	}

	attempt, err := m.authenticator.Start(ctx, cfg, &attemptOpts)
	if err != nil {
		m.sem.Release(1)
		return nil, err
	}
	handle.attempt = attempt

	m.mu.Lock()
	m.current = handle
	m.mu.Unlock()

	go m.finish(ctx, handle)
	return handle, nil
}

// Login runs an attempt to completion. On success the session is saved and the save location
// is returned alongside it.
func (m *Manager) Login(ctx context.Context, opts *LoginOptions) (*minecraft.AuthSession, string, error) {
	handle, err := m.Start(ctx, opts)
	if err != nil {
		return nil, "", err
	}
	<-handle.Done()
	return handle.Result()
}

func (m *Manager) finish(ctx context.Context, handle *LoginHandle) {
	<-handle.attempt.Done()
	session, err := handle.attempt.Result()
	var savedTo string
	if err == nil && m.store != nil {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
		savedTo, err = m.store.Save(saveCtx, session)
		cancel()
		if err != nil {
			log.Errorf("failed to save session: %v", err)
		}
	}

	handle.session = session
	handle.savedTo = savedTo
	handle.err = err
	handle.finishedAt = time.Now()
	m.sem.Release(1)
	close(handle.done)
}

// Cancel aborts the running attempt. It reports whether there was one to cancel.
func (m *Manager) Cancel() bool {
	handle := m.Current()
	if handle == nil {
		return false
	}
	select {
	case <-handle.Done():
		return false
	default:
	}
	handle.Cancel()
	return true
}

// Current returns the running attempt, or the most recent one when none is running.
func (m *Manager) Current() *LoginHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Session loads the saved session.
func (m *Manager) Session(ctx context.Context) (*minecraft.AuthSession, error) {
	if m.store == nil {
		return nil, ErrNoStore
	}
	return m.store.Load(ctx)
}

// Logout cancels any running attempt and deletes the saved session.
func (m *Manager) Logout(ctx context.Context) error {
	if m.store == nil {
		return ErrNoStore
	}
	if handle := m.Current(); m.Cancel() {
		<-handle.Done()
	}
	return m.store.Delete(ctx)
}

// LoginHandle tracks one attempt started through a Manager.
type LoginHandle struct {
	attempt   *minecraft.Attempt
	state     atomic.Int32
	authURL   atomic.Value
	startedAt time.Time
	done      chan struct{}

	session    *minecraft.AuthSession
	savedTo    string
	err        error
	finishedAt time.Time
}

// ID returns the attempt identifier.
func (h *LoginHandle) ID() string {
	return h.attempt.ID()
}

// State returns the latest state of the attempt.
func (h *LoginHandle) State() minecraft.State {
	return minecraft.State(h.state.Load())
}

// AuthURL returns the authorization URL once the sign-in page has been presented.
func (h *LoginHandle) AuthURL() string {
	authURL, _ := h.authURL.Load().(string)
	return authURL
}

// Done is closed once the attempt finished and its session, if any, was saved.
func (h *LoginHandle) Done() <-chan struct{} {
	return h.done
}

// Cancel aborts the attempt.
func (h *LoginHandle) Cancel() {
	h.attempt.Cancel()
}

// Wait blocks until the attempt finishes or ctx ends.
func (h *LoginHandle) Wait(ctx context.Context) (*minecraft.AuthSession, string, error) {
	select {
	case <-h.done:
		return h.Result()
	case <-ctx.Done():
		return nil, "", ctx.Err()
	}
}

// Result returns the outcome of a finished attempt. Before Done is closed it returns zero values.
func (h *LoginHandle) Result() (*minecraft.AuthSession, string, error) {
	select {
	case <-h.done:
	default:
		return nil, "", nil
	}
	return h.session, h.savedTo, h.err
}

// Status is a token-free summary of an attempt.
type Status struct {
	ID         string     `json:"id"`
	State      string     `json:"state"`
	Done       bool       `json:"done"`
	AuthURL    string     `json:"auth_url,omitempty"`
	Username   string     `json:"username,omitempty"`
	AccountID  string     `json:"uuid,omitempty"`
	SavedTo    string     `json:"saved_to,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	ErrorKind  string     `json:"error_kind,omitempty"`
	Error      string     `json:"error,omitempty"`
	Retryable  bool       `json:"retryable,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Status summarizes the attempt without exposing tokens. The authorization URL is included
// until the chain reaches a terminal state.
func (h *LoginHandle) Status() Status {
	state := h.State()
	st := Status{
		ID:        h.ID(),
		State:     state.String(),
		StartedAt: h.startedAt,
	}
	select {
	case <-h.done:
	default:
		if !state.Terminal() {
			st.AuthURL = h.AuthURL()
		}
		return st
	}
	st.Done = true
	finished := h.finishedAt
	st.FinishedAt = &finished
	if h.session != nil {
		st.Username = h.session.Username
		st.AccountID = h.session.AccountID
		if expiresAt, ok := h.session.ExpiresAt(); ok {
			st.ExpiresAt = &expiresAt
		}
	}
	st.SavedTo = h.savedTo
	if h.err != nil {
		if chainErr, ok := errors.AsType[*minecraft.ChainError](h.err); ok {
			st.ErrorKind = string(chainErr.Kind)
			st.Retryable = chainErr.Retryable()
			st.Error = minecraft.GetUserFriendlyMessage(chainErr)
		} else {
			st.ErrorKind = "persistence_failure"
			st.Error = h.err.Error()
		}
	}
	return st
}
