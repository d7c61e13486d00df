package minecraft

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cryovex/mcauth/internal/logging"
	"github.com/cryovex/mcauth/internal/misc"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ErrAttemptStarted is returned when Start is called on an Orchestrator that already ran.
var ErrAttemptStarted = errors.New("login attempt already started; create a new orchestrator")

// TransitionFunc observes state changes. It runs on the attempt goroutine and must not block.
type TransitionFunc func(from, to State)

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithTransitionHook registers fn to observe every state change.
func WithTransitionHook(fn TransitionFunc) Option {
	return func(o *Orchestrator) { o.onTransition = fn }
}

// WithStateGenerator replaces the OAuth state nonce source.
func WithStateGenerator(fn func() (string, error)) Option {
	return func(o *Orchestrator) { o.generateState = fn }
}

// WithPKCEGenerator replaces the PKCE source.
func WithPKCEGenerator(fn func() *PKCECodes) Option {
	return func(o *Orchestrator) { o.generatePKCE = fn }
}

// WithCallbackTimeout overrides how long the attempt waits for the redirect.
func WithCallbackTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.callbackTimeout = d
		}
	}
}

// Orchestrator runs a single login attempt through the five hops.
// It is single-use: once started it cannot be started again.
type Orchestrator struct {
	id              string
	auth            *MinecraftAuth
	launcher        *Launcher
	callbackTimeout time.Duration
	onTransition    TransitionFunc
	generatePKCE    func() *PKCECodes
	generateState   func() (string, error)

	mu      sync.Mutex
	state   State
	started bool
}

// NewOrchestrator creates an idle orchestrator. newSurface is called once, when the attempt
// reaches the authorization step.
func NewOrchestrator(auth *MinecraftAuth, newSurface SurfaceFactory, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		id:              uuid.NewString(),
		auth:            auth,
		launcher:        NewLauncher(auth, newSurface),
		callbackTimeout: auth.callbackTimeout,
		generatePKCE:    GeneratePKCECodes,
		generateState:   misc.GenerateRandomState,
		state:           StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ID returns the attempt identifier used in log lines.
func (o *Orchestrator) ID() string {
	return o.id
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Start begins the attempt in the background. ctx bounds the whole attempt; cancelling it
// is equivalent to Attempt.Cancel.
func (o *Orchestrator) Start(ctx context.Context) (*Attempt, error) {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return nil, ErrAttemptStarted
	}
	o.started = true
	o.mu.Unlock()

	runCtx, cancel := context.WithCancel(logging.WithAttemptID(ctx, o.id))
	attempt := &Attempt{
		id:     o.id,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go o.run(runCtx, attempt)
	return attempt, nil
}

// Login runs the attempt and blocks until it finishes.
func (o *Orchestrator) Login(ctx context.Context) (*AuthSession, error) {
	attempt, err := o.Start(ctx)
	if err != nil {
		return nil, err
	}
	<-attempt.Done()
	return attempt.Result()
}

func (o *Orchestrator) run(ctx context.Context, attempt *Attempt) {
	defer close(attempt.done)
	defer attempt.cancel()

	entry := logging.FromContext(ctx)
	misc.LogCredentialSeparator()
	entry.Info("login attempt started")

	session, err := o.execute(ctx)
	if err != nil {
		chainErr, ok := errors.AsType[*ChainError](err)
		if !ok {
			chainErr = newChainError(ErrNetworkFailure, "", err)
		}
		attempt.err = chainErr
		o.transition(ctx, StateFailed)
		if chainErr.Kind == KindCancelled {
			entry.Info("login attempt cancelled")
		} else {
			entry.WithFields(log.Fields{"kind": chainErr.Kind, "hop": string(chainErr.Hop)}).Warnf("login attempt failed: %s", chainErr.Message)
		}
		return
	}
	attempt.session = session
	o.transition(ctx, StateSucceeded)
	entry.Infof("logged in as %s", session.Username)
}

// execute walks the hops. Intermediate tokens live only in this frame.
func (o *Orchestrator) execute(ctx context.Context) (*AuthSession, error) {
	if err := o.advance(ctx, StateGeneratingPKCE); err != nil {
		return nil, err
	}
	pkceCodes := o.generatePKCE()
	state, err := o.generateState()
	if err != nil {
		chainErr := newChainError(ErrSetupFailure, HopAuthorization, err)
		chainErr.Message = "failed to generate OAuth state"
		return nil, chainErr
	}

	if err = o.advance(ctx, StateAwaitingRedirect); err != nil {
		return nil, err
	}
	pending, err := o.launcher.Launch(ctx, pkceCodes, state)
	if err != nil {
		return nil, err
	}
	waitCtx, cancelWait := context.WithTimeout(ctx, o.callbackTimeout)
	authResult, err := pending.Wait(waitCtx)
	cancelWait()
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, newChainError(ErrCancelled, HopAuthorization, nil)
		}
		return nil, err
	}
	if !authResult.Succeeded() {
		return nil, providerError(HopAuthorization, authResult.ErrorCode, authResult.ErrorDescription, 0)
	}

	if err = o.advance(ctx, StateExchangingHop1); err != nil {
		return nil, err
	}
	tokens, err := o.auth.ExchangeCodeForTokens(ctx, authResult.Code, authResult.RedirectURI, pkceCodes)
	if err != nil {
		return nil, err
	}

	if err = o.advance(ctx, StateExchangingHop2); err != nil {
		return nil, err
	}
	xbl, err := o.auth.AuthenticateXboxLive(ctx, tokens.AccessToken)
	if err != nil {
		return nil, err
	}

	if err = o.advance(ctx, StateExchangingHop3); err != nil {
		return nil, err
	}
	xsts, err := o.auth.AuthorizeXSTS(ctx, xbl.Token)
	if err != nil {
		return nil, err
	}

	if err = o.advance(ctx, StateExchangingHop4); err != nil {
		return nil, err
	}
	login, err := o.auth.LoginWithXbox(ctx, xsts.UserHash, xsts.Token)
	if err != nil {
		return nil, err
	}

	if err = o.advance(ctx, StateFetchingProfile); err != nil {
		return nil, err
	}
	profile, err := o.auth.FetchProfile(ctx, login.AccessToken)
	if err != nil {
		return nil, err
	}
	return newAuthSession(login, tokens, profile)
}

// advance moves to the next state unless the attempt was cancelled.
func (o *Orchestrator) advance(ctx context.Context, to State) error {
	if ctx.Err() != nil {
		return newChainError(ErrCancelled, "", nil)
	}
	o.transition(ctx, to)
	return nil
}

func (o *Orchestrator) transition(ctx context.Context, to State) {
	o.mu.Lock()
	from := o.state
	o.state = to
	o.mu.Unlock()

	logging.FromContext(ctx).WithField("state", to.String()).Debugf("state %s -> %s", from, to)
	if o.onTransition != nil {
		o.onTransition(from, to)
	}
}

// Attempt is the handle of a running login attempt.
type Attempt struct {
	id      string
	cancel  context.CancelFunc
	done    chan struct{}
	session *AuthSession
	err     error
}

// ID returns the attempt identifier.
func (a *Attempt) ID() string {
	return a.id
}

// Done is closed when the attempt reaches Succeeded or Failed.
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}

// Cancel aborts the attempt. In-flight requests are abandoned and the attempt fails with
// Cancelled unless it already finished.
func (a *Attempt) Cancel() {
	a.cancel()
}

// Wait blocks until the attempt finishes or ctx ends. A ctx end does not cancel the attempt.
func (a *Attempt) Wait(ctx context.Context) (*AuthSession, error) {
	select {
	case <-a.done:
		return a.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the outcome of a finished attempt. Before Done is closed it returns nil, nil.
func (a *Attempt) Result() (*AuthSession, error) {
	select {
	case <-a.done:
	default:
		return nil, nil
	}
	if a.err != nil {
		return nil, a.err
	}
	return a.session, nil
}
