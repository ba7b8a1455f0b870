// Package session implements the credential lifecycle orchestrator: it
// checks stored identities at startup, drives interactive sign-in against
// the identity provider, persists outcomes, and triggers secret share
// recovery. All UI interaction happens through intents.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"

	"keyshare-agent/internal/credstore"
	"keyshare-agent/internal/identity/domain"
	"keyshare-agent/internal/identity/provider"
	"keyshare-agent/internal/intent"
	"keyshare-agent/internal/recovery"
	"keyshare-agent/internal/token"
)

// Sentinel errors for the orchestrator; the presentation layer receives
// them inside DisplayError intents or as direct return values.
var (
	// ErrSignInInProgress rejects a second interactive sign-in while one is
	// in flight. Requests are rejected, never queued or merged.
	ErrSignInInProgress = errors.New("a sign-in flow is already in progress")
	// ErrClaimMissing means the decoded identity token lacks the subject
	// claim; the sign-in aborts before any persistence or network call.
	ErrClaimMissing = errors.New("identity token is missing the subject claim")
	// ErrStorageWriteFailed wraps a failed credential save. It is logged
	// and swallowed; sign-in still succeeds without it.
	ErrStorageWriteFailed = errors.New("credential store write failed")
)

// Orchestrator is the session state machine. Its state field is the only
// mutable shared resource in the core; every transition happens under one
// mutex so the startup check and an interactive sign-in cannot race. The
// single-flight guard rejects overlapping interactive flows outright.
type Orchestrator struct {
	store     credstore.Store
	provider  provider.Client
	recovery  recovery.Client
	sink      intent.Sink
	log       *slog.Logger
	tracer    trace.Tracer
	signingIn atomic.Bool

	mu sync.Mutex
	// Guarded by mu.
	state State
	// interactiveStarted suppresses the startup check's pending
	// present-sign-in intent once a sign-in flow reached Authenticating.
	interactiveStarted bool
	// attemptActive dedupes authorization completions: only the first
	// success or failure per attempt is processed.
	attemptActive bool
	attemptID     string
	// surfacePresented tracks whether the sign-in surface is up, so a
	// completed flow can dismiss it.
	surfacePresented bool
}

// Config wires an Orchestrator.
type Config struct {
	Store    credstore.Store
	Provider provider.Client
	Recovery recovery.Client
	Sink     intent.Sink
	Log      *slog.Logger
}

// New returns an Orchestrator in StateUnchecked.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil || cfg.Provider == nil || cfg.Recovery == nil || cfg.Sink == nil {
		return nil, errors.New("session: store, provider, recovery, and sink must all be set")
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		store:    cfg.Store,
		provider: cfg.Provider,
		recovery: cfg.Recovery,
		sink:     cfg.Sink,
		log:      log,
		tracer:   otel.Tracer("keyshare-agent/session"),
		state:    StateUnchecked,
	}, nil
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// CurrentIdentifier returns the stored user identifier, or
// credstore.ErrNotFound when no identity record exists.
func (o *Orchestrator) CurrentIdentifier(ctx context.Context) (string, error) {
	return o.store.Load(ctx, credstore.AccountCurrentUser)
}

// CheckExistingCredential validates the stored identity at process start.
// With no stored identifier it short-circuits to NeedsSignIn without
// contacting the provider. A Revoked or NotFound provider answer deletes
// the record and emits exactly one PresentSignIn intent; Authorized is a
// no-op beyond moving to Valid. If an interactive sign-in reaches
// Authenticating while the provider query is in flight, the check's
// outcome is discarded so the sign-in surface is never presented twice.
// At most one check runs at a time: a second call while one is already in
// Checking returns the current state without contacting the provider.
func (o *Orchestrator) CheckExistingCredential(ctx context.Context) (State, error) {
	ctx, span := o.tracer.Start(ctx, "session.CheckExistingCredential")
	defer span.End()

	o.mu.Lock()
	if o.state == StateChecking || o.state == StateAuthenticating || o.state == StateSignedIn {
		st := o.state
		o.mu.Unlock()
		return st, nil
	}
	o.state = StateChecking
	// Reset so only an interactive flow starting during THIS check
	// suppresses its outcome.
	o.interactiveStarted = false
	o.mu.Unlock()

	userID, err := o.store.Load(ctx, credstore.AccountCurrentUser)
	if err != nil {
		// Load failures are equivalent to "no credential".
		if !errors.Is(err, credstore.ErrNotFound) {
			o.log.Warn("credential load failed, treating as absent", "err", err)
		}
		if st, superseded := o.checkSuperseded(); superseded {
			return st, nil
		}
		return o.toNeedsSignIn(ctx, "no stored credential"), nil
	}

	credState, err := o.provider.QueryCredentialState(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "credential state query failed")
		o.mu.Lock()
		if o.state == StateChecking {
			o.state = StateUnchecked
		}
		o.mu.Unlock()
		return o.State(), err
	}

	if st, superseded := o.checkSuperseded(); superseded {
		return st, nil
	}

	switch credState {
	case domain.CredentialStateAuthorized:
		return o.setState(StateValid), nil
	case domain.CredentialStateRevoked, domain.CredentialStateNotFound:
		if err := o.store.Delete(ctx, credstore.AccountCurrentUser); err != nil {
			o.log.Warn("stale credential delete failed", "err", err)
		}
		return o.toNeedsSignIn(ctx, string(credState)), nil
	default:
		// Unrecognized states (including Transferred) are treated as still
		// authorized. Flagged for product review: a future provider state
		// could mask a legitimate re-authentication need.
		o.log.Warn("unrecognized credential state, treating as authorized",
			slog.String("credential_state", string(credState)))
		return o.setState(StateValid), nil
	}
}

// BeginInteractiveSignIn starts the authorization handshake for the given
// scopes. With allowPasswordFallback the provider may return either
// credential shape and the orchestrator dispatches on the result's tag.
// A second call while one flow is in flight fails with ErrSignInInProgress
// and does not alter state.
func (o *Orchestrator) BeginInteractiveSignIn(ctx context.Context, scopes []provider.Scope, allowPasswordFallback bool) error {
	if !o.signingIn.CompareAndSwap(false, true) {
		return ErrSignInInProgress
	}

	ctx, span := o.tracer.Start(ctx, "session.BeginInteractiveSignIn")
	defer span.End()

	attemptID := uuid.New().String()
	o.mu.Lock()
	o.state = StateAuthenticating
	o.interactiveStarted = true
	o.attemptActive = true
	o.attemptID = attemptID
	o.mu.Unlock()

	result, err := o.provider.RequestAuthorization(ctx, provider.AuthorizationRequest{
		Scopes:                scopes,
		AllowPasswordFallback: allowPasswordFallback,
		Nonce:                 attemptID,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "authorization failed")
		return o.OnAuthorizationFailed(ctx, err)
	}
	return o.OnAuthorizationSucceeded(ctx, result)
}

// OnAuthorizationSucceeded handles a completed authorization. For an
// identity credential it decodes the token, persists the identifier, moves
// to SignedIn, and kicks off share recovery without waiting for it. For a
// password credential it only emits a display intent. Late or duplicate
// completions for an already-settled attempt are ignored.
func (o *Orchestrator) OnAuthorizationSucceeded(ctx context.Context, result *domain.AuthorizationResult) error {
	if !o.settleAttempt() {
		o.log.Debug("ignoring duplicate authorization completion")
		return nil
	}
	defer o.signingIn.Store(false)

	if err := result.Validate(); err != nil {
		return o.failSignIn(ctx, err)
	}

	switch result.Kind {
	case domain.CredentialKindIdentity:
		return o.completeIdentitySignIn(ctx, result.Identity)
	case domain.CredentialKindPassword:
		o.setState(StateSignedIn)
		o.emit(ctx, intent.DisplayPasswordCredential{
			Username: result.Password.Username,
			Password: result.Password.Password,
		})
		o.dismissSurface(ctx)
		return nil
	default:
		return o.failSignIn(ctx, fmt.Errorf("unknown credential kind %q", result.Kind))
	}
}

// OnAuthorizationFailed settles the in-flight attempt as Failed and
// surfaces the opaque error. No retry is attempted.
func (o *Orchestrator) OnAuthorizationFailed(ctx context.Context, authErr error) error {
	if !o.settleAttempt() {
		o.log.Debug("ignoring duplicate authorization failure", "err", authErr)
		return nil
	}
	defer o.signingIn.Store(false)
	return o.failSignIn(ctx, authErr)
}

// SignOut deletes the identity record and presents the sign-in surface
// again. Delete failures are treated as "no credential" and logged.
func (o *Orchestrator) SignOut(ctx context.Context) error {
	ctx, span := o.tracer.Start(ctx, "session.SignOut")
	defer span.End()

	if err := o.store.Delete(ctx, credstore.AccountCurrentUser); err != nil {
		o.log.Warn("credential delete failed on sign-out", "err", err)
	}
	o.mu.Lock()
	o.state = StateSignedOut
	o.interactiveStarted = false
	o.mu.Unlock()

	o.toNeedsSignIn(ctx, "signed out")
	return nil
}

func (o *Orchestrator) completeIdentitySignIn(ctx context.Context, cred *domain.IdentityCredential) error {
	claims, err := token.Decode(cred.IdentityToken)
	if err != nil {
		return o.failSignIn(ctx, err)
	}
	sub, ok := claims.StringClaim(token.ClaimSubject)
	if !ok {
		// Hard stop: no persistence, no recovery call.
		return o.failSignIn(ctx, ErrClaimMissing)
	}

	if err := o.store.Save(ctx, credstore.AccountCurrentUser, cred.UserIdentifier); err != nil {
		// Non-fatal: the user is signed in either way, and recovery can
		// still proceed on the in-memory identity.
		o.log.Error("persisting identity failed",
			slog.String("user_identifier", cred.UserIdentifier),
			"err", fmt.Errorf("%w: %v", ErrStorageWriteFailed, err))
	}

	// SignedIn does not wait for share recovery; the two outcomes are
	// observable independently.
	o.setState(StateSignedIn)
	o.dismissSurface(ctx)
	o.log.Info("signed in", slog.String("user_identifier", cred.UserIdentifier))

	go o.recoverShare(context.WithoutCancel(ctx), sub, cred.IdentityToken)
	return nil
}

// recoverShare exchanges the identity token for the key share and reports
// the outcome via an intent. Failures do not roll back the persisted
// identity record; signed-in-without-a-share is a valid terminal state.
func (o *Orchestrator) recoverShare(ctx context.Context, verifierID, idToken string) {
	ctx, span := o.tracer.Start(ctx, "session.RecoverSecretShare")
	defer span.End()

	result, err := o.recovery.RecoverSecretShare(ctx, verifierID, idToken)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "share recovery failed")
		o.log.Error("share recovery failed", slog.String("verifier_id", verifierID), "err", err)
		o.emit(ctx, intent.DisplayError{Err: err})
		return
	}
	o.emit(ctx, intent.DisplaySecret{Share: result.Share})
}

// checkSuperseded reports whether an interactive sign-in reached
// Authenticating while the startup check was in flight; the check's
// outcome is then discarded so the sign-in surface is not presented twice.
func (o *Orchestrator) checkSuperseded() (State, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.interactiveStarted {
		o.log.Debug("startup check superseded by interactive sign-in")
		return o.state, true
	}
	return o.state, false
}

// settleAttempt marks the in-flight attempt as completed. It returns false
// when no attempt is active, which covers both completions without a
// matching BeginInteractiveSignIn and second deliveries of the same
// attempt's outcome.
func (o *Orchestrator) settleAttempt() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.attemptActive {
		return false
	}
	o.attemptActive = false
	return true
}

func (o *Orchestrator) failSignIn(ctx context.Context, err error) error {
	o.setState(StateFailed)
	o.emit(ctx, intent.DisplayError{Err: err})
	return err
}

func (o *Orchestrator) toNeedsSignIn(ctx context.Context, reason string) State {
	o.mu.Lock()
	o.state = StateNeedsSignIn
	o.surfacePresented = true
	o.mu.Unlock()
	o.log.Info("sign-in required", slog.String("reason", reason))
	o.emit(ctx, intent.PresentSignIn{})
	return StateNeedsSignIn
}

func (o *Orchestrator) dismissSurface(ctx context.Context) {
	o.mu.Lock()
	presented := o.surfacePresented
	o.surfacePresented = false
	o.mu.Unlock()
	if presented {
		o.emit(ctx, intent.DismissSignIn{})
	}
}

func (o *Orchestrator) setState(s State) State {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	return s
}

func (o *Orchestrator) emit(ctx context.Context, it intent.Intent) {
	if err := o.sink.Emit(ctx, it); err != nil {
		o.log.Warn("intent emit failed", slog.String("intent", it.String()), "err", err)
	}
}
