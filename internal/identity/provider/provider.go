// Package provider defines the narrow interface to the external identity
// provider and an HTTP implementation of it. The orchestrator never sees
// provider protocol details beyond this surface.
package provider

import (
	"context"
	"errors"

	"keyshare-agent/internal/identity/domain"
)

// Sentinel errors; the orchestrator maps them to intents and transitions.
var (
	// ErrProviderUnavailable covers transport failures and provider-side 5xx.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	// ErrAuthorizationDenied means the provider or the user rejected the
	// authorization request.
	ErrAuthorizationDenied = errors.New("authorization denied")
)

// Scope is a claim scope requested during interactive sign-in.
type Scope string

const (
	ScopeFullName Scope = "full_name"
	ScopeEmail    Scope = "email"
)

// AuthorizationRequest describes one interactive sign-in attempt.
type AuthorizationRequest struct {
	// Scopes are the claim scopes to request from the provider.
	Scopes []Scope
	// AllowPasswordFallback also offers credentials from the user's
	// associated password store; the result may then be either credential
	// kind.
	AllowPasswordFallback bool
	// Nonce is a caller-generated request identifier echoed by the
	// provider.
	Nonce string
}

// Client is the capability surface of the identity provider. Both calls
// block until the provider responds; cancellation and timeouts ride on ctx
// and the implementation's own policy. No retries are performed here or by
// any caller.
type Client interface {
	// QueryCredentialState reports the provider's view of a previously
	// granted authorization.
	QueryCredentialState(ctx context.Context, userIdentifier string) (domain.CredentialState, error)
	// RequestAuthorization runs the authorization handshake and returns
	// whichever credential shape the user produced.
	RequestAuthorization(ctx context.Context, req AuthorizationRequest) (*domain.AuthorizationResult, error)
}
