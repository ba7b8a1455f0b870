// Package domain holds the identity types shared by the credential store,
// the provider client, and the session orchestrator.
package domain

import "errors"

// CredentialState is the provider-reported status of a previously granted
// authorization.
type CredentialState string

const (
	CredentialStateAuthorized  CredentialState = "authorized"
	CredentialStateRevoked     CredentialState = "revoked"
	CredentialStateNotFound    CredentialState = "not_found"
	CredentialStateTransferred CredentialState = "transferred"
)

// CredentialKind tags the two shapes an authorization can resolve to.
type CredentialKind string

const (
	// CredentialKindIdentity is a provider-issued identity assertion.
	CredentialKindIdentity CredentialKind = "identity"
	// CredentialKindPassword is a username/password pair the user picked
	// from an associated password store instead of the provider flow.
	CredentialKindPassword CredentialKind = "password"
)

// IdentityCredential carries the provider's signed assertion. FullName and
// Email are only present on the first-ever grant; callers must not assume
// presence.
type IdentityCredential struct {
	UserIdentifier string
	IdentityToken  string
	FullName       string
	Email          string
}

// PasswordCredential is forwarded for display only and never persisted.
type PasswordCredential struct {
	Username string
	Password string
}

// AuthorizationResult is the tagged outcome of one authorization attempt.
// Exactly the field matching Kind is set.
type AuthorizationResult struct {
	Kind     CredentialKind
	Identity *IdentityCredential
	Password *PasswordCredential
}

// Validate checks that the result carries exactly the payload its tag
// promises.
func (r *AuthorizationResult) Validate() error {
	switch r.Kind {
	case CredentialKindIdentity:
		if r.Identity == nil || r.Password != nil {
			return errors.New("identity result must carry an identity credential only")
		}
		if r.Identity.IdentityToken == "" {
			return errors.New("identity credential is missing its token")
		}
	case CredentialKindPassword:
		if r.Password == nil || r.Identity != nil {
			return errors.New("password result must carry a password credential only")
		}
		if r.Password.Username == "" {
			return errors.New("password credential is missing its username")
		}
	default:
		return errors.New("unknown credential kind")
	}
	return nil
}
