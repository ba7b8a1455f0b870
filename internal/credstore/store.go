// Package credstore persists the durable identity record. Each backend
// scopes records under a fixed service namespace so one logical record
// exists per installation and account.
package credstore

import (
	"context"
	"errors"
)

// Namespace is the fixed service namespace all backends store under.
const Namespace = "keyshare-agent"

// AccountCurrentUser is the account key holding the signed-in user's
// provider-assigned identifier.
const AccountCurrentUser = "current-user"

// ErrNotFound is returned by Load when no value exists for the account.
var ErrNotFound = errors.New("credential not found")

// Store is durable key/value persistence for identity records. Values must
// survive process restarts and must not be readable outside the
// authenticated principal's storage domain; how that is enforced is a
// backend concern.
type Store interface {
	// Save writes value for account, replacing any previous value.
	Save(ctx context.Context, account, value string) error
	// Load returns the value for account, or ErrNotFound.
	Load(ctx context.Context, account string) (string, error)
	// Delete removes the value for account. Deleting a missing account is
	// not an error.
	Delete(ctx context.Context, account string) error
}
