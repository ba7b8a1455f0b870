// Package intent is the presentation bridge: the orchestrator emits
// intents, and the excluded UI layer renders them. Intents are the only
// output the UI layer may consume.
package intent

import (
	"context"
	"fmt"
)

// Intent is a sealed set of render instructions for the presentation layer.
type Intent interface {
	fmt.Stringer
	intent()
}

// PresentSignIn asks the UI to show the sign-in surface.
type PresentSignIn struct{}

// DismissSignIn asks the UI to take the sign-in surface down.
type DismissSignIn struct{}

// DisplaySecret carries a recovered private key share for display.
type DisplaySecret struct {
	Share string
}

// DisplayPasswordCredential carries a credential the user picked from an
// associated password store. It is display-only and never persisted.
type DisplayPasswordCredential struct {
	Username string
	Password string
}

// DisplayError surfaces a failed step. Err is opaque to the UI.
type DisplayError struct {
	Err error
}

func (PresentSignIn) intent()             {}
func (DismissSignIn) intent()             {}
func (DisplaySecret) intent()             {}
func (DisplayPasswordCredential) intent() {}
func (DisplayError) intent()              {}

func (PresentSignIn) String() string { return "present sign-in" }
func (DismissSignIn) String() string { return "dismiss sign-in" }
func (DisplaySecret) String() string { return "display secret" }
func (i DisplayPasswordCredential) String() string {
	return "display password credential for " + i.Username
}
func (i DisplayError) String() string { return "display error: " + i.Err.Error() }

// Sink receives intents from the orchestrator. Emit is best-effort; the
// orchestrator logs and ignores emit failures.
type Sink interface {
	Emit(ctx context.Context, it Intent) error
}

// ChannelSink delivers intents in order over a buffered channel. Renderers
// and tests range over Intents.
type ChannelSink struct {
	ch chan Intent
}

// NewChannelSink returns a sink buffering up to size intents.
func NewChannelSink(size int) *ChannelSink {
	return &ChannelSink{ch: make(chan Intent, size)}
}

// Emit enqueues the intent, blocking until there is buffer space or ctx is
// done.
func (s *ChannelSink) Emit(ctx context.Context, it Intent) error {
	select {
	case s.ch <- it:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Intents is the stream of emitted intents, in emission order.
func (s *ChannelSink) Intents() <-chan Intent {
	return s.ch
}

// Close ends the stream. Only the emitting side may call Close, after the
// orchestrator has stopped.
func (s *ChannelSink) Close() {
	close(s.ch)
}
