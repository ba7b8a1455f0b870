package session

// State is the orchestrator's lifecycle position. Transitions:
//
//	Unchecked -> Checking -> {Valid, NeedsSignIn}
//	NeedsSignIn/Valid -> Authenticating -> {SignedIn, Failed}
//	SignedIn -> SignedOut -> NeedsSignIn
type State string

const (
	StateUnchecked      State = "unchecked"
	StateChecking       State = "checking"
	StateValid          State = "valid"
	StateNeedsSignIn    State = "needs_sign_in"
	StateAuthenticating State = "authenticating"
	StateSignedIn       State = "signed_in"
	StateFailed         State = "failed"
	StateSignedOut      State = "signed_out"
)
