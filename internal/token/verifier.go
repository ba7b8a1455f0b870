// Package token decodes compact identity tokens into their claim payload.
//
// Decode is structural only: it does NOT verify the signature or the expiry
// of the token. It is not a trust boundary. Trust in the token is
// established by the identity provider and, downstream, by the verifier
// network that consumes it; this package merely reads claims out of a token
// the process already holds.
package token

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ClaimSubject is the claim the orchestrator requires from every identity
// token.
const ClaimSubject = "sub"

// ErrMalformedToken is returned when the token is not a structurally valid
// compact JWT.
var ErrMalformedToken = errors.New("malformed identity token")

// Claims is the decoded claim payload of an identity token.
type Claims map[string]any

// StringClaim returns the named claim if it is present and string-typed.
// Absent or non-string claims return ok=false, never an error; the caller
// decides whether absence is fatal.
func (c Claims) StringClaim(name string) (string, bool) {
	v, ok := c[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Decode parses the compact token and returns its claim payload without
// validating the signature or any registered claims.
func Decode(tokenString string) (Claims, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return Claims(claims), nil
}
