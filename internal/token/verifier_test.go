package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
)

// buildToken assembles an unsigned compact JWT from the given claim payload.
func buildToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	body, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(body)
	return header + "." + payload + "."
}

func TestDecode_ExtractsSubject(t *testing.T) {
	tok := buildToken(t, map[string]any{"sub": "abc123", "email": "a@b.com"})

	claims, err := Decode(tok)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	sub, ok := claims.StringClaim(ClaimSubject)
	if !ok {
		t.Fatal("StringClaim(sub) ok = false, want true")
	}
	if sub != "abc123" {
		t.Errorf("sub = %q, want %q", sub, "abc123")
	}
}

func TestDecode_Malformed(t *testing.T) {
	for _, tok := range []string{"", "not-a-token", "a.b", "x.y.z.w"} {
		if _, err := Decode(tok); !errors.Is(err, ErrMalformedToken) {
			t.Errorf("Decode(%q) err = %v, want ErrMalformedToken", tok, err)
		}
	}
}

func TestStringClaim_AbsentOrWrongType(t *testing.T) {
	tok := buildToken(t, map[string]any{"aud": []string{"x"}, "iat": 1700000000, "empty": ""})
	claims, err := Decode(tok)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	tests := []string{"sub", "aud", "iat", "empty"}
	for _, name := range tests {
		if v, ok := claims.StringClaim(name); ok {
			t.Errorf("StringClaim(%q) = (%q, true), want ok=false", name, v)
		}
	}
}
