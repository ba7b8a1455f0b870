package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"keyshare-agent/internal/identity/domain"
)

func TestQueryCredentialState(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantState domain.CredentialState
		wantErr   error
	}{
		{name: "authorized", status: http.StatusOK, body: `{"state":"authorized"}`, wantState: domain.CredentialStateAuthorized},
		{name: "revoked", status: http.StatusOK, body: `{"state":"revoked"}`, wantState: domain.CredentialStateRevoked},
		{name: "not found maps to state", status: http.StatusNotFound, wantState: domain.CredentialStateNotFound},
		{name: "server error", status: http.StatusBadGateway, wantErr: ErrProviderUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, http.MethodGet, r.Method)
				require.Equal(t, "/v1/credential-state/U1", r.URL.Path)
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewHTTPClient(srv.URL, 0, nil)
			state, err := c.QueryCredentialState(context.Background(), "U1")
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantState, state)
		})
	}
}

func TestRequestAuthorization_IdentityResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/authorize", r.URL.Path)
		var req authorizeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, []string{"full_name", "email"}, req.Scopes)
		require.False(t, req.AllowPasswordFallback)
		require.NotEmpty(t, req.Nonce)
		_ = json.NewEncoder(w).Encode(authorizeResponse{
			Kind:           "identity",
			UserIdentifier: "U1",
			IdentityToken:  "tok",
			Email:          "a@b.com",
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 0, nil)
	res, err := c.RequestAuthorization(context.Background(), AuthorizationRequest{
		Scopes: []Scope{ScopeFullName, ScopeEmail},
		Nonce:  "n-1",
	})
	require.NoError(t, err)
	require.Equal(t, domain.CredentialKindIdentity, res.Kind)
	require.Equal(t, "U1", res.Identity.UserIdentifier)
	require.Equal(t, "tok", res.Identity.IdentityToken)
	require.Equal(t, "a@b.com", res.Identity.Email)
	require.Nil(t, res.Password)
}

func TestRequestAuthorization_PasswordResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req authorizeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.True(t, req.AllowPasswordFallback)
		_ = json.NewEncoder(w).Encode(authorizeResponse{
			Kind:     "password",
			Username: "a@b.com",
			Password: "p",
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 0, nil)
	res, err := c.RequestAuthorization(context.Background(), AuthorizationRequest{AllowPasswordFallback: true, Nonce: "n-2"})
	require.NoError(t, err)
	require.Equal(t, domain.CredentialKindPassword, res.Kind)
	require.Equal(t, "a@b.com", res.Password.Username)
	require.Equal(t, "p", res.Password.Password)
	require.Nil(t, res.Identity)
}

func TestRequestAuthorization_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "denied 401", status: http.StatusUnauthorized, wantErr: ErrAuthorizationDenied},
		{name: "denied 403", status: http.StatusForbidden, wantErr: ErrAuthorizationDenied},
		{name: "unavailable 503", status: http.StatusServiceUnavailable, wantErr: ErrProviderUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			c := NewHTTPClient(srv.URL, 0, nil)
			_, err := c.RequestAuthorization(context.Background(), AuthorizationRequest{Nonce: "n"})
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestRequestAuthorization_UnknownKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(authorizeResponse{Kind: "biometric"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 0, nil)
	_, err := c.RequestAuthorization(context.Background(), AuthorizationRequest{Nonce: "n"})
	require.Error(t, err)
}
