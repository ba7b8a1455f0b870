package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"keyshare-agent/internal/identity/domain"
)

const defaultTimeout = 30 * time.Second

// HTTPClient talks JSON over HTTP to the identity provider's front door.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewHTTPClient returns a provider client for baseURL. A zero timeout
// defaults to 30s.
func NewHTTPClient(baseURL string, timeout time.Duration, log *slog.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &HTTPClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

type credentialStateResponse struct {
	State string `json:"state"`
}

// QueryCredentialState reports the provider's view of the stored
// authorization for userIdentifier.
func (c *HTTPClient) QueryCredentialState(ctx context.Context, userIdentifier string) (domain.CredentialState, error) {
	url := fmt.Sprintf("%s/v1/credential-state/%s", c.baseURL, userIdentifier)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.CredentialStateNotFound, nil
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("%w: credential-state returned %d", ErrProviderUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("credential-state returned %d", resp.StatusCode)
	}

	var body credentialStateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decode credential-state response: %v", ErrProviderUnavailable, err)
	}
	return domain.CredentialState(body.State), nil
}

type authorizeRequest struct {
	Scopes                []string `json:"scopes"`
	AllowPasswordFallback bool     `json:"allow_password_fallback"`
	Nonce                 string   `json:"nonce"`
}

type authorizeResponse struct {
	Kind           string `json:"kind"`
	UserIdentifier string `json:"user_identifier,omitempty"`
	IdentityToken  string `json:"identity_token,omitempty"`
	FullName       string `json:"full_name,omitempty"`
	Email          string `json:"email,omitempty"`
	Username       string `json:"username,omitempty"`
	Password       string `json:"password,omitempty"`
}

// RequestAuthorization runs the authorization handshake. 401/403 map to
// ErrAuthorizationDenied, transport failures and 5xx to
// ErrProviderUnavailable.
func (c *HTTPClient) RequestAuthorization(ctx context.Context, req AuthorizationRequest) (*domain.AuthorizationResult, error) {
	scopes := make([]string, 0, len(req.Scopes))
	for _, s := range req.Scopes {
		scopes = append(scopes, string(s))
	}
	payload, err := json.Marshal(authorizeRequest{
		Scopes:                scopes,
		AllowPasswordFallback: req.AllowPasswordFallback,
		Nonce:                 req.Nonce,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/authorize", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: authorize returned %d", ErrAuthorizationDenied, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: authorize returned %d", ErrProviderUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("authorize returned %d", resp.StatusCode)
	}

	var body authorizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode authorize response: %v", ErrProviderUnavailable, err)
	}

	var result *domain.AuthorizationResult
	switch domain.CredentialKind(body.Kind) {
	case domain.CredentialKindIdentity:
		result = &domain.AuthorizationResult{
			Kind: domain.CredentialKindIdentity,
			Identity: &domain.IdentityCredential{
				UserIdentifier: body.UserIdentifier,
				IdentityToken:  body.IdentityToken,
				FullName:       body.FullName,
				Email:          body.Email,
			},
		}
	case domain.CredentialKindPassword:
		result = &domain.AuthorizationResult{
			Kind: domain.CredentialKindPassword,
			Password: &domain.PasswordCredential{
				Username: body.Username,
				Password: body.Password,
			},
		}
	default:
		return nil, fmt.Errorf("authorize returned unknown credential kind %q", body.Kind)
	}
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("authorize response invalid: %w", err)
	}
	return result, nil
}
