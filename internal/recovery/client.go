// Package recovery defines the narrow interface to the external verifier
// network that exchanges a verified identity token for a private key share,
// plus an HTTP implementation. Share combination and signature verification
// happen inside the network; this package only carries the exchange.
package recovery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrRecoveryFailed is returned when the share exchange fails for any
// reason. The exchange is single-attempt; retry policy, if any, lives in
// the network's own front door.
var ErrRecoveryFailed = errors.New("secret share recovery failed")

// SecretShareResult is the network's response to a share exchange. The
// share is never persisted by this module; display and storage are a
// caller concern.
type SecretShareResult struct {
	// Share is the private key share, encoded as the network returned it.
	Share string
	// NodeIndex identifies which verifier node answered.
	NodeIndex int
	// Threshold is the number of shares needed to reconstruct the key.
	Threshold int
}

// Client is the capability surface of the key recovery network.
type Client interface {
	// RecoverSecretShare exchanges the identity token for the share bound
	// to verifierID. Single attempt, no retry.
	RecoverSecretShare(ctx context.Context, verifierID, idToken string) (*SecretShareResult, error)
}

const defaultTimeout = 30 * time.Second

// HTTPClient talks JSON over HTTP to the verifier network's front door.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewHTTPClient returns a recovery client for baseURL. A zero timeout
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

type retrieveShareRequest struct {
	VerifierID string `json:"verifier_id"`
	IDToken    string `json:"id_token"`
}

type retrieveShareResponse struct {
	Share     string `json:"share"`
	NodeIndex int    `json:"node_index"`
	Threshold int    `json:"threshold"`
}

// RecoverSecretShare posts the (verifierID, idToken) pair and returns the
// share the network releases for it.
func (c *HTTPClient) RecoverSecretShare(ctx context.Context, verifierID, idToken string) (*SecretShareResult, error) {
	payload, err := json.Marshal(retrieveShareRequest{VerifierID: verifierID, IDToken: idToken})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/share/retrieve", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecoveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: verifier network returned %d", ErrRecoveryFailed, resp.StatusCode)
	}

	var body retrieveShareResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode share response: %v", ErrRecoveryFailed, err)
	}
	if body.Share == "" {
		return nil, fmt.Errorf("%w: verifier network returned an empty share", ErrRecoveryFailed)
	}

	c.log.Debug("share retrieved",
		slog.String("verifier_id", verifierID),
		slog.Int("node_index", body.NodeIndex),
		slog.Duration("took", time.Since(start)))

	return &SecretShareResult{
		Share:     body.Share,
		NodeIndex: body.NodeIndex,
		Threshold: body.Threshold,
	}, nil
}
