package credstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hashicorp/vault/api"
)

// VaultStore persists identity records in HashiCorp Vault's KV v2 engine.
// Each account maps to one secret under <mount>/data/<path>/<account> with
// a single "value" field.
type VaultStore struct {
	client    *api.Client
	mountPath string
	dataPath  string
	log       *slog.Logger
}

// VaultConfig configures a VaultStore.
type VaultConfig struct {
	// Address is the Vault server address, e.g. https://vault.example.com:8200.
	Address string
	// Token authenticates the client. Other auth methods are a deployment
	// concern and can be layered on via VAULT_* environment variables.
	Token string
	// MountPath is the KV v2 mount, e.g. "secret".
	MountPath string
	// DataPath is the path within the mount, e.g. "keyshare-agent".
	DataPath string
	Log      *slog.Logger
}

// NewVaultStore returns a Store backed by Vault KV v2.
func NewVaultStore(cfg VaultConfig) (*VaultStore, error) {
	apiCfg := api.DefaultConfig()
	if cfg.Address != "" {
		apiCfg.Address = cfg.Address
	}
	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("credstore: vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}

	mountPath := strings.Trim(cfg.MountPath, "/")
	if mountPath == "" {
		mountPath = "secret"
	}
	dataPath := strings.Trim(cfg.DataPath, "/")
	if dataPath == "" {
		dataPath = Namespace
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &VaultStore{client: client, mountPath: mountPath, dataPath: dataPath, log: log}, nil
}

func (s *VaultStore) secretPath(account string) string {
	return fmt.Sprintf("%s/data/%s/%s", s.mountPath, s.dataPath, account)
}

// Save writes value for account, replacing any previous value.
func (s *VaultStore) Save(ctx context.Context, account, value string) error {
	payload := map[string]any{
		"data": map[string]any{"value": value},
	}
	if _, err := s.client.Logical().WriteWithContext(ctx, s.secretPath(account), payload); err != nil {
		s.log.Error("vault write failed", slog.String("account", account), "err", err)
		return fmt.Errorf("credstore: vault write: %w", err)
	}
	return nil
}

// Load returns the value for account, or ErrNotFound.
func (s *VaultStore) Load(ctx context.Context, account string) (string, error) {
	secret, err := s.client.Logical().ReadWithContext(ctx, s.secretPath(account))
	if err != nil {
		s.log.Error("vault read failed", slog.String("account", account), "err", err)
		return "", fmt.Errorf("credstore: vault read: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return "", ErrNotFound
	}
	// KV v2 wraps the payload in a "data" object.
	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return "", ErrNotFound
	}
	value, ok := data["value"].(string)
	if !ok || value == "" {
		return "", ErrNotFound
	}
	return value, nil
}

// Delete removes the value for account. Vault treats deleting a missing
// secret as success, matching the Store contract.
func (s *VaultStore) Delete(ctx context.Context, account string) error {
	if _, err := s.client.Logical().DeleteWithContext(ctx, s.secretPath(account)); err != nil {
		s.log.Error("vault delete failed", slog.String("account", account), "err", err)
		return fmt.Errorf("credstore: vault delete: %w", err)
	}
	return nil
}
