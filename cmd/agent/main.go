// agent runs the credential lifecycle orchestrator with a console renderer
// standing in for the UI layer. It checks the stored identity at startup
// and then accepts commands on stdin: signin, signin-password, signout,
// state, quit.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"keyshare-agent/internal/config"
	"keyshare-agent/internal/credstore"
	"keyshare-agent/internal/db"
	"keyshare-agent/internal/identity/provider"
	"keyshare-agent/internal/intent"
	"keyshare-agent/internal/recovery"
	"keyshare-agent/internal/session"
	"keyshare-agent/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "keyshare-agent", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	store, closeStore, err := buildStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("credential store: %v", err)
	}
	defer closeStore()

	sink := intent.NewChannelSink(16)
	orch, err := session.New(session.Config{
		Store:    store,
		Provider: provider.NewHTTPClient(cfg.ProviderBaseURL, cfg.Timeout(), logger),
		Recovery: recovery.NewHTTPClient(cfg.RecoveryBaseURL, cfg.Timeout(), logger),
		Sink:     sink,
		Log:      logger,
	})
	if err != nil {
		log.Fatalf("session: %v", err)
	}

	go render(sink)

	go func() {
		if _, err := orch.CheckExistingCredential(ctx); err != nil {
			logger.Warn("startup credential check failed", "err", err)
		}
	}()

	scopes := make([]provider.Scope, 0, 2)
	for _, s := range cfg.Scopes() {
		scopes = append(scopes, provider.Scope(s))
	}

	fmt.Println("commands: signin | signin-password | signout | state | quit")
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			switch line {
			case "signin":
				go runSignIn(ctx, orch, scopes, false, logger)
			case "signin-password":
				go runSignIn(ctx, orch, scopes, true, logger)
			case "signout":
				if err := orch.SignOut(ctx); err != nil {
					logger.Warn("sign-out failed", "err", err)
				}
			case "state":
				fmt.Printf("state: %s\n", orch.State())
			case "quit":
				return
			case "":
			default:
				fmt.Printf("unknown command %q\n", line)
			}
		}
	}
}

func runSignIn(ctx context.Context, orch *session.Orchestrator, scopes []provider.Scope, allowPassword bool, logger *slog.Logger) {
	if err := orch.BeginInteractiveSignIn(ctx, scopes, allowPassword); err != nil {
		logger.Warn("sign-in failed", "err", err)
	}
}

// render consumes intents and prints them; this is the stand-in for the
// excluded UI layer.
func render(sink *intent.ChannelSink) {
	for it := range sink.Intents() {
		switch v := it.(type) {
		case intent.PresentSignIn:
			fmt.Println("[ui] sign-in required; type 'signin' or 'signin-password'")
		case intent.DismissSignIn:
			fmt.Println("[ui] sign-in surface dismissed")
		case intent.DisplaySecret:
			fmt.Printf("[ui] recovered key share: %s\n", v.Share)
		case intent.DisplayPasswordCredential:
			fmt.Printf("[ui] stored credential: %s / %s\n", v.Username, v.Password)
		case intent.DisplayError:
			fmt.Printf("[ui] error: %v\n", v.Err)
		}
	}
}

func buildStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (credstore.Store, func(), error) {
	noop := func() {}
	switch cfg.StoreBackend {
	case config.StoreBackendMemory:
		return credstore.NewMemoryStore(), noop, nil
	case config.StoreBackendFile:
		s, err := credstore.NewFileStore(cfg.StoreFilePath, cfg.StorePassphrase)
		return s, noop, err
	case config.StoreBackendVault:
		s, err := credstore.NewVaultStore(credstore.VaultConfig{
			Address:   cfg.VaultAddr,
			Token:     cfg.VaultToken,
			MountPath: cfg.VaultMount,
			DataPath:  cfg.VaultPath,
			Log:       logger,
		})
		return s, noop, err
	case config.StoreBackendPostgres:
		conn, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return credstore.NewPostgresStore(conn), func() { _ = conn.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
