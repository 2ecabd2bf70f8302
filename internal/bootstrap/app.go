package bootstrap

import (
	"context"
	"fmt"
	"strings"

	atotto "github.com/atotto/clipboard"

	"docwise-client/internal/analysis"
	"docwise-client/internal/credential"
	"docwise-client/internal/gateway"
	"docwise-client/internal/prompts"
	"docwise-client/internal/session"
	"docwise-client/internal/shared/clipboard"
	"docwise-client/internal/shared/config"
	"docwise-client/internal/shared/storage/object"
	localstore "docwise-client/internal/shared/storage/object/local"
	s3store "docwise-client/internal/shared/storage/object/s3"
	"docwise-client/internal/shared/telemetry"
)

// App holds the client object graph.
type App struct {
	Config      config.Config
	Credentials *credential.Store
	Gateway     *gateway.Client
	Session     *session.Manager
	Prompts     *prompts.Catalog
	Analysis    *analysis.Orchestrator
	Downloads   object.ObjectStore
}

// Overrides replaces parts of the graph, mainly for tests.
type Overrides struct {
	Clipboard clipboard.Writer
	Downloads object.ObjectStore
}

// Build wires credential store, gateway, session manager, prompt catalog and
// orchestrator from cfg. A persisted credential is restored but not verified;
// callers run Session.ResolveSession for that.
func Build(ctx context.Context, cfg config.Config, ov Overrides) (*App, error) {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return nil, fmt.Errorf("API_BASE_URL is required")
	}

	creds, err := credential.NewStore(credential.Options{
		BaseURL: cfg.APIBaseURL,
		Path:    cfg.CredentialFile,
	})
	if err != nil {
		return nil, err
	}
	if err := creds.Load(); err != nil {
		// A corrupt credential file only costs a fresh login.
		telemetry.Warn("bootstrap.credential_load_failed", map[string]any{"path": cfg.CredentialFile, "error": err})
	}

	client, err := gateway.New(gateway.Options{
		BaseURL:     cfg.APIBaseURL,
		Credentials: creds,
		Timeout:     cfg.RequestTimeout,
	})
	if err != nil {
		return nil, err
	}

	downloads := ov.Downloads
	if downloads == nil {
		downloads, err = buildStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	clip := ov.Clipboard
	if clip == nil {
		clip = buildClipboard()
	}

	return &App{
		Config:      cfg,
		Credentials: creds,
		Gateway:     client,
		Session:     session.NewManager(client, creds),
		Prompts:     prompts.NewCatalog(client),
		Analysis: analysis.NewOrchestrator(analysis.Options{
			API:          client,
			Clipboard:    clip,
			Downloads:    downloads,
			DefaultModel: cfg.DefaultModel,
		}),
		Downloads: downloads,
	}, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.DownloadStore {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.DownloadDir), nil
	}
}

func buildClipboard() clipboard.Writer {
	if atotto.Unsupported {
		telemetry.Debug("bootstrap.clipboard_unsupported", nil)
		return &clipboard.Memory{}
	}
	return clipboard.System{}
}
