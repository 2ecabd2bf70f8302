package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileEnvOverridesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
api_base_url = "https://docwise.example.com/"
request_timeout_seconds = 30
default_model = "claude-4"

[downloads]
store = "s3"
s3_bucket = "reports"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("API_BASE_URL", "")
	t.Setenv("DEFAULT_MODEL", "gpt-5")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "")
	t.Setenv("DOWNLOAD_STORE", "")
	t.Setenv("S3_BUCKET", "")

	cfg := LoadFile(path)

	if cfg.APIBaseURL != "https://docwise.example.com" {
		t.Fatalf("expected trimmed base url from file, got %q", cfg.APIBaseURL)
	}
	if cfg.DefaultModel != "gpt-5" {
		t.Fatalf("expected env to override model, got %q", cfg.DefaultModel)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Fatalf("expected 30s timeout, got %s", cfg.RequestTimeout)
	}
	if cfg.DownloadStore != "s3" || cfg.S3Bucket != "reports" {
		t.Fatalf("unexpected download config: %+v", cfg)
	}
}

func TestLoadFileMissingUsesDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("DOWNLOAD_STORE", "")
	t.Setenv("DEFAULT_MODEL", "")
	t.Setenv("ENV", "")

	cfg := LoadFile(filepath.Join(t.TempDir(), "missing.toml"))

	if cfg.APIBaseURL != defaultAPIBaseURL {
		t.Fatalf("expected default base url, got %q", cfg.APIBaseURL)
	}
	if cfg.DownloadStore != "local" {
		t.Fatalf("expected local store, got %q", cfg.DownloadStore)
	}
	if cfg.DefaultModel != defaultModel {
		t.Fatalf("expected default model, got %q", cfg.DefaultModel)
	}
	if cfg.Env != "dev" {
		t.Fatalf("expected dev env, got %q", cfg.Env)
	}
}

func TestParseEnvLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantKey string
		wantVal string
		wantOK  bool
	}{
		{name: "plain", line: "API_BASE_URL=http://x", wantKey: "API_BASE_URL", wantVal: "http://x", wantOK: true},
		{name: "quoted", line: `LOG_LEVEL="debug"`, wantKey: "LOG_LEVEL", wantVal: "debug", wantOK: true},
		{name: "export", line: "export ENV=prod", wantKey: "ENV", wantVal: "prod", wantOK: true},
		{name: "comment", line: "# ENV=prod", wantOK: false},
		{name: "no equals", line: "ENV", wantOK: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			key, val, ok := parseEnvLine(tt.line)
			if ok != tt.wantOK || key != tt.wantKey || val != tt.wantVal {
				t.Fatalf("parseEnvLine(%q) = (%q, %q, %v)", tt.line, key, val, ok)
			}
		})
	}
}

func TestDevserverSettings(t *testing.T) {
	t.Setenv("CORS_ALLOW_ORIGINS", " http://a.test , ,http://b.test")
	t.Setenv("ADMIN_EMAIL", "admin@example.com")

	cfg := LoadFile("")

	if len(cfg.CORSAllowOrigin) != 2 || cfg.CORSAllowOrigin[0] != "http://a.test" || cfg.CORSAllowOrigin[1] != "http://b.test" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowOrigin)
	}
	if cfg.AdminEmail != "admin@example.com" {
		t.Fatalf("unexpected admin email %q", cfg.AdminEmail)
	}
}
