package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"docwise-client/internal/shared/telemetry"
)

const (
	defaultAPIBaseURL = "http://localhost:8001"
	defaultModel      = "gpt-5"
)

// Config holds client configuration.
type Config struct {
	APIBaseURL     string
	Env            string
	RequestTimeout time.Duration
	DefaultModel   string
	CredentialFile string
	DownloadStore  string
	DownloadDir    string
	AWSRegion      string
	S3Bucket       string
	S3Prefix       string
	SSEKMSKeyID    string
	LogLevel       string

	// Devserver only.
	Port            string
	CORSAllowOrigin []string
	AdminEmail      string
}

// fileConfig mirrors the optional config.toml.
type fileConfig struct {
	APIBaseURL     string `toml:"api_base_url"`
	Env            string `toml:"env"`
	TimeoutSeconds int    `toml:"request_timeout_seconds"`
	DefaultModel   string `toml:"default_model"`
	CredentialFile string `toml:"credential_file"`
	LogLevel       string `toml:"log_level"`
	Downloads      struct {
		Store       string `toml:"store"`
		Dir         string `toml:"dir"`
		AWSRegion   string `toml:"aws_region"`
		S3Bucket    string `toml:"s3_bucket"`
		S3Prefix    string `toml:"s3_prefix"`
		SSEKMSKeyID string `toml:"sse_kms_key_id"`
	} `toml:"downloads"`
}

// Load reads configuration from the environment, then the TOML file named by
// DOCWISE_CONFIG (or ~/.config/docwise/config.toml), then defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")
	return LoadFile(getEnv("DOCWISE_CONFIG", defaultConfigPath()))
}

// LoadFile is Load with an explicit TOML path. A missing file is not an error.
func LoadFile(path string) Config {
	var fc fileConfig
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &fc); err != nil {
				telemetry.Warn("config.toml_invalid", map[string]any{"path": path, "error": err})
				fc = fileConfig{}
			}
		}
	}

	timeout := 120 * time.Second
	if fc.TimeoutSeconds > 0 {
		timeout = time.Duration(fc.TimeoutSeconds) * time.Second
	}
	if raw := strings.TrimSpace(os.Getenv("REQUEST_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}

	return Config{
		APIBaseURL:     strings.TrimRight(getEnv("API_BASE_URL", orDefault(fc.APIBaseURL, defaultAPIBaseURL)), "/"),
		Env:            normalizeEnv(getEnv("ENV", orDefault(fc.Env, "dev"))),
		RequestTimeout: timeout,
		DefaultModel:   getEnv("DEFAULT_MODEL", orDefault(fc.DefaultModel, defaultModel)),
		CredentialFile: getEnv("CREDENTIAL_FILE", orDefault(fc.CredentialFile, defaultCredentialPath())),
		DownloadStore:  normalizeStoreType(getEnv("DOWNLOAD_STORE", fc.Downloads.Store)),
		DownloadDir:    getEnv("DOWNLOAD_DIR", orDefault(fc.Downloads.Dir, ".")),
		AWSRegion:      getEnv("AWS_REGION", fc.Downloads.AWSRegion),
		S3Bucket:       getEnv("S3_BUCKET", fc.Downloads.S3Bucket),
		S3Prefix:       getEnv("S3_PREFIX", fc.Downloads.S3Prefix),
		SSEKMSKeyID:    getEnv("SSE_KMS_KEY_ID", fc.Downloads.SSEKMSKeyID),
		LogLevel:       getEnv("LOG_LEVEL", orDefault(fc.LogLevel, "warn")),
		Port:           getEnv("PORT", "8001"),

		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000")),
		AdminEmail:      getEnv("ADMIN_EMAIL", ""),
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "docwise", "config.toml")
}

func defaultCredentialPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "docwise", "credentials.json")
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func orDefault(val, def string) string {
	if strings.TrimSpace(val) != "" {
		return val
	}
	return def
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func splitAndTrim(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
