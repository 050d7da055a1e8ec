// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/harborlane/signup-gateway/internal/errors"
)

// Mode selects the deployment mode the gateway is serving.
type Mode string

const (
	// ModeServer is a live server with request handlers and server-side
	// secrets available at runtime.
	ModeServer Mode = "server"

	// ModeStatic is a static export: no live handlers at view time, so
	// credentials come from baked values or the served markup.
	ModeStatic Mode = "static"
)

// Environment variable names. The backend URL and anon key are public in the
// sense that a static export ships them to the browser; the service key is
// never exposed outside the server process.
const (
	EnvBackendURL        = "SIGNUP_BACKEND_URL"
	EnvBackendAnonKey    = "SIGNUP_BACKEND_ANON_KEY"
	EnvBackendServiceKey = "SIGNUP_BACKEND_SERVICE_KEY"
	EnvMode              = "SIGNUP_MODE"
)

// Config holds gateway configuration populated once at process start.
type Config struct {
	ListenAddr string
	Mode       Mode

	// Backend credential layer. The resolver reads the same variables
	// directly as its first source; these fields are its second layer.
	BackendURL        string
	BackendAnonKey    string
	BackendServiceKey string

	SubmissionTable string
	StorageBuckets  []string

	// MarkupDocument is the path to the exported page whose meta tags and
	// bootstrap object carry last-resort credentials (static mode).
	MarkupDocument string

	CSRFTTL        time.Duration
	CSRFSecure     bool
	AllowedOrigins []string

	RateLimitPerSecond int
	RateLimitBurst     int

	RequestTimeout time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment, applying defaults. A .env
// file in the working directory is honored if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:         getEnv("SIGNUP_LISTEN_ADDR", ":8080"),
		Mode:               Mode(getEnv(EnvMode, string(ModeServer))),
		BackendURL:         strings.TrimSpace(os.Getenv(EnvBackendURL)),
		BackendAnonKey:     strings.TrimSpace(os.Getenv(EnvBackendAnonKey)),
		BackendServiceKey:  strings.TrimSpace(os.Getenv(EnvBackendServiceKey)),
		SubmissionTable:    getEnv("SIGNUP_SUBMISSION_TABLE", "signup_submissions"),
		StorageBuckets:     splitList(getEnv("SIGNUP_FALLBACK_BUCKETS", "signup-fallback,form-submissions")),
		MarkupDocument:     os.Getenv("SIGNUP_MARKUP_DOCUMENT"),
		CSRFTTL:            time.Duration(getEnvInt("SIGNUP_CSRF_TTL_SECONDS", 1800)) * time.Second,
		CSRFSecure:         getEnvBool("SIGNUP_CSRF_SECURE", false),
		AllowedOrigins:     splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		RateLimitPerSecond: getEnvInt("SIGNUP_RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvInt("SIGNUP_RATE_LIMIT_BURST", 10),
		RequestTimeout:     time.Duration(getEnvInt("SIGNUP_REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
		LogLevel:           getEnv("SIGNUP_LOG_LEVEL", "info"),
		LogFormat:          getEnv("SIGNUP_LOG_FORMAT", "json"),
	}

	if cfg.Mode != ModeServer && cfg.Mode != ModeStatic {
		return nil, errors.Configuration(fmt.Sprintf("invalid %s: %q (want %q or %q)", EnvMode, cfg.Mode, ModeServer, ModeStatic))
	}
	if len(cfg.StorageBuckets) == 0 {
		return nil, errors.Configuration("SIGNUP_FALLBACK_BUCKETS must name at least one bucket")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
