package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"github.com/mnehpets/onerpc/jsonrpc"
)

// Config is read from the environment, after an optional .env file.
type Config struct {
	// Addr is the listen address. ENV: RPC_ADDR
	Addr string `env:"RPC_ADDR,default=:8080"`
	// Path is where the JSON-RPC endpoint is mounted. ENV: RPC_PATH
	Path string `env:"RPC_PATH,default=/"`
	// AllowGET also accepts calls over GET. ENV: RPC_ALLOW_GET
	AllowGET bool `env:"RPC_ALLOW_GET,default=true"`
	// HandlerTimeout bounds each call; 0 disables. ENV: RPC_HANDLER_TIMEOUT
	HandlerTimeout time.Duration `env:"RPC_HANDLER_TIMEOUT,default=30s"`
	// CORSOrigins is a comma-separated list. ENV: RPC_CORS_ORIGINS
	CORSOrigins string `env:"RPC_CORS_ORIGINS"`
	// LogLevel is debug, info, warn or error. ENV: LOG_LEVEL
	LogLevel string `env:"LOG_LEVEL,default=info"`
	// LogFormat is json or text. ENV: LOG_FORMAT
	LogFormat string `env:"LOG_FORMAT,default=json"`
}

// LoadConfig loads .env files (missing files are ignored) and decodes the
// environment into a Config.
func LoadConfig(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	if !strings.HasPrefix(cfg.Path, "/") {
		cfg.Path = "/" + cfg.Path
	}
	return cfg, nil
}

// Origins returns the configured CORS origins.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// NewLogger builds the process logger. Records logged with a dispatch
// context carry the call's trace id.
func (c Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(c.LogFormat) {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	case "text":
		h = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("LOG_FORMAT: unknown format %q", c.LogFormat)
	}
	return slog.New(jsonrpc.NewTraceHandler(h)), nil
}
