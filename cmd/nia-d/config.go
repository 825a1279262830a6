package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/backend"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/snapshot"
)

const (
	defaultAddr      = "127.0.0.1:8000"
	defaultRateLimit = 20.0
	defaultRateBurst = 40
)

type Config struct {
	Addr              string
	Backend           backend.Config
	Tables            snapshot.Names
	RateLimit         float64
	RateBurst         int
	MaxTraversalSteps int
	TraceStdout       bool
	OTLPEndpoint      string
	LogLevel          slog.Level
	TLSCertFile       string
	TLSKeyFile        string
}

// LoadConfig layers flags over NIA_* environment variables over an
// optional YAML config file over defaults. --help writes usage to stderr
// and returns pflag.ErrHelp.
func LoadConfig(args []string) (Config, error) {
	return loadConfig(args, os.Stderr)
}

func loadConfig(args []string, usage io.Writer) (Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("failed to get cwd: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("NIA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	flagSet := pflag.NewFlagSet("nia-d", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.String("config", "", "path to YAML config file")
	flagSet.String("addr", defaultAddr, "HTTP listen address")
	flagSet.String("source", backend.KindDir, "snapshot source: "+strings.Join(backend.Kinds, "|"))
	flagSet.String("data-dir", cwd, "directory holding the CSV exports when source=dir")
	flagSet.String("s3-bucket", "", "bucket holding the CSV exports when source=s3")
	flagSet.String("s3-prefix", "", "key prefix of the CSV exports when source=s3")
	flagSet.String("db-path", filepath.Join(cwd, "nia.db"), "SQLite database when source=sqlite")
	flagSet.String("redis-addr", "127.0.0.1:6379", "Redis address when source=redis")
	flagSet.String("postgres-dsn", "", "PostgreSQL connection string when source=postgres")
	flagSet.Float64("rate-limit", defaultRateLimit, "requests per second across all clients, 0 disables")
	flagSet.Int("rate-burst", defaultRateBurst, "rate limiter burst size")
	flagSet.Int("max-traversal-steps", 0, "path search budget per analysis, 0 keeps the engine default")
	flagSet.Bool("trace-stdout", false, "export OpenTelemetry spans to stdout")
	flagSet.String("otlp-endpoint", "", "OTLP/HTTP trace collector URL, overrides trace-stdout")
	flagSet.String("log-level", "info", "debug|info|warn|error")
	flagSet.String("tls-cert", "", "TLS certificate file")
	flagSet.String("tls-key", "", "TLS key file")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(usage, "Usage: nia-d [flags]")
			flagSet.SetOutput(usage)
			flagSet.PrintDefaults()
		}
		return Config{}, err
	}
	if err := v.BindPFlags(flagSet); err != nil {
		return Config{}, fmt.Errorf("failed to bind flags: %w", err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(resolvePath(path, cwd))
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := Config{
		Addr: strings.TrimSpace(v.GetString("addr")),
		Backend: backend.Config{
			Kind:        strings.ToLower(strings.TrimSpace(v.GetString("source"))),
			DataDir:     resolvePath(v.GetString("data-dir"), cwd),
			S3Bucket:    v.GetString("s3-bucket"),
			S3Prefix:    v.GetString("s3-prefix"),
			DBPath:      resolvePath(v.GetString("db-path"), cwd),
			RedisAddr:   v.GetString("redis-addr"),
			PostgresDSN: v.GetString("postgres-dsn"),
		},
		RateLimit:         v.GetFloat64("rate-limit"),
		RateBurst:         v.GetInt("rate-burst"),
		MaxTraversalSteps: v.GetInt("max-traversal-steps"),
		TraceStdout:       v.GetBool("trace-stdout"),
		OTLPEndpoint:      v.GetString("otlp-endpoint"),
		TLSCertFile:       v.GetString("tls-cert"),
		TLSKeyFile:        v.GetString("tls-key"),
	}

	var names snapshot.Names
	if err := v.UnmarshalKey("tables", &names); err != nil {
		return Config{}, fmt.Errorf("invalid tables section: %w", err)
	}
	cfg.Tables = names.WithDefaults(cfg.Backend.DefaultNames())

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("log-level"))); err != nil {
		return Config{}, fmt.Errorf("invalid log-level: %w", err)
	}

	if cfg.Addr == "" {
		return Config{}, errors.New("addr cannot be empty")
	}
	if err := cfg.Backend.Validate(); err != nil {
		return Config{}, err
	}
	if cfg.RateLimit < 0 {
		return Config{}, errors.New("rate-limit must not be negative")
	}
	if cfg.MaxTraversalSteps < 0 {
		return Config{}, errors.New("max-traversal-steps must not be negative")
	}
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return Config{}, errors.New("tls-cert and tls-key must be set together")
	}

	return cfg, nil
}

func resolvePath(path string, cwd string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return trimmed
	}
	if filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Join(cwd, trimmed)
}
