package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/backend"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/snapshot"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultAddr, cfg.Addr)
	assert.Equal(t, backend.KindDir, cfg.Backend.Kind)
	assert.Equal(t, snapshot.BlobNames, cfg.Tables)
	assert.Equal(t, defaultRateLimit, cfg.RateLimit)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.True(t, filepath.IsAbs(cfg.Backend.DBPath))
}

func TestLoadConfig_Help(t *testing.T) {
	var usage bytes.Buffer
	_, err := loadConfig([]string{"--help"}, &usage)
	require.ErrorIs(t, err, pflag.ErrHelp)
	assert.True(t, strings.HasPrefix(usage.String(), "Usage: nia-d [flags]\n"))
	assert.Contains(t, usage.String(), "--source")
	assert.Contains(t, usage.String(), "--max-traversal-steps")

	usage.Reset()
	_, err = loadConfig([]string{"--no-such-flag"}, &usage)
	require.Error(t, err)
	assert.NotErrorIs(t, err, pflag.ErrHelp)
	assert.Empty(t, usage.String())
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		envVars     map[string]string
		expectError bool
		errorSubstr string
	}{
		{
			name: "sqlite from flag",
			args: []string{"--source", "sqlite", "--db-path", "snap.db"},
		},
		{
			name:        "s3 without bucket",
			args:        []string{"--source", "s3"},
			expectError: true,
			errorSubstr: "s3-bucket",
		},
		{
			name:        "unknown source from env",
			envVars:     map[string]string{"NIA_SOURCE": "ftp"},
			expectError: true,
			errorSubstr: "unsupported source",
		},
		{
			name:        "postgres without dsn",
			envVars:     map[string]string{"NIA_SOURCE": "postgres"},
			expectError: true,
			errorSubstr: "postgres-dsn",
		},
		{
			name:        "negative rate limit",
			args:        []string{"--rate-limit", "-1"},
			expectError: true,
			errorSubstr: "rate-limit",
		},
		{
			name:        "negative traversal budget from env",
			envVars:     map[string]string{"NIA_MAX_TRAVERSAL_STEPS": "-5"},
			expectError: true,
			errorSubstr: "max-traversal-steps",
		},
		{
			name:        "bad log level",
			args:        []string{"--log-level", "loud"},
			expectError: true,
			errorSubstr: "log-level",
		},
		{
			name:        "tls cert without key",
			args:        []string{"--tls-cert", "cert.pem"},
			expectError: true,
			errorSubstr: "tls-key",
		},
		{
			name:        "empty addr",
			args:        []string{"--addr", " "},
			expectError: true,
			errorSubstr: "addr cannot be empty",
		},
		{
			name:        "unknown flag",
			args:        []string{"--poll-interval", "5s"},
			expectError: true,
			errorSubstr: "unknown flag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			_, err := LoadConfig(tt.args)

			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorSubstr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nia.yaml")
	yaml := strings.Join([]string{
		"addr: 0.0.0.0:9000",
		"source: redis",
		"redis-addr: cache:6379",
		"rate-limit: 5",
		"log-level: debug",
		"tables:",
		"  ospf: ospf_2024",
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	t.Setenv("NIA_RATE_LIMIT", "7")
	cfg, err := LoadConfig([]string{"--config", path, "--addr", "127.0.0.1:9100"})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9100", cfg.Addr, "flag beats config file")
	assert.Equal(t, 7.0, cfg.RateLimit, "env beats config file")
	assert.Equal(t, backend.KindRedis, cfg.Backend.Kind)
	assert.Equal(t, "cache:6379", cfg.Backend.RedisAddr)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "ospf_2024", cfg.Tables.OSPF)
	assert.Equal(t, snapshot.TableNames.WAN, cfg.Tables.WAN, "database sources default to import table names")
}

func TestLoadConfig_MissingConfigFile(t *testing.T) {
	_, err := LoadConfig([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml")})
	assert.ErrorContains(t, err, "config file")
}

func TestLoadConfig_Tracing(t *testing.T) {
	t.Setenv("NIA_OTLP_ENDPOINT", "http://collector:4318")
	cfg, err := LoadConfig([]string{"--trace-stdout"})
	require.NoError(t, err)
	assert.True(t, cfg.TraceStdout)
	assert.Equal(t, "http://collector:4318", cfg.OTLPEndpoint)
}
