package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"endpoint_addr_grpc":    "www.example:9000",
		"endpoint_addr_http":    "www.example:8443",
		"database_dsn":          "stamps.db",
		"secret_key":            "my_secret_key",
		"session_token_ttl":     "15m",
		"temporary_token_ttl":   int64(2 * time.Minute),
		"otp_ttl":               "3m",
		"signing_key_path":      "/etc/tsa/key.pem",
		"certificate_path":      "/etc/tsa/cert.pem",
		"smtp_host":             "mail.example",
		"smtp_port":             2525,
		"smtp_starttls":         false,
		"s3_root_user":          "user",
		"s3_root_password":      "password",
		"s3_bucket":             "bucket",
		"s3_region":             "region",
		"s3_base_endpoint":      "base_endpoint",
		"bootstrap_first_admin": true,
		"auth_rate_limit":       "3/minute",
		"max_upload_bytes":      1024,
		"log_level":             "debug",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.EndpointAddrGRPC)
		assert.Equal(t, "www.example:8443", cfg.EndpointAddrHTTP)
		assert.Equal(t, "stamps.db", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 15*time.Minute, cfg.SessionTokenTTL)
		assert.Equal(t, 2*time.Minute, cfg.TemporaryTokenTTL)
		assert.Equal(t, 3*time.Minute, cfg.OTPTTL)
		assert.Equal(t, "/etc/tsa/key.pem", cfg.SigningKeyPath)
		assert.Equal(t, "/etc/tsa/cert.pem", cfg.CertificatePath)
		assert.Equal(t, "mail.example", cfg.SMTPHost)
		assert.Equal(t, 2525, cfg.SMTPPort)
		assert.False(t, cfg.SMTPStartTLS)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.True(t, cfg.BootstrapFirstAdmin)
		assert.Equal(t, "3/minute", cfg.AuthRateLimit)
		assert.Equal(t, "10/hour", cfg.UploadRateLimit)
		assert.Equal(t, int64(1024), cfg.MaxUploadBytes)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("no CONFIG and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{
			EndpointAddrGRPC: "defaults:1234",
			DatabaseDSN:      "stamps.db",
			SecretKey:        "key",
			SessionTokenTTL:  2 * time.Minute,
			S3Bucket:         "s3bucket",
		}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.EndpointAddrGRPC)
		assert.Equal(t, "stamps.db", cfg.DatabaseDSN)
		assert.Equal(t, "key", cfg.SecretKey)
		assert.Equal(t, 2*time.Minute, cfg.SessionTokenTTL)
		assert.Equal(t, "s3bucket", cfg.S3Bucket)
	})

	t.Run("absent keys keep defaults", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{"secret_key": "only-this"})
		os.Args = []string{"testbin", "-c", partial}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "only-this", cfg.SecretKey)
		assert.Equal(t, ":50051", cfg.EndpointAddrGRPC)
		assert.False(t, cfg.BootstrapFirstAdmin)
		assert.True(t, cfg.SMTPStartTLS)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(dir, "nope.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
