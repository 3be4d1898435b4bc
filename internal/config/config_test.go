package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lejeunel/image-db-app/internal/blob"
	"github.com/lejeunel/image-db-app/internal/ingest"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaultsFromEnv(t *testing.T) {
	t.Setenv(PathEnv, "")
	t.Setenv("IMAGEDB_AUTH_JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, []string{"s3"}, cfg.Blob.Schemes())
	assert.Equal(t, ingest.DefaultPatterns(), cfg.Parser.Patterns())
	assert.Equal(t, 50, cfg.API.DefaultPageSize)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "admin", cfg.Auth.AdminRole)
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	path := writeYAML(t, `
server:
  port: 9000
storage:
  driver: memory
blob:
  allowed_schemes: "s3, GS"
auth:
  jwt_secret: "`+testSecret+`"
api:
  default_page_size: 20
  max_page_size: 100
`)
	t.Setenv(PathEnv, path)
	t.Setenv("IMAGEDB_SERVER_PORT", "9100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, []string{"s3", "gs"}, cfg.Blob.Schemes())
	assert.Equal(t, 20, cfg.API.DefaultPageSize)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(PathEnv, filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := Load()
	require.Error(t, err)
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("IMAGEDB_LOG_LEVEL=debug\nIMAGEDB_LOG_MODE=prod\n"), 0o600))
	t.Setenv("IMAGEDB_LOG_MODE", "dev")
	// Registered so the variable is unset again after the test.
	t.Setenv("IMAGEDB_LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("IMAGEDB_LOG_LEVEL"))

	require.NoError(t, LoadDotEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "debug", os.Getenv("IMAGEDB_LOG_LEVEL"))
	assert.Equal(t, "dev", os.Getenv("IMAGEDB_LOG_MODE"))
}

func validConfig() Config {
	return Config{
		Storage: StorageConfig{Driver: "sqlite"},
		Blob:    BlobConfig{AllowedSchemes: "s3,gs"},
		Parser: ParserConfig{
			Ignore: ingest.DefaultIgnore,
			Valid:  ingest.DefaultValid,
			Row:    ingest.DefaultFields()[ingest.FieldRow],
			Col:    ingest.DefaultFields()[ingest.FieldCol],
			Site:   ingest.DefaultFields()[ingest.FieldSite],
			Chan:   ingest.DefaultFields()[ingest.FieldChan],
		},
		Auth: AuthConfig{JWTSecret: testSecret},
		API:  APIConfig{DefaultPageSize: 50, MaxPageSize: 1000},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "mysql" }, errMsg: "storage.driver"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Storage.Driver = "postgres" }, errMsg: "postgres_dsn"},
		{name: "no schemes", mutate: func(c *Config) { c.Blob.AllowedSchemes = " , " }, errMsg: "at least one scheme"},
		{name: "unknown scheme", mutate: func(c *Config) { c.Blob.AllowedSchemes = "ftp" }, errMsg: "unknown scheme"},
		{name: "file without root", mutate: func(c *Config) { c.Blob.AllowedSchemes = "file" }, errMsg: "fs_root"},
		{name: "bad pattern", mutate: func(c *Config) { c.Parser.Row = "([A-Z]" }, errMsg: "parser"},
		{name: "short secret", mutate: func(c *Config) { c.Auth.JWTSecret = "short" }, errMsg: "jwt_secret"},
		{name: "auth disabled", mutate: func(c *Config) { c.Auth.JWTSecret = ""; c.Auth.Disabled = true }},
		{name: "page sizes", mutate: func(c *Config) { c.API.MaxPageSize = 10 }, errMsg: "max_page_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestBlobOptions(t *testing.T) {
	b := BlobConfig{
		AllowedSchemes: "s3,file",
		FSRoot:         "/data",
		S3Region:       "eu-west-1",
		S3Endpoint:     "http://minio:9000",
		S3PathStyle:    true,
		GCSAnonymous:   true,
	}
	opts := b.Options()
	assert.Equal(t, []string{"s3", "file"}, opts.Allowed)
	assert.Equal(t, "/data", opts.FSRoot)
	assert.Equal(t, blob.S3Config{Region: "eu-west-1", Endpoint: "http://minio:9000", PathStyle: true}, opts.S3)
	assert.True(t, opts.GCS.Anonymous)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitList(" a, ,b "))
	assert.Nil(t, SplitList(""))
}
