// Package config loads the service configuration from an optional YAML file,
// the environment and built-in defaults.
package config

import (
	"strings"
	"time"

	"github.com/lejeunel/image-db-app/internal/blob"
	"github.com/lejeunel/image-db-app/internal/ingest"
)

// Config is the root application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Blob    BlobConfig    `yaml:"blob"`
	Parser  ParserConfig  `yaml:"parser"`
	Auth    AuthConfig    `yaml:"auth"`
	Cache   CacheConfig   `yaml:"cache"`
	Log     LogConfig     `yaml:"log"`
	API     APIConfig     `yaml:"api"`
	CORS    CORSConfig    `yaml:"cors"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"IMAGEDB_SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"IMAGEDB_SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"IMAGEDB_SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"IMAGEDB_SERVER_WRITE_TIMEOUT"    env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"IMAGEDB_SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	MetricsPath     string        `yaml:"metrics_path"     env:"IMAGEDB_SERVER_METRICS_PATH"     env-default:"/metrics"`
}

// StorageConfig selects the catalog persistence backend.
type StorageConfig struct {
	Driver      string `yaml:"driver"       env:"IMAGEDB_STORAGE_DRIVER"       env-default:"sqlite"`
	SQLitePath  string `yaml:"sqlite_path"  env:"IMAGEDB_STORAGE_SQLITE_PATH"  env-default:"imagedb.db"`
	PostgresDSN string `yaml:"postgres_dsn" env:"IMAGEDB_STORAGE_POSTGRES_DSN"`
}

// BlobConfig configures the object store backends.
type BlobConfig struct {
	AllowedSchemes string `yaml:"allowed_schemes" env:"IMAGEDB_BLOB_ALLOWED_SCHEMES" env-default:"s3"`
	FSRoot         string `yaml:"fs_root"         env:"IMAGEDB_BLOB_FS_ROOT"`

	S3Region    string `yaml:"s3_region"     env:"IMAGEDB_BLOB_S3_REGION"     env-default:"us-east-1"`
	S3Endpoint  string `yaml:"s3_endpoint"   env:"IMAGEDB_BLOB_S3_ENDPOINT"`
	S3AccessKey string `yaml:"s3_access_key" env:"IMAGEDB_BLOB_S3_ACCESS_KEY"`
	S3SecretKey string `yaml:"s3_secret_key" env:"IMAGEDB_BLOB_S3_SECRET_KEY"`
	S3PathStyle bool   `yaml:"s3_path_style" env:"IMAGEDB_BLOB_S3_PATH_STYLE" env-default:"false"`

	GCSEndpoint    string `yaml:"gcs_endpoint"    env:"IMAGEDB_BLOB_GCS_ENDPOINT"`
	GCSCredentials string `yaml:"gcs_credentials" env:"IMAGEDB_BLOB_GCS_CREDENTIALS"`
	GCSAnonymous   bool   `yaml:"gcs_anonymous"   env:"IMAGEDB_BLOB_GCS_ANONYMOUS"   env-default:"false"`
}

// ParserConfig holds the filename patterns applied at ingestion.
type ParserConfig struct {
	Ignore string `yaml:"ignore" env:"IMAGEDB_PARSER_IGNORE" env-default:"^.*_thumb.*$"`
	Valid  string `yaml:"valid"  env:"IMAGEDB_PARSER_VALID"  env-default:"^.*\\.tiff?$"`
	Row    string `yaml:"row"    env:"IMAGEDB_PARSER_ROW"    env-default:"^.*[_/]([A-Z])[0-9]{2}_.*$"`
	Col    string `yaml:"col"    env:"IMAGEDB_PARSER_COL"    env-default:"^.*[_/][A-Z]([0-9]{2})_.*$"`
	Site   string `yaml:"site"   env:"IMAGEDB_PARSER_SITE"   env-default:"^.*_s([0-9]+).*$"`
	Chan   string `yaml:"chan"   env:"IMAGEDB_PARSER_CHAN"   env-default:"^.*_w([0-9]+).*$"`
}

// AuthConfig holds the JWT settings gating mutations.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"IMAGEDB_AUTH_JWT_SECRET"`
	JWTIssuer string `yaml:"jwt_issuer" env:"IMAGEDB_AUTH_JWT_ISSUER" env-default:"imagedb"`
	AdminRole string `yaml:"admin_role" env:"IMAGEDB_AUTH_ADMIN_ROLE" env-default:"admin"`
	// Disabled lets every request through as admin. Development only.
	Disabled bool `yaml:"disabled" env:"IMAGEDB_AUTH_DISABLED" env-default:"false"`
}

// CacheConfig configures the item content cache. An empty RedisAddr selects
// the in-process cache.
type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr"     env:"IMAGEDB_CACHE_REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" env:"IMAGEDB_CACHE_REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db"       env:"IMAGEDB_CACHE_REDIS_DB"       env-default:"0"`
	TTL           time.Duration `yaml:"ttl"            env:"IMAGEDB_CACHE_TTL"            env-default:"10m"`
	MaxEntries    int           `yaml:"max_entries"    env:"IMAGEDB_CACHE_MAX_ENTRIES"    env-default:"256"`
	MaxBytes      int           `yaml:"max_bytes"      env:"IMAGEDB_CACHE_MAX_BYTES"      env-default:"33554432"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Mode  string `yaml:"mode"  env:"IMAGEDB_LOG_MODE"  env-default:"dev"`
	Level string `yaml:"level" env:"IMAGEDB_LOG_LEVEL" env-default:"info"`
}

// APIConfig holds REST presentation settings.
type APIConfig struct {
	DefaultPageSize int    `yaml:"default_page_size" env:"IMAGEDB_API_DEFAULT_PAGE_SIZE" env-default:"50"`
	MaxPageSize     int    `yaml:"max_page_size"     env:"IMAGEDB_API_MAX_PAGE_SIZE"     env-default:"1000"`
	Prefix          string `yaml:"prefix"            env:"IMAGEDB_API_PREFIX"            env-default:"/api/v1"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins string `yaml:"allowed_origins" env:"IMAGEDB_CORS_ALLOWED_ORIGINS" env-default:"*"`
	AllowedMethods string `yaml:"allowed_methods" env:"IMAGEDB_CORS_ALLOWED_METHODS" env-default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowedHeaders string `yaml:"allowed_headers" env:"IMAGEDB_CORS_ALLOWED_HEADERS" env-default:"Authorization,Content-Type"`
}

// SplitList splits a comma-separated setting, dropping blanks.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Schemes returns the allowed URI schemes, lowercased.
func (b BlobConfig) Schemes() []string {
	out := SplitList(b.AllowedSchemes)
	for i := range out {
		out[i] = strings.ToLower(out[i])
	}
	return out
}

// Options converts the blob settings into reader options.
func (b BlobConfig) Options() blob.Options {
	return blob.Options{
		Allowed: b.Schemes(),
		FSRoot:  b.FSRoot,
		S3: blob.S3Config{
			Region:          b.S3Region,
			Endpoint:        b.S3Endpoint,
			AccessKeyID:     b.S3AccessKey,
			SecretAccessKey: b.S3SecretKey,
			PathStyle:       b.S3PathStyle,
		},
		GCS: blob.GCSConfig{
			Endpoint:    b.GCSEndpoint,
			Credentials: b.GCSCredentials,
			Anonymous:   b.GCSAnonymous,
		},
	}
}

// Patterns converts the parser settings into ingestion patterns.
func (p ParserConfig) Patterns() ingest.Patterns {
	return ingest.Patterns{
		Ignore: p.Ignore,
		Valid:  p.Valid,
		Fields: map[string]string{
			ingest.FieldRow:  p.Row,
			ingest.FieldCol:  p.Col,
			ingest.FieldSite: p.Site,
			ingest.FieldChan: p.Chan,
		},
	}
}
