package config

import (
	"fmt"

	"github.com/lejeunel/image-db-app/internal/blob"
	"github.com/lejeunel/image-db-app/internal/ingest"
)

var knownDrivers = map[string]bool{"memory": true, "sqlite": true, "postgres": true}

// Validate checks that the patterns compile, the schemes and storage driver
// are known, and the auth and paging settings are usable.
func (c *Config) Validate() error {
	if !knownDrivers[c.Storage.Driver] {
		return fmt.Errorf("storage.driver %q is not one of memory, sqlite, postgres", c.Storage.Driver)
	}
	if c.Storage.Driver == "postgres" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage.postgres_dsn is required with the postgres driver")
	}

	schemes := c.Blob.Schemes()
	if len(schemes) == 0 {
		return fmt.Errorf("blob.allowed_schemes must list at least one scheme")
	}
	for _, s := range schemes {
		switch blob.Scheme(s) {
		case blob.SchemeS3, blob.SchemeGCS, blob.SchemeFile, blob.SchemeMemory:
		default:
			return fmt.Errorf("blob.allowed_schemes: unknown scheme %q", s)
		}
		if blob.Scheme(s) == blob.SchemeFile && c.Blob.FSRoot == "" {
			return fmt.Errorf("blob.fs_root is required when file is allowed")
		}
	}

	if _, err := ingest.Compile(c.Parser.Patterns()); err != nil {
		return fmt.Errorf("parser: %w", err)
	}

	if !c.Auth.Disabled && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}

	if c.API.DefaultPageSize < 1 || c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("api: need 1 <= default_page_size (%d) <= max_page_size (%d)", c.API.DefaultPageSize, c.API.MaxPageSize)
	}
	return nil
}
