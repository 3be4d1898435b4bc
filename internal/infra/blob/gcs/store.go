// Package gcs implements a read-only core.Store on Google Cloud Storage for
// gs:// URIs.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/lejeunel/image-db-app/internal/blob/core"
)

// Config selects credentials and endpoint for the storage client.
type Config struct {
	// Endpoint overrides the JSON API endpoint (emulators, tests).
	Endpoint string
	// Credentials is either a path to a service account file or inline JSON.
	Credentials string
	// Anonymous disables authentication.
	Anonymous bool
	// JSONReads downloads object content through the JSON API.
	JSONReads bool
}

// ClientOptions converts the config into storage client options.
func (c Config) ClientOptions() []option.ClientOption {
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadOnly)}
	creds := strings.TrimSpace(c.Credentials)
	switch {
	case c.Anonymous:
		opts = append(opts, option.WithoutAuthentication())
	case strings.HasPrefix(creds, "{"):
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	case creds != "":
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	if c.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.Endpoint))
	}
	if c.JSONReads {
		opts = append(opts, storage.WithJSONReads())
	}
	return opts
}

// Store wraps a storage client.
type Store struct {
	client *storage.Client
}

// New creates a GCS store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client, err := storage.NewClient(ctx, cfg.ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &Store{client: client}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error { return s.client.Close() }

// Scheme returns the URI scheme served by the store.
func (s *Store) Scheme() core.Scheme { return core.SchemeGCS }

// List returns the objects directly under prefix.
func (s *Store) List(ctx context.Context, bucket, prefix string) ([]core.Info, error) {
	it := s.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})
	out := []core.Info{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		// synthetic directory entries
		if attrs.Prefix != "" || attrs.Name == prefix {
			continue
		}
		out = append(out, core.Info{
			Key:          attrs.Name,
			Size:         attrs.Size,
			ContentType:  attrs.ContentType,
			ETag:         attrs.Etag,
			LastModified: attrs.Updated.UTC(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Get opens a reader on the object.
func (s *Store) Get(ctx context.Context, bucket, key string) (core.Info, io.ReadCloser, error) {
	r, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return core.Info{}, nil, fmt.Errorf("%s/%s: %w", bucket, key, core.ErrNotFound)
		}
		return core.Info{}, nil, fmt.Errorf("failed to open GCS reader: %w", err)
	}
	info := core.Info{
		Key:          key,
		Size:         r.Attrs.Size,
		ContentType:  r.Attrs.ContentType,
		LastModified: r.Attrs.LastModified.UTC(),
	}
	if r.Attrs.Generation != 0 {
		info.ETag = strconv.FormatInt(r.Attrs.Generation, 10)
	}
	return info, r, nil
}
