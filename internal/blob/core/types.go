// Package core defines the read-only object store abstraction implemented by
// the backends under internal/infra/blob.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Scheme identifies the URI scheme a backend serves.
type Scheme string

const (
	// SchemeS3 represents an S3 / MinIO compatible backend.
	SchemeS3 Scheme = "s3"
	// SchemeGCS represents a Google Cloud Storage backend.
	SchemeGCS Scheme = "gs"
	// SchemeFile represents the local filesystem.
	SchemeFile Scheme = "file"
	// SchemeMemory represents an in-memory backend typically used in tests.
	SchemeMemory Scheme = "mem"
)

// Info describes a stored object.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store lists and fetches objects of one backend.
type Store interface {
	// List returns the objects that are direct children of prefix within
	// bucket ("/" delimited), ordered by key ascending.
	List(ctx context.Context, bucket, prefix string) ([]Info, error)
	// Get retrieves the object contents and metadata.
	Get(ctx context.Context, bucket, key string) (Info, io.ReadCloser, error)
	// Scheme returns the URI scheme served by the backend.
	Scheme() Scheme
}

// ErrNotFound is returned by Get when the object does not exist.
var ErrNotFound = errors.New("blob: object not found")
