package blob

import (
	"context"

	"github.com/lejeunel/image-db-app/internal/infra/blob/fs"
	"github.com/lejeunel/image-db-app/internal/infra/blob/gcs"
	memorystore "github.com/lejeunel/image-db-app/internal/infra/blob/memory"
	infraS3 "github.com/lejeunel/image-db-app/internal/infra/blob/s3"
)

type (
	// MemoryStore is the in-memory backend. It exposes Put and Fail for tests.
	MemoryStore = memorystore.Store
	// S3Config re-exports the S3 backend configuration.
	S3Config = infraS3.Config
	// GCSConfig re-exports the GCS backend configuration.
	GCSConfig = gcs.Config
	// S3Mock is the fake S3 HTTP backend used by cross-package tests.
	S3Mock = infraS3.MockBackend
)

// NewMemory returns an in-memory store serving scheme (mem when empty).
func NewMemory(scheme Scheme) *MemoryStore { return memorystore.New(scheme) }

// NewFilesystem constructs a read-only filesystem store rooted at root.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}

// NewS3 constructs an S3-backed store.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return infraS3.New(ctx, cfg)
}

// NewGCS constructs a Google Cloud Storage backed store.
func NewGCS(ctx context.Context, cfg GCSConfig) (Store, error) {
	return gcs.New(ctx, cfg)
}

// NewMockS3ForTests exposes the in-memory S3 fake for cross-package tests.
func NewMockS3ForTests() (Store, *S3Mock) { return infraS3.NewMockForTests() }
