package blob

import (
	"context"
	"fmt"
	"strings"
)

// Options configures the backends constructed by Open.
type Options struct {
	// Allowed lists the URI schemes the reader accepts (s3, gs, file, mem).
	Allowed []string
	// FSRoot is the root directory for file:// URIs.
	FSRoot string
	S3     S3Config
	GCS    GCSConfig
}

// Open builds a Reader with one backend per allowed scheme.
func Open(ctx context.Context, opts Options) (*Reader, error) {
	var stores []Store
	for _, raw := range opts.Allowed {
		switch Scheme(strings.ToLower(strings.TrimSpace(raw))) {
		case SchemeFile:
			st, err := NewFilesystem(opts.FSRoot)
			if err != nil {
				return nil, err
			}
			stores = append(stores, st)
		case SchemeS3:
			st, err := NewS3(ctx, opts.S3)
			if err != nil {
				return nil, fmt.Errorf("s3 backend: %w", err)
			}
			stores = append(stores, st)
		case SchemeGCS:
			st, err := NewGCS(ctx, opts.GCS)
			if err != nil {
				return nil, fmt.Errorf("gcs backend: %w", err)
			}
			stores = append(stores, st)
		case SchemeMemory:
			stores = append(stores, NewMemory(SchemeMemory))
		default:
			return nil, fmt.Errorf("unknown blob scheme %s", raw)
		}
	}
	return NewReader(opts.Allowed, stores...), nil
}
