// Package blob re-exports core blob abstractions and wraps the infra backends
// behind a URI-addressed Reader.
package blob

import (
	"github.com/lejeunel/image-db-app/internal/blob/core"
)

type (
	// Scheme identifies the URI scheme served by a backend.
	Scheme = core.Scheme
	// Info describes stored object metadata.
	Info = core.Info
	// Store is the interface for object store backends.
	Store = core.Store
)

const (
	// SchemeS3 is the S3-compatible scheme.
	SchemeS3 = core.SchemeS3
	// SchemeGCS is the Google Cloud Storage scheme.
	SchemeGCS = core.SchemeGCS
	// SchemeFile is the local filesystem scheme.
	SchemeFile = core.SchemeFile
	// SchemeMemory is the in-memory test scheme.
	SchemeMemory = core.SchemeMemory
)

// ErrNotFound indicates a missing object.
var ErrNotFound = core.ErrNotFound
