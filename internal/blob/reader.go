package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/lejeunel/image-db-app/pkg/domain"
)

// Location is a parsed object URI: scheme://bucket/key.
type Location struct {
	Scheme Scheme
	Bucket string
	Key    string
}

// String renders the location back into a URI.
func (l Location) String() string {
	return fmt.Sprintf("%s://%s/%s", l.Scheme, l.Bucket, l.Key)
}

// Child returns the location of key within the same bucket.
func (l Location) Child(key string) Location {
	return Location{Scheme: l.Scheme, Bucket: l.Bucket, Key: key}
}

// ParseURI splits an object URI. file:///data/x has an empty bucket and key
// "data/x".
func ParseURI(uri string) (Location, error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" {
		return Location{}, &domain.ValidationError{Entity: domain.EntityObject, Field: "uri", Value: uri, Reason: "not a valid URI"}
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return Location{}, &domain.ValidationError{Entity: domain.EntityObject, Field: "uri", Value: uri, Reason: "query and fragment are not allowed"}
	}
	return Location{
		Scheme: Scheme(strings.ToLower(u.Scheme)),
		Bucket: u.Host,
		Key:    strings.TrimPrefix(u.Path, "/"),
	}, nil
}

// Reader lists and fetches objects by URI, dispatching on the scheme. Only
// schemes in the allow-list that have a registered backend are served.
type Reader struct {
	stores  map[Scheme]Store
	allowed map[Scheme]bool
}

// NewReader builds a Reader. A store whose scheme is not allowed is ignored.
func NewReader(allowed []string, stores ...Store) *Reader {
	r := &Reader{stores: make(map[Scheme]Store), allowed: make(map[Scheme]bool)}
	for _, s := range allowed {
		r.allowed[Scheme(strings.ToLower(strings.TrimSpace(s)))] = true
	}
	for _, st := range stores {
		if st == nil || !r.allowed[st.Scheme()] {
			continue
		}
		r.stores[st.Scheme()] = st
	}
	return r
}

// Schemes returns the schemes the reader serves.
func (r *Reader) Schemes() []Scheme {
	out := make([]Scheme, 0, len(r.stores))
	for s := range r.stores {
		out = append(out, s)
	}
	return out
}

// Store returns the backend registered for scheme.
func (r *Reader) Store(s Scheme) (Store, bool) {
	st, ok := r.stores[s]
	return st, ok
}

func (r *Reader) resolve(uri string) (Location, Store, error) {
	loc, err := ParseURI(uri)
	if err != nil {
		return Location{}, nil, err
	}
	st, ok := r.stores[loc.Scheme]
	if !r.allowed[loc.Scheme] || !ok {
		return Location{}, nil, &domain.ValidationError{
			Entity: domain.EntityObject, Field: "uri", Value: uri,
			Reason: fmt.Sprintf("scheme %q is not allowed", loc.Scheme),
		}
	}
	return loc, st, nil
}

// ValidatePrefix checks that uri can be listed: allowed scheme and a
// trailing path separator. No backend call is made.
func (r *Reader) ValidatePrefix(uri string) error {
	if !strings.HasSuffix(uri, "/") {
		return &domain.ValidationError{Entity: domain.EntityObject, Field: "uri", Value: uri, Reason: "must end with /"}
	}
	_, _, err := r.resolve(uri)
	return err
}

// List returns the URIs of the objects directly under the prefix uri, in
// backend order.
func (r *Reader) List(ctx context.Context, uri string) ([]string, error) {
	if err := r.ValidatePrefix(uri); err != nil {
		return nil, err
	}
	loc, st, _ := r.resolve(uri)
	infos, err := st.List(ctx, loc.Bucket, loc.Key)
	if err != nil {
		return nil, &domain.IngestionError{Op: "list", URI: uri, Err: err}
	}
	out := make([]string, 0, len(infos))
	for _, info := range infos {
		out = append(out, loc.Child(info.Key).String())
	}
	return out, nil
}

// Open fetches one object. The caller closes the reader.
func (r *Reader) Open(ctx context.Context, uri string) (Info, io.ReadCloser, error) {
	loc, st, err := r.resolve(uri)
	if err != nil {
		return Info{}, nil, err
	}
	info, rc, err := st.Get(ctx, loc.Bucket, loc.Key)
	if err != nil {
		return Info{}, nil, &domain.IngestionError{Op: "get", URI: uri, Err: err}
	}
	return info, rc, nil
}
