package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/lejeunel/image-db-app/pkg/domain"
)

func TestParseURI(t *testing.T) {
	cases := []struct {
		uri    string
		want   Location
		wantOK bool
	}{
		{"s3://bucket/p1/", Location{Scheme: SchemeS3, Bucket: "bucket", Key: "p1/"}, true},
		{"GS://b/x/y.tif", Location{Scheme: SchemeGCS, Bucket: "b", Key: "x/y.tif"}, true},
		{"file:///data/run/", Location{Scheme: SchemeFile, Bucket: "", Key: "data/run/"}, true},
		{"no-scheme/path", Location{}, false},
		{"s3://b/p?x=1", Location{}, false},
	}
	for _, tc := range cases {
		got, err := ParseURI(tc.uri)
		if tc.wantOK != (err == nil) {
			t.Fatalf("%s: unexpected err %v", tc.uri, err)
		}
		if tc.wantOK && got != tc.want {
			t.Fatalf("%s: got %+v want %+v", tc.uri, got, tc.want)
		}
	}
	loc := Location{Scheme: SchemeFile, Key: "data/x.tif"}
	if loc.String() != "file:///data/x.tif" {
		t.Fatalf("unexpected render %s", loc.String())
	}
}

func TestReader_ListReturnsURIs(t *testing.T) {
	mem := NewMemory(SchemeS3)
	mem.Put("bucket", "p1/A01_w1.tif", []byte("a"), "image/tiff")
	mem.Put("bucket", "p1/A01_w1_thumb.tif", []byte("b"), "image/tiff")
	mem.Put("bucket", "p1/deeper/x.tif", []byte("c"), "image/tiff")
	r := NewReader([]string{"s3"}, mem)

	uris, err := r.List(context.Background(), "s3://bucket/p1/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"s3://bucket/p1/A01_w1.tif", "s3://bucket/p1/A01_w1_thumb.tif"}
	if len(uris) != len(want) {
		t.Fatalf("got %v", uris)
	}
	for i := range want {
		if uris[i] != want[i] {
			t.Fatalf("entry %d: %s != %s", i, uris[i], want[i])
		}
	}
}

func TestReader_RejectsBeforeBackendCall(t *testing.T) {
	mem := NewMemory(SchemeS3)
	mem.Fail("list", fmt.Errorf("must not be called"))
	r := NewReader([]string{"s3"}, mem, NewMemory(SchemeGCS))

	for _, uri := range []string{"s3://bucket/p1", "gs://bucket/p1/", "ftp://x/y/", "::bad"} {
		_, err := r.List(context.Background(), uri)
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: expected validation error, got %v", uri, err)
		}
	}
	if _, ok := r.Store(SchemeGCS); ok {
		t.Fatalf("gs backend must not be registered when not allowed")
	}
}

func TestReader_WrapsBackendFailures(t *testing.T) {
	mem := NewMemory(SchemeMemory)
	r := NewReader([]string{"mem"}, mem)
	boom := errors.New("access denied")
	mem.Fail("list", boom)

	_, err := r.List(context.Background(), "mem://b/p/")
	var ierr *domain.IngestionError
	if !errors.As(err, &ierr) || ierr.Op != "list" || !errors.Is(err, boom) {
		t.Fatalf("expected list ingestion error, got %v", err)
	}

	_, _, err = r.Open(context.Background(), "mem://b/p/missing.tif")
	if !errors.As(err, &ierr) || ierr.Op != "get" || !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected get ingestion error wrapping not found, got %v", err)
	}
}

func TestReader_Open(t *testing.T) {
	mem := NewMemory(SchemeMemory)
	mem.Put("b", "p/x.tif", []byte("pixels"), "image/tiff")
	r := NewReader([]string{"mem"}, mem)
	info, rc, err := r.Open(context.Background(), "mem://b/p/x.tif")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = rc.Close() }()
	b, _ := io.ReadAll(rc)
	if string(b) != "pixels" || info.Size != 6 {
		t.Fatalf("unexpected open %q %+v", b, info)
	}
}

func TestReader_S3Mock(t *testing.T) {
	st, backend := NewMockS3ForTests()
	backend.Seed("screens", "run/A01_w1.tif", []byte("x"), "image/tiff")
	r := NewReader([]string{"s3"}, st)
	uris, err := r.List(context.Background(), "s3://screens/run/")
	if err != nil || len(uris) != 1 || uris[0] != "s3://screens/run/A01_w1.tif" {
		t.Fatalf("unexpected listing %v %v", uris, err)
	}
}

func TestOpen_FileAndMemory(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "run"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "run", "B02_w2.tif"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := Open(context.Background(), Options{Allowed: []string{"file", "mem"}, FSRoot: dir})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(r.Schemes()) != 2 {
		t.Fatalf("expected two schemes, got %v", r.Schemes())
	}
	uris, err := r.List(context.Background(), "file:///run/")
	if err != nil || len(uris) != 1 || uris[0] != "file:///run/B02_w2.tif" {
		t.Fatalf("unexpected listing %v %v", uris, err)
	}
	if _, err := Open(context.Background(), Options{Allowed: []string{"ftp"}}); err == nil {
		t.Fatalf("expected unknown scheme error")
	}
}
