package openapi

import (
	"bytes"
	"os"
	"testing"
)

func TestSpecReturnsCopyAndMatchesFile(t *testing.T) {
	want, err := os.ReadFile("catalog.yaml")
	if err != nil {
		t.Fatalf("read catalog.yaml: %v", err)
	}

	spec := Spec()
	if len(spec) == 0 {
		t.Fatal("Spec returned empty content")
	}
	if !bytes.Equal(spec, want) {
		t.Fatalf("Spec does not match embedded OpenAPI contents")
	}

	spec[0] ^= 0xFF
	if bytes.Equal(spec, CatalogSpec) {
		t.Fatalf("Spec did not return a copy")
	}
	if !bytes.Equal(Spec(), want) {
		t.Fatalf("Spec mutation leaked into embedded content")
	}
}

func TestSpecDocumentsItemsRoute(t *testing.T) {
	for _, needle := range []string{"openapi: 3.0.3", "  /items:", "  /plates/{id}/timepoints:", "bearerAuth"} {
		if !bytes.Contains(CatalogSpec, []byte(needle)) {
			t.Fatalf("spec missing %q", needle)
		}
	}
}
