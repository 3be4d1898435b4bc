package core

import (
	"testing"

	"github.com/lejeunel/image-db-app/testutil"
)

// The service layer is shared by the HTTP router and the CLIs, so it must not
// depend on either transport.
func TestCoreDoesNotImportTransport(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.TransportImportForbidden, "core is transport agnostic")
}
