package ingest

import (
	"testing"

	"github.com/lejeunel/image-db-app/testutil"
)

func TestPackageStaysStorageAndTransportFree(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.AnyOf(
		testutil.InfraImportForbidden,
		testutil.CoreImportForbidden,
		testutil.TransportImportForbidden,
	), "ingest is pure catalog logic")
	testutil.AssertNoTransitiveDependency(t, ".", testutil.CloudSDKForbidden, "ingest must not pull object storage SDKs")
}
