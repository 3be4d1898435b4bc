package postgres

import (
	"testing"

	"github.com/lejeunel/image-db-app/testutil"
)

func TestPostgresStoreOnlyWrapsMemoryStore(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.AnyOf(
		testutil.OutsideModuleAllowList("pkg/domain", "internal/infra/persistence/memory"),
		testutil.CloudSDKForbidden,
	), "postgres snapshots the memory store")
}
