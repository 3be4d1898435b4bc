package memory

import (
	"testing"

	"github.com/lejeunel/image-db-app/testutil"
)

func TestMemoryStoreDependsOnDomainOnly(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".",
		testutil.OutsideModuleAllowList("pkg/domain", "internal/taxonomy"),
		"the memory store sits below every other layer")
}
