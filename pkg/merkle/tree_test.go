package merkle_test

import (
	"testing"

	"github.com/archon-systems/archon-core/pkg/merkle"
	"github.com/stretchr/testify/assert"
)

func TestBuildIsDeterministic(t *testing.T) {
	hashes := []string{"h1", "h2", "h3"}
	t1 := merkle.Build(hashes)
	t2 := merkle.Build(hashes)
	assert.Equal(t, t1.Root, t2.Root)
	assert.NotEmpty(t, t1.Root)
}

func TestBuildEmptyYieldsEmptyRoot(t *testing.T) {
	tr := merkle.Build(nil)
	assert.Empty(t, tr.Root)
}

func TestBuildChangesRootWhenAnyLeafChanges(t *testing.T) {
	base := merkle.Build([]string{"h1", "h2", "h3", "h4"})
	changed := merkle.Build([]string{"h1", "h2", "h3", "h5"})
	assert.NotEqual(t, base.Root, changed.Root)
}

func TestBuildHandlesOddLeafCountByDuplicatingLast(t *testing.T) {
	tr := merkle.Build([]string{"h1", "h2", "h3"})
	assert.NotEmpty(t, tr.Root)
	assert.Len(t, tr.Leaves, 3)
}
