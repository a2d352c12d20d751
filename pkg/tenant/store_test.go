package tenant_test

import (
	"testing"
	"time"

	"github.com/archon-systems/archon-core/pkg/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreCreateGetAssign(t *testing.T) {
	s := tenant.NewStore(func() time.Time { return time.Unix(1000, 0) })

	tn, err := s.Create("owner-1", "Acme Corp")
	require.NoError(t, err)
	assert.True(t, s.TenantExists(tn.ID))

	got, err := s.Get(tn.ID)
	require.NoError(t, err)
	assert.Equal(t, tn.ID, got.ID)

	require.NoError(t, s.AssignIdentity(tn.ID, "member-1"))
	assert.True(t, s.HasIdentity(tn.ID, "member-1"))
	assert.False(t, s.HasIdentity(tn.ID, "stranger"))
}

func TestStoreCreateRejectsEmptyName(t *testing.T) {
	s := tenant.NewStore(nil)
	_, err := s.Create("owner-1", "")
	assert.Error(t, err)
}

func TestStoreGetUnknownTenantIsNotFound(t *testing.T) {
	s := tenant.NewStore(nil)
	_, err := s.Get("nonexistent")
	assert.Error(t, err)
}

func TestTenantExistsFalseForUnknown(t *testing.T) {
	s := tenant.NewStore(nil)
	assert.False(t, s.TenantExists("nonexistent"))
}
