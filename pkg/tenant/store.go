package tenant

import (
	"sync"
	"time"

	"github.com/archon-systems/archon-core/pkg/archerr"
	"github.com/google/uuid"
)

// Store owns tenant records: creation and identity assignment. It
// satisfies identity.TenantResolver so the Identity Store can validate
// a requested tenant binding without importing this package's
// dependents.
type Store struct {
	mu      sync.RWMutex
	tenants map[string]Tenant
	members map[string]map[string]bool // tenant ID -> identity ID -> assigned
	now     func() time.Time
}

// NewStore builds an empty tenant store.
func NewStore(nowFn func() time.Time) *Store {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Store{tenants: make(map[string]Tenant), members: make(map[string]map[string]bool), now: nowFn}
}

// Create registers a new tenant owned by ownerID.
func (s *Store) Create(ownerID, name string) (Tenant, error) {
	if name == "" {
		return Tenant{}, archerr.New(archerr.Validation, "tenant.empty_name", "tenant name must not be empty")
	}
	t := Tenant{ID: uuid.NewString(), OwnerID: ownerID, Name: name, CreatedAt: s.now()}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[t.ID] = t
	s.members[t.ID] = map[string]bool{ownerID: true}
	return t, nil
}

// Get resolves a tenant record.
func (s *Store) Get(id string) (Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[id]
	if !ok {
		return Tenant{}, archerr.New(archerr.NotFound, "tenant.not_found", "tenant "+id+" not found")
	}
	return t, nil
}

// TenantExists implements identity.TenantResolver.
func (s *Store) TenantExists(tenantID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tenants[tenantID]
	return ok
}

// AssignIdentity binds an identity to a tenant, e.g. so it may be
// issued a bearer token scoped to that tenant.
func (s *Store) AssignIdentity(tenantID, identityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[tenantID]; !ok {
		return archerr.New(archerr.NotFound, "tenant.not_found", "tenant "+tenantID+" not found")
	}
	s.members[tenantID][identityID] = true
	return nil
}

// HasIdentity reports whether identityID has been assigned to tenantID.
func (s *Store) HasIdentity(tenantID, identityID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.members[tenantID][identityID]
}
