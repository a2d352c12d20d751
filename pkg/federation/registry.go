package federation

import (
	"sync"

	"github.com/archon-systems/archon-core/pkg/archerr"
)

// defaultFailureThreshold is how many consecutive signature failures
// from one peer trigger an automatic downgrade to TrustNone.
const defaultFailureThreshold = 3

// Registry owns the known peers for every tenant.
type Registry struct {
	mu        sync.RWMutex
	peers     map[string]Peer // peer ID -> Peer
	threshold int
}

// NewRegistry builds an empty peer registry. threshold of 0 uses the
// default of three consecutive signature failures.
func NewRegistry(threshold int) *Registry {
	if threshold <= 0 {
		threshold = defaultFailureThreshold
	}
	return &Registry{peers: make(map[string]Peer), threshold: threshold}
}

// Add registers or replaces a peer.
func (r *Registry) Add(p Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[p.ID] = p
}

// Get resolves a peer by ID.
func (r *Registry) Get(id string) (Peer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.peers[id]
	if !ok {
		return Peer{}, archerr.New(archerr.NotFound, "federation.peer_not_found", "peer "+id+" is not known")
	}
	return p, nil
}

// ListByTenant returns every peer a tenant has declared, in no
// particular order.
func (r *Registry) ListByTenant(tenantID string) []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Peer
	for _, p := range r.peers {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	return out
}

// RecordSignatureFailure increments a peer's failure streak, auto
// downgrading to TrustNone once the threshold is reached. Returns the
// peer's trust level after the update.
func (r *Registry) RecordSignatureFailure(peerID string) (Trust, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.peers[peerID]
	if !ok {
		return "", archerr.New(archerr.NotFound, "federation.peer_not_found", "peer "+peerID+" is not known")
	}
	p.ConsecutiveSigFailures++
	if p.downgraded(r.threshold) {
		p.Trust = TrustNone
	}
	r.peers[peerID] = p
	return p.Trust, nil
}

// RecordSignatureSuccess resets a peer's failure streak.
func (r *Registry) RecordSignatureSuccess(peerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.peers[peerID]
	if !ok {
		return archerr.New(archerr.NotFound, "federation.peer_not_found", "peer "+peerID+" is not known")
	}
	p.ConsecutiveSigFailures = 0
	r.peers[peerID] = p
	return nil
}
