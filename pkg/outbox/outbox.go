// Package outbox holds mesh envelopes a committed span produced until
// a background drain loop has handed them to the transport, so a
// transient mesh failure at commit time costs a delayed publish
// instead of a silently dropped span.committed event.
package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/archon-systems/archon-core/pkg/archerr"
	"github.com/archon-systems/archon-core/pkg/mesh"
	"github.com/google/uuid"
)

// Status is a record's position in the outbox lifecycle.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
)

// Record is one envelope awaiting delivery.
type Record struct {
	ID          string
	Envelope    mesh.Envelope
	ScheduledAt time.Time
	Attempts    int
	Status      Status
}

// Store persists enqueued envelopes until a drain loop marks them
// done. Enqueue never blocks on the transport: it only needs to
// survive the process between commit and the next drain tick.
type Store interface {
	Enqueue(ctx context.Context, e mesh.Envelope) (string, error)
	Pending(ctx context.Context) ([]Record, error)
	MarkDone(ctx context.Context, id string) error
	MarkAttempted(ctx context.Context, id string) error
}

// MemoryStore is an in-process Store, the default for a single-node
// deployment; see DESIGN.md for why a durable SQL-backed outbox is not
// wired yet.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
	nowFn   func() time.Time
}

// NewMemoryStore builds an empty outbox. nowFn defaults to time.Now.
func NewMemoryStore(nowFn func() time.Time) *MemoryStore {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &MemoryStore{records: make(map[string]*Record), nowFn: nowFn}
}

func (s *MemoryStore) Enqueue(ctx context.Context, e mesh.Envelope) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.records[id] = &Record{ID: id, Envelope: e, ScheduledAt: s.nowFn(), Status: StatusPending}
	return id, nil
}

func (s *MemoryStore) Pending(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		if r.Status == StatusPending {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkDone(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return archerr.New(archerr.NotFound, "outbox.not_found", fmt.Sprintf("outbox record %q not found", id))
	}
	r.Status = StatusDone
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) MarkAttempted(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return archerr.New(archerr.NotFound, "outbox.not_found", fmt.Sprintf("outbox record %q not found", id))
	}
	r.Attempts++
	return nil
}
