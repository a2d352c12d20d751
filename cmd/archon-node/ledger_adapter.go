package main

import (
	"context"

	"github.com/archon-systems/archon-core/pkg/ledger"
	"github.com/archon-systems/archon-core/pkg/span"
	"github.com/archon-systems/archon-core/pkg/tenant"
)

// sqlLedgerAdapter narrows a context-taking ledger.SQLStore down to
// the orchestrator's LedgerAppender shape, the one the in-memory
// ledger already satisfies natively. The adapter carries no state of
// its own beyond the context it binds every call to.
type sqlLedgerAdapter struct {
	store *ledger.SQLStore
	ctx   context.Context
}

func (a sqlLedgerAdapter) Append(requester tenant.AuthToken, s span.Span) (ledger.Receipt, error) {
	return a.store.Append(a.ctx, requester.TenantID, s)
}

func (a sqlLedgerAdapter) Head(tenantID string) string {
	head, err := a.store.Head(a.ctx, tenantID)
	if err != nil {
		return span.GenesisSentinel(tenantID)
	}
	return head
}

func (a sqlLedgerAdapter) Get(requester tenant.AuthToken, id string) (span.Span, error) {
	return a.store.Get(a.ctx, requester.TenantID, id)
}

// Query, Replay, and Integrity give a SQL-backed node the same
// surface the in-memory ledger exposes natively, so inbound
// federation sync.request handling and any future timeline.query/
// timeline.integrity callers work the same way regardless of backend.
func (a sqlLedgerAdapter) Query(requester tenant.AuthToken, f ledger.Filter, cursor string, limit int) (ledger.Page, error) {
	return a.store.Query(a.ctx, requester.TenantID, f, cursor, limit)
}

func (a sqlLedgerAdapter) Replay(requester tenant.AuthToken, fromID string) ([]span.Span, error) {
	return a.store.Replay(a.ctx, requester.TenantID, fromID)
}

func (a sqlLedgerAdapter) Integrity(tenantID string) (string, error) {
	return a.store.Integrity(a.ctx, tenantID)
}

// IncrementReplayCount satisfies orchestrator.LedgerAppender so a
// SQL-backed node advances an original span's replay_count on Replay
// the same way the in-memory ledger does.
func (a sqlLedgerAdapter) IncrementReplayCount(tenantID, id string) error {
	return a.store.IncrementReplayCount(a.ctx, tenantID, id)
}
