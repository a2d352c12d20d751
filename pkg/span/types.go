// Package span defines the atomic ledger entry and its canonical,
// hash-chained encoding.
package span

import "time"

// Status is the lifecycle state of a committed span.
type Status string

const (
	StatusExecuted  Status = "executed"
	StatusSimulated Status = "simulated"
	StatusReverted  Status = "reverted"
	StatusGhost     Status = "ghost"
)

// VerificationStatus reflects whether a span's signature has been
// checked against its author's key.
type VerificationStatus string

const (
	VerificationVerified VerificationStatus = "verified"
	VerificationPending  VerificationStatus = "pending"
	VerificationFailed   VerificationStatus = "failed"
)

// ProposedSpan is the input to contract evaluation and to the
// orchestrator's append step, before it has acquired chain pointers or
// a signature.
type ProposedSpan struct {
	ID         string                 `json:"id"`
	Timestamp  time.Time              `json:"timestamp"`
	TenantID   string                 `json:"tenant_id"`
	AuthorID   string                 `json:"author_id"`
	Title      string                 `json:"title"`
	Payload    map[string]interface{} `json:"payload"`
	ContractID string                 `json:"contract_id,omitempty"`
	WorkflowID string                 `json:"workflow_id,omitempty"`
	FlowID     string                 `json:"flow_id,omitempty"`
	CausedBy   string                 `json:"caused_by,omitempty"`
	ReplayFrom string                 `json:"replay_from,omitempty"`
}

// Span is the atomic, committed ledger entry. A span is written
// exactly once; after commit only ReplayCount and VerificationStatus
// may advance, and only monotonically.
type Span struct {
	ID                 string                 `json:"id"`
	Timestamp          time.Time              `json:"timestamp"`
	TenantID           string                 `json:"tenant_id"`
	AuthorID           string                 `json:"author_id"`
	Title              string                 `json:"title"`
	Payload            map[string]interface{} `json:"payload"`
	ContractID         string                 `json:"contract_id,omitempty"`
	WorkflowID         string                 `json:"workflow_id,omitempty"`
	FlowID             string                 `json:"flow_id,omitempty"`
	CausedBy           string                 `json:"caused_by,omitempty"`
	ReplayFrom         string                 `json:"replay_from,omitempty"`
	ReplayCount        int                    `json:"replay_count"`
	Status             Status                 `json:"status"`
	VerificationStatus VerificationStatus     `json:"verification_status"`
	Signature          string                 `json:"signature"`
	PrevHash           string                 `json:"prev_hash"`
	EntryHash          string                 `json:"entry_hash"`
}

// signable is the subset of fields over which the signature and the
// entry hash are computed: every attribute preceding signature,
// prev_hash, and entry_hash in the data model, except replay_count and
// verification_status, the two fields Span lets advance after commit.
// replay_count is ledger bookkeeping rather than authored content — the
// §3 invariant lets it advance after commit precisely because it never
// entered what was signed, so advancing it is never tamper.
type signable struct {
	ID         string                 `json:"id"`
	Timestamp  time.Time              `json:"timestamp"`
	TenantID   string                 `json:"tenant_id"`
	AuthorID   string                 `json:"author_id"`
	Title      string                 `json:"title"`
	Payload    map[string]interface{} `json:"payload"`
	ContractID string                 `json:"contract_id,omitempty"`
	WorkflowID string                 `json:"workflow_id,omitempty"`
	FlowID     string                 `json:"flow_id,omitempty"`
	CausedBy   string                 `json:"caused_by,omitempty"`
	ReplayFrom string                 `json:"replay_from,omitempty"`
	Status     Status                 `json:"status"`
}

func (s Span) signable() signable {
	return signable{
		ID: s.ID, Timestamp: s.Timestamp, TenantID: s.TenantID, AuthorID: s.AuthorID,
		Title: s.Title, Payload: s.Payload, ContractID: s.ContractID, WorkflowID: s.WorkflowID,
		FlowID: s.FlowID, CausedBy: s.CausedBy, ReplayFrom: s.ReplayFrom,
		Status: s.Status,
	}
}

// signableFrom still takes replayCount so callers built against Seal's
// original shape don't need to change; the value is accepted and
// discarded; see the signable doc comment for why.
func (p ProposedSpan) signableFrom(status Status, replayCount int) signable {
	return signable{
		ID: p.ID, Timestamp: p.Timestamp, TenantID: p.TenantID, AuthorID: p.AuthorID,
		Title: p.Title, Payload: p.Payload, ContractID: p.ContractID, WorkflowID: p.WorkflowID,
		FlowID: p.FlowID, CausedBy: p.CausedBy, ReplayFrom: p.ReplayFrom,
		Status: status,
	}
}
