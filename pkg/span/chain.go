package span

import (
	"fmt"

	"github.com/archon-systems/archon-core/pkg/canonical"
)

// GenesisSentinel is the prev_hash value a tenant's first span chains
// from.
func GenesisSentinel(tenantID string) string {
	return "genesis:" + tenantID
}

// SignableBytes returns the canonical encoding a signature is produced
// and checked over: every span attribute except replay_count,
// verification_status, signature, prev_hash, and entry_hash.
func (p ProposedSpan) SignableBytes(status Status, replayCount int) ([]byte, error) {
	return canonical.Marshal(p.signableFrom(status, replayCount))
}

// SignableBytes returns the same canonical encoding for an already
// committed span, used to re-verify a signature independent of the
// stored prev_hash/entry_hash.
func (s Span) SignableBytes() ([]byte, error) {
	return canonical.Marshal(s.signable())
}

// EntryHash computes entry_hash = H(prev_hash || canonical(span_without_hashes)).
func EntryHash(prevHash string, signableBytes []byte) (string, error) {
	combined := append([]byte(prevHash), signableBytes...)
	return canonical.HashBytes(combined), nil
}

// Seal fills in Signature, PrevHash, and EntryHash on a committed span
// built from a proposed span plus the author's detached signature.
func Seal(p ProposedSpan, status Status, replayCount int, signature, prevHash string) (Span, error) {
	signableBytes, err := p.SignableBytes(status, replayCount)
	if err != nil {
		return Span{}, fmt.Errorf("span: failed to encode signable bytes: %w", err)
	}
	entryHash, err := EntryHash(prevHash, signableBytes)
	if err != nil {
		return Span{}, fmt.Errorf("span: failed to compute entry hash: %w", err)
	}
	return Span{
		ID: p.ID, Timestamp: p.Timestamp, TenantID: p.TenantID, AuthorID: p.AuthorID,
		Title: p.Title, Payload: p.Payload, ContractID: p.ContractID, WorkflowID: p.WorkflowID,
		FlowID: p.FlowID, CausedBy: p.CausedBy, ReplayFrom: p.ReplayFrom,
		ReplayCount:        replayCount,
		Status:             status,
		VerificationStatus: VerificationVerified,
		Signature:          signature,
		PrevHash:           prevHash,
		EntryHash:          entryHash,
	}, nil
}

// Recompute independently rederives entry_hash from a committed span's
// own fields, the operation integrity(tenant) and chain-audit tooling
// use to detect tampering without trusting the stored value.
func Recompute(s Span) (string, error) {
	signableBytes, err := s.SignableBytes()
	if err != nil {
		return "", fmt.Errorf("span: failed to encode signable bytes: %w", err)
	}
	return EntryHash(s.PrevHash, signableBytes)
}
