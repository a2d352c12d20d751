package ledger_test

import (
	"testing"
	"time"

	"github.com/archon-systems/archon-core/pkg/archerr"
	"github.com/archon-systems/archon-core/pkg/ledger"
	"github.com/archon-systems/archon-core/pkg/span"
	"github.com/archon-systems/archon-core/pkg/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSeal(t *testing.T, tenantID, id string, ts time.Time, prevHash string, causedBy string) span.Span {
	t.Helper()
	p := span.ProposedSpan{ID: id, TenantID: tenantID, AuthorID: "a1", Title: "t", Timestamp: ts, CausedBy: causedBy}
	s, err := span.Seal(p, span.StatusExecuted, 0, "sig", prevHash)
	require.NoError(t, err)
	return s
}

func tok(tenantID string) tenant.AuthToken { return tenant.AuthToken{TenantID: tenantID} }

func TestAppendGetRecomputeRoundTrips(t *testing.T) {
	l := ledger.NewMemory(nil)
	s1 := mustSeal(t, "t1", "s1", time.Unix(100, 0), span.GenesisSentinel("t1"), "")

	receipt, err := l.Append(tok("t1"), s1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), receipt.Position)
	assert.Equal(t, s1.EntryHash, receipt.EntryHash)

	got, err := l.Get(tok("t1"), "s1")
	require.NoError(t, err)
	recomputed, err := span.Recompute(got)
	require.NoError(t, err)
	assert.Equal(t, receipt.EntryHash, recomputed)
}

func TestAppendRejectsChainDivergence(t *testing.T) {
	l := ledger.NewMemory(nil)
	s1 := mustSeal(t, "t1", "s1", time.Unix(100, 0), span.GenesisSentinel("t1"), "")
	_, err := l.Append(tok("t1"), s1)
	require.NoError(t, err)

	// Second span also claims genesis as its prev_hash: divergence.
	s2 := mustSeal(t, "t1", "s2", time.Unix(101, 0), span.GenesisSentinel("t1"), "")
	_, err = l.Append(tok("t1"), s2)
	require.Error(t, err)
	assert.Equal(t, archerr.Conflict, archerr.KindOf(err))
}

func TestAppendRejectsTimestampRegression(t *testing.T) {
	l := ledger.NewMemory(nil)
	s1 := mustSeal(t, "t1", "s1", time.Unix(100, 0), span.GenesisSentinel("t1"), "")
	_, err := l.Append(tok("t1"), s1)
	require.NoError(t, err)

	s2 := mustSeal(t, "t1", "s2", time.Unix(50, 0), s1.EntryHash, "")
	_, err = l.Append(tok("t1"), s2)
	require.Error(t, err)
	assert.Equal(t, archerr.Validation, archerr.KindOf(err))
}

func TestAppendRejectsCrossTenantToken(t *testing.T) {
	l := ledger.NewMemory(nil)
	s1 := mustSeal(t, "t1", "s1", time.Unix(100, 0), span.GenesisSentinel("t1"), "")
	_, err := l.Append(tok("t2"), s1)
	require.Error(t, err)
	assert.Equal(t, archerr.NotAuthorized, archerr.KindOf(err))
}

func TestQueryNeverReturnsCrossTenantResults(t *testing.T) {
	l := ledger.NewMemory(nil)
	s1 := mustSeal(t, "t1", "s1", time.Unix(100, 0), span.GenesisSentinel("t1"), "")
	_, err := l.Append(tok("t1"), s1)
	require.NoError(t, err)

	page, err := l.Query(tok("t2"), ledger.Filter{}, "", 10)
	require.NoError(t, err)
	assert.Empty(t, page.Spans)

	page, err = l.Query(tok("t1"), ledger.Filter{}, "", 10)
	require.NoError(t, err)
	assert.Len(t, page.Spans, 1)
}

func TestIntegrityMatchesHeadAfterThreeCommits(t *testing.T) {
	l := ledger.NewMemory(nil)
	s1 := mustSeal(t, "t1", "s1", time.Unix(100, 0), span.GenesisSentinel("t1"), "")
	r1, err := l.Append(tok("t1"), s1)
	require.NoError(t, err)

	s2 := mustSeal(t, "t1", "s2", time.Unix(101, 0), r1.EntryHash, "")
	r2, err := l.Append(tok("t1"), s2)
	require.NoError(t, err)

	s3 := mustSeal(t, "t1", "s3", time.Unix(102, 0), r2.EntryHash, "")
	r3, err := l.Append(tok("t1"), s3)
	require.NoError(t, err)

	digest, err := l.Integrity("t1")
	require.NoError(t, err)
	assert.Equal(t, r3.EntryHash, digest)
}

func TestAppendRejectsUnknownCause(t *testing.T) {
	l := ledger.NewMemory(nil)
	s1 := mustSeal(t, "t1", "s1", time.Unix(100, 0), span.GenesisSentinel("t1"), "does-not-exist")
	_, err := l.Append(tok("t1"), s1)
	require.Error(t, err)
	assert.Equal(t, archerr.Validation, archerr.KindOf(err))
}

func TestReplayYieldsCommitOrderFromID(t *testing.T) {
	l := ledger.NewMemory(nil)
	s1 := mustSeal(t, "t1", "s1", time.Unix(100, 0), span.GenesisSentinel("t1"), "")
	r1, err := l.Append(tok("t1"), s1)
	require.NoError(t, err)
	s2 := mustSeal(t, "t1", "s2", time.Unix(101, 0), r1.EntryHash, "")
	_, err = l.Append(tok("t1"), s2)
	require.NoError(t, err)

	spans, err := l.Replay(tok("t1"), "s2")
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, "s2", spans[0].ID)
}
