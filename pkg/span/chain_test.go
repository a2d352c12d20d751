package span_test

import (
	"testing"
	"time"

	"github.com/archon-systems/archon-core/pkg/span"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealThenRecomputeMatchesEntryHash(t *testing.T) {
	p := span.ProposedSpan{
		ID: "s1", Timestamp: time.Unix(100, 0), TenantID: "t1", AuthorID: "a1",
		Title: "hello", Payload: map[string]interface{}{"x": 1.0},
	}
	sealed, err := span.Seal(p, span.StatusExecuted, 0, "sig-placeholder", span.GenesisSentinel("t1"))
	require.NoError(t, err)
	assert.NotEmpty(t, sealed.EntryHash)

	recomputed, err := span.Recompute(sealed)
	require.NoError(t, err)
	assert.Equal(t, sealed.EntryHash, recomputed)
}

func TestDifferentPrevHashProducesDifferentEntryHash(t *testing.T) {
	p := span.ProposedSpan{ID: "s1", Timestamp: time.Unix(100, 0), TenantID: "t1", AuthorID: "a1", Title: "hello"}
	s1, err := span.Seal(p, span.StatusExecuted, 0, "sig", "prevA")
	require.NoError(t, err)
	s2, err := span.Seal(p, span.StatusExecuted, 0, "sig", "prevB")
	require.NoError(t, err)
	assert.NotEqual(t, s1.EntryHash, s2.EntryHash)
}

func TestSignableBytesExcludeHashFields(t *testing.T) {
	p := span.ProposedSpan{ID: "s1", Timestamp: time.Unix(1, 0), TenantID: "t1", AuthorID: "a1", Title: "x"}
	b1, err := p.SignableBytes(span.StatusExecuted, 0)
	require.NoError(t, err)

	s1, err := span.Seal(p, span.StatusExecuted, 0, "sigA", "prevA")
	require.NoError(t, err)
	s2, err := span.Seal(p, span.StatusExecuted, 0, "sigB", "prevB")
	require.NoError(t, err)

	b2, err := s1.SignableBytes()
	require.NoError(t, err)
	b3, err := s2.SignableBytes()
	require.NoError(t, err)

	assert.Equal(t, b1, b2)
	assert.Equal(t, b2, b3, "signable bytes must not depend on signature or chain pointers")
}
