package identity_test

import (
	"testing"
	"time"

	"github.com/archon-systems/archon-core/pkg/archerr"
	"github.com/archon-systems/archon-core/pkg/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTenants struct{ known map[string]bool }

func (f fakeTenants) TenantExists(id string) bool { return f.known[id] }

func newTestStore() *identity.Store {
	clock := time.Unix(1000, 0)
	return identity.NewStore(fakeTenants{known: map[string]bool{"t1": true}}, 8, func() time.Time { return clock })
}

func TestIssueResolveSignVerifyRoundTrips(t *testing.T) {
	s := newTestStore()
	id, err := s.Issue(identity.KindPerson, "alice", "t1")
	require.NoError(t, err)
	assert.Equal(t, identity.StatusActive, id.Status)

	resolved, err := s.Resolve(id.ID)
	require.NoError(t, err)
	assert.Equal(t, id.PublicKey, resolved.PublicKey)

	sig, err := s.Sign(id.ID, []byte("payload"))
	require.NoError(t, err)

	ok, err := s.Verify(id.ID, []byte("payload"), sig)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIssueRejectsDuplicateHandle(t *testing.T) {
	s := newTestStore()
	_, err := s.Issue(identity.KindPerson, "alice", "t1")
	require.NoError(t, err)

	_, err = s.Issue(identity.KindPerson, "alice", "t1")
	require.Error(t, err)
	assert.Equal(t, archerr.Conflict, archerr.KindOf(err))
}

func TestIssueRejectsUnknownTenant(t *testing.T) {
	s := newTestStore()
	_, err := s.Issue(identity.KindPerson, "bob", "missing-tenant")
	require.Error(t, err)
	assert.Equal(t, archerr.NotFound, archerr.KindOf(err))
}

func TestSignFailsAfterRevoke(t *testing.T) {
	s := newTestStore()
	id, err := s.Issue(identity.KindAgent, "bot", "t1")
	require.NoError(t, err)

	require.NoError(t, s.Revoke(id.ID, id.ID))

	_, err = s.Sign(id.ID, []byte("x"))
	require.Error(t, err)
	assert.Equal(t, archerr.NotAuthorized, archerr.KindOf(err))
}

func TestVerifyStillSucceedsAfterRevokeForPriorSignature(t *testing.T) {
	s := newTestStore()
	id, err := s.Issue(identity.KindAgent, "bot", "t1")
	require.NoError(t, err)

	sig, err := s.Sign(id.ID, []byte("before-revoke"))
	require.NoError(t, err)

	require.NoError(t, s.Revoke(id.ID, id.ID))

	ok, err := s.Verify(id.ID, []byte("before-revoke"), sig)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyAsOfRespectsRevocationInstant(t *testing.T) {
	s := newTestStore()
	id, err := s.Issue(identity.KindAgent, "bot", "t1")
	require.NoError(t, err)

	sig, err := s.Sign(id.ID, []byte("msg"))
	require.NoError(t, err)

	require.NoError(t, s.Revoke(id.ID, id.ID))

	ok, err := s.VerifyAsOf(id.ID, []byte("msg"), sig, time.Unix(500, 0))
	require.NoError(t, err)
	assert.True(t, ok, "signature timestamped before revocation should remain valid")

	ok, err = s.VerifyAsOf(id.ID, []byte("msg"), sig, time.Unix(5000, 0))
	require.NoError(t, err)
	assert.False(t, ok, "signature timestamped after revocation should not be treated as valid")
}

func TestRotateKeepsPriorSignatureVerifiableAndChangesActiveKey(t *testing.T) {
	s := newTestStore()
	id, err := s.Issue(identity.KindAgent, "bot", "t1")
	require.NoError(t, err)

	sigBeforeRotate, err := s.Sign(id.ID, []byte("msg"))
	require.NoError(t, err)

	rotated, err := s.Rotate(id.ID)
	require.NoError(t, err)
	assert.NotEqual(t, id.PublicKey, rotated.PublicKey, "rotate should change the active public key")

	resolved, err := s.Resolve(id.ID)
	require.NoError(t, err)
	assert.Equal(t, rotated.PublicKey, resolved.PublicKey)

	ok, err := s.Verify(id.ID, []byte("msg"), sigBeforeRotate)
	require.NoError(t, err)
	assert.True(t, ok, "a signature from the pre-rotation key should still verify")

	sigAfterRotate, err := s.Sign(id.ID, []byte("msg-2"))
	require.NoError(t, err)
	ok, err = s.Verify(id.ID, []byte("msg-2"), sigAfterRotate)
	require.NoError(t, err)
	assert.True(t, ok, "signing after rotate should use the new active key and still verify")
}

func TestRotateFailsForRevokedIdentity(t *testing.T) {
	s := newTestStore()
	id, err := s.Issue(identity.KindAgent, "bot", "t1")
	require.NoError(t, err)
	require.NoError(t, s.Revoke(id.ID, id.ID))

	_, err = s.Rotate(id.ID)
	require.Error(t, err)
	assert.Equal(t, archerr.NotAuthorized, archerr.KindOf(err))
}

func TestResolveUnknownIdentityIsNotFound(t *testing.T) {
	s := newTestStore()
	_, err := s.Resolve("nope")
	require.Error(t, err)
	assert.Equal(t, archerr.NotFound, archerr.KindOf(err))
}
