package contract_test

import (
	"testing"
	"time"

	"github.com/archon-systems/archon-core/pkg/archerr"
	"github.com/archon-systems/archon-core/pkg/contract"
	"github.com/archon-systems/archon-core/pkg/span"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const capContract = `
rules:
  - name: reject_large_amount
    when: "payload.amount > 100.0"
    then: reject
    reason: cap
  - name: simulate_dry_run
    when: "has(payload.dry_run) && payload.dry_run == true"
    then: simulate
  - name: admit_everything_else
    when: "true"
    then: admit
`

func newEngine(t *testing.T) *contract.Engine {
	t.Helper()
	e, err := contract.NewEngine(func() time.Time { return time.Unix(1000, 0) })
	require.NoError(t, err)
	return e
}

func TestLoadIsIdempotentByContentHash(t *testing.T) {
	e := newEngine(t)
	id1, err := e.Load("t1", []byte(capContract))
	require.NoError(t, err)
	id2, err := e.Load("t1", []byte(capContract))
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestEvaluateRejectsOverCap(t *testing.T) {
	e := newEngine(t)
	id, err := e.Load("t1", []byte(capContract))
	require.NoError(t, err)

	d, err := e.Evaluate(id, span.ProposedSpan{Payload: map[string]interface{}{"amount": 150.0}}, contract.EvalContext{Now: time.Unix(1000, 0)})
	require.NoError(t, err)
	assert.Equal(t, contract.VerdictReject, d.Verdict)
	assert.Equal(t, "cap", d.Reason)
}

func TestEvaluateSimulatesDryRun(t *testing.T) {
	e := newEngine(t)
	id, err := e.Load("t1", []byte(capContract))
	require.NoError(t, err)

	d, err := e.Evaluate(id, span.ProposedSpan{Payload: map[string]interface{}{"amount": 50.0, "dry_run": true}}, contract.EvalContext{Now: time.Unix(1000, 0)})
	require.NoError(t, err)
	assert.Equal(t, contract.VerdictSimulate, d.Verdict)
}

func TestEvaluateAdmitsDefault(t *testing.T) {
	e := newEngine(t)
	id, err := e.Load("t1", []byte(capContract))
	require.NoError(t, err)

	d, err := e.Evaluate(id, span.ProposedSpan{Payload: map[string]interface{}{"amount": 10.0}}, contract.EvalContext{Now: time.Unix(1000, 0)})
	require.NoError(t, err)
	assert.Equal(t, contract.VerdictAdmit, d.Verdict)
}

func TestEvaluateIsPure(t *testing.T) {
	e := newEngine(t)
	id, err := e.Load("t1", []byte(capContract))
	require.NoError(t, err)

	p := span.ProposedSpan{Payload: map[string]interface{}{"amount": 150.0}}
	ec := contract.EvalContext{Now: time.Unix(1000, 0)}
	d1, err := e.Evaluate(id, p, ec)
	require.NoError(t, err)
	d2, err := e.Evaluate(id, p, ec)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestNoRuleMatchedDefaultsToReject(t *testing.T) {
	e := newEngine(t)
	id, err := e.Load("t1", []byte(`
rules:
  - name: only_admits_alice
    when: "author.id == 'alice'"
    then: admit
`))
	require.NoError(t, err)

	d, err := e.Evaluate(id, span.ProposedSpan{AuthorID: "bob"}, contract.EvalContext{Now: time.Unix(1000, 0)})
	require.NoError(t, err)
	assert.Equal(t, contract.VerdictReject, d.Verdict)
	assert.Equal(t, "no_rule_matched", d.Reason)
}

func TestLoadRecordsDeclaredSemVer(t *testing.T) {
	e := newEngine(t)
	id, err := e.Load("t1", []byte(`
version: "1.2.0"
rules:
  - name: admit_everything
    when: "true"
    then: admit
`))
	require.NoError(t, err)

	c, err := e.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", c.SemVer)
}

func TestLoadRejectsVersionRegression(t *testing.T) {
	e := newEngine(t)
	_, err := e.Load("t1", []byte(`
version: "2.0.0"
rules:
  - name: admit_everything
    when: "true"
    then: admit
`))
	require.NoError(t, err)

	_, err = e.Load("t1", []byte(`
version: "1.0.0"
rules:
  - name: admit_a_different_way
    when: "1 == 1"
    then: admit
`))
	require.Error(t, err)
	assert.Equal(t, archerr.Conflict, archerr.KindOf(err))
}

func TestRequireGuardFailureRejects(t *testing.T) {
	e := newEngine(t)
	id, err := e.Load("t1", []byte(`
rules:
  - name: admin_only
    when: "true"
    require:
      - "author.role == 'admin'"
    then: admit
`))
	require.NoError(t, err)

	d, err := e.Evaluate(id, span.ProposedSpan{}, contract.EvalContext{Now: time.Unix(1000, 0), AuthorRole: "member"})
	require.NoError(t, err)
	assert.Equal(t, contract.VerdictReject, d.Verdict)
	assert.Equal(t, "require_guard_failed", d.Reason)
}
