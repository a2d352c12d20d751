// Package orchestrator drives the span lifecycle: authenticate,
// compose, evaluate, sign, append, publish.
package orchestrator

import (
	"context"
	"time"

	"github.com/archon-systems/archon-core/pkg/contract"
	"github.com/archon-systems/archon-core/pkg/identity"
	"github.com/archon-systems/archon-core/pkg/ledger"
	"github.com/archon-systems/archon-core/pkg/mesh"
	"github.com/archon-systems/archon-core/pkg/span"
	"github.com/archon-systems/archon-core/pkg/tenant"
	"github.com/google/uuid"
)

// TokenValidator authenticates a bearer token into its claims, the
// shape the Identity Store's token issuer exposes.
type TokenValidator interface {
	Validate(tokenString string) (*identity.Claims, error)
}

// IdentityResolver signs on behalf of an identity and resolves its
// public record, the subset of the Identity Store the orchestrator
// needs.
type IdentityResolver interface {
	Sign(id string, data []byte) (string, error)
	Resolve(id string) (identity.Identity, error)
}

// ContractEvaluator runs a proposed span through a loaded contract.
type ContractEvaluator interface {
	Evaluate(contractID string, proposed span.ProposedSpan, ec contract.EvalContext) (contract.Decision, error)
}

// LedgerAppender is the Timeline Ledger surface the orchestrator's
// pipeline drives: read the current head, append under the chain
// invariant, fetch a span back for replay/revert, and advance an
// original span's replay_count once its replay has committed.
type LedgerAppender interface {
	Append(requester tenant.AuthToken, s span.Span) (ledger.Receipt, error)
	Head(tenantID string) string
	Get(requester tenant.AuthToken, id string) (span.Span, error)
	IncrementReplayCount(tenantID, id string) error
}

// Publisher fans a committed span out to the mesh as a best-effort
// side effect of a successful append.
type Publisher interface {
	Publish(ctx context.Context, e mesh.Envelope) error
}

// SubmitRequest is a client submission before it becomes a
// ProposedSpan.
type SubmitRequest struct {
	Token      string
	Title      string
	Payload    map[string]interface{}
	ContractID string
	WorkflowID string
	FlowID     string
	CausedBy   string
}

// Result is what Submit (and Replay) return on success.
type Result struct {
	Span    span.Span
	Receipt ledger.Receipt
}

// Config bounds the orchestrator's retry behavior on chain divergence
// and supplies its clock and ID generator, kept explicit so the
// pipeline never reaches for wall-clock time or randomness on its own.
type Config struct {
	MaxAppendRetries int
	Now              func() time.Time
	NewSpanID        func() string
}

func (c Config) withDefaults() Config {
	if c.MaxAppendRetries <= 0 {
		c.MaxAppendRetries = 5
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.NewSpanID == nil {
		c.NewSpanID = uuid.NewString
	}
	return c
}
