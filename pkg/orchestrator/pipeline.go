package orchestrator

import (
	"context"
	"fmt"

	"github.com/archon-systems/archon-core/pkg/archerr"
	"github.com/archon-systems/archon-core/pkg/contract"
	"github.com/archon-systems/archon-core/pkg/identity"
	"github.com/archon-systems/archon-core/pkg/mesh"
	"github.com/archon-systems/archon-core/pkg/span"
	"github.com/archon-systems/archon-core/pkg/tenant"
	"github.com/cenkalti/backoff/v5"
)

// Orchestrator turns a client submission into a committed span or a
// principled rejection, and drives replay and revert.
type Orchestrator struct {
	tokens     TokenValidator
	identities IdentityResolver
	contracts  ContractEvaluator
	ledger     LedgerAppender
	publisher  Publisher
	cfg        Config
}

// New builds an Orchestrator. publisher may be nil: mesh publication
// is best-effort, and a nil publisher simply skips step 7.
func New(tokens TokenValidator, identities IdentityResolver, contracts ContractEvaluator, ledger LedgerAppender, publisher Publisher, cfg Config) *Orchestrator {
	return &Orchestrator{tokens: tokens, identities: identities, contracts: contracts, ledger: ledger, publisher: publisher, cfg: cfg.withDefaults()}
}

// Submit runs the full pipeline: authenticate, compose, evaluate,
// sign, append (with chain-divergence retry), publish, return.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (Result, error) {
	claims, err := o.tokens.Validate(req.Token)
	if err != nil {
		return Result{}, err
	}

	author, err := o.identities.Resolve(claims.Subject)
	if err != nil {
		return Result{}, err
	}
	if author.Status == identity.StatusRevoked {
		return Result{}, archerr.New(archerr.NotAuthorized, "orchestrator.author_revoked", fmt.Sprintf("identity %q is revoked", claims.Subject))
	}

	proposed := span.ProposedSpan{
		ID:         o.cfg.NewSpanID(),
		Timestamp:  o.cfg.Now(),
		TenantID:   claims.TenantID,
		AuthorID:   claims.Subject,
		Title:      req.Title,
		Payload:    req.Payload,
		ContractID: req.ContractID,
		WorkflowID: req.WorkflowID,
		FlowID:     req.FlowID,
		CausedBy:   req.CausedBy,
	}

	return o.runPipeline(ctx, proposed, author, claims.TenantID)
}

// Replay re-executes the pipeline with a previously-committed span's
// original payload, against the current contract set, producing a new
// span with replay_from set. Once that replacement commits, the
// original span's replay_count advances by one via
// LedgerAppender.IncrementReplayCount; the original is otherwise
// untouched, consistent with the §3 invariant that replay_count is the
// only field allowed to change after commit.
func (o *Orchestrator) Replay(ctx context.Context, requester tenant.AuthToken, spanID string) (Result, error) {
	original, err := o.ledger.Get(requester, spanID)
	if err != nil {
		return Result{}, err
	}

	proposed := span.ProposedSpan{
		ID:         o.cfg.NewSpanID(),
		Timestamp:  o.cfg.Now(),
		TenantID:   original.TenantID,
		AuthorID:   original.AuthorID,
		Title:      original.Title,
		Payload:    original.Payload,
		ContractID: original.ContractID,
		WorkflowID: original.WorkflowID,
		FlowID:     original.FlowID,
		CausedBy:   original.CausedBy,
		ReplayFrom: original.ID,
	}

	author, err := o.identities.Resolve(original.AuthorID)
	if err != nil {
		return Result{}, err
	}

	result, err := o.runPipeline(ctx, proposed, author, original.TenantID)
	if err != nil {
		return Result{}, err
	}

	if err := o.ledger.IncrementReplayCount(original.TenantID, original.ID); err != nil {
		return Result{}, archerr.Wrap(archerr.Internal, "orchestrator.replay_count_failed", "replay committed but failed to advance the original span's replay_count", err)
	}

	return result, nil
}

// Revert commits a compensating span with status reverted, referencing
// target via caused_by. The target's own status is unchanged.
func (o *Orchestrator) Revert(ctx context.Context, requester tenant.AuthToken, targetID string, reason string) (Result, error) {
	target, err := o.ledger.Get(requester, targetID)
	if err != nil {
		return Result{}, err
	}

	proposed := span.ProposedSpan{
		ID:         o.cfg.NewSpanID(),
		Timestamp:  o.cfg.Now(),
		TenantID:   target.TenantID,
		AuthorID:   requester.IdentityID,
		Title:      "revert: " + target.Title,
		Payload:    map[string]interface{}{"reason": reason, "reverted_span_id": target.ID},
		ContractID: target.ContractID,
		WorkflowID: target.WorkflowID,
		FlowID:     target.FlowID,
		CausedBy:   target.ID,
	}

	return o.commitWithStatus(ctx, proposed, target.TenantID, span.StatusReverted)
}

// runPipeline is steps 3-8: evaluate, sign, append with retry, publish.
func (o *Orchestrator) runPipeline(ctx context.Context, proposed span.ProposedSpan, author identity.Identity, tenantID string) (Result, error) {
	decision, err := o.contracts.Evaluate(proposed.ContractID, proposed, contract.EvalContext{
		Now:        o.cfg.Now(),
		AuthorKind: string(author.Kind),
	})
	if err != nil {
		return Result{}, err
	}

	switch decision.Verdict {
	case contract.VerdictReject:
		return Result{}, archerr.New(archerr.PolicyDenied, "orchestrator.policy_denied", decision.Reason)
	case contract.VerdictSimulate:
		return o.commitWithStatus(ctx, proposed, tenantID, span.StatusSimulated)
	default:
		return o.commitWithStatus(ctx, proposed, tenantID, span.StatusExecuted)
	}
}

// commitWithStatus is steps 4-8: sign once, then compute prev_hash and
// append under a bounded exponential backoff retry that only fires on
// ChainDivergence (a concurrent writer won the per-tenant race); any
// other append failure is permanent. Signing happens once because the
// signature covers the span's content, not its chain pointers, so a
// retry only needs to reseal with the freshly-read head.
func (o *Orchestrator) commitWithStatus(ctx context.Context, proposed span.ProposedSpan, tenantID string, status span.Status) (Result, error) {
	signableBytes, err := proposed.SignableBytes(status, 0)
	if err != nil {
		return Result{}, archerr.Wrap(archerr.Internal, "orchestrator.encode_failed", "failed to encode span for signing", err)
	}
	sig, err := o.identities.Sign(proposed.AuthorID, signableBytes)
	if err != nil {
		return Result{}, err
	}

	requester := tenant.AuthToken{IdentityID: proposed.AuthorID, TenantID: tenantID}

	attempt := func() (Result, error) {
		prevHash := o.ledger.Head(tenantID)
		sealed, err := span.Seal(proposed, status, 0, sig, prevHash)
		if err != nil {
			return Result{}, backoff.Permanent(archerr.Wrap(archerr.Internal, "orchestrator.seal_failed", "failed to seal span", err))
		}

		receipt, err := o.ledger.Append(requester, sealed)
		if err != nil {
			if archerr.Is(err, archerr.Conflict) {
				return Result{}, err
			}
			return Result{}, backoff.Permanent(err)
		}
		return Result{Span: sealed, Receipt: receipt}, nil
	}

	result, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(o.cfg.MaxAppendRetries)),
	)
	if err != nil {
		if archerr.Is(err, archerr.Conflict) {
			return Result{}, archerr.Wrap(archerr.Conflict, "orchestrator.congestion", "chain divergence persisted past the retry budget", err)
		}
		return Result{}, err
	}

	if status != span.StatusSimulated && o.publisher != nil {
		envelope := mesh.Envelope{
			Kind:           mesh.KindSpanCommitted,
			SourceIdentity: proposed.AuthorID,
			Payload:        result.Span,
			Timestamp:      o.cfg.Now(),
		}
		// Mesh publication is best-effort: its failure never undoes the
		// commit, the ledger already holds the span of record.
		_ = o.publisher.Publish(ctx, envelope)
	}

	return result, nil
}
