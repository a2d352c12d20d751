package contract

import (
	"fmt"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/archon-systems/archon-core/pkg/archerr"
	"github.com/archon-systems/archon-core/pkg/span"
	"github.com/google/cel-go/cel"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Engine loads contracts and evaluates proposed spans against them.
// Contracts are content-addressed: loading the same rule set twice
// returns the existing ID rather than erroring.
type Engine struct {
	mu        sync.RWMutex
	env       *cel.Env
	contracts map[string]*Contract          // id -> contract
	compiled  map[string][]compiledRule     // id -> compiled rules
	schemas   map[string]*jsonschema.Schema  // contract id -> optional payload shape schema
	versions  map[string]*semver.Version    // tenantID -> highest declared semver seen
	now       func() time.Time
}

// NewEngine builds an empty Contract Engine.
func NewEngine(nowFn func() time.Time) (*Engine, error) {
	env, err := predicateEnv()
	if err != nil {
		return nil, fmt.Errorf("contract: failed to build predicate environment: %w", err)
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Engine{
		env:       env,
		contracts: make(map[string]*Contract),
		compiled:  make(map[string][]compiledRule),
		schemas:   make(map[string]*jsonschema.Schema),
		versions:  make(map[string]*semver.Version),
		now:       nowFn,
	}, nil
}

// Load parses, validates, compiles, and content-addresses a contract
// document (YAML surface syntax). Loading identical rule bytes for the
// same tenant again is not an error: the existing ID is returned. A
// document may declare an optional top-level semver `version:`; when
// present it must not regress behind the highest version already
// loaded for that tenant, so a contract rollout can only move forward.
func (e *Engine) Load(tenantID string, text []byte) (string, error) {
	rules, versionStr, err := ParseSurfaceDocument(text)
	if err != nil {
		return "", err
	}

	var declared *semver.Version
	if versionStr != "" {
		declared, err = semver.NewVersion(versionStr)
		if err != nil {
			return "", archerr.Wrap(archerr.Validation, "contract.invalid_version", fmt.Sprintf("version %q is not valid semver", versionStr), err)
		}
	}

	hash, err := ContentHash(rules)
	if err != nil {
		return "", archerr.Wrap(archerr.Internal, "contract.hash_failed", "failed to compute content hash", err)
	}
	id := tenantID + "/" + hash

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.contracts[id]; exists {
		return id, nil
	}

	if declared != nil {
		if current, ok := e.versions[tenantID]; ok && declared.LessThan(current) {
			return "", archerr.New(archerr.Conflict, "contract.version_regression", fmt.Sprintf("declared version %s is older than the highest loaded version %s for this tenant", declared, current))
		}
	}

	compiled, err := compileRules(e.env, rules)
	if err != nil {
		return "", archerr.Wrap(archerr.Validation, "contract.semantic_error", "contract failed semantic validation", err)
	}

	semVerStr := ""
	if declared != nil {
		semVerStr = declared.String()
		e.versions[tenantID] = declared
	}

	e.contracts[id] = &Contract{
		ID:        id,
		TenantID:  tenantID,
		Version:   1,
		SemVer:    semVerStr,
		Rules:     rules,
		Status:    StatusActive,
		CreatedAt: e.now(),
	}
	e.compiled[id] = compiled
	return id, nil
}

// AttachPayloadSchema binds a JSON Schema that a proposed span's
// payload must satisfy before rule predicates even run, for contracts
// that want structural validation alongside rule-based evaluation.
func (e *Engine) AttachPayloadSchema(contractID string, schema *jsonschema.Schema) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.schemas[contractID] = schema
}

// Get returns the stored contract record.
func (e *Engine) Get(contractID string) (Contract, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.contracts[contractID]
	if !ok {
		return Contract{}, archerr.New(archerr.NotFound, "contract.not_found", fmt.Sprintf("contract %q not found", contractID))
	}
	return *c, nil
}

// Evaluate runs a proposed span through a contract's rules in declared
// order. The first rule whose when predicate matches decides: if any
// of its require guards fails the decision is
// Reject{require_guard_failed}, otherwise its then effect applies;
// absence of any match defaults to Reject{no_rule_matched}. Evaluate performs no I/O and reads no
// wall-clock time directly: all time-sensitivity flows through
// EvalContext.Now.
func (e *Engine) Evaluate(contractID string, proposed span.ProposedSpan, ec EvalContext) (Decision, error) {
	e.mu.RLock()
	rules, ok := e.compiled[contractID]
	schema := e.schemas[contractID]
	e.mu.RUnlock()
	if !ok {
		return Decision{}, archerr.New(archerr.NotFound, "contract.not_found", fmt.Sprintf("contract %q not found", contractID))
	}

	if schema != nil {
		if err := schema.Validate(proposed.Payload); err != nil {
			return Decision{Verdict: VerdictReject, Reason: "payload_schema_violation"}, nil
		}
	}

	vars := activationFor(proposed, ec)

	for _, cr := range rules {
		matched, err := evalBool(cr.when, vars)
		if err != nil {
			return Decision{}, err
		}
		if !matched {
			continue
		}

		guardsPassed := true
		for _, guard := range cr.require {
			ok, err := evalBool(guard, vars)
			if err != nil {
				return Decision{}, err
			}
			if !ok {
				guardsPassed = false
				break
			}
		}
		if !guardsPassed {
			return Decision{Verdict: VerdictReject, Reason: "require_guard_failed", MatchedBy: cr.rule.Name}, nil
		}

		switch cr.rule.Then {
		case EffectAdmit:
			return Decision{Verdict: VerdictAdmit, MatchedBy: cr.rule.Name}, nil
		case EffectSimulate:
			return Decision{Verdict: VerdictSimulate, MatchedBy: cr.rule.Name}, nil
		case EffectReject:
			reason := cr.rule.Reason
			if reason == "" {
				reason = "rejected_by_rule"
			}
			return Decision{Verdict: VerdictReject, Reason: reason, MatchedBy: cr.rule.Name}, nil
		}
	}

	return Decision{Verdict: VerdictReject, Reason: "no_rule_matched"}, nil
}
