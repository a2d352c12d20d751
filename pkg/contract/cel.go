package contract

import (
	"fmt"

	"github.com/archon-systems/archon-core/pkg/archerr"
	"github.com/archon-systems/archon-core/pkg/span"
	"github.com/google/cel-go/cel"
)

// predicateEnv is the CEL environment every rule's when/require
// expressions compile and run against. Variables are deliberately
// limited to what a rule may legitimately inspect: the proposed span's
// shape and an explicit evaluation context, never wall-clock time or
// I/O, so evaluate stays pure.
func predicateEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("author", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("title", cel.StringType),
		cel.Variable("payload", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("workflow_id", cel.StringType),
		cel.Variable("context", cel.MapType(cel.StringType, cel.DynType)),
	)
}

// compiledRule is a Rule whose CEL expressions have been parsed and
// checked once, so evaluate() never pays compilation cost per call.
type compiledRule struct {
	rule    Rule
	when    cel.Program
	require []cel.Program
}

func compileExpr(env *cel.Env, expr string) (cel.Program, error) {
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("contract: failed to compile expression %q: %w", expr, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("contract: failed to build program for %q: %w", expr, err)
	}
	return prg, nil
}

func compileRules(env *cel.Env, rules []Rule) ([]compiledRule, error) {
	out := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		when, err := compileExpr(env, r.When)
		if err != nil {
			return nil, err
		}
		reqs := make([]cel.Program, 0, len(r.Require))
		for _, req := range r.Require {
			p, err := compileExpr(env, req)
			if err != nil {
				return nil, err
			}
			reqs = append(reqs, p)
		}
		out = append(out, compiledRule{rule: r, when: when, require: reqs})
	}
	return out, nil
}

func activationFor(p span.ProposedSpan, ec EvalContext) map[string]interface{} {
	payload := p.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return map[string]interface{}{
		"author": map[string]interface{}{
			"id":   p.AuthorID,
			"kind": ec.AuthorKind,
			"role": ec.AuthorRole,
		},
		"title":       p.Title,
		"payload":     payload,
		"workflow_id": p.WorkflowID,
		"context": map[string]interface{}{
			"now": ec.Now.Unix(),
		},
	}
}

func evalBool(prg cel.Program, vars map[string]interface{}) (bool, error) {
	out, _, err := prg.Eval(vars)
	if err != nil {
		return false, archerr.Wrap(archerr.Internal, "contract.eval_error", "predicate evaluation failed", err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, archerr.New(archerr.Internal, "contract.non_bool_predicate", "predicate expression did not evaluate to a boolean")
	}
	return b, nil
}
