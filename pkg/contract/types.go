// Package contract implements the Contract Engine: parsing declarative
// policy documents and evaluating a proposed span against them.
package contract

import "time"

// EffectKind is the terminal or guard effect a matched rule produces.
type EffectKind string

const (
	EffectAdmit    EffectKind = "admit"
	EffectReject   EffectKind = "reject"
	EffectSimulate EffectKind = "simulate"
)

// Rule is one ordered entry in a contract: a predicate over the
// proposed span plus guard expressions, and the effect to apply when
// both the predicate and every guard pass.
type Rule struct {
	Name    string     `json:"name" yaml:"name"`
	When    string     `json:"when" yaml:"when"`       // CEL predicate
	Require []string   `json:"require,omitempty" yaml:"require,omitempty"` // CEL guard expressions, all must be true
	Then    EffectKind `json:"then" yaml:"then"`
	Reason  string     `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Status is the lifecycle of a stored contract record.
type Status string

const (
	StatusActive     Status = "active"
	StatusSuperseded Status = "superseded"
)

// Contract is a declarative policy document: an ordered rule list,
// content-addressed by the hash of its canonical form.
type Contract struct {
	ID        string    `json:"id"` // "<tenant_id>/sha256:...", the tenant plus the rule set's content hash
	TenantID  string    `json:"tenant_id"`
	Version   int       `json:"version"`
	SemVer    string    `json:"semver,omitempty"` // optional author-declared version, e.g. "1.4.0"
	Rules     []Rule    `json:"rules"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Verdict is the outcome of evaluate().
type Verdict string

const (
	VerdictAdmit    Verdict = "admit"
	VerdictSimulate Verdict = "simulate"
	VerdictReject   Verdict = "reject"
)

// Decision is the structured result of evaluating a proposed span
// against a contract.
type Decision struct {
	Verdict   Verdict `json:"verdict"`
	Reason    string  `json:"reason,omitempty"`
	MatchedBy string  `json:"matched_by,omitempty"` // rule name
}

// EvalContext carries the ambient values a rule's CEL expressions may
// read, kept explicit so evaluate never reaches for wall-clock time or
// does I/O: anything time-dependent reads Now from here.
type EvalContext struct {
	Now        time.Time
	AuthorKind string
	AuthorRole string
}
