package contract

import (
	"bytes"
	"fmt"

	"github.com/archon-systems/archon-core/pkg/archerr"
	"github.com/archon-systems/archon-core/pkg/canonical"
	"gopkg.in/yaml.v3"
)

// surfaceDocument is the human-authored form: a sequence of named
// rules plus an optional semver version string. ParseSurfaceDocument
// accepts either this or the canonical form CanonicalBytes emits (a
// bare JSON array of rules, carrying no version), and the engine
// always emits the canonical form to content-address.
type surfaceDocument struct {
	Version string `yaml:"version,omitempty"`
	Rules   []Rule `yaml:"rules"`
}

// ParseSurface parses the YAML surface syntax into an ordered rule
// list, validating structural shape (every rule has a when predicate
// and a recognized then effect) but not yet compiling the CEL
// expressions — that happens at load time against a known tenant.
func ParseSurface(text []byte) ([]Rule, error) {
	rules, _, err := ParseSurfaceDocument(text)
	return rules, err
}

// ParseSurfaceDocument is ParseSurface plus the document's optional
// declared version string ("" if the author omitted it).
func ParseSurfaceDocument(text []byte) ([]Rule, string, error) {
	var doc surfaceDocument
	if trimmed := bytes.TrimSpace(text); len(trimmed) > 0 && trimmed[0] == '[' {
		// Canonical form: a JSON array of rules, which YAML also reads.
		if err := yaml.Unmarshal(trimmed, &doc.Rules); err != nil {
			return nil, "", archerr.Wrap(archerr.Validation, "contract.parse_failed", "contract document is not a valid canonical rule list", err)
		}
	} else if err := yaml.Unmarshal(text, &doc); err != nil {
		return nil, "", archerr.Wrap(archerr.Validation, "contract.parse_failed", "contract document is not valid YAML", err)
	}
	if len(doc.Rules) == 0 {
		return nil, "", archerr.New(archerr.Validation, "contract.empty", "contract declares no rules")
	}
	for i, r := range doc.Rules {
		if r.When == "" {
			return nil, "", archerr.New(archerr.Validation, "contract.missing_when", fmt.Sprintf("rule %d (%q) has no when predicate", i, r.Name))
		}
		switch r.Then {
		case EffectAdmit, EffectReject, EffectSimulate:
		default:
			return nil, "", archerr.New(archerr.Validation, "contract.unknown_effect", fmt.Sprintf("rule %d (%q) has unrecognized effect %q", i, r.Name, r.Then))
		}
	}
	return doc.Rules, doc.Version, nil
}

// CanonicalBytes produces the deterministic, content-addressable byte
// form of a rule set, used both to compute a contract's ID and as the
// on-disk canonical form the engine can re-parse directly.
func CanonicalBytes(rules []Rule) ([]byte, error) {
	return canonical.Marshal(rules)
}

// ContentHash returns the content address ("sha256:...") of a rule set.
func ContentHash(rules []Rule) (string, error) {
	b, err := CanonicalBytes(rules)
	if err != nil {
		return "", fmt.Errorf("contract: failed to canonicalize rules: %w", err)
	}
	return canonical.HashBytes(b), nil
}
