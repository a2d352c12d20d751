// Package mesh implements the Service Mesh: the authenticated,
// bidirectional transport used by C1-C4 to exchange validated spans
// and events, and by Federation Sync for peer links.
package mesh

import (
	"fmt"
	"time"

	"github.com/archon-systems/archon-core/pkg/archerr"
	"github.com/archon-systems/archon-core/pkg/canonical"
)

// Kind identifies the logical purpose of an envelope's payload.
type Kind string

const (
	KindSpanCommitted Kind = "span.committed"
	KindSyncRequest   Kind = "sync.request"
	KindSyncResponse  Kind = "sync.response"
	KindPing          Kind = "ping"
	KindPong          Kind = "pong"
)

// Envelope is the unit of mesh and federation transport. Envelopes are
// ephemeral: the mesh never persists them.
type Envelope struct {
	Kind            Kind        `json:"kind"`
	SourceIdentity  string      `json:"source_identity"`
	Target          string      `json:"target"`
	Payload         interface{} `json:"payload"`
	Nonce           uint64      `json:"nonce"`
	Signature       string      `json:"signature"`
	Timestamp       time.Time   `json:"timestamp"`
	CorrelationID   string      `json:"correlation_id,omitempty"`
}

// signable is the subset of fields the signature covers.
type signable struct {
	Source    string      `json:"source"`
	Target    string      `json:"target"`
	Kind      Kind        `json:"kind"`
	Payload   interface{} `json:"payload"`
	Nonce     uint64      `json:"nonce"`
	Timestamp time.Time   `json:"timestamp"`
}

// SignableBytes is the canonical encoding an envelope's signature is
// produced and checked over.
func (e Envelope) SignableBytes() ([]byte, error) {
	return canonical.Marshal(signable{
		Source: e.SourceIdentity, Target: e.Target, Kind: e.Kind,
		Payload: e.Payload, Nonce: e.Nonce, Timestamp: e.Timestamp,
	})
}

// Signer produces a detached signature over arbitrary bytes, the same
// shape the Identity Store exposes.
type Signer interface {
	Sign(data []byte) (string, error)
}

// Verifier checks a detached signature, the same shape the Identity
// Store exposes.
type Verifier interface {
	Verify(identityID string, data []byte, sigHex string) (bool, error)
}

// Sign fills in an envelope's Signature field.
func Sign(e Envelope, signer Signer) (Envelope, error) {
	b, err := e.SignableBytes()
	if err != nil {
		return Envelope{}, fmt.Errorf("mesh: failed to encode envelope: %w", err)
	}
	sig, err := signer.Sign(b)
	if err != nil {
		return Envelope{}, fmt.Errorf("mesh: failed to sign envelope: %w", err)
	}
	e.Signature = sig
	return e, nil
}

// NonceTracker rejects duplicate nonces per source, the receiver-side
// replay defense the envelope handling model requires.
type NonceTracker struct {
	seen map[string]map[uint64]bool
}

// NewNonceTracker builds an empty tracker.
func NewNonceTracker() *NonceTracker {
	return &NonceTracker{seen: make(map[string]map[uint64]bool)}
}

// Observe records a (source, nonce) pair, returning false if it has
// already been seen.
func (n *NonceTracker) Observe(source string, nonce uint64) bool {
	bySource, ok := n.seen[source]
	if !ok {
		bySource = make(map[uint64]bool)
		n.seen[source] = bySource
	}
	if bySource[nonce] {
		return false
	}
	bySource[nonce] = true
	return true
}

// Validator checks an incoming envelope's signature, nonce, and clock
// skew before it is handed to application logic.
type Validator struct {
	verifier  Verifier
	nonces    *NonceTracker
	tolerance time.Duration
	now       func() time.Time
}

// NewValidator builds a Validator. tolerance bounds how far an
// envelope's timestamp may drift from now before it is rejected.
func NewValidator(verifier Verifier, tolerance time.Duration, nowFn func() time.Time) *Validator {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Validator{verifier: verifier, nonces: NewNonceTracker(), tolerance: tolerance, now: nowFn}
}

// Validate rejects envelopes with duplicate nonces, signatures that do
// not verify, or timestamps skewed beyond tolerance.
func (v *Validator) Validate(e Envelope) error {
	skew := v.now().Sub(e.Timestamp)
	if skew < 0 {
		skew = -skew
	}
	if skew > v.tolerance {
		return archerr.New(archerr.Validation, "mesh.timestamp_skew", fmt.Sprintf("envelope timestamp skewed by %s, exceeds tolerance %s", skew, v.tolerance))
	}

	if !v.nonces.Observe(e.SourceIdentity, e.Nonce) {
		return archerr.New(archerr.Validation, "mesh.duplicate_nonce", fmt.Sprintf("nonce %d already observed for source %q", e.Nonce, e.SourceIdentity))
	}

	signableBytes, err := e.SignableBytes()
	if err != nil {
		return archerr.Wrap(archerr.Internal, "mesh.encode_failed", "failed to encode envelope", err)
	}
	ok, err := v.verifier.Verify(e.SourceIdentity, signableBytes, e.Signature)
	if err != nil {
		return archerr.Wrap(archerr.Cryptographic, "mesh.verify_failed", "signature verification failed", err)
	}
	if !ok {
		return archerr.New(archerr.Cryptographic, "mesh.signature_invalid", "envelope signature does not verify")
	}
	return nil
}
