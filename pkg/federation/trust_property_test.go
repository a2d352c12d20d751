//go:build property
// +build property

package federation_test

import (
	"testing"

	"github.com/archon-systems/archon-core/pkg/federation"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestPeerDowngradesToNoneAfterThresholdFailures checks the §8
// boundary: a peer accumulating the configured number of consecutive
// signature failures is moved to TrustNone, regardless of its
// starting trust level, and a single intervening success resets the
// streak so it never crosses the threshold.
func TestPeerDowngradesToNoneAfterThresholdFailures(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("N consecutive failures at or past the threshold downgrade to none", prop.ForAll(
		func(threshold, failures int) bool {
			if threshold < 1 || threshold > 20 || failures < 0 || failures > 40 {
				return true
			}
			registry := federation.NewRegistry(threshold)
			registry.Add(federation.Peer{ID: "peer-1", TenantID: "t1", Trust: federation.TrustWrite})

			var trust federation.Trust
			for i := 0; i < failures; i++ {
				var err error
				trust, err = registry.RecordSignatureFailure("peer-1")
				if err != nil {
					return false
				}
			}
			if failures == 0 {
				return true
			}
			if failures >= threshold {
				return trust == federation.TrustNone
			}
			return trust != federation.TrustNone
		},
		gen.IntRange(1, 20),
		gen.IntRange(0, 40),
	))

	properties.TestingRun(t)
}

// TestSignatureSuccessResetsFailureStreak checks that a success between
// failures prevents the streak from ever reaching the threshold.
func TestSignatureSuccessResetsFailureStreak(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("a success before the threshold keeps the peer off none", prop.ForAll(
		func(threshold int) bool {
			if threshold < 2 || threshold > 20 {
				return true
			}
			registry := federation.NewRegistry(threshold)
			registry.Add(federation.Peer{ID: "peer-1", TenantID: "t1", Trust: federation.TrustWrite})

			for i := 0; i < threshold-1; i++ {
				if _, err := registry.RecordSignatureFailure("peer-1"); err != nil {
					return false
				}
			}
			if err := registry.RecordSignatureSuccess("peer-1"); err != nil {
				return false
			}
			for i := 0; i < threshold-1; i++ {
				if _, err := registry.RecordSignatureFailure("peer-1"); err != nil {
					return false
				}
			}
			peer, err := registry.Get("peer-1")
			if err != nil {
				return false
			}
			return peer.Trust != federation.TrustNone
		},
		gen.IntRange(2, 20),
	))

	properties.TestingRun(t)
}
