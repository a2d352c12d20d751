//go:build property
// +build property

package identity_test

import (
	"testing"

	"github.com/archon-systems/archon-core/pkg/identity"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestIssueResolveSignVerifyRoundTrips checks the §8 round-trip
// property: issue -> resolve -> verify(sign(payload)) holds for any
// payload bytes, against any freshly issued identity.
func TestIssueResolveSignVerifyRoundTrips(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("a signature produced by an issued identity verifies against its resolved public key", prop.ForAll(
		func(handle, payload string) bool {
			if handle == "" {
				return true
			}
			store := identity.NewStore(nil, 64, nil)
			issued, err := store.Issue(identity.KindPerson, handle, "")
			if err != nil {
				return false
			}

			resolved, err := store.Resolve(issued.ID)
			if err != nil {
				return false
			}
			if resolved.PublicKey != issued.PublicKey {
				return false
			}

			sig, err := store.Sign(issued.ID, []byte(payload))
			if err != nil {
				return false
			}

			ok, err := store.Verify(issued.ID, []byte(payload), sig)
			if err != nil {
				return false
			}
			return ok
		},
		gen.Identifier(),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
