//go:build property

package security

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestPolicyProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	// Property: every fresh nonce is accepted by ValidNonce and appears
	// verbatim in the production policy.
	properties.Property("fresh nonces round-trip into the policy", prop.ForAll(
		func(_ int) bool {
			nonce, err := GenerateNonce()
			if err != nil {
				return false
			}
			if !ValidNonce(nonce) {
				return false
			}
			csp := BuildCSP(Policy{Nonce: nonce, Sources: DefaultSources()})
			return strings.Contains(csp, "'nonce-"+nonce+"'")
		},
		gen.Int(),
	))

	// Property: the development switch alone decides unsafe-inline and
	// upgrade-insecure-requests, independent of the configured sources.
	properties.Property("dev switch controls unsafe directives", prop.ForAll(
		func(analytics, fonts string, dev bool) bool {
			csp := BuildCSP(Policy{
				Nonce:   "fixed",
				Dev:     dev,
				Sources: Sources{Analytics: analytics, Fonts: fonts},
			})
			if dev {
				return strings.Contains(csp, "'unsafe-inline'") &&
					!strings.Contains(csp, "upgrade-insecure-requests")
			}
			return !strings.Contains(csp, "'unsafe-inline'") &&
				strings.Contains(csp, "upgrade-insecure-requests")
		},
		gen.OneConstOf("", "https://plausible.io", "https://stats.example.com"),
		gen.OneConstOf("", "https://fonts.bunny.net"),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
