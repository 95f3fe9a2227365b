// Package key provides API token value types and pure resolution functions.
// This package has NO dependencies on I/O or external packages: a token
// carries its own tier marker, so authentication never needs a datastore
// and cannot fail separately from quota enforcement.
//
// The cleartext marker is a deliberate trade-off: anyone holding a token can
// read its tier. A deployment that needs opaque keys should map hashed
// credentials to identities in a durable store instead.
package key

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/gabrielgadea/kazuba-saas-api/domain/tier"
)

// Prefix tags every token issued by this service.
const Prefix = "kzb_"

// ErrUnauthenticated is returned for any token that cannot be resolved:
// empty, missing the tier marker, or carrying an unknown marker.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the resolved caller reference (immutable value type).
// ID is stable per token and is the counter key for quota purposes. It
// embeds the tier marker so tokens that share a suffix under different
// tiers never share counters.
type Identity struct {
	ID   string
	Tier tier.Tier
}

// Resolve parses a raw bearer token into an Identity.
// Token format: "kzb_<tier>_<suffix>" with a non-empty suffix.
// This is a PURE function - no store access, no side effects.
func Resolve(token string) (Identity, error) {
	rest, ok := strings.CutPrefix(token, Prefix)
	if !ok {
		return Identity{}, fmt.Errorf("%w: missing %q prefix", ErrUnauthenticated, Prefix)
	}

	marker, suffix, ok := strings.Cut(rest, "_")
	if !ok || suffix == "" {
		return Identity{}, fmt.Errorf("%w: missing tier marker", ErrUnauthenticated)
	}

	t, ok := tier.Parse(marker)
	if !ok {
		return Identity{}, fmt.Errorf("%w: unknown tier marker %q", ErrUnauthenticated, marker)
	}

	return Identity{ID: string(t) + "_" + suffix, Tier: t}, nil
}

// Generate mints a new opaque token for the given tier.
// The token is self-describing and never stored; losing it means issuing
// a new one.
func Generate(t tier.Tier) (string, error) {
	if _, ok := tier.Parse(string(t)); !ok {
		return "", fmt.Errorf("unknown tier %q", t)
	}

	randomBytes := make([]byte, 16)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return Prefix + string(t) + "_" + hex.EncodeToString(randomBytes), nil
}
