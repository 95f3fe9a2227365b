// Package tier provides subscription tier value types and the static
// tier-to-quota policy table. All functions are pure.
package tier

import "fmt"

// Tier is a subscription level. The set is closed: adding a tier means
// updating the policy table and the token marker parser together.
type Tier string

const (
	Free  Tier = "free"
	Hobby Tier = "hobby"
	Pro   Tier = "pro"
)

// All lists the known tiers in ascending order of entitlement.
func All() []Tier {
	return []Tier{Free, Hobby, Pro}
}

// Parse maps a tier marker string to a Tier.
func Parse(s string) (Tier, bool) {
	switch Tier(s) {
	case Free, Hobby, Pro:
		return Tier(s), true
	}
	return "", false
}

// Limits holds the quota ceilings for one tier (value type).
// Both limits are inclusive: a counter equal to the limit means the
// next request is the first rejected one.
type Limits struct {
	RequestsPerDay int64
	DocsPerMonth   int64
}

// Policy maps tiers to their quota limits.
type Policy struct {
	limits map[Tier]Limits
}

// DefaultPolicy returns the built-in pricing table.
func DefaultPolicy() Policy {
	return NewPolicy(map[Tier]Limits{
		Free:  {RequestsPerDay: 50, DocsPerMonth: 100},
		Hobby: {RequestsPerDay: 500, DocsPerMonth: 5000},
		Pro:   {RequestsPerDay: 5000, DocsPerMonth: 50000},
	})
}

// NewPolicy creates a policy from an explicit table. The table is copied.
func NewPolicy(limits map[Tier]Limits) Policy {
	m := make(map[Tier]Limits, len(limits))
	for t, l := range limits {
		m[t] = l
	}
	return Policy{limits: m}
}

// LimitFor returns the limits for a tier.
// An unknown tier is an invariant violation: key.Resolve only produces
// tiers present in the table, so this error reaching a caller means a
// programming bug, not bad input.
func (p Policy) LimitFor(t Tier) (Limits, error) {
	l, ok := p.limits[t]
	if !ok {
		return Limits{}, fmt.Errorf("no quota limits for tier %q", t)
	}
	return l, nil
}

// Validate checks the policy invariants: every known tier has positive
// limits and limits never decrease from Free through Pro.
func (p Policy) Validate() error {
	var prev Limits
	for i, t := range All() {
		l, ok := p.limits[t]
		if !ok {
			return fmt.Errorf("tier %q missing from policy table", t)
		}
		if l.RequestsPerDay <= 0 || l.DocsPerMonth <= 0 {
			return fmt.Errorf("tier %q limits must be positive, got %+v", t, l)
		}
		if i > 0 && (l.RequestsPerDay < prev.RequestsPerDay || l.DocsPerMonth < prev.DocsPerMonth) {
			return fmt.Errorf("tier %q limits decrease below the previous tier", t)
		}
		prev = l
	}
	return nil
}
