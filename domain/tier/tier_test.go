package tier_test

import (
	"testing"

	"github.com/gabrielgadea/kazuba-saas-api/domain/tier"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want tier.Tier
		ok   bool
	}{
		{"free", tier.Free, true},
		{"hobby", tier.Hobby, true},
		{"pro", tier.Pro, true},
		{"", "", false},
		{"FREE", "", false},
		{"enterprise", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := tier.Parse(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Parse(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := tier.DefaultPolicy()

	if err := p.Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}

	tests := []struct {
		tier tier.Tier
		reqs int64
		docs int64
	}{
		{tier.Free, 50, 100},
		{tier.Hobby, 500, 5000},
		{tier.Pro, 5000, 50000},
	}

	for _, tt := range tests {
		limits, err := p.LimitFor(tt.tier)
		if err != nil {
			t.Fatalf("LimitFor(%s): %v", tt.tier, err)
		}
		if limits.RequestsPerDay != tt.reqs {
			t.Errorf("%s requests/day = %d, want %d", tt.tier, limits.RequestsPerDay, tt.reqs)
		}
		if limits.DocsPerMonth != tt.docs {
			t.Errorf("%s docs/month = %d, want %d", tt.tier, limits.DocsPerMonth, tt.docs)
		}
	}
}

func TestLimitFor_UnknownTier(t *testing.T) {
	p := tier.DefaultPolicy()
	if _, err := p.LimitFor(tier.Tier("enterprise")); err == nil {
		t.Error("expected error for unknown tier")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		limits  map[tier.Tier]tier.Limits
		wantErr bool
	}{
		{
			name: "valid",
			limits: map[tier.Tier]tier.Limits{
				tier.Free:  {RequestsPerDay: 1, DocsPerMonth: 1},
				tier.Hobby: {RequestsPerDay: 2, DocsPerMonth: 2},
				tier.Pro:   {RequestsPerDay: 3, DocsPerMonth: 3},
			},
		},
		{
			name: "missing tier",
			limits: map[tier.Tier]tier.Limits{
				tier.Free: {RequestsPerDay: 1, DocsPerMonth: 1},
				tier.Pro:  {RequestsPerDay: 3, DocsPerMonth: 3},
			},
			wantErr: true,
		},
		{
			name: "zero limit",
			limits: map[tier.Tier]tier.Limits{
				tier.Free:  {RequestsPerDay: 0, DocsPerMonth: 1},
				tier.Hobby: {RequestsPerDay: 2, DocsPerMonth: 2},
				tier.Pro:   {RequestsPerDay: 3, DocsPerMonth: 3},
			},
			wantErr: true,
		},
		{
			name: "higher tier below lower",
			limits: map[tier.Tier]tier.Limits{
				tier.Free:  {RequestsPerDay: 100, DocsPerMonth: 100},
				tier.Hobby: {RequestsPerDay: 50, DocsPerMonth: 200},
				tier.Pro:   {RequestsPerDay: 500, DocsPerMonth: 300},
			},
			wantErr: true,
		},
		{
			name: "equal limits across tiers allowed",
			limits: map[tier.Tier]tier.Limits{
				tier.Free:  {RequestsPerDay: 10, DocsPerMonth: 10},
				tier.Hobby: {RequestsPerDay: 10, DocsPerMonth: 10},
				tier.Pro:   {RequestsPerDay: 10, DocsPerMonth: 10},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tier.NewPolicy(tt.limits).Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewPolicy_CopiesTable(t *testing.T) {
	limits := map[tier.Tier]tier.Limits{
		tier.Free:  {RequestsPerDay: 1, DocsPerMonth: 1},
		tier.Hobby: {RequestsPerDay: 2, DocsPerMonth: 2},
		tier.Pro:   {RequestsPerDay: 3, DocsPerMonth: 3},
	}
	p := tier.NewPolicy(limits)

	limits[tier.Free] = tier.Limits{RequestsPerDay: 999, DocsPerMonth: 999}

	got, err := p.LimitFor(tier.Free)
	if err != nil {
		t.Fatal(err)
	}
	if got.RequestsPerDay != 1 {
		t.Errorf("policy observed caller mutation: requests/day = %d, want 1", got.RequestsPerDay)
	}
}
