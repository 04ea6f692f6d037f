package domain

import "time"

// Plan enumerates billing tiers.
type Plan string

const (
	PlanFree   Plan = "free"
	PlanPro    Plan = "pro"
	PlanStudio Plan = "studio"
)

// Rank orders plans so upgrades can be made monotonic: webhook-driven plan
// changes never lower an existing higher tier.
func (p Plan) Rank() int {
	switch p {
	case PlanStudio:
		return 2
	case PlanPro:
		return 1
	default:
		return 0
	}
}

// IsPro reports whether the plan includes pro entitlements. Studio implies pro.
func (p Plan) IsPro() bool {
	return p.Rank() >= PlanPro.Rank()
}

// IsStudio reports whether the plan is the studio tier.
func (p Plan) IsStudio() bool {
	return p == PlanStudio
}

// Max returns the higher-ranked of the two plans.
func (p Plan) Max(other Plan) Plan {
	if other.Rank() > p.Rank() {
		return other
	}
	return p
}

// ParsePlan normalizes a stored or user-supplied plan string. Unknown values
// map to free.
func ParsePlan(s string) Plan {
	switch Plan(s) {
	case PlanPro:
		return PlanPro
	case PlanStudio:
		return PlanStudio
	default:
		return PlanFree
	}
}

// Profile is the account row backing credit checks and plan gating. IsPro and
// IsStudio are denormalized from Plan in the database; callers should treat
// Plan as the source of truth.
type Profile struct {
	ID        string
	Credits   int
	Plan      Plan
	IsPro     bool
	IsStudio  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
