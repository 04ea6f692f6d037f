package domain

// PlanGrant describes what a purchased plan confers.
type PlanGrant struct {
	Plan    Plan
	Credits int
}

var planGrants = map[Plan]PlanGrant{
	PlanPro:    {Plan: PlanPro, Credits: 50},
	PlanStudio: {Plan: PlanStudio, Credits: 200},
}

// GrantForPlan returns the fixed credit grant for a purchasable plan.
func GrantForPlan(p Plan) (PlanGrant, bool) {
	g, ok := planGrants[p]
	return g, ok
}

// PlanCatalog maps payment-provider price ids to plan grants. Price ids come
// from configuration because they differ between live and test mode.
type PlanCatalog struct {
	byPriceID map[string]PlanGrant
	byPlanID  map[string]string
}

// NewPlanCatalog builds the catalog from the configured price ids. Empty price
// ids leave the corresponding plan unpurchasable.
func NewPlanCatalog(proPriceID, studioPriceID string) *PlanCatalog {
	c := &PlanCatalog{
		byPriceID: make(map[string]PlanGrant, 2),
		byPlanID:  make(map[string]string, 2),
	}
	if proPriceID != "" {
		c.byPriceID[proPriceID] = planGrants[PlanPro]
		c.byPlanID[string(PlanPro)] = proPriceID
	}
	if studioPriceID != "" {
		c.byPriceID[studioPriceID] = planGrants[PlanStudio]
		c.byPlanID[string(PlanStudio)] = studioPriceID
	}
	return c
}

// GrantForPrice resolves a price id to its plan grant.
func (c *PlanCatalog) GrantForPrice(priceID string) (PlanGrant, bool) {
	g, ok := c.byPriceID[priceID]
	return g, ok
}

// PriceForPlanID resolves a plan id ("pro", "studio") to its price id.
func (c *PlanCatalog) PriceForPlanID(planID string) (string, bool) {
	id, ok := c.byPlanID[planID]
	return id, ok
}
