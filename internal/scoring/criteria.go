package scoring

// Criteria tables per agent type. Agents whose verdicts carry extractable
// metrics get their self-reported score overridden by the deterministic
// result of these tables; everything else keeps the reported score.
var criteriaByAgent = map[string][]Criterion{
	"financials": {
		{Name: "revenue growth", Weight: 3, Metric: "arr_growth_yoy"},
		{Name: "retention", Weight: 2, Metric: "net_revenue_retention"},
		{Name: "margin quality", Weight: 2, Metric: "gross_margin"},
		{Name: "capital efficiency", Weight: 2, Metric: "burn_multiple"},
		{Name: "runway", Weight: 1, Metric: "runway_months"},
	},
	"market": {
		{Name: "market size", Weight: 3, Metric: "tam_usd_b"},
		{Name: "market growth", Weight: 2, Metric: "market_growth_yoy"},
	},
	"team": {
		{Name: "domain experience", Weight: 1, Metric: "founder_domain_years"},
	},
	"sector-saas": {
		{Name: "retention", Weight: 3, Metric: "net_revenue_retention"},
		{Name: "churn", Weight: 2, Metric: "monthly_churn"},
		{Name: "acquisition efficiency", Weight: 2, Metric: "cac_payback_months"},
	},
	"sector-marketplace": {
		{Name: "monetization", Weight: 3, Metric: "take_rate"},
		{Name: "demand durability", Weight: 2, Metric: "monthly_churn"},
	},
	"sector-fintech": {
		{Name: "monetization", Weight: 2, Metric: "take_rate"},
		{Name: "margin quality", Weight: 2, Metric: "gross_margin"},
	},
}

// CriteriaFor returns the criteria table for an agent, if one exists.
func CriteriaFor(agentName string) ([]Criterion, bool) {
	c, ok := criteriaByAgent[agentName]
	return c, ok
}
