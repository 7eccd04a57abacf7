package billing

// Plan describes the quota limits attached to a subscription tier.
type Plan struct {
	Name              string
	MaxCampaigns      int
	MaxLeads          int
	MaxContactsPerDay int
}

// Usage reports current consumption against a plan's limits.
type Usage struct {
	Plan          Plan
	CampaignCount int
	LeadCount     int
	ContactsToday int
}

// CampaignsRemaining reports the unused campaign quota, never below zero.
func (u Usage) CampaignsRemaining() int {
	return remaining(u.Plan.MaxCampaigns, u.CampaignCount)
}

func (u Usage) LeadsRemaining() int {
	return remaining(u.Plan.MaxLeads, u.LeadCount)
}

func (u Usage) ContactsRemainingToday() int {
	return remaining(u.Plan.MaxContactsPerDay, u.ContactsToday)
}

func remaining(limit, used int) int {
	if used >= limit {
		return 0
	}
	return limit - used
}
