package campaign

import (
	"math"
	"time"
)

// Campaign mirrors the campaigns table. Contact counters are maintained only
// through transactional, in-database arithmetic; the success rate is derived
// at read time and never stored.
type Campaign struct {
	ID                 string
	Name               string
	Type               string
	TargetSegment      string
	Goal               string
	ScriptInstructions string
	Status             Status
	MaxContactsPerDay  int
	Priority           int
	TotalContacts      int
	CompletedContacts  int
	SuccessfulContacts int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SuccessRate reports successful over completed contacts as a percentage,
// rounded to two decimals. A campaign with no completed contacts reports 0.
func (c Campaign) SuccessRate() float64 {
	return successRate(c.SuccessfulContacts, c.CompletedContacts)
}

func successRate(successful, completed int) float64 {
	if completed <= 0 {
		return 0
	}
	rate := float64(successful) / float64(completed) * 100
	return math.Round(rate*100) / 100
}

// Outcome is the per-lead contact state inside a campaign.
type Outcome string

const (
	OutcomePending Outcome = "PENDING"
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

// recordableOutcome reports whether callers may record the outcome. PENDING is
// the initial enrollment state, not a result.
func recordableOutcome(o Outcome) bool {
	return o == OutcomeSuccess || o == OutcomeFailure
}

// Enrollment is the association row tracking one lead's contact outcome within
// one campaign, composite-keyed by (campaign, lead).
type Enrollment struct {
	CampaignID  string
	LeadID      string
	Status      Outcome
	Result      *string
	Notes       *string
	ContactedAt *time.Time
	CreatedAt   time.Time
}

// Stats aggregates contact counters across all campaigns. Rate is the weighted
// global rate computed from the summed counters, not an average of per-campaign
// rates.
type Stats struct {
	ActiveCampaigns    int
	TotalContacts      int
	CompletedContacts  int
	SuccessfulContacts int
}

func (s Stats) SuccessRate() float64 {
	return successRate(s.SuccessfulContacts, s.CompletedContacts)
}
