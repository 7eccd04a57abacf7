package billing

import (
	"context"
	"errors"
	"strings"
)

// ErrUnknownPlan signals a plan name outside the published tiers.
var ErrUnknownPlan = errors.New("billing: unknown plan")

var plans = map[string]Plan{
	"starter": {Name: "starter", MaxCampaigns: 5, MaxLeads: 500, MaxContactsPerDay: 100},
	"growth":  {Name: "growth", MaxCampaigns: 25, MaxLeads: 10000, MaxContactsPerDay: 1000},
	"scale":   {Name: "scale", MaxCampaigns: 100, MaxLeads: 100000, MaxContactsPerDay: 10000},
}

// CountsReader abstracts repository reads for the service.
type CountsReader interface {
	CurrentCounts(ctx context.Context) (Counts, error)
}

// Service answers usage-limit lookups against the configured plan tiers.
type Service struct {
	repo CountsReader
}

func NewService(repo CountsReader) *Service {
	return &Service{repo: repo}
}

// Usage resolves the plan by name and pairs it with live consumption counts.
func (s *Service) Usage(ctx context.Context, planName string) (Usage, error) {
	plan, ok := plans[strings.ToLower(strings.TrimSpace(planName))]
	if !ok {
		return Usage{}, ErrUnknownPlan
	}

	counts, err := s.repo.CurrentCounts(ctx)
	if err != nil {
		return Usage{}, err
	}

	return Usage{
		Plan:          plan,
		CampaignCount: counts.Campaigns,
		LeadCount:     counts.Leads,
		ContactsToday: counts.ContactsToday,
	}, nil
}
