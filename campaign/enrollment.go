package campaign

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoLeads signals enrollment was called with an empty lead list.
var ErrNoLeads = errors.New("campaign: lead ids required")

// AddLeadsParams carries a bulk enrollment request.
type AddLeadsParams struct {
	CampaignID string
	LeadIDs    []string
}

// EnrollmentResult reports how many of the submitted leads were newly enrolled
// and the campaign's contact total after the write.
type EnrollmentResult struct {
	Submitted     int
	Enrolled      int
	TotalContacts int
}

// AddLeads enrolls the given leads into a campaign. Duplicate enrollments are
// skipped and total_contacts grows by the number of rows actually inserted, so
// repeat submissions cannot drift the counter. The insert and the counter
// update commit together.
func (s *Service) AddLeads(ctx context.Context, params AddLeadsParams) (EnrollmentResult, error) {
	if params.CampaignID == "" {
		return EnrollmentResult{}, fmt.Errorf("%w: missing campaign id", ErrValidation)
	}
	if len(params.LeadIDs) == 0 {
		return EnrollmentResult{}, ErrNoLeads
	}
	for _, id := range params.LeadIDs {
		if id == "" {
			return EnrollmentResult{}, fmt.Errorf("%w: empty lead id in list", ErrValidation)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return EnrollmentResult{}, fmt.Errorf("campaign: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := s.repo.GetForUpdate(ctx, tx, params.CampaignID)
	if err != nil {
		return EnrollmentResult{}, err
	}
	if current.Status == StatusArchived {
		return EnrollmentResult{}, ErrArchived
	}

	inserted, err := s.repo.EnrollLeads(ctx, tx, params.CampaignID, params.LeadIDs)
	if err != nil {
		return EnrollmentResult{}, err
	}

	total := current.TotalContacts
	if inserted > 0 {
		if err := s.repo.AddTotalContacts(ctx, tx, params.CampaignID, inserted); err != nil {
			return EnrollmentResult{}, err
		}
		total += inserted

		payload := map[string]any{
			"submitted": len(params.LeadIDs),
			"enrolled":  inserted,
		}
		if err := appendEvent(ctx, tx, params.CampaignID, EventLeadsEnrolled, payload); err != nil {
			return EnrollmentResult{}, err
		}
		if err := enqueueOutbox(ctx, tx, TopicLeadsEnrolled, map[string]any{
			"campaign_id": params.CampaignID,
			"enrolled":    inserted,
		}); err != nil {
			return EnrollmentResult{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return EnrollmentResult{}, fmt.Errorf("campaign: commit enrollment: %w", err)
	}

	return EnrollmentResult{
		Submitted:     len(params.LeadIDs),
		Enrolled:      inserted,
		TotalContacts: total,
	}, nil
}
