package campaign

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidOutcome signals a contact result outside the recognized set.
	ErrInvalidOutcome = errors.New("campaign: unrecognized contact outcome")
	// ErrAlreadyContacted signals a result was already recorded for the lead
	// and the caller did not opt into re-contact.
	ErrAlreadyContacted = errors.New("campaign: contact result already recorded")
)

// RecordContactParams carries one contact attempt's outcome.
type RecordContactParams struct {
	CampaignID string
	LeadID     string
	Status     Outcome
	Result     *string
	Notes      *string
	// AllowRecontact permits overwriting an existing result. The completed
	// counter is not incremented again; only the success counter is adjusted
	// by the delta between the old and new outcome.
	AllowRecontact bool
}

// ContactAck reports the campaign's counters as committed by the recording.
type ContactAck struct {
	Enrollment         Enrollment
	TotalContacts      int
	CompletedContacts  int
	SuccessfulContacts int
	SuccessRate        float64
}

// RecordContactResult records one lead's contact outcome and updates the
// campaign counters in the same transaction. The campaign row is locked first,
// then the association row, so concurrent recordings for the same campaign
// serialize and every attempt is counted exactly once.
func (s *Service) RecordContactResult(ctx context.Context, params RecordContactParams) (ContactAck, error) {
	if params.CampaignID == "" || params.LeadID == "" {
		return ContactAck{}, fmt.Errorf("%w: missing campaign or lead id", ErrValidation)
	}
	if !recordableOutcome(params.Status) {
		return ContactAck{}, fmt.Errorf("%w: %q", ErrInvalidOutcome, params.Status)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ContactAck{}, fmt.Errorf("campaign: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := s.repo.GetForUpdate(ctx, tx, params.CampaignID)
	if err != nil {
		return ContactAck{}, err
	}
	if current.Status == StatusArchived {
		return ContactAck{}, ErrArchived
	}

	enrollment, err := s.repo.GetEnrollmentForUpdate(ctx, tx, params.CampaignID, params.LeadID)
	if err != nil {
		return ContactAck{}, err
	}

	recontact := enrollment.ContactedAt != nil
	if recontact && !params.AllowRecontact {
		return ContactAck{}, ErrAlreadyContacted
	}

	completedDelta := 1
	successfulDelta := 0
	if params.Status == OutcomeSuccess {
		successfulDelta = 1
	}
	if recontact {
		// The attempt was already counted; only reconcile the success counter.
		completedDelta = 0
		if enrollment.Status == OutcomeSuccess {
			successfulDelta--
		}
	}

	updated, err := s.repo.RecordOutcome(ctx, tx, RecordOutcomeParams{
		CampaignID:  params.CampaignID,
		LeadID:      params.LeadID,
		Status:      params.Status,
		Result:      params.Result,
		Notes:       params.Notes,
		ContactedAt: s.now().UTC(),
	})
	if err != nil {
		return ContactAck{}, err
	}

	c, err := s.repo.BumpContactCounters(ctx, tx, params.CampaignID, completedDelta, successfulDelta)
	if err != nil {
		return ContactAck{}, err
	}

	payload := map[string]any{
		"lead_id":   params.LeadID,
		"status":    params.Status,
		"recontact": recontact,
	}
	if err := appendEvent(ctx, tx, params.CampaignID, EventContactRecorded, payload); err != nil {
		return ContactAck{}, err
	}
	if err := enqueueOutbox(ctx, tx, TopicContactRecorded, map[string]any{
		"campaign_id": params.CampaignID,
		"lead_id":     params.LeadID,
		"status":      params.Status,
	}); err != nil {
		return ContactAck{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return ContactAck{}, fmt.Errorf("campaign: commit contact result: %w", err)
	}

	return ContactAck{
		Enrollment:         updated,
		TotalContacts:      c.TotalContacts,
		CompletedContacts:  c.CompletedContacts,
		SuccessfulContacts: c.SuccessfulContacts,
		SuccessRate:        c.SuccessRate(),
	}, nil
}
