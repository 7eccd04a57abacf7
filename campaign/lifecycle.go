package campaign

import (
	"context"
	"fmt"
)

// Launch moves a DRAFT or PAUSED campaign to ACTIVE.
func (s *Service) Launch(ctx context.Context, id string) (Campaign, error) {
	return s.transition(ctx, id, StatusActive)
}

// Pause moves an ACTIVE campaign to PAUSED.
func (s *Service) Pause(ctx context.Context, id string) (Campaign, error) {
	return s.transition(ctx, id, StatusPaused)
}

// Archive soft-deletes a campaign. No rows are removed; ARCHIVED is terminal.
func (s *Service) Archive(ctx context.Context, id string) (Campaign, error) {
	return s.transition(ctx, id, StatusArchived)
}

func (s *Service) transition(ctx context.Context, id string, next Status) (Campaign, error) {
	if id == "" {
		return Campaign{}, fmt.Errorf("%w: missing campaign id", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Campaign{}, fmt.Errorf("campaign: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := s.repo.GetForUpdate(ctx, tx, id)
	if err != nil {
		return Campaign{}, err
	}
	if !CanTransition(current.Status, next) {
		return Campaign{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, next)
	}

	updated, err := s.repo.UpdateStatus(ctx, tx, id, next)
	if err != nil {
		return Campaign{}, err
	}

	payload := map[string]any{
		"previous_status": current.Status,
		"next_status":     next,
	}
	if err := appendEvent(ctx, tx, id, EventStatusChanged, payload); err != nil {
		return Campaign{}, err
	}
	if err := enqueueOutbox(ctx, tx, TopicCampaignStatus, map[string]any{
		"campaign_id": id,
		"previous":    current.Status,
		"next":        next,
	}); err != nil {
		return Campaign{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Campaign{}, fmt.Errorf("campaign: commit transition: %w", err)
	}
	return updated, nil
}
