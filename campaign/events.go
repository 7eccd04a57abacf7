package campaign

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Event types appended to the campaign activity log.
const (
	EventCampaignCreated = "CAMPAIGN_CREATED"
	EventStatusChanged   = "CAMPAIGN_STATUS_CHANGED"
	EventLeadsEnrolled   = "LEADS_ENROLLED"
	EventContactRecorded = "CONTACT_RECORDED"
)

// Outbox topics published for downstream delivery.
const (
	TopicCampaignCreated = "campaign.created"
	TopicCampaignStatus  = "campaign.status_changed"
	TopicLeadsEnrolled   = "campaign.leads_enrolled"
	TopicContactRecorded = "campaign.contact_recorded"
)

// appendEvent writes an activity-log entry inside the caller's transaction so
// the log never diverges from the state it describes.
func appendEvent(ctx context.Context, tx pgx.Tx, campaignID, eventType string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("campaign: marshal event payload: %w", err)
	}
	const q = `
        INSERT INTO campaign_events (campaign_id, type, payload)
        VALUES ($1, $2, $3::jsonb)
    `
	if _, err := tx.Exec(ctx, q, campaignID, eventType, body); err != nil {
		return fmt.Errorf("campaign: insert event: %w", err)
	}
	return nil
}

func enqueueOutbox(ctx context.Context, tx pgx.Tx, topic string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("campaign: marshal outbox payload: %w", err)
	}
	const q = `INSERT INTO outbox (topic, payload) VALUES ($1, $2::jsonb)`
	if _, err := tx.Exec(ctx, q, topic, body); err != nil {
		return fmt.Errorf("campaign: enqueue outbox: %w", err)
	}
	return nil
}
