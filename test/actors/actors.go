package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"adpilot/campaign"
)

// tolerable reports whether an error is an expected outcome under contention
// rather than a bug. Chaos kills backends mid-flight, so transport-level
// failures are also absorbed; the oracles are what detect real corruption.
func tolerable(err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, campaign.ErrAlreadyContacted),
		errors.Is(err, campaign.ErrLeadNotEnrolled),
		errors.Is(err, campaign.ErrInvalidTransition),
		errors.Is(err, campaign.ErrArchived),
		errors.Is(err, campaign.ErrNotFound):
		return true
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	default:
		// connection reset, serialization failure and friends
		return true
	}
}

// Enroller repeatedly submits overlapping batches of leads. Most submissions
// collide with existing enrollments; total_contacts must only grow by the rows
// actually inserted.
func Enroller(ctx context.Context, svc *campaign.Service, campaignID string, leadIDs []string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		start := rand.Intn(len(leadIDs))
		end := start + 1 + rand.Intn(len(leadIDs)-start)
		_, err := svc.AddLeads(ctx, campaign.AddLeadsParams{
			CampaignID: campaignID,
			LeadIDs:    leadIDs[start:end],
		})
		if !tolerable(err) {
			return fmt.Errorf("enroller: %w", err)
		}
		time.Sleep(time.Duration(10+rand.Intn(30)) * time.Millisecond)
	}
}

// Recorder hammers contact recording for random leads. Duplicate reports
// without the override must be rejected; with it, counters must reconcile.
func Recorder(ctx context.Context, svc *campaign.Service, campaignID string, leadIDs []string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		outcome := campaign.OutcomeFailure
		if rand.Intn(2) == 0 {
			outcome = campaign.OutcomeSuccess
		}
		_, err := svc.RecordContactResult(ctx, campaign.RecordContactParams{
			CampaignID:     campaignID,
			LeadID:         leadIDs[rand.Intn(len(leadIDs))],
			Status:         outcome,
			AllowRecontact: rand.Intn(4) == 0,
		})
		if !tolerable(err) {
			return fmt.Errorf("recorder: %w", err)
		}
		time.Sleep(time.Duration(5+rand.Intn(20)) * time.Millisecond)
	}
}

// LifecycleFlipper bounces the campaign between ACTIVE and PAUSED while the
// other actors write through it. Rejected transitions are expected.
func LifecycleFlipper(ctx context.Context, svc *campaign.Service, campaignID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		var err error
		if rand.Intn(2) == 0 {
			_, err = svc.Pause(ctx, campaignID)
		} else {
			_, err = svc.Launch(ctx, campaignID)
		}
		if !tolerable(err) {
			return fmt.Errorf("lifecycle flipper: %w", err)
		}
		time.Sleep(time.Duration(50+rand.Intn(100)) * time.Millisecond)
	}
}

// StatsReader keeps reading campaign details and global stats, checking the
// derived rate stays within bounds while writers race.
func StatsReader(ctx context.Context, svc *campaign.Service, campaignID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		detail, err := svc.Get(ctx, campaignID)
		if err == nil {
			rate := detail.Campaign.SuccessRate()
			if rate < 0 || rate > 100 {
				return fmt.Errorf("stats reader: rate out of bounds: %v", rate)
			}
		} else if !tolerable(err) {
			return fmt.Errorf("stats reader get: %w", err)
		}

		if _, err := svc.Stats(ctx); !tolerable(err) {
			return fmt.Errorf("stats reader global: %w", err)
		}
		time.Sleep(time.Duration(30+rand.Intn(50)) * time.Millisecond)
	}
}

// OutboxWorker consumes pending outbox messages with SKIP LOCKED and marks
// them processed, occasionally simulating a delivery failure.
func OutboxWorker(ctx context.Context, pool *pgxpool.Pool, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			continue
		}
		rows, err := tx.Query(ctx, `SELECT id FROM outbox WHERE status='pending' ORDER BY created_at FOR UPDATE SKIP LOCKED LIMIT 10`)
		if err != nil {
			_ = tx.Rollback(ctx)
			time.Sleep(50 * time.Millisecond)
			continue
		}
		ids := make([]string, 0, 10)
		for rows.Next() {
			var id string
			_ = rows.Scan(&id)
			ids = append(ids, id)
		}
		rows.Close()
		for _, id := range ids {
			if rand.Intn(10) == 0 {
				_, _ = tx.Exec(ctx, `UPDATE outbox SET attempts=attempts+1, last_attempt=NOW() WHERE id=$1`, id)
				continue
			}
			_, _ = tx.Exec(ctx, `UPDATE outbox SET status='processed', last_attempt=NOW() WHERE id=$1`, id)
		}
		_ = tx.Commit(ctx)
		time.Sleep(100 * time.Millisecond)
	}
}
