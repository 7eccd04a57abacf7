package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

// All returns invariant queries that must produce zero rows at any point in
// time. Each runs as a single statement so it sees one consistent snapshot.
func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_counter_order",
			SQL: `SELECT id, total_contacts, completed_contacts, successful_contacts
                  FROM campaigns
                  WHERE successful_contacts < 0
                     OR successful_contacts > completed_contacts
                     OR completed_contacts > total_contacts`,
		},
		{
			Name: "O2_total_matches_enrollments",
			SQL: `SELECT c.id, c.total_contacts, COUNT(cl.lead_id) AS enrolled
                  FROM campaigns c
                  LEFT JOIN campaign_leads cl ON cl.campaign_id = c.id
                  GROUP BY c.id
                  HAVING c.total_contacts <> COUNT(cl.lead_id)`,
		},
		{
			Name: "O3_completed_matches_contacted",
			SQL: `SELECT c.id, c.completed_contacts, COUNT(cl.lead_id) FILTER (WHERE cl.contacted_at IS NOT NULL) AS contacted
                  FROM campaigns c
                  LEFT JOIN campaign_leads cl ON cl.campaign_id = c.id
                  GROUP BY c.id
                  HAVING c.completed_contacts <> COUNT(cl.lead_id) FILTER (WHERE cl.contacted_at IS NOT NULL)`,
		},
		{
			Name: "O4_successful_matches_outcomes",
			SQL: `SELECT c.id, c.successful_contacts, COUNT(cl.lead_id) FILTER (WHERE cl.status = 'SUCCESS') AS successes
                  FROM campaigns c
                  LEFT JOIN campaign_leads cl ON cl.campaign_id = c.id
                  GROUP BY c.id
                  HAVING c.successful_contacts <> COUNT(cl.lead_id) FILTER (WHERE cl.status = 'SUCCESS')`,
		},
		{
			Name: "O5_contacted_at_consistent",
			SQL: `SELECT campaign_id, lead_id, status, contacted_at FROM campaign_leads
                  WHERE (status = 'PENDING' AND contacted_at IS NOT NULL)
                     OR (status <> 'PENDING' AND contacted_at IS NULL)`,
		},
		{
			Name: "O6_no_exit_from_archived",
			SQL: `SELECT id, campaign_id, payload FROM campaign_events
                  WHERE type = 'CAMPAIGN_STATUS_CHANGED'
                    AND payload->>'previous_status' = 'ARCHIVED'`,
		},
		{
			Name: "O7_stale_outbox",
			SQL: `SELECT id, topic, attempts FROM outbox
                  WHERE status NOT IN ('processed', 'dead')
                    AND now() - created_at > interval '5 minutes'`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row
// text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
