package billing

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Counts bundles the live consumption numbers read from the datastore.
type Counts struct {
	Campaigns     int
	Leads         int
	ContactsToday int
}

// Repository provides read access to usage counters.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CurrentCounts reads consumption in one round trip. Archived campaigns do not
// count against the quota.
func (r *Repository) CurrentCounts(ctx context.Context) (Counts, error) {
	const query = `
		SELECT (SELECT COUNT(*) FROM campaigns WHERE status <> 'ARCHIVED'),
		       (SELECT COUNT(*) FROM leads),
		       (SELECT COUNT(*) FROM campaign_leads WHERE contacted_at >= date_trunc('day', now()))
	`
	var c Counts
	if err := r.pool.QueryRow(ctx, query).Scan(&c.Campaigns, &c.Leads, &c.ContactsToday); err != nil {
		return Counts{}, fmt.Errorf("billing: current counts: %w", err)
	}
	return c, nil
}
