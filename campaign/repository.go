package campaign

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound signals the requested campaign does not exist.
	ErrNotFound = errors.New("campaign: not found")
	// ErrLeadNotEnrolled signals no association row exists for (campaign, lead).
	ErrLeadNotEnrolled = errors.New("campaign: lead not enrolled")
	// ErrUnknownLead signals enrollment referenced a lead id with no lead row.
	ErrUnknownLead = errors.New("campaign: unknown lead id")
)

// Repository defines the data access required by the service. Write methods
// take the caller's transaction so multi-step flows commit atomically.
type Repository interface {
	Create(ctx context.Context, tx pgx.Tx, c Campaign) (Campaign, error)
	Get(ctx context.Context, id string) (Campaign, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Campaign, error)
	List(ctx context.Context, filters Filters) ([]Campaign, int, error)
	Update(ctx context.Context, tx pgx.Tx, id string, params UpdateParams) (Campaign, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status Status) (Campaign, error)
	EnrollLeads(ctx context.Context, tx pgx.Tx, campaignID string, leadIDs []string) (int, error)
	AddTotalContacts(ctx context.Context, tx pgx.Tx, campaignID string, delta int) error
	GetEnrollmentForUpdate(ctx context.Context, tx pgx.Tx, campaignID, leadID string) (Enrollment, error)
	RecordOutcome(ctx context.Context, tx pgx.Tx, params RecordOutcomeParams) (Enrollment, error)
	BumpContactCounters(ctx context.Context, tx pgx.Tx, campaignID string, completedDelta, successfulDelta int) (Campaign, error)
	ListEnrollments(ctx context.Context, campaignID string) ([]Enrollment, error)
	Stats(ctx context.Context) (Stats, error)
}

// Filters narrows and pages campaign listings.
type Filters struct {
	Status Status
	Type   string
	Page   int
	Limit  int
}

// UpdateParams carries the mutable metadata for partial updates. Nil fields
// keep their current value.
type UpdateParams struct {
	Name               *string
	Type               *string
	TargetSegment      *string
	Goal               *string
	ScriptInstructions *string
	MaxContactsPerDay  *int
	Priority           *int
}

// RecordOutcomeParams carries the association-row write for a contact result.
type RecordOutcomeParams struct {
	CampaignID  string
	LeadID      string
	Status      Outcome
	Result      *string
	Notes       *string
	ContactedAt time.Time
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const campaignColumns = `id, name, type, target_segment, goal, script_instructions, status,
    max_contacts_per_day, priority, total_contacts, completed_contacts, successful_contacts,
    created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, tx pgx.Tx, c Campaign) (Campaign, error) {
	query := fmt.Sprintf(`
        INSERT INTO campaigns (id, name, type, target_segment, goal, script_instructions, status,
            max_contacts_per_day, priority)
        VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING %s
    `, campaignColumns)

	row := tx.QueryRow(ctx, query,
		c.ID,
		c.Name,
		c.Type,
		c.TargetSegment,
		c.Goal,
		c.ScriptInstructions,
		c.Status,
		c.MaxContactsPerDay,
		c.Priority,
	)
	created, err := scanCampaign(row)
	if err != nil {
		return Campaign{}, fmt.Errorf("campaign: insert: %w", err)
	}
	return created, nil
}

func (r *PGRepository) Get(ctx context.Context, id string) (Campaign, error) {
	query := fmt.Sprintf(`SELECT %s FROM campaigns WHERE id = $1`, campaignColumns)
	c, err := scanCampaign(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Campaign{}, ErrNotFound
		}
		return Campaign{}, fmt.Errorf("campaign: get: %w", err)
	}
	return c, nil
}

func (r *PGRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Campaign, error) {
	query := fmt.Sprintf(`SELECT %s FROM campaigns WHERE id = $1 FOR UPDATE`, campaignColumns)
	c, err := scanCampaign(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Campaign{}, ErrNotFound
		}
		return Campaign{}, fmt.Errorf("campaign: get for update: %w", err)
	}
	return c, nil
}

func (r *PGRepository) List(ctx context.Context, filters Filters) ([]Campaign, int, error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.Limit <= 0 || filters.Limit > 100 {
		filters.Limit = 20
	}

	where := []string{"1=1"}
	args := []any{}

	if filters.Status != "" {
		where = append(where, fmt.Sprintf("status=$%d", len(args)+1))
		args = append(args, filters.Status)
	}
	if filters.Type != "" {
		where = append(where, fmt.Sprintf("type=$%d", len(args)+1))
		args = append(args, filters.Type)
	}

	whereClause := " WHERE " + strings.Join(where, " AND ")

	query := fmt.Sprintf(`SELECT %s FROM campaigns%s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		campaignColumns, whereClause, filters.Limit, (filters.Page-1)*filters.Limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("campaign: query list: %w", err)
	}
	defer rows.Close()

	list := []Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("campaign: iterate list: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM campaigns%s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("campaign: count list: %w", err)
	}

	return list, total, nil
}

func (r *PGRepository) Update(ctx context.Context, tx pgx.Tx, id string, params UpdateParams) (Campaign, error) {
	query := fmt.Sprintf(`
        UPDATE campaigns
        SET name = COALESCE($2, name),
            type = COALESCE($3, type),
            target_segment = COALESCE($4, target_segment),
            goal = COALESCE($5, goal),
            script_instructions = COALESCE($6, script_instructions),
            max_contacts_per_day = COALESCE($7, max_contacts_per_day),
            priority = COALESCE($8, priority),
            updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, campaignColumns)

	row := tx.QueryRow(ctx, query, id,
		params.Name,
		params.Type,
		params.TargetSegment,
		params.Goal,
		params.ScriptInstructions,
		params.MaxContactsPerDay,
		params.Priority,
	)
	c, err := scanCampaign(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Campaign{}, ErrNotFound
		}
		return Campaign{}, fmt.Errorf("campaign: update: %w", err)
	}
	return c, nil
}

func (r *PGRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status Status) (Campaign, error) {
	query := fmt.Sprintf(`
        UPDATE campaigns SET status = $2, updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, campaignColumns)

	c, err := scanCampaign(tx.QueryRow(ctx, query, id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Campaign{}, ErrNotFound
		}
		return Campaign{}, fmt.Errorf("campaign: update status: %w", err)
	}
	return c, nil
}

// EnrollLeads inserts one association row per lead id, skipping pairs that
// already exist, and returns the number of rows actually inserted.
func (r *PGRepository) EnrollLeads(ctx context.Context, tx pgx.Tx, campaignID string, leadIDs []string) (int, error) {
	const query = `
        INSERT INTO campaign_leads (campaign_id, lead_id, status)
        SELECT $1, unnest($2::uuid[]), 'PENDING'
        ON CONFLICT (campaign_id, lead_id) DO NOTHING
    `

	tag, err := tx.Exec(ctx, query, campaignID, leadIDs)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return 0, ErrUnknownLead
		}
		return 0, fmt.Errorf("campaign: enroll leads: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *PGRepository) AddTotalContacts(ctx context.Context, tx pgx.Tx, campaignID string, delta int) error {
	const query = `
        UPDATE campaigns
        SET total_contacts = total_contacts + $2, updated_at = now()
        WHERE id = $1
    `
	if _, err := tx.Exec(ctx, query, campaignID, delta); err != nil {
		return fmt.Errorf("campaign: add total contacts: %w", err)
	}
	return nil
}

func (r *PGRepository) GetEnrollmentForUpdate(ctx context.Context, tx pgx.Tx, campaignID, leadID string) (Enrollment, error) {
	const query = `
        SELECT campaign_id, lead_id, status, result, notes, contacted_at, created_at
        FROM campaign_leads
        WHERE campaign_id = $1 AND lead_id = $2
        FOR UPDATE
    `
	e, err := scanEnrollment(tx.QueryRow(ctx, query, campaignID, leadID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Enrollment{}, ErrLeadNotEnrolled
		}
		return Enrollment{}, fmt.Errorf("campaign: get enrollment for update: %w", err)
	}
	return e, nil
}

func (r *PGRepository) RecordOutcome(ctx context.Context, tx pgx.Tx, params RecordOutcomeParams) (Enrollment, error) {
	const query = `
        UPDATE campaign_leads
        SET status = $3, result = $4, notes = $5, contacted_at = $6
        WHERE campaign_id = $1 AND lead_id = $2
        RETURNING campaign_id, lead_id, status, result, notes, contacted_at, created_at
    `
	e, err := scanEnrollment(tx.QueryRow(ctx, query,
		params.CampaignID,
		params.LeadID,
		params.Status,
		params.Result,
		params.Notes,
		params.ContactedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Enrollment{}, ErrLeadNotEnrolled
		}
		return Enrollment{}, fmt.Errorf("campaign: record outcome: %w", err)
	}
	return e, nil
}

// BumpContactCounters applies the counter deltas as in-database arithmetic and
// returns the campaign with its post-update counters.
func (r *PGRepository) BumpContactCounters(ctx context.Context, tx pgx.Tx, campaignID string, completedDelta, successfulDelta int) (Campaign, error) {
	query := fmt.Sprintf(`
        UPDATE campaigns
        SET completed_contacts = completed_contacts + $2,
            successful_contacts = successful_contacts + $3,
            updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, campaignColumns)

	c, err := scanCampaign(tx.QueryRow(ctx, query, campaignID, completedDelta, successfulDelta))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Campaign{}, ErrNotFound
		}
		return Campaign{}, fmt.Errorf("campaign: bump contact counters: %w", err)
	}
	return c, nil
}

func (r *PGRepository) ListEnrollments(ctx context.Context, campaignID string) ([]Enrollment, error) {
	const query = `
        SELECT campaign_id, lead_id, status, result, notes, contacted_at, created_at
        FROM campaign_leads
        WHERE campaign_id = $1
        ORDER BY created_at ASC
    `
	rows, err := r.pool.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("campaign: list enrollments: %w", err)
	}
	defer rows.Close()

	list := []Enrollment{}
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("campaign: iterate enrollments: %w", err)
	}
	return list, nil
}

func (r *PGRepository) Stats(ctx context.Context) (Stats, error) {
	const query = `
        SELECT COUNT(*) FILTER (WHERE status = 'ACTIVE'),
               COALESCE(SUM(total_contacts), 0),
               COALESCE(SUM(completed_contacts), 0),
               COALESCE(SUM(successful_contacts), 0)
        FROM campaigns
    `
	var s Stats
	err := r.pool.QueryRow(ctx, query).Scan(
		&s.ActiveCampaigns,
		&s.TotalContacts,
		&s.CompletedContacts,
		&s.SuccessfulContacts,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("campaign: stats: %w", err)
	}
	return s, nil
}

func scanCampaign(row pgx.Row) (Campaign, error) {
	var c Campaign
	return c, row.Scan(
		&c.ID,
		&c.Name,
		&c.Type,
		&c.TargetSegment,
		&c.Goal,
		&c.ScriptInstructions,
		&c.Status,
		&c.MaxContactsPerDay,
		&c.Priority,
		&c.TotalContacts,
		&c.CompletedContacts,
		&c.SuccessfulContacts,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
}

func scanEnrollment(row pgx.Row) (Enrollment, error) {
	var e Enrollment
	return e, row.Scan(
		&e.CampaignID,
		&e.LeadID,
		&e.Status,
		&e.Result,
		&e.Notes,
		&e.ContactedAt,
		&e.CreatedAt,
	)
}
