package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	// ErrMissingRequiredFields signals create was called without name, type or
	// target segment.
	ErrMissingRequiredFields = errors.New("campaign: name, type and target_segment are required")
	// ErrArchived signals a mutation was attempted against an archived campaign.
	ErrArchived = errors.New("campaign: campaign is archived")
	// ErrValidation signals a malformed request rejected before any write.
	ErrValidation = errors.New("campaign: invalid request")
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Service exposes the campaign contact-tracking workflow. Every multi-step
// write runs inside a single transaction started here.
type Service struct {
	pool        TxBeginner
	repo        Repository
	idGenerator func() string
	now         func() time.Time
}

func NewService(pool TxBeginner, repo Repository) *Service {
	return &Service{
		pool:        pool,
		repo:        repo,
		idGenerator: func() string { return uuid.NewString() },
		now:         time.Now,
	}
}

func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateParams carries caller-supplied campaign metadata.
type CreateParams struct {
	Name               string
	Type               string
	TargetSegment      string
	Goal               string
	ScriptInstructions string
	MaxContactsPerDay  int
	Priority           int
}

// Create inserts a new campaign in DRAFT and logs the creation event in the
// same transaction.
func (s *Service) Create(ctx context.Context, params CreateParams) (Campaign, error) {
	if params.Name == "" || params.Type == "" || params.TargetSegment == "" {
		return Campaign{}, ErrMissingRequiredFields
	}
	if params.MaxContactsPerDay < 0 || params.Priority < 0 {
		return Campaign{}, fmt.Errorf("%w: negative scheduling hints", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Campaign{}, fmt.Errorf("campaign: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	created, err := s.repo.Create(ctx, tx, Campaign{
		ID:                 s.idGenerator(),
		Name:               params.Name,
		Type:               params.Type,
		TargetSegment:      params.TargetSegment,
		Goal:               params.Goal,
		ScriptInstructions: params.ScriptInstructions,
		Status:             StatusDraft,
		MaxContactsPerDay:  params.MaxContactsPerDay,
		Priority:           params.Priority,
	})
	if err != nil {
		return Campaign{}, err
	}

	payload := map[string]any{
		"name":           created.Name,
		"type":           created.Type,
		"target_segment": created.TargetSegment,
	}
	if err := appendEvent(ctx, tx, created.ID, EventCampaignCreated, payload); err != nil {
		return Campaign{}, err
	}
	if err := enqueueOutbox(ctx, tx, TopicCampaignCreated, map[string]any{"campaign_id": created.ID}); err != nil {
		return Campaign{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Campaign{}, fmt.Errorf("campaign: commit create: %w", err)
	}
	return created, nil
}

// Detail bundles a campaign with its enrolled leads.
type Detail struct {
	Campaign    Campaign
	Enrollments []Enrollment
}

func (s *Service) Get(ctx context.Context, id string) (Detail, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	enrollments, err := s.repo.ListEnrollments(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Campaign: c, Enrollments: enrollments}, nil
}

// ListResult pages campaigns alongside the unfiltered-match total.
type ListResult struct {
	Items []Campaign
	Total int
}

func (s *Service) List(ctx context.Context, filters Filters) (ListResult, error) {
	if filters.Status != "" && !validStatus(filters.Status) {
		return ListResult{}, fmt.Errorf("%w: unknown status filter %q", ErrValidation, filters.Status)
	}
	items, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total}, nil
}

// Update applies a partial metadata update. Archived campaigns are immutable.
func (s *Service) Update(ctx context.Context, id string, params UpdateParams) (Campaign, error) {
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
	if current.Status == StatusArchived {
		return Campaign{}, ErrArchived
	}

	updated, err := s.repo.Update(ctx, tx, id, params)
	if err != nil {
		return Campaign{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Campaign{}, fmt.Errorf("campaign: commit update: %w", err)
	}
	return updated, nil
}

// Stats aggregates counters across all campaigns. The global rate is weighted
// from the summed counters rather than averaging per-campaign rates.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.repo.Stats(ctx)
}
