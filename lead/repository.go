package lead

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound signals the requested lead does not exist.
	ErrNotFound = errors.New("lead: not found")
	// ErrDuplicateEmail signals the email is already registered.
	ErrDuplicateEmail = errors.New("lead: email already exists")
)

// Repository provides data access for leads.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateParams contains write parameters for new leads.
type CreateParams struct {
	FullName string
	Email    string
	Phone    *string
	Company  *string
	Score    float64
}

func (r *Repository) Create(ctx context.Context, params CreateParams) (Lead, error) {
	const query = `
		INSERT INTO leads (full_name, email, phone, company, score)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, full_name, email, phone, company, score, created_at
	`
	l, err := scanLead(r.pool.QueryRow(ctx, query,
		params.FullName,
		params.Email,
		params.Phone,
		params.Company,
		params.Score,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Lead{}, ErrDuplicateEmail
		}
		return Lead{}, fmt.Errorf("lead: insert: %w", err)
	}
	return l, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (Lead, error) {
	const query = `
		SELECT id, full_name, email, phone, company, score, created_at
		FROM leads
		WHERE id = $1
	`
	l, err := scanLead(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, ErrNotFound
		}
		return Lead{}, fmt.Errorf("lead: query by id: %w", err)
	}
	return l, nil
}

// List fetches up to limit leads ordered by descending score.
func (r *Repository) List(ctx context.Context, limit int) ([]Lead, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	const query = `
		SELECT id, full_name, email, phone, company, score, created_at
		FROM leads
		ORDER BY score DESC, created_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("lead: list: %w", err)
	}
	defer rows.Close()

	leads := make([]Lead, 0, limit)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("lead: scan: %w", err)
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lead: iterate: %w", err)
	}
	return leads, nil
}

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	return l, row.Scan(
		&l.ID,
		&l.FullName,
		&l.Email,
		&l.Phone,
		&l.Company,
		&l.Score,
		&l.CreatedAt,
	)
}
