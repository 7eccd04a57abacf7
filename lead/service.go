package lead

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidLead signals a lead payload that failed validation.
var ErrInvalidLead = errors.New("lead: invalid lead")

// Store abstracts repository operations for the service.
type Store interface {
	Create(ctx context.Context, params CreateParams) (Lead, error)
	GetByID(ctx context.Context, id string) (Lead, error)
	List(ctx context.Context, limit int) ([]Lead, error)
}

// Service exposes business-level lead operations.
type Service struct {
	repo Store
}

func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, params CreateParams) (Lead, error) {
	params.FullName = strings.TrimSpace(params.FullName)
	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	if params.FullName == "" || params.Email == "" {
		return Lead{}, fmt.Errorf("%w: full_name and email are required", ErrInvalidLead)
	}
	if !strings.Contains(params.Email, "@") {
		return Lead{}, fmt.Errorf("%w: bad email %q", ErrInvalidLead, params.Email)
	}
	if params.Score < 0 || params.Score > 100 {
		return Lead{}, fmt.Errorf("%w: score must be between 0 and 100", ErrInvalidLead)
	}
	return s.repo.Create(ctx, params)
}

func (s *Service) GetByID(ctx context.Context, id string) (Lead, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit int) ([]Lead, error) {
	return s.repo.List(ctx, limit)
}
