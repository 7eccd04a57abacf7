package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"adpilot/auth"
	"adpilot/billing"
	"adpilot/campaign"
	"adpilot/lead"
)

type ctxKey int

const (
	ctxKeyUserID ctxKey = iota
	ctxKeyRole
)

// Service interfaces are narrowed per consumer so handler tests can stub them.
type campaignService interface {
	Create(ctx context.Context, params campaign.CreateParams) (campaign.Campaign, error)
	Get(ctx context.Context, id string) (campaign.Detail, error)
	List(ctx context.Context, filters campaign.Filters) (campaign.ListResult, error)
	Update(ctx context.Context, id string, params campaign.UpdateParams) (campaign.Campaign, error)
	Launch(ctx context.Context, id string) (campaign.Campaign, error)
	Pause(ctx context.Context, id string) (campaign.Campaign, error)
	Archive(ctx context.Context, id string) (campaign.Campaign, error)
	AddLeads(ctx context.Context, params campaign.AddLeadsParams) (campaign.EnrollmentResult, error)
	RecordContactResult(ctx context.Context, params campaign.RecordContactParams) (campaign.ContactAck, error)
	Stats(ctx context.Context) (campaign.Stats, error)
}

type leadService interface {
	Create(ctx context.Context, params lead.CreateParams) (lead.Lead, error)
	List(ctx context.Context, limit int) ([]lead.Lead, error)
}

type authService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.User, error)
	Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error)
	VerifyToken(token string) (string, auth.Role, error)
	GetUserByID(ctx context.Context, userID string) (*auth.User, error)
}

type billingService interface {
	Usage(ctx context.Context, planName string) (billing.Usage, error)
}

// Server routes HTTP requests to the domain services.
type Server struct {
	campaignService campaignService
	leadService     leadService
	authService     authService
	billingService  billingService
	logger          *zap.Logger
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/auth/register", s.handleRegister)
	mux.HandleFunc("/api/auth/login", s.handleLogin)

	mux.HandleFunc("/api/campaigns", s.requireAuth(s.handleCampaigns))
	mux.HandleFunc("/api/campaigns/", s.requireAuth(s.handleCampaignDetail))
	mux.HandleFunc("/api/leads", s.requireAuth(s.handleLeads))
	mux.HandleFunc("/api/billing/usage", s.requireAuth(s.handleBillingUsage))

	return s.logRequests(mux)
}

// requireAuth validates the bearer token and stashes the caller's identity and
// role in the request context. Role enforcement happens in the handlers.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		userID, role, err := s.authService.VerifyToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUserID, userID)
		ctx = context.WithValue(ctx, ctxKeyRole, role)
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if s.logger != nil {
			s.logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
			)
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func roleFromContext(ctx context.Context) auth.Role {
	role, _ := ctx.Value(ctxKeyRole).(auth.Role)
	return role
}

func canMutate(role auth.Role) bool {
	return role == auth.RoleAdmin || role == auth.RoleMarketer
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps domain sentinels onto HTTP statuses. Unknown errors
// become an opaque 500; the detail is logged, never leaked.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, campaign.ErrNotFound),
		errors.Is(err, campaign.ErrLeadNotEnrolled),
		errors.Is(err, lead.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, campaign.ErrAlreadyContacted),
		errors.Is(err, lead.ErrDuplicateEmail),
		errors.Is(err, auth.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, campaign.ErrMissingRequiredFields),
		errors.Is(err, campaign.ErrValidation),
		errors.Is(err, campaign.ErrNoLeads),
		errors.Is(err, campaign.ErrInvalidOutcome),
		errors.Is(err, campaign.ErrInvalidTransition),
		errors.Is(err, campaign.ErrArchived),
		errors.Is(err, campaign.ErrUnknownLead),
		errors.Is(err, billing.ErrUnknownPlan),
		errors.Is(err, auth.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		if s.logger != nil {
			s.logger.Error("internal error", zap.Error(err))
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
