package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"adpilot/auth"
	"adpilot/billing"
	"adpilot/campaign"
	"adpilot/lead"
)

type stubCampaignService struct {
	campaign   campaign.Campaign
	detail     campaign.Detail
	list       campaign.ListResult
	ack        campaign.ContactAck
	enrollment campaign.EnrollmentResult
	stats      campaign.Stats
	err        error
}

func (s *stubCampaignService) Create(_ context.Context, _ campaign.CreateParams) (campaign.Campaign, error) {
	return s.campaign, s.err
}

func (s *stubCampaignService) Get(_ context.Context, _ string) (campaign.Detail, error) {
	return s.detail, s.err
}

func (s *stubCampaignService) List(_ context.Context, _ campaign.Filters) (campaign.ListResult, error) {
	return s.list, s.err
}

func (s *stubCampaignService) Update(_ context.Context, _ string, _ campaign.UpdateParams) (campaign.Campaign, error) {
	return s.campaign, s.err
}

func (s *stubCampaignService) Launch(_ context.Context, _ string) (campaign.Campaign, error) {
	return s.campaign, s.err
}

func (s *stubCampaignService) Pause(_ context.Context, _ string) (campaign.Campaign, error) {
	return s.campaign, s.err
}

func (s *stubCampaignService) Archive(_ context.Context, _ string) (campaign.Campaign, error) {
	return s.campaign, s.err
}

func (s *stubCampaignService) AddLeads(_ context.Context, _ campaign.AddLeadsParams) (campaign.EnrollmentResult, error) {
	return s.enrollment, s.err
}

func (s *stubCampaignService) RecordContactResult(_ context.Context, _ campaign.RecordContactParams) (campaign.ContactAck, error) {
	return s.ack, s.err
}

func (s *stubCampaignService) Stats(_ context.Context) (campaign.Stats, error) {
	return s.stats, s.err
}

type stubLeadService struct {
	lead  lead.Lead
	leads []lead.Lead
	err   error
}

func (s *stubLeadService) Create(_ context.Context, _ lead.CreateParams) (lead.Lead, error) {
	return s.lead, s.err
}

func (s *stubLeadService) List(_ context.Context, _ int) ([]lead.Lead, error) {
	return s.leads, s.err
}

type stubAuthService struct {
	user        *auth.User
	loginResult auth.LoginResult
	userID      string
	role        auth.Role
	err         error
}

func (s *stubAuthService) Register(_ context.Context, _ auth.RegisterRequest) (*auth.User, error) {
	return s.user, s.err
}

func (s *stubAuthService) Login(_ context.Context, _ auth.LoginRequest) (auth.LoginResult, error) {
	return s.loginResult, s.err
}

func (s *stubAuthService) VerifyToken(_ string) (string, auth.Role, error) {
	return s.userID, s.role, s.err
}

func (s *stubAuthService) GetUserByID(_ context.Context, _ string) (*auth.User, error) {
	return s.user, s.err
}

type stubBillingService struct {
	usage billing.Usage
	err   error
}

func (s *stubBillingService) Usage(_ context.Context, _ string) (billing.Usage, error) {
	return s.usage, s.err
}

func asMarketer(req *http.Request) *http.Request {
	ctx := context.WithValue(req.Context(), ctxKeyUserID, "user-1")
	ctx = context.WithValue(ctx, ctxKeyRole, auth.RoleMarketer)
	return req.WithContext(ctx)
}

func TestHandleCampaigns_List(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	server := &Server{
		campaignService: &stubCampaignService{
			list: campaign.ListResult{
				Items: []campaign.Campaign{
					{
						ID:                 "c1",
						Name:               "Q1 Outreach",
						Type:               "cold-call",
						TargetSegment:      "smb",
						Status:             campaign.StatusActive,
						TotalContacts:      10,
						CompletedContacts:  10,
						SuccessfulContacts: 4,
						CreatedAt:          now,
						UpdatedAt:          now,
					},
				},
				Total: 1,
			},
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/campaigns?page=1&limit=20", nil)
	rec := httptest.NewRecorder()

	server.handleCampaigns(rec, asMarketer(req))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload struct {
		Items      []campaignResponse `json:"items"`
		Total      int                `json:"total"`
		Page       int                `json:"page"`
		TotalPages int                `json:"totalPages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if len(payload.Items) != 1 || payload.Total != 1 || payload.TotalPages != 1 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.Items[0].SuccessRate != 40 {
		t.Fatalf("expected successRate 40, got %v", payload.Items[0].SuccessRate)
	}
}

func TestHandleCreateCampaign_ValidationError(t *testing.T) {
	server := &Server{
		campaignService: &stubCampaignService{err: campaign.ErrMissingRequiredFields},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/campaigns", strings.NewReader(`{"name":""}`))
	rec := httptest.NewRecorder()

	server.handleCampaigns(rec, asMarketer(req))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleCreateCampaign_ForbidViewerRole(t *testing.T) {
	server := &Server{campaignService: &stubCampaignService{}}

	req := httptest.NewRequest(http.MethodPost, "/api/campaigns", strings.NewReader(`{}`))
	ctx := context.WithValue(req.Context(), ctxKeyUserID, "user-1")
	ctx = context.WithValue(ctx, ctxKeyRole, auth.RoleViewer)
	rec := httptest.NewRecorder()

	server.handleCampaigns(rec, req.WithContext(ctx))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestHandleCampaigns_WrongMethod(t *testing.T) {
	server := &Server{campaignService: &stubCampaignService{}}

	req := httptest.NewRequest(http.MethodDelete, "/api/campaigns", nil)
	rec := httptest.NewRecorder()

	server.handleCampaigns(rec, asMarketer(req))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestHandleGetCampaign_NotFound(t *testing.T) {
	server := &Server{
		campaignService: &stubCampaignService{err: campaign.ErrNotFound},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/campaigns/missing", nil)
	rec := httptest.NewRecorder()

	server.handleCampaignDetail(rec, asMarketer(req))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleLaunch_InvalidTransition(t *testing.T) {
	server := &Server{
		campaignService: &stubCampaignService{err: campaign.ErrInvalidTransition},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/campaigns/c1/launch", nil)
	rec := httptest.NewRecorder()

	server.handleCampaignDetail(rec, asMarketer(req))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleContactResult_AlreadyContacted(t *testing.T) {
	server := &Server{
		campaignService: &stubCampaignService{err: campaign.ErrAlreadyContacted},
	}

	body := strings.NewReader(`{"leadId":"l1","status":"SUCCESS"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/campaigns/c1/contact-result", body)
	rec := httptest.NewRecorder()

	server.handleCampaignDetail(rec, asMarketer(req))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestHandleContactResult_MissingLeadID(t *testing.T) {
	server := &Server{
		campaignService: &stubCampaignService{
			err: fmt.Errorf("%w: missing campaign or lead id", campaign.ErrValidation),
		},
	}

	body := strings.NewReader(`{"status":"SUCCESS"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/campaigns/c1/contact-result", body)
	rec := httptest.NewRecorder()

	server.handleCampaignDetail(rec, asMarketer(req))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleContactResult_Success(t *testing.T) {
	server := &Server{
		campaignService: &stubCampaignService{
			ack: campaign.ContactAck{
				Enrollment: campaign.Enrollment{
					CampaignID: "c1",
					LeadID:     "l1",
					Status:     campaign.OutcomeSuccess,
				},
				TotalContacts:      5,
				CompletedContacts:  2,
				SuccessfulContacts: 1,
				SuccessRate:        50,
			},
		},
	}

	body := strings.NewReader(`{"leadId":"l1","status":"SUCCESS"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/campaigns/c1/contact-result", body)
	rec := httptest.NewRecorder()

	server.handleCampaignDetail(rec, asMarketer(req))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload struct {
		CompletedContacts int     `json:"completedContacts"`
		SuccessRate       float64 `json:"successRate"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.CompletedContacts != 2 || payload.SuccessRate != 50 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestHandleCampaignStats(t *testing.T) {
	server := &Server{
		campaignService: &stubCampaignService{
			stats: campaign.Stats{
				ActiveCampaigns:    2,
				TotalContacts:      20,
				CompletedContacts:  11,
				SuccessfulContacts: 9,
			},
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/campaigns/stats", nil)
	rec := httptest.NewRecorder()

	server.handleCampaignDetail(rec, asMarketer(req))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload struct {
		ActiveCampaigns int     `json:"activeCampaigns"`
		SuccessRate     float64 `json:"successRate"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.ActiveCampaigns != 2 || payload.SuccessRate != 81.82 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestHandleAddLeads_Result(t *testing.T) {
	server := &Server{
		campaignService: &stubCampaignService{
			enrollment: campaign.EnrollmentResult{Submitted: 3, Enrolled: 2, TotalContacts: 7},
		},
	}

	body := strings.NewReader(`{"leadIds":["l1","l2","l3"]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/campaigns/c1/leads", body)
	rec := httptest.NewRecorder()

	server.handleCampaignDetail(rec, asMarketer(req))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload struct {
		Submitted     int `json:"submitted"`
		Enrolled      int `json:"enrolled"`
		TotalContacts int `json:"totalContacts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Enrolled != 2 || payload.TotalContacts != 7 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestHandleLeads_CreateDuplicate(t *testing.T) {
	server := &Server{
		leadService: &stubLeadService{err: lead.ErrDuplicateEmail},
	}

	body := strings.NewReader(`{"fullName":"Dana","email":"dana@example.com"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/leads", body)
	rec := httptest.NewRecorder()

	server.handleLeads(rec, asMarketer(req))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestRequireAuth_MissingToken(t *testing.T) {
	server := &Server{
		campaignService: &stubCampaignService{},
		authService:     &stubAuthService{},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/campaigns", nil)
	rec := httptest.NewRecorder()

	server.requireAuth(server.handleCampaigns)(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAuth_BadToken(t *testing.T) {
	server := &Server{
		campaignService: &stubCampaignService{},
		authService:     &stubAuthService{err: errors.New("auth: parse token: invalid")},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/campaigns", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()

	server.requireAuth(server.handleCampaigns)(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleBillingUsage(t *testing.T) {
	server := &Server{
		authService: &stubAuthService{
			user: &auth.User{ID: "user-1", PlanName: "starter"},
		},
		billingService: &stubBillingService{
			usage: billing.Usage{
				Plan:          billing.Plan{Name: "starter", MaxCampaigns: 3, MaxLeads: 500, MaxContactsPerDay: 50},
				CampaignCount: 1,
				LeadCount:     120,
				ContactsToday: 50,
			},
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/billing/usage", nil)
	rec := httptest.NewRecorder()

	server.handleBillingUsage(rec, asMarketer(req))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload struct {
		CampaignsRemaining     int `json:"campaignsRemaining"`
		ContactsRemainingToday int `json:"contactsRemainingToday"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.CampaignsRemaining != 2 || payload.ContactsRemainingToday != 0 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	server := &Server{
		authService: &stubAuthService{err: auth.ErrInvalidCredentials},
	}

	body := strings.NewReader(`{"email":"dana@example.com","password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	rec := httptest.NewRecorder()

	server.handleLogin(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
