package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"adpilot/campaign"
)

type campaignResponse struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Type               string  `json:"type"`
	TargetSegment      string  `json:"targetSegment"`
	Goal               string  `json:"goal,omitempty"`
	ScriptInstructions string  `json:"scriptInstructions,omitempty"`
	Status             string  `json:"status"`
	MaxContactsPerDay  int     `json:"maxContactsPerDay"`
	Priority           int     `json:"priority"`
	TotalContacts      int     `json:"totalContacts"`
	CompletedContacts  int     `json:"completedContacts"`
	SuccessfulContacts int     `json:"successfulContacts"`
	SuccessRate        float64 `json:"successRate"`
	CreatedAt          string  `json:"createdAt"`
	UpdatedAt          string  `json:"updatedAt"`
}

func toCampaignResponse(c campaign.Campaign) campaignResponse {
	return campaignResponse{
		ID:                 c.ID,
		Name:               c.Name,
		Type:               c.Type,
		TargetSegment:      c.TargetSegment,
		Goal:               c.Goal,
		ScriptInstructions: c.ScriptInstructions,
		Status:             string(c.Status),
		MaxContactsPerDay:  c.MaxContactsPerDay,
		Priority:           c.Priority,
		TotalContacts:      c.TotalContacts,
		CompletedContacts:  c.CompletedContacts,
		SuccessfulContacts: c.SuccessfulContacts,
		SuccessRate:        c.SuccessRate(),
		CreatedAt:          c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          c.UpdatedAt.Format(time.RFC3339),
	}
}

type enrollmentResponse struct {
	LeadID      string  `json:"leadId"`
	Status      string  `json:"status"`
	Result      *string `json:"result,omitempty"`
	Notes       *string `json:"notes,omitempty"`
	ContactedAt *string `json:"contactedAt,omitempty"`
}

func toEnrollmentResponse(e campaign.Enrollment) enrollmentResponse {
	resp := enrollmentResponse{
		LeadID: e.LeadID,
		Status: string(e.Status),
		Result: e.Result,
		Notes:  e.Notes,
	}
	if e.ContactedAt != nil {
		ts := e.ContactedAt.Format(time.RFC3339)
		resp.ContactedAt = &ts
	}
	return resp
}

type createCampaignRequest struct {
	Name               string `json:"name"`
	Type               string `json:"type"`
	TargetSegment      string `json:"targetSegment"`
	Goal               string `json:"goal"`
	ScriptInstructions string `json:"scriptInstructions"`
	MaxContactsPerDay  int    `json:"maxContactsPerDay"`
	Priority           int    `json:"priority"`
}

type updateCampaignRequest struct {
	Name               *string `json:"name"`
	Type               *string `json:"type"`
	TargetSegment      *string `json:"targetSegment"`
	Goal               *string `json:"goal"`
	ScriptInstructions *string `json:"scriptInstructions"`
	MaxContactsPerDay  *int    `json:"maxContactsPerDay"`
	Priority           *int    `json:"priority"`
}

// handleCampaigns serves /api/campaigns: GET lists, POST creates.
func (s *Server) handleCampaigns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListCampaigns(w, r)
	case http.MethodPost:
		s.handleCreateCampaign(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	result, err := s.campaignService.List(r.Context(), campaign.Filters{
		Status: campaign.Status(q.Get("status")),
		Type:   q.Get("type"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	items := make([]campaignResponse, 0, len(result.Items))
	for _, c := range result.Items {
		items = append(items, toCampaignResponse(c))
	}

	totalPages := result.Total / limit
	if result.Total%limit != 0 {
		totalPages++
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items":      items,
		"total":      result.Total,
		"page":       page,
		"limit":      limit,
		"totalPages": totalPages,
	})
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	if !canMutate(roleFromContext(r.Context())) {
		writeError(w, http.StatusForbidden, "insufficient role")
		return
	}

	var req createCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := s.campaignService.Create(r.Context(), campaign.CreateParams{
		Name:               req.Name,
		Type:               req.Type,
		TargetSegment:      req.TargetSegment,
		Goal:               req.Goal,
		ScriptInstructions: req.ScriptInstructions,
		MaxContactsPerDay:  req.MaxContactsPerDay,
		Priority:           req.Priority,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCampaignResponse(created))
}

// handleCampaignDetail serves /api/campaigns/{id} and its sub-resources:
// launch, pause, leads, contact-result. /api/campaigns/stats lands here too.
func (s *Server) handleCampaignDetail(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/campaigns/"), "/")
	if rest == "" {
		writeError(w, http.StatusBadRequest, "missing campaign id")
		return
	}

	parts := strings.Split(rest, "/")
	if parts[0] == "stats" {
		s.handleCampaignStats(w, r)
		return
	}

	id := parts[0]
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.handleGetCampaign(w, r, id)
		case http.MethodPut:
			s.handleUpdateCampaign(w, r, id)
		case http.MethodDelete:
			s.handleArchiveCampaign(w, r, id)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	if len(parts) == 2 {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		switch parts[1] {
		case "launch":
			s.handleTransition(w, r, id, s.campaignService.Launch)
		case "pause":
			s.handleTransition(w, r, id, s.campaignService.Pause)
		case "leads":
			s.handleAddLeads(w, r, id)
		case "contact-result":
			s.handleContactResult(w, r, id)
		default:
			writeError(w, http.StatusNotFound, "unknown campaign action")
		}
		return
	}

	writeError(w, http.StatusNotFound, "unknown campaign path")
}

func (s *Server) handleCampaignStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stats, err := s.campaignService.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"activeCampaigns": stats.ActiveCampaigns,
		"totalCalls":      stats.TotalContacts,
		"completedCalls":  stats.CompletedContacts,
		"successRate":     stats.SuccessRate(),
		"leadsConverted":  stats.SuccessfulContacts,
	})
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request, id string) {
	detail, err := s.campaignService.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	leads := make([]enrollmentResponse, 0, len(detail.Enrollments))
	for _, e := range detail.Enrollments {
		leads = append(leads, toEnrollmentResponse(e))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"campaign": toCampaignResponse(detail.Campaign),
		"leads":    leads,
	})
}

func (s *Server) handleUpdateCampaign(w http.ResponseWriter, r *http.Request, id string) {
	if !canMutate(roleFromContext(r.Context())) {
		writeError(w, http.StatusForbidden, "insufficient role")
		return
	}

	var req updateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	updated, err := s.campaignService.Update(r.Context(), id, campaign.UpdateParams{
		Name:               req.Name,
		Type:               req.Type,
		TargetSegment:      req.TargetSegment,
		Goal:               req.Goal,
		ScriptInstructions: req.ScriptInstructions,
		MaxContactsPerDay:  req.MaxContactsPerDay,
		Priority:           req.Priority,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCampaignResponse(updated))
}

func (s *Server) handleArchiveCampaign(w http.ResponseWriter, r *http.Request, id string) {
	if !canMutate(roleFromContext(r.Context())) {
		writeError(w, http.StatusForbidden, "insufficient role")
		return
	}

	archived, err := s.campaignService.Archive(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCampaignResponse(archived))
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request, id string, transition func(ctx context.Context, id string) (campaign.Campaign, error)) {
	if !canMutate(roleFromContext(r.Context())) {
		writeError(w, http.StatusForbidden, "insufficient role")
		return
	}

	updated, err := transition(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCampaignResponse(updated))
}

type addLeadsRequest struct {
	LeadIDs []string `json:"leadIds"`
}

func (s *Server) handleAddLeads(w http.ResponseWriter, r *http.Request, id string) {
	if !canMutate(roleFromContext(r.Context())) {
		writeError(w, http.StatusForbidden, "insufficient role")
		return
	}

	var req addLeadsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.campaignService.AddLeads(r.Context(), campaign.AddLeadsParams{
		CampaignID: id,
		LeadIDs:    req.LeadIDs,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"submitted":     result.Submitted,
		"enrolled":      result.Enrolled,
		"totalContacts": result.TotalContacts,
	})
}

type contactResultRequest struct {
	LeadID         string  `json:"leadId"`
	Status         string  `json:"status"`
	Result         *string `json:"result"`
	Notes          *string `json:"notes"`
	AllowRecontact bool    `json:"allowRecontact"`
}

func (s *Server) handleContactResult(w http.ResponseWriter, r *http.Request, id string) {
	if !canMutate(roleFromContext(r.Context())) {
		writeError(w, http.StatusForbidden, "insufficient role")
		return
	}

	var req contactResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ack, err := s.campaignService.RecordContactResult(r.Context(), campaign.RecordContactParams{
		CampaignID:     id,
		LeadID:         req.LeadID,
		Status:         campaign.Outcome(req.Status),
		Result:         req.Result,
		Notes:          req.Notes,
		AllowRecontact: req.AllowRecontact,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"lead":               toEnrollmentResponse(ack.Enrollment),
		"totalContacts":      ack.TotalContacts,
		"completedContacts":  ack.CompletedContacts,
		"successfulContacts": ack.SuccessfulContacts,
		"successRate":        ack.SuccessRate,
	})
}
