package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"adpilot/auth"
	"adpilot/lead"
)

type userResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
	PlanName string `json:"planName"`
}

func toUserResponse(u auth.User) userResponse {
	return userResponse{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		Role:     string(u.Role),
		PlanName: u.PlanName,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := s.authService.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrDuplicateEmail):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, auth.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			// Registration rejects bad input with plain errors, not sentinels.
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(*user))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.authService.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": result.Token,
		"user":  toUserResponse(result.User),
	})
}

type leadResponse struct {
	ID        string  `json:"id"`
	FullName  string  `json:"fullName"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone,omitempty"`
	Company   *string `json:"company,omitempty"`
	Score     float64 `json:"score"`
	CreatedAt string  `json:"createdAt"`
}

func toLeadResponse(l lead.Lead) leadResponse {
	return leadResponse{
		ID:        l.ID,
		FullName:  l.FullName,
		Email:     l.Email,
		Phone:     l.Phone,
		Company:   l.Company,
		Score:     l.Score,
		CreatedAt: l.CreatedAt.Format(time.RFC3339),
	}
}

type createLeadRequest struct {
	FullName string  `json:"fullName"`
	Email    string  `json:"email"`
	Phone    *string `json:"phone"`
	Company  *string `json:"company"`
	Score    float64 `json:"score"`
}

// handleLeads serves /api/leads: GET lists by descending score, POST creates.
func (s *Server) handleLeads(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		leads, err := s.leadService.List(r.Context(), limit)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		items := make([]leadResponse, 0, len(leads))
		for _, l := range leads {
			items = append(items, toLeadResponse(l))
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": items,
			"total": len(items),
		})
	case http.MethodPost:
		if !canMutate(roleFromContext(r.Context())) {
			writeError(w, http.StatusForbidden, "insufficient role")
			return
		}
		var req createLeadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		created, err := s.leadService.Create(r.Context(), lead.CreateParams{
			FullName: req.FullName,
			Email:    req.Email,
			Phone:    req.Phone,
			Company:  req.Company,
			Score:    req.Score,
		})
		if err != nil {
			if errors.Is(err, lead.ErrInvalidLead) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toLeadResponse(created))
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleBillingUsage reports the caller's plan limits against current counts.
func (s *Server) handleBillingUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID, _ := r.Context().Value(ctxKeyUserID).(string)
	user, err := s.authService.GetUserByID(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	usage, err := s.billingService.Usage(r.Context(), user.PlanName)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"plan": map[string]any{
			"name":              usage.Plan.Name,
			"maxCampaigns":      usage.Plan.MaxCampaigns,
			"maxLeads":          usage.Plan.MaxLeads,
			"maxContactsPerDay": usage.Plan.MaxContactsPerDay,
		},
		"campaignsUsed":          usage.CampaignCount,
		"campaignsRemaining":     usage.CampaignsRemaining(),
		"leadsUsed":              usage.LeadCount,
		"leadsRemaining":         usage.LeadsRemaining(),
		"contactsToday":          usage.ContactsToday,
		"contactsRemainingToday": usage.ContactsRemainingToday(),
	})
}
