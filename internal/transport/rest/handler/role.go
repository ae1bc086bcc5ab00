package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"spothire/internal/model"
	"spothire/internal/service"
)

// RoleHandler handles role template and matching endpoints
type RoleHandler struct {
	templates *service.TemplateService
	matching  *service.MatchingService
}

// NewRoleHandler creates a new role handler
func NewRoleHandler(templates *service.TemplateService, matching *service.MatchingService) *RoleHandler {
	return &RoleHandler{
		templates: templates,
		matching:  matching,
	}
}

// TemplateRequest is the request body for creating or updating a template
type TemplateRequest struct {
	Name                *string  `json:"name" validate:"omitempty,max=120"`
	SalaryMin           *int64   `json:"salaryMin"`
	SalaryMax           *int64   `json:"salaryMax"`
	WorkHours           *string  `json:"workHours" validate:"omitempty,max=60"`
	DefaultRequirements []string `json:"defaultRequirements" validate:"max=50,dive,max=200"`
}

// List handles GET /api/roles/templates
func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	items := h.templates.List(r.Context())

	views := make([]model.TemplateView, 0, len(items))
	for i := range items {
		views = append(views, items[i].View())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"templates": views})
}

// Get handles GET /api/roles/templates/{id}
func (h *RoleHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.templates.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"template": t.View()})
}

// Create handles POST /api/roles/templates
func (h *RoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	t, err := h.templates.Create(r.Context(), service.TemplateInput{
		Name:         deref(req.Name),
		SalaryMin:    req.SalaryMin,
		SalaryMax:    req.SalaryMax,
		WorkHours:    deref(req.WorkHours),
		Requirements: req.DefaultRequirements,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"template": t.View()})
}

// Update handles PUT /api/roles/templates/{id}
func (h *RoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	t, err := h.templates.Update(r.Context(), mux.Vars(r)["id"], model.TemplatePatch{
		Name:         req.Name,
		SalaryMin:    req.SalaryMin,
		SalaryMax:    req.SalaryMax,
		WorkHours:    req.WorkHours,
		Requirements: req.DefaultRequirements,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"template": t.View()})
}

// Delete handles DELETE /api/roles/templates/{id}
func (h *RoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.templates.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// Suggest handles GET /api/roles/suggest?role=
func (h *RoleHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	t, err := h.templates.Suggest(r.Context(), r.URL.Query().Get("role"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"template": t.View()})
}

// Match handles GET /api/roles/match?role=&limit=
func (h *RoleHandler) Match(w http.ResponseWriter, r *http.Request) {
	role := strings.TrimSpace(r.URL.Query().Get("role"))
	if role == "" {
		writeError(w, http.StatusBadRequest, "role query parameter required")
		return
	}

	limit := service.DefaultMatchLimit
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = min(n, service.MaxMatchLimit)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"matches": h.matching.Match(r.Context(), role, limit),
	})
}

// MassHireRequest is the request body for a mass hire suggestion
type MassHireRequest struct {
	Role  string `json:"role"`
	Count int    `json:"count" validate:"gte=0,lte=200"`
}

// MassHire handles POST /api/hire/mass
func (h *RoleHandler) MassHire(w http.ResponseWriter, r *http.Request) {
	var req MassHireRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	res, err := h.matching.MassHire(r.Context(), req.Role, req.Count)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
