package handler

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"spothire/internal/common"
	"spothire/internal/model"
	"spothire/internal/service"
)

// CandidateHandler handles candidate directory endpoints
type CandidateHandler struct {
	svc *service.CandidateService
}

// NewCandidateHandler creates a new candidate handler
func NewCandidateHandler(svc *service.CandidateService) *CandidateHandler {
	return &CandidateHandler{svc: svc}
}

// Search handles GET /api/candidates/search
func (h *CandidateHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	results := h.svc.Search(r.Context(), model.CandidateFilter{
		Role:      q.Get("role"),
		Area:      q.Get("area"),
		Education: q.Get("education"),
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// CreateCandidateRequest is the request body for creating a candidate
type CreateCandidateRequest struct {
	Name             string `json:"name" validate:"max=120"`
	Role             string `json:"role" validate:"max=120"`
	Area             string `json:"area" validate:"max=120"`
	Education        string `json:"education" validate:"max=120"`
	Phone            string `json:"phone" validate:"max=32"`
	ActiveToday      bool   `json:"activeToday"`
	AppliedToSimilar bool   `json:"appliedToSimilar"`
}

// Create handles POST /api/candidates
func (h *CandidateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCandidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	c, err := h.svc.Create(r.Context(), model.NewCandidate{
		Name:             req.Name,
		Role:             req.Role,
		Area:             req.Area,
		Education:        req.Education,
		Phone:            req.Phone,
		ActiveToday:      req.ActiveToday,
		AppliedToSimilar: req.AppliedToSimilar,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"candidate": c})
}

// StatusRequest is the request body for a status update. ID is only read by
// the body variant of the endpoint.
type StatusRequest struct {
	ID     string  `json:"id"`
	Status string  `json:"status"`
	Note   *string `json:"note" validate:"omitempty,max=500"`
}

// UpdateStatus handles PATCH /api/candidates/{id}/status
func (h *CandidateHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	h.updateStatus(w, r, mux.Vars(r)["id"], req)
}

// UpdateStatusByBody handles PATCH /api/candidates/status
func (h *CandidateHandler) UpdateStatusByBody(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required in body")
		return
	}
	h.updateStatus(w, r, req.ID, req)
}

func (h *CandidateHandler) updateStatus(w http.ResponseWriter, r *http.Request, id string, req StatusRequest) {
	c, err := h.svc.UpdateStatus(r.Context(), id, req.Status, req.Note)
	if errors.Is(err, common.ErrUnavailable) {
		writeError(w, http.StatusNotImplemented, "Status update requires DB in this build")
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"candidate": c})
}

// Feed handles GET|POST /api/feed
func (h *CandidateHandler) Feed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.FeedSnapshot(r.Context()))
}
