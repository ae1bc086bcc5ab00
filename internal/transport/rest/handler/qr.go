package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"spothire/internal/model"
	"spothire/internal/service"
)

// QRHandler handles spot-hiring session endpoints
type QRHandler struct {
	sessions *service.SessionService
}

// NewQRHandler creates a new QR handler
func NewQRHandler(sessions *service.SessionService) *QRHandler {
	return &QRHandler{sessions: sessions}
}

type sessionSummary struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// List handles GET /api/qr/sessions?active=&employerId=
func (h *QRHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.SessionFilter{EmployerID: q.Get("employerId")}
	if v := q.Get("active"); v != "" {
		active := v == "true"
		f.Active = &active
	}

	list, err := h.sessions.ListSessions(r.Context(), f)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]sessionSummary, 0, len(list))
	for _, s := range list {
		out = append(out, sessionSummary{ID: s.ID, Code: s.Code, Active: s.Active, CreatedAt: s.CreatedAt})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": out})
}

// StartSessionRequest is the request body for starting a session. Lat and
// lng may arrive as numbers or numeric strings.
type StartSessionRequest struct {
	EmployerID string       `json:"employerId" validate:"max=64"`
	TemplateID string       `json:"templateId" validate:"max=64"`
	Lat        *json.Number `json:"lat"`
	Lng        *json.Number `json:"lng"`
}

// Start handles POST /api/qr/sessions
func (h *QRHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	lat, err := coordinate(req.Lat, 90)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lat is invalid")
		return
	}
	lng, err := coordinate(req.Lng, 180)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lng is invalid")
		return
	}

	s, err := h.sessions.StartSession(r.Context(), model.StartSessionParams{
		EmployerID: req.EmployerID,
		TemplateID: req.TemplateID,
		Lat:        lat,
		Lng:        lng,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session": map[string]interface{}{"id": s.ID, "code": s.Code, "active": s.Active},
	})
}

// Stop handles PATCH /api/qr/sessions/{id}/stop
func (h *QRHandler) Stop(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.StopSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session": map[string]interface{}{"id": s.ID, "active": s.Active},
	})
}

// ScanRequest is the request body for recording a scan
type ScanRequest struct {
	Code string `json:"code" validate:"max=16"`
}

// Scan handles POST /api/qr/scan
func (h *QRHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	if _, err := h.sessions.RecordScan(r.Context(), req.Code); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// RegisterRequest is the request body for a walk-in registration
type RegisterRequest struct {
	Code      string `json:"code" validate:"max=16"`
	Name      string `json:"name" validate:"max=120"`
	Phone     string `json:"phone" validate:"max=32"`
	Role      string `json:"role" validate:"max=120"`
	Area      string `json:"area" validate:"max=120"`
	Education string `json:"education" validate:"max=120"`
}

// Register handles POST /api/qr/register
func (h *QRHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	c, err := h.sessions.RecordRegistration(r.Context(), service.RegistrationInput{
		Code:      req.Code,
		Name:      req.Name,
		Phone:     req.Phone,
		Role:      req.Role,
		Area:      req.Area,
		Education: req.Education,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"ok": true, "candidate": c})
}

// coordinate parses an optional coordinate bounded by ±limit.
func coordinate(n *json.Number, limit float64) (*float64, error) {
	if n == nil || *n == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(string(*n), 64)
	if err != nil {
		return nil, err
	}
	if v < -limit || v > limit {
		return nil, strconv.ErrRange
	}
	return &v, nil
}
