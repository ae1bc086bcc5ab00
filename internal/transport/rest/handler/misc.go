package handler

import (
	"net/http"
	"time"

	"spothire/internal/service"
)

// Offer handles POST /api/offer
func Offer(w http.ResponseWriter, r *http.Request) {
	var req service.OfferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": service.BuildOfferMessage(req)})
}

// StoreStatus reports whether the primary store is reachable.
type StoreStatus interface {
	Online() bool
}

// Health handles GET /health
func Health(store StoreStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := "offline"
		if store != nil && store.Online() {
			state = "online"
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":      true,
			"service": "jobs_upi",
			"time":    time.Now().UTC().Format(time.RFC3339Nano),
			"store":   state,
		})
	}
}

// DevHandler handles development-only endpoints
type DevHandler struct {
	seed *service.SeedService
}

// NewDevHandler creates a new dev handler
func NewDevHandler(seed *service.SeedService) *DevHandler {
	return &DevHandler{seed: seed}
}

// Seed handles POST /api/dev/seed
func (h *DevHandler) Seed(w http.ResponseWriter, r *http.Request) {
	totals, err := h.seed.Seed(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "totals": totals})
}
