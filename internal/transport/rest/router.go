package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"spothire/internal/logging"
	"spothire/internal/service"
	"spothire/internal/transport/rest/handler"
	"spothire/internal/transport/rest/middleware"
	"spothire/internal/transport/ws"
)

// CORSConfig holds the values of the CORS response headers
type CORSConfig struct {
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

// Container holds all dependencies for the router
type Container struct {
	SessionService   *service.SessionService
	CandidateService *service.CandidateService
	TemplateService  *service.TemplateService
	MatchingService  *service.MatchingService
	// SeedService is nil when development routes must not be mounted.
	SeedService *service.SeedService
	WSHub       *ws.Hub
	Store       handler.StoreStatus
	Limiter     *middleware.RateLimiter
	CORS        CORSConfig
	Log         logging.Logger
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	candidateHandler := handler.NewCandidateHandler(c.CandidateService)
	roleHandler := handler.NewRoleHandler(c.TemplateService, c.MatchingService)
	qrHandler := handler.NewQRHandler(c.SessionService)
	wsHandler := ws.NewHandler(c.WSHub, c.Log)

	limiter := c.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(0, 0)
	}

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.CORS))
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(c.Log))

	r.NotFoundHandler = http.HandlerFunc(notFound)

	r.HandleFunc("/health", handler.Health(c.Store)).Methods("GET")
	r.HandleFunc("/ws", wsHandler.Observe).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", handler.Health(c.Store)).Methods("GET")

	api.HandleFunc("/candidates/search", candidateHandler.Search).Methods("GET", "OPTIONS")
	api.HandleFunc("/candidates", candidateHandler.Create).Methods("POST", "OPTIONS")
	api.HandleFunc("/candidates/status", candidateHandler.UpdateStatusByBody).Methods("PATCH", "OPTIONS")
	api.HandleFunc("/candidates/{id}/status", candidateHandler.UpdateStatus).Methods("PATCH", "OPTIONS")
	api.HandleFunc("/feed", candidateHandler.Feed).Methods("GET", "POST", "OPTIONS")

	api.HandleFunc("/roles/templates", roleHandler.List).Methods("GET", "OPTIONS")
	api.HandleFunc("/roles/templates", roleHandler.Create).Methods("POST", "OPTIONS")
	api.HandleFunc("/roles/templates/{id}", roleHandler.Get).Methods("GET", "OPTIONS")
	api.HandleFunc("/roles/templates/{id}", roleHandler.Update).Methods("PUT", "OPTIONS")
	api.HandleFunc("/roles/templates/{id}", roleHandler.Delete).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/roles/suggest", roleHandler.Suggest).Methods("GET", "OPTIONS")
	api.HandleFunc("/roles/match", roleHandler.Match).Methods("GET", "OPTIONS")
	api.HandleFunc("/hire/mass", roleHandler.MassHire).Methods("POST", "OPTIONS")

	api.HandleFunc("/offer", handler.Offer).Methods("POST", "OPTIONS")

	api.HandleFunc("/qr/sessions", qrHandler.List).Methods("GET", "OPTIONS")
	api.HandleFunc("/qr/sessions", qrHandler.Start).Methods("POST", "OPTIONS")
	api.HandleFunc("/qr/sessions/{id}/stop", qrHandler.Stop).Methods("PATCH", "OPTIONS")

	// Public walk-in routes (rate limited per client)
	public := api.NewRoute().Subrouter()
	public.Use(limiter.Limit)
	public.HandleFunc("/qr/scan", qrHandler.Scan).Methods("POST", "OPTIONS")
	public.HandleFunc("/qr/register", qrHandler.Register).Methods("POST", "OPTIONS")

	if c.SeedService != nil {
		devHandler := handler.NewDevHandler(c.SeedService)
		api.HandleFunc("/dev/seed", devHandler.Seed).Methods("POST", "OPTIONS")
	}

	return r
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]string{"message": "Route " + r.URL.Path + " not found"})
}

func corsMiddleware(cfg CORSConfig) mux.MiddlewareFunc {
	allowedOrigins := cfg.AllowedOrigins
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	allowedMethods := cfg.AllowedMethods
	if allowedMethods == "" {
		allowedMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	}
	allowedHeaders := cfg.AllowedHeaders
	if allowedHeaders == "" {
		allowedHeaders = "Content-Type, Authorization, X-Request-ID"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
