package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spothire/internal/codegen"
	"spothire/internal/logging"
	"spothire/internal/model"
	"spothire/internal/repository/repotest"
	"spothire/internal/seed"
	"spothire/internal/service"
	"spothire/internal/transport/rest/middleware"
	"spothire/internal/transport/ws"
)

type storeStub struct{ online bool }

func (s storeStub) Online() bool { return s.online }

type testEnv struct {
	sessions   *repotest.Sessions
	candidates *repotest.Candidates
	templates  *repotest.Templates
	handler    http.Handler
}

func newTestEnv(t *testing.T, mutate func(*Container)) *testEnv {
	t.Helper()
	log := logging.Nop()

	env := &testEnv{
		sessions:   repotest.NewSessions(),
		candidates: repotest.NewCandidates(),
		templates:  repotest.NewTemplates(),
	}

	src := seed.NewSource()
	candidateSvc := service.NewCandidateService(env.candidates, src, "JP Nagar", log)
	templateSvc := service.NewTemplateService(env.templates, src, log)
	sessionSvc := service.NewSessionService(env.sessions, candidateSvc, codegen.NewRandom(), log)

	hub := ws.NewHub(log)
	t.Cleanup(hub.Close)
	sessionSvc.SetNotifier(hub)

	c := &Container{
		SessionService:   sessionSvc,
		CandidateService: candidateSvc,
		TemplateService:  templateSvc,
		MatchingService:  service.NewMatchingService(candidateSvc, templateSvc, log),
		SeedService:      service.NewSeedService(env.templates, env.candidates, log),
		WSHub:            hub,
		Store:            storeStub{online: true},
		Log:              log,
	}
	if mutate != nil {
		mutate(c)
	}
	env.handler = NewRouter(c)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, func(c *Container) { c.Store = storeStub{online: false} })

	rec := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "jobs_upi", body["service"])
	assert.Equal(t, "offline", body["store"])
	assert.NotEmpty(t, body["time"])
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestSearch_FallsBackToSeedWhenStoreDown(t *testing.T) {
	env := newTestEnv(t, nil)
	env.candidates.SetDown(true)

	rec := env.do(t, http.MethodGet, "/api/candidates/search?role=helper", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Results []model.Candidate `json:"results"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "Akash", body.Results[0].Name)
	assert.Equal(t, seed.ID(2), body.Results[0].ID)
}

func TestSearch_EmptyResultIsArray(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/candidates/search?role=Astronaut", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"results":[]}`, rec.Body.String())
}

func TestQRFlow_StartRegisterList(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/qr/sessions", map[string]interface{}{
		"employerId": "emp1", "lat": 12.9, "lng": "77.5",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var started struct {
		Session struct {
			ID     string `json:"id"`
			Code   string `json:"code"`
			Active bool   `json:"active"`
		} `json:"session"`
	}
	decode(t, rec, &started)
	assert.True(t, codegen.Valid(started.Session.Code))
	assert.True(t, started.Session.Active)

	rec = env.do(t, http.MethodPost, "/api/qr/scan", map[string]string{"code": strings.ToLower(started.Session.Code)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/qr/register", map[string]string{
		"code": started.Session.Code, "name": "Asha", "role": "Packer",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var registered struct {
		OK        bool                      `json:"ok"`
		Candidate model.RegisteredCandidate `json:"candidate"`
	}
	decode(t, rec, &registered)
	assert.True(t, registered.OK)
	assert.Equal(t, "Asha", registered.Candidate.Name)
	assert.NotEmpty(t, registered.Candidate.ID)

	all := env.candidates.All()
	require.Len(t, all, 1)
	assert.Equal(t, "Packer", all[0].Role)

	rec = env.do(t, http.MethodGet, "/api/qr/sessions?employerId=emp1&active=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listed struct {
		Sessions []map[string]interface{} `json:"sessions"`
	}
	decode(t, rec, &listed)
	require.Len(t, listed.Sessions, 1)
	assert.Equal(t, started.Session.Code, listed.Sessions[0]["code"])
	assert.NotEmpty(t, listed.Sessions[0]["createdAt"])

	for i := 0; i < 2; i++ {
		rec = env.do(t, http.MethodPatch, "/api/qr/sessions/"+started.Session.ID+"/stop", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"session":{"id":"`+started.Session.ID+`","active":false}}`, rec.Body.String())
	}
}

func TestQR_Errors(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		msg    string
	}{
		{"missing employer", http.MethodPost, "/api/qr/sessions", map[string]string{}, http.StatusBadRequest, "employerId is required"},
		{"bad latitude", http.MethodPost, "/api/qr/sessions", map[string]interface{}{"employerId": "e", "lat": 200}, http.StatusBadRequest, "lat is invalid"},
		{"unknown session", http.MethodPatch, "/api/qr/sessions/abc/stop", nil, http.StatusNotFound, "Session not found"},
		{"scan without code", http.MethodPost, "/api/qr/scan", nil, http.StatusBadRequest, "code required"},
		{"scan unknown code", http.MethodPost, "/api/qr/scan", map[string]string{"code": "ZZZZZZ"}, http.StatusNotFound, "Session code not found"},
		{"register without name", http.MethodPost, "/api/qr/register", map[string]string{"code": "ZZZZZZ"}, http.StatusBadRequest, "code and name required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)

			var body map[string]string
			decode(t, rec, &body)
			assert.Equal(t, tt.msg, body["message"])
		})
	}
}

func TestQR_StartWhenStoreDown(t *testing.T) {
	env := newTestEnv(t, nil)
	env.sessions.SetDown(true)

	rec := env.do(t, http.MethodPost, "/api/qr/sessions", map[string]string{"employerId": "emp1"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"message":"Database not connected"}`, rec.Body.String())
}

func TestCandidateStatus(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/candidates", map[string]string{"name": "Meena", "role": "Packer"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Candidate model.Candidate `json:"candidate"`
	}
	decode(t, rec, &created)
	id := created.Candidate.ID
	require.NotEmpty(t, id)

	rec = env.do(t, http.MethodPatch, "/api/candidates/"+id+"/status", map[string]string{"status": "bogus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"Invalid status"}`, rec.Body.String())

	rec = env.do(t, http.MethodPatch, "/api/candidates/status", map[string]string{"status": "hired"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"id is required in body"}`, rec.Body.String())

	rec = env.do(t, http.MethodPatch, "/api/candidates/status", map[string]string{"id": id, "status": "hired", "note": "joins monday"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated struct {
		Candidate model.Candidate `json:"candidate"`
	}
	decode(t, rec, &updated)
	assert.Equal(t, model.StatusHired, updated.Candidate.Status)
	assert.Equal(t, "joins monday", updated.Candidate.Note)

	rec = env.do(t, http.MethodPatch, "/api/candidates/000000000000000000000000/status", map[string]string{"status": "hired"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCandidateStatus_StoreDown(t *testing.T) {
	env := newTestEnv(t, nil)
	env.candidates.SetDown(true)

	rec := env.do(t, http.MethodPatch, "/api/candidates/abc/status", map[string]string{"status": "hired"})
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.JSONEq(t, `{"message":"Status update requires DB in this build"}`, rec.Body.String())
}

func TestFeed(t *testing.T) {
	env := newTestEnv(t, nil)
	env.candidates.SetDown(true)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec := env.do(t, method, "/api/feed", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var snap model.FeedSnapshot
		decode(t, rec, &snap)
		assert.Len(t, snap.Nearby, 3)
		assert.Len(t, snap.ActiveToday, 3)
		assert.Len(t, snap.RecentApplicants, 2)
	}
}

func TestTemplates_RoundTrip(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/roles/templates", map[string]interface{}{
		"name": "Packer", "salaryMin": 11000, "salaryMax": 16000, "workHours": "9-6", "defaultRequirements": []string{"Fit"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Template model.TemplateView `json:"template"`
	}
	decode(t, rec, &created)

	rec = env.do(t, http.MethodGet, "/api/roles/templates/"+created.Template.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched struct {
		Template model.TemplateView `json:"template"`
	}
	decode(t, rec, &fetched)
	assert.Equal(t, [2]int64{11000, 16000}, fetched.Template.SalaryRange)
	assert.Equal(t, []string{"Fit"}, fetched.Template.DefaultRequirements)

	rec = env.do(t, http.MethodPost, "/api/roles/templates", map[string]interface{}{
		"name": "packer", "salaryMin": 1, "salaryMax": 2,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/roles/templates/"+created.Template.ID, map[string]interface{}{"salaryMax": 18000})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &fetched)
	assert.Equal(t, [2]int64{11000, 18000}, fetched.Template.SalaryRange)

	rec = env.do(t, http.MethodDelete, "/api/roles/templates/"+created.Template.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":true}`, rec.Body.String())

	rec = env.do(t, http.MethodDelete, "/api/roles/templates/"+created.Template.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTemplates_SeedFallback(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/roles/templates", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listed struct {
		Templates []model.TemplateView `json:"templates"`
	}
	decode(t, rec, &listed)
	require.Len(t, listed.Templates, 3)
	assert.Equal(t, seed.ID(0), listed.Templates[0].ID)

	rec = env.do(t, http.MethodGet, "/api/roles/templates/"+seed.ID(2), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/roles/suggest?role=HELPER", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Helper"`)

	rec = env.do(t, http.MethodGet, "/api/roles/suggest?role=Pilot", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Role template not found"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/roles/templates/not-an-id", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Template not found"}`, rec.Body.String())
}

func TestMatchAndMassHire(t *testing.T) {
	env := newTestEnv(t, nil)
	env.candidates.SetDown(true)

	rec := env.do(t, http.MethodGet, "/api/roles/match", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/roles/match?role=Delivery%20Boy&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var matched struct {
		Matches []model.MatchResult `json:"matches"`
	}
	decode(t, rec, &matched)
	require.Len(t, matched.Matches, 1)
	assert.Equal(t, 70, matched.Matches[0].MatchScore)

	rec = env.do(t, http.MethodGet, "/api/roles/match?role=Helper&limit=9223372036854775807", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/hire/mass", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"role is required"}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/hire/mass", map[string]interface{}{"role": "Delivery Boy"})
	require.Equal(t, http.StatusOK, rec.Code)

	var hired model.MassHireResult
	decode(t, rec, &hired)
	assert.Equal(t, "Delivery Boy", hired.Role)
	assert.Len(t, hired.Suggested, 2)
	require.NotNil(t, hired.Template)
	assert.Equal(t, [2]int64{15000, 22000}, hired.Template.SalaryRange)

	rec = env.do(t, http.MethodPost, "/api/hire/mass", map[string]interface{}{"role": "Helper", "count": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"count is invalid"}`, rec.Body.String())
}

func TestOffer(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/offer", map[string]string{"candidateName": "Asha"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decode(t, rec, &body)
	assert.True(t, strings.HasPrefix(body["message"], "Hi Asha,"))
	assert.Contains(t, body["message"], "Salary: As discussed")
	assert.Contains(t, body["message"], "- MSME Employer")
}

func TestOffer_MalformedBody(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/offer", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"invalid request body"}`, rec.Body.String())
}

func TestDevSeed(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/dev/seed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"totals":{"roleTemplates":3,"candidates":4}}`, rec.Body.String())

	prod := newTestEnv(t, func(c *Container) { c.SeedService = nil })
	rec = prod.do(t, http.MethodPost, "/api/dev/seed", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Route /api/dev/seed not found"}`, rec.Body.String())
}

func TestPublicRoutesAreRateLimited(t *testing.T) {
	env := newTestEnv(t, func(c *Container) { c.Limiter = middleware.NewRateLimiter(1, 1) })

	rec := env.do(t, http.MethodPost, "/api/qr/scan", map[string]string{"code": "ZZZZZZ"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/qr/scan", map[string]string{"code": "ZZZZZZ"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/feed", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "non-public routes are not limited")
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, func(c *Container) {
		c.CORS = CORSConfig{AllowedOrigins: "https://hire.example"}
	})

	rec := env.do(t, http.MethodOptions, "/api/qr/sessions", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://hire.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
