package client

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"spothire/internal/client/offline"
	"spothire/internal/codegen"
	"spothire/internal/common"
	"spothire/internal/logging"
	"spothire/internal/model"
)

// Local state keys.
const (
	SessionsHistoryKey = "qr_sessions_history"
	RegistrationsKey   = "qr_registrations"
	ScansKey           = "qr_scans"
	PendingStatusKey   = "pending_status"

	LocalSessionPrefix = "local-"
)

// Origin tells where a result came from.
type Origin string

const (
	OriginServer Origin = "server"
	OriginCache  Origin = "cache"
	OriginLocal  Origin = "local"
)

// LocalRegistration is a registration kept while the server is unreachable.
type LocalRegistration struct {
	Registration
	TS int64 `json:"ts"`
}

type LocalScan struct {
	Code string `json:"code"`
	TS   int64  `json:"ts"`
}

// PendingStatus is a status update queued for replay.
type PendingStatus struct {
	ID       string  `json:"id"`
	Status   string  `json:"status"`
	Note     *string `json:"note,omitempty"`
	QueuedAt int64   `json:"queuedAt"`
}

// FlushResult counts the outcome of replaying queued status updates.
type FlushResult struct {
	Sent     int
	Requeued int
	Dropped  int
}

// Service runs every call against the server first and falls back to local
// state when the server is unreachable. Queued writes are only replayed by an
// explicit Flush.
type Service struct {
	api    *API
	store  *offline.Store
	codes  codegen.Generator
	log    logging.Logger
	maxAge time.Duration
	now    func() time.Time
}

func NewService(api *API, store *offline.Store, log logging.Logger) *Service {
	return &Service{
		api:    api,
		store:  store,
		codes:  codegen.NewRandom(),
		log:    log,
		maxAge: offline.DefaultMaxAge,
		now:    time.Now,
	}
}

func searchKey(f SearchFilter) string {
	return "search:" + strings.Join([]string{
		model.NormalizeText(f.Role),
		model.NormalizeText(f.Area),
		model.NormalizeText(f.Education),
	}, "|")
}

const feedKey = "feed:default"

// Search returns server results, or the last cached results for the same
// filter, or an empty list.
func (s *Service) Search(ctx context.Context, f SearchFilter) ([]model.Candidate, Origin, error) {
	key := searchKey(f)

	results, err := s.api.Search(ctx, f)
	if err == nil {
		s.cache(ctx, key, results)
		return results, OriginServer, nil
	}
	if !Unreachable(err) {
		return nil, "", err
	}

	s.log.Warn(ctx, "search unreachable, using cache", "error", err)
	cached := []model.Candidate{}
	if _, cerr := s.store.GetCache(ctx, key, &cached, s.maxAge); cerr != nil {
		return nil, "", cerr
	}
	return cached, OriginCache, nil
}

// Feed returns the server feed, or the last cached one, or an empty feed.
func (s *Service) Feed(ctx context.Context) (*model.FeedSnapshot, Origin, error) {
	snap, err := s.api.Feed(ctx)
	if err == nil {
		s.cache(ctx, feedKey, snap)
		return snap, OriginServer, nil
	}
	if !Unreachable(err) {
		return nil, "", err
	}

	s.log.Warn(ctx, "feed unreachable, using cache", "error", err)
	cached := &model.FeedSnapshot{
		Nearby:           []model.Candidate{},
		ActiveToday:      []model.Candidate{},
		RecentApplicants: []model.Candidate{},
	}
	if _, cerr := s.store.GetCache(ctx, feedKey, cached, s.maxAge); cerr != nil {
		return nil, "", cerr
	}
	return cached, OriginCache, nil
}

func (s *Service) cache(ctx context.Context, key string, v interface{}) {
	if err := s.store.SetCache(ctx, key, v); err != nil {
		s.log.Warn(ctx, "cache write failed", "key", key, "error", err)
	}
}

// ListSessions returns server sessions or the local history.
func (s *Service) ListSessions(ctx context.Context, activeOnly bool) ([]SessionSummary, Origin, error) {
	list, err := s.api.ListSessions(ctx, activeOnly)
	if err == nil {
		return list, OriginServer, nil
	}
	if !Unreachable(err) {
		return nil, "", err
	}

	s.log.Warn(ctx, "sessions unreachable, using local history", "error", err)
	hist, err := s.history(ctx)
	if err != nil {
		return nil, "", err
	}
	if !activeOnly {
		return hist, OriginLocal, nil
	}
	active := []SessionSummary{}
	for _, h := range hist {
		if h.Active {
			active = append(active, h)
		}
	}
	return active, OriginLocal, nil
}

// StartSession starts a session on the server or, when it is unreachable,
// a local one with a client-generated code.
func (s *Service) StartSession(ctx context.Context, employerID string) (*SessionSummary, Origin, error) {
	employerID = strings.TrimSpace(employerID)
	if employerID == "" {
		return nil, "", common.Validation("employerId is required")
	}

	session, err := s.api.StartSession(ctx, employerID)
	if err == nil {
		return session, OriginServer, nil
	}
	if !Unreachable(err) {
		return nil, "", err
	}

	s.log.Warn(ctx, "start unreachable, creating local session", "error", err)
	code, err := s.codes.Generate()
	if err != nil {
		return nil, "", err
	}
	local := SessionSummary{
		ID:         LocalSessionPrefix + uuid.NewString(),
		Code:       code,
		Active:     true,
		CreatedAt:  s.now().UTC(),
		EmployerID: employerID,
	}

	hist, err := s.history(ctx)
	if err != nil {
		return nil, "", err
	}
	if err := s.store.SetMirror(ctx, SessionsHistoryKey, append([]SessionSummary{local}, hist...)); err != nil {
		return nil, "", err
	}
	return &local, OriginLocal, nil
}

// StopSession stops a server session, or marks it stopped in the local
// history when the server is unreachable or the session is local.
func (s *Service) StopSession(ctx context.Context, id string) (*SessionSummary, Origin, error) {
	if !strings.HasPrefix(id, LocalSessionPrefix) {
		session, err := s.api.StopSession(ctx, id)
		if err == nil {
			return session, OriginServer, nil
		}
		if !Unreachable(err) {
			return nil, "", err
		}
		s.log.Warn(ctx, "stop unreachable, updating local history", "error", err)
	}

	hist, err := s.history(ctx)
	if err != nil {
		return nil, "", err
	}
	var stopped *SessionSummary
	for i := range hist {
		if hist[i].ID == id {
			hist[i].Active = false
			stopped = &hist[i]
		}
	}
	if stopped == nil {
		return nil, "", common.NotFound("Session not found")
	}
	if err := s.store.SetMirror(ctx, SessionsHistoryKey, hist); err != nil {
		return nil, "", err
	}
	return stopped, OriginLocal, nil
}

func (s *Service) history(ctx context.Context) ([]SessionSummary, error) {
	hist := []SessionSummary{}
	if _, err := s.store.Mirror(ctx, SessionsHistoryKey, &hist); err != nil {
		return nil, err
	}
	return hist, nil
}

// Register submits a registration, keeping it locally when the server is
// unreachable. Either way a local scan record is added.
func (s *Service) Register(ctx context.Context, reg Registration) (*model.RegisteredCandidate, Origin, error) {
	reg.Code = codegen.Normalize(reg.Code)
	reg.Name = strings.TrimSpace(reg.Name)
	if reg.Code == "" || reg.Name == "" {
		return nil, "", common.Validation("code and name required")
	}

	origin := OriginServer
	candidate, err := s.api.Register(ctx, reg)
	if err != nil {
		if !Unreachable(err) {
			return nil, "", err
		}
		s.log.Warn(ctx, "register unreachable, storing locally", "error", err)
		if err := s.store.AppendMirror(ctx, RegistrationsKey, LocalRegistration{Registration: reg, TS: s.now().UnixMilli()}); err != nil {
			return nil, "", err
		}
		origin = OriginLocal
		candidate = &model.RegisteredCandidate{Name: reg.Name, Phone: reg.Phone, Role: reg.Role, Area: reg.Area}
	}

	if err := s.store.AppendMirror(ctx, ScansKey, LocalScan{Code: reg.Code, TS: s.now().UnixMilli()}); err != nil {
		s.log.Warn(ctx, "local scan record failed", "error", err)
	}
	return candidate, origin, nil
}

// LocalRegistrations returns registrations stored while offline.
func (s *Service) LocalRegistrations(ctx context.Context) ([]LocalRegistration, error) {
	out := []LocalRegistration{}
	if _, err := s.store.Mirror(ctx, RegistrationsKey, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus sends a status update, queueing it under PendingStatusKey when
// the server is unreachable. A queued update returns a nil candidate.
func (s *Service) UpdateStatus(ctx context.Context, id, status string, note *string) (*model.Candidate, Origin, error) {
	if _, ok := model.ParseStatusUpdate(status); !ok {
		return nil, "", common.Validation("Invalid status")
	}
	if strings.TrimSpace(id) == "" {
		return nil, "", common.Validation("id is required")
	}

	c, err := s.api.UpdateStatus(ctx, id, status, note)
	if err == nil {
		return c, OriginServer, nil
	}
	if !Unreachable(err) {
		return nil, "", err
	}

	s.log.Warn(ctx, "status update unreachable, queued", "id", id, "error", err)
	p := PendingStatus{ID: id, Status: status, Note: note, QueuedAt: s.now().UnixMilli()}
	if err := s.store.PushQueue(ctx, PendingStatusKey, p); err != nil {
		return nil, "", err
	}
	return nil, OriginLocal, nil
}

// PendingStatusCount returns the number of queued status updates.
func (s *Service) PendingStatusCount(ctx context.Context) (int, error) {
	return s.store.QueueLen(ctx, PendingStatusKey)
}

// Flush replays queued status updates in order. Updates the server still
// cannot take are queued again; updates it rejects are dropped.
func (s *Service) Flush(ctx context.Context) (FlushResult, error) {
	var res FlushResult

	items, err := s.store.ConsumeQueue(ctx, PendingStatusKey)
	if err != nil {
		return res, err
	}

	for _, raw := range items {
		var p PendingStatus
		if err := json.Unmarshal(raw, &p); err != nil {
			s.log.Warn(ctx, "dropping unreadable queued status", "error", err)
			res.Dropped++
			continue
		}

		_, err := s.api.UpdateStatus(ctx, p.ID, p.Status, p.Note)
		switch {
		case err == nil:
			res.Sent++
		case Unreachable(err):
			if perr := s.store.PushQueue(ctx, PendingStatusKey, p); perr != nil {
				return res, perr
			}
			res.Requeued++
		default:
			s.log.Warn(ctx, "queued status rejected", "id", p.ID, "error", err)
			res.Dropped++
		}
	}
	return res, nil
}
