package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"spothire/internal/cache"
	"spothire/internal/codegen"
	"spothire/internal/common"
	"spothire/internal/logging"
	"spothire/internal/model"
	"spothire/internal/repository"
)

// RegistrationInput is what a candidate submits after scanning a code.
type RegistrationInput struct {
	Code      string
	Name      string
	Phone     string
	Role      string
	Area      string
	Education string
}

// SessionService owns the QR session lifecycle: active on start, stopped on
// stop, never reactivated.
type SessionService struct {
	repo       repository.SessionRepo
	candidates *CandidateService
	codes      codegen.Generator
	codeCache  cache.CodeCache
	notifier   Notifier
	log        logging.Logger
	now        func() time.Time
}

func NewSessionService(repo repository.SessionRepo, candidates *CandidateService, codes codegen.Generator, log logging.Logger) *SessionService {
	return &SessionService{
		repo:       repo,
		candidates: candidates,
		codes:      codes,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetNotifier sets the realtime notifier (optional).
func (s *SessionService) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetCodeCache sets the Redis code registry (optional).
func (s *SessionService) SetCodeCache(c cache.CodeCache) {
	s.codeCache = c
}

func (s *SessionService) StartSession(ctx context.Context, p model.StartSessionParams) (*model.QRSession, error) {
	employerID := strings.TrimSpace(p.EmployerID)
	if employerID == "" {
		return nil, common.Validation("employerId is required")
	}

	code, err := s.generateCode(ctx)
	if err != nil {
		return nil, err
	}

	session := &model.QRSession{
		Code:       code,
		EmployerID: employerID,
		TemplateID: strings.TrimSpace(p.TemplateID),
		Active:     true,
		CreatedAt:  s.now(),
	}
	if p.Lat != nil && p.Lng != nil {
		session.Geo = model.NewGeoPoint(*p.Lat, *p.Lng)
	}

	// The existence check and this insert are not atomic. A concurrent start
	// that drew the same code loses on the unique index and gets a conflict.
	if _, err := s.repo.Create(ctx, session); err != nil {
		if isConflict(err) {
			return nil, common.Conflict("Session code already in use, please retry")
		}
		return nil, err
	}

	s.cacheCode(ctx, session)
	s.log.Info(ctx, "session started", "id", session.ID, "code", code, "employer", employerID)

	notify(ctx, s.notifier, s.log, model.EventSessionCreated, model.SessionCreatedEvent{
		ID:   session.ID,
		Code: session.Code,
	})
	return session, nil
}

// generateCode draws codes until one is not already taken, giving up after
// codegen.MaxAttempts and returning the last one drawn.
func (s *SessionService) generateCode(ctx context.Context) (string, error) {
	var code string
	for attempt := 1; attempt <= codegen.MaxAttempts; attempt++ {
		c, err := s.codes.Generate()
		if err != nil {
			return "", fmt.Errorf("failed to generate session code: %w", err)
		}
		code = c

		taken, err := s.codeTaken(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
		s.log.Debug(ctx, "session code collision", "code", code, "attempt", attempt)
	}

	s.log.Warn(ctx, "session code retries exhausted, accepting last draw", "code", code)
	return code, nil
}

func (s *SessionService) codeTaken(ctx context.Context, code string) (bool, error) {
	if s.codeCache != nil {
		ok, err := s.codeCache.Exists(ctx, code)
		if err != nil {
			s.log.Warn(ctx, "code cache lookup failed", "error", err)
		} else if ok {
			return true, nil
		}
	}
	return s.repo.CodeExists(ctx, code)
}

// ListSessions returns sessions newest first. Store failures are returned so
// the caller can fall back to its local history.
func (s *SessionService) ListSessions(ctx context.Context, f model.SessionFilter) ([]*model.QRSession, error) {
	f.EmployerID = strings.TrimSpace(f.EmployerID)
	return s.repo.List(ctx, f)
}

// StopSession deactivates a session. Stopping a stopped session succeeds.
func (s *SessionService) StopSession(ctx context.Context, id string) (*model.QRSession, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, common.Validation("id required")
	}

	session, err := s.repo.Stop(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, common.NotFound("Session not found")
	}

	if s.codeCache != nil {
		if err := s.codeCache.SetActive(ctx, session.Code, false); err != nil {
			s.log.Warn(ctx, "code cache update failed", "code", session.Code, "error", err)
		}
	}
	s.log.Info(ctx, "session stopped", "id", session.ID, "code", session.Code)

	notify(ctx, s.notifier, s.log, model.EventSessionStopped, model.SessionStoppedEvent{ID: session.ID})
	return session, nil
}

// RecordScan counts a scan of code. Codes of stopped sessions are still
// counted since the printed QR outlives the active flag.
func (s *SessionService) RecordScan(ctx context.Context, code string) (*model.QRSession, error) {
	code = codegen.Normalize(code)
	if code == "" {
		return nil, common.Validation("code required")
	}

	session, err := s.repo.IncrementScans(ctx, code)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, common.NotFound("Session code not found")
	}

	notify(ctx, s.notifier, s.log, model.EventScan, model.ScanEvent{
		Code:  session.Code,
		Scans: session.Stats.Scans,
	})
	return session, nil
}

// RecordRegistration creates a candidate from a QR submission and counts the
// registration. When the session store is unreachable but the code registry
// knows the code, the registration is announced without a persisted id.
func (s *SessionService) RecordRegistration(ctx context.Context, in RegistrationInput) (*model.RegisteredCandidate, error) {
	code := codegen.Normalize(in.Code)
	name := strings.TrimSpace(in.Name)
	if code == "" || name == "" {
		return nil, common.Validation("code and name required")
	}

	persisted, err := s.resolveCode(ctx, code)
	if err != nil {
		return nil, err
	}

	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = model.DefaultRegistrationRole
	}
	payload := &model.RegisteredCandidate{
		Name:  name,
		Phone: strings.TrimSpace(in.Phone),
		Role:  role,
		Area:  strings.TrimSpace(in.Area),
	}

	if persisted {
		c, err := s.candidates.Create(ctx, model.NewCandidate{
			Name:        name,
			Role:        role,
			Area:        in.Area,
			Education:   in.Education,
			Phone:       in.Phone,
			ActiveToday: true,
		})
		switch {
		case err == nil:
			payload.ID = c.ID
		case isUnavailable(err):
			s.log.Warn(ctx, "candidate store unreachable, registration not persisted", "code", code, "error", err)
		default:
			return nil, err
		}

		if _, err := s.repo.IncrementRegistrations(ctx, code); err != nil {
			s.log.Warn(ctx, "registration counter not updated", "code", code, "error", err)
		}
	}

	notify(ctx, s.notifier, s.log, model.EventRegistration, model.RegistrationEvent{
		Code:      code,
		Candidate: *payload,
	})
	return payload, nil
}

// resolveCode reports whether code belongs to a stored session. It returns
// false with no error when only the code registry could vouch for it.
func (s *SessionService) resolveCode(ctx context.Context, code string) (bool, error) {
	session, err := s.repo.GetByCode(ctx, code)
	if err == nil {
		if session == nil {
			return false, common.NotFound("Session code not found")
		}
		return true, nil
	}
	if !isUnavailable(err) || s.codeCache == nil {
		return false, err
	}

	meta, cacheErr := s.codeCache.GetMeta(ctx, code)
	if cacheErr != nil || meta == nil {
		return false, err
	}
	s.log.Warn(ctx, "session store unreachable, code resolved from registry", "code", code)
	return false, nil
}

func (s *SessionService) cacheCode(ctx context.Context, session *model.QRSession) {
	if s.codeCache == nil {
		return
	}
	err := s.codeCache.SetMeta(ctx, session.Code, &model.CodeMeta{
		SessionID:  session.ID,
		EmployerID: session.EmployerID,
		Active:     session.Active,
		CreatedAt:  session.CreatedAt,
	})
	if err != nil {
		s.log.Warn(ctx, "code cache write failed", "code", session.Code, "error", err)
	}
}
