package service

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"spothire/internal/cache"
	"spothire/internal/common"
	"spothire/internal/logging"
	"spothire/internal/model"
	"spothire/internal/repository"
)

// CandidateService is the candidate directory. Reads fall back to the static
// source; writes require the store.
type CandidateService struct {
	repo          repository.CandidateRepo
	fallback      FallbackSource
	feedCache     cache.FeedCache
	referenceArea string
	log           logging.Logger
}

func NewCandidateService(repo repository.CandidateRepo, fallback FallbackSource, referenceArea string, log logging.Logger) *CandidateService {
	return &CandidateService{
		repo:          repo,
		fallback:      fallback,
		referenceArea: referenceArea,
		log:           log,
	}
}

// SetFeedCache enables caching of store-backed feed snapshots.
func (s *CandidateService) SetFeedCache(c cache.FeedCache) {
	s.feedCache = c
}

// Search filters candidates by role, area and education. It never fails: when
// the store is unreachable the seed dataset is filtered by the same rule.
func (s *CandidateService) Search(ctx context.Context, f model.CandidateFilter) []model.Candidate {
	f = model.CandidateFilter{Role: f.Role, Area: f.Area, Education: f.Education}.Normalized()

	items, _ := readWithFallback(ctx, s.log, "candidates.search",
		func(ctx context.Context) ([]model.Candidate, error) { return s.repo.Find(ctx, f) },
		func() []model.Candidate { return s.fallback.Candidates(f) },
		false,
	)
	return items
}

func (s *CandidateService) Create(ctx context.Context, in model.NewCandidate) (*model.Candidate, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Role = strings.TrimSpace(in.Role)
	if in.Name == "" || in.Role == "" {
		return nil, common.Validation("name and role required")
	}

	c := &model.Candidate{
		Name:             in.Name,
		Role:             in.Role,
		Area:             strings.TrimSpace(in.Area),
		Education:        strings.TrimSpace(in.Education),
		Phone:            strings.TrimSpace(in.Phone),
		ActiveToday:      in.ActiveToday,
		AppliedToSimilar: in.AppliedToSimilar,
		Status:           model.StatusNew,
	}
	if _, err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.invalidateFeed(ctx)
	return c, nil
}

// UpdateStatus sets a recruiter status. There is no seed fallback: seed
// records cannot be updated.
func (s *CandidateService) UpdateStatus(ctx context.Context, id, status string, note *string) (*model.Candidate, error) {
	st, ok := model.ParseStatusUpdate(status)
	if !ok {
		return nil, common.Validation("Invalid status")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, common.Validation("id is required")
	}

	c, err := s.repo.UpdateStatus(ctx, id, st, note)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, common.NotFound("Candidate not found")
	}

	s.invalidateFeed(ctx)
	return c, nil
}

// FeedSnapshot runs the nearby, active-today and recent-applicant queries in
// parallel. Each one falls back to seed data on its own.
func (s *CandidateService) FeedSnapshot(ctx context.Context) model.FeedSnapshot {
	if s.feedCache != nil {
		cached, err := s.feedCache.Get(ctx, s.referenceArea)
		if err != nil {
			s.log.Warn(ctx, "feed cache read failed", "error", err)
		} else if cached != nil {
			return *cached
		}
	}

	queries := []model.CandidateFilter{
		{Area: s.referenceArea},
		{ActiveToday: model.Bool(true)},
		{AppliedToSimilar: model.Bool(true)},
	}
	results := make([][]model.Candidate, len(queries))
	degraded := make([]bool, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range queries {
		g.Go(func() error {
			results[i], degraded[i] = readWithFallback(gctx, s.log, "candidates.feed",
				func(ctx context.Context) ([]model.Candidate, error) { return s.repo.Find(ctx, f) },
				func() []model.Candidate { return s.fallback.Candidates(f) },
				false,
			)
			return nil
		})
	}
	_ = g.Wait()

	feed := model.FeedSnapshot{
		Nearby:           results[0],
		ActiveToday:      results[1],
		RecentApplicants: results[2],
	}

	if s.feedCache != nil && !degraded[0] && !degraded[1] && !degraded[2] {
		if err := s.feedCache.Set(ctx, s.referenceArea, &feed); err != nil {
			s.log.Warn(ctx, "feed cache write failed", "error", err)
		}
	}
	return feed
}

// ForRole returns the candidate pool for matching: store candidates whose role
// equals role, up to limit, or the seed candidates for role when the store
// fails or has none. An empty role imposes no constraint.
func (s *CandidateService) ForRole(ctx context.Context, role string, limit int) []model.Candidate {
	f := model.CandidateFilter{Role: role, Limit: int64(limit)}

	items, _ := readWithFallback(ctx, s.log, "candidates.for_role",
		func(ctx context.Context) ([]model.Candidate, error) { return s.repo.Find(ctx, f) },
		func() []model.Candidate { return s.fallback.Candidates(model.CandidateFilter{Role: role}) },
		true,
	)
	return items
}

func (s *CandidateService) invalidateFeed(ctx context.Context) {
	if s.feedCache == nil {
		return
	}
	if err := s.feedCache.Invalidate(ctx); err != nil {
		s.log.Warn(ctx, "feed cache invalidation failed", "error", err)
	}
}
