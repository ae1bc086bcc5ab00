package service

import (
	"context"
	"sort"
	"strings"

	"spothire/internal/common"
	"spothire/internal/logging"
	"spothire/internal/model"
)

const (
	DefaultMatchLimit    = 20
	DefaultMassHireCount = 5
	MaxMatchLimit        = 200

	// candidates fetched per result slot before scoring
	overfetchFactor = 3
)

// Heuristic weights.
const (
	scoreRoleMatch        = 40
	scoreActiveToday      = 25
	scoreAppliedToSimilar = 10
	scoreTenthPass        = 5
)

// Score rates how well c fits role.
func Score(c model.Candidate, role string) int {
	score := 0
	if role != "" && strings.EqualFold(strings.TrimSpace(c.Role), strings.TrimSpace(role)) {
		score += scoreRoleMatch
	}
	if c.ActiveToday {
		score += scoreActiveToday
	}
	if c.AppliedToSimilar {
		score += scoreAppliedToSimilar
	}
	if strings.Contains(c.Education, "10th") {
		score += scoreTenthPass
	}
	return score
}

// Rank scores candidates, orders them by descending score keeping input order
// among equal scores, and keeps at most limit.
func Rank(candidates []model.Candidate, role string, limit int) []model.MatchResult {
	results := make([]model.MatchResult, len(candidates))
	for i, c := range candidates {
		results[i] = model.MatchResult{Candidate: c, MatchScore: Score(c, role)}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MatchScore > results[j].MatchScore
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

type MatchingService struct {
	candidates *CandidateService
	templates  *TemplateService
	log        logging.Logger
}

func NewMatchingService(candidates *CandidateService, templates *TemplateService, log logging.Logger) *MatchingService {
	return &MatchingService{
		candidates: candidates,
		templates:  templates,
		log:        log,
	}
}

// Match returns the best candidates for role. limit <= 0 means
// DefaultMatchLimit; limits above MaxMatchLimit are capped.
func (s *MatchingService) Match(ctx context.Context, role string, limit int) []model.MatchResult {
	switch {
	case limit <= 0:
		limit = DefaultMatchLimit
	case limit > MaxMatchLimit:
		limit = MaxMatchLimit
	}
	role = strings.TrimSpace(role)

	pool := s.candidates.ForRole(ctx, role, limit*overfetchFactor)
	return Rank(pool, role, limit)
}

// MassHire suggests count candidates for role together with the role's
// template when one exists.
func (s *MatchingService) MassHire(ctx context.Context, role string, count int) (*model.MassHireResult, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return nil, common.Validation("role is required")
	}
	if count <= 0 {
		count = DefaultMassHireCount
	}

	res := &model.MassHireResult{
		Role:      role,
		Suggested: s.Match(ctx, role, count),
	}
	if t := s.templates.FindByName(ctx, role); t != nil {
		v := t.View()
		res.Template = &v
	}

	s.log.Info(ctx, "mass hire suggested", "role", role, "count", len(res.Suggested))
	return res, nil
}
