package service

import (
	"context"

	"spothire/internal/logging"
	"spothire/internal/repository"
	"spothire/internal/seed"
)

type SeedTotals struct {
	RoleTemplates int64 `json:"roleTemplates"`
	Candidates    int64 `json:"candidates"`
}

// SeedService loads the static dataset into empty collections.
type SeedService struct {
	templates  repository.TemplateRepo
	candidates repository.CandidateRepo
	log        logging.Logger
}

func NewSeedService(templates repository.TemplateRepo, candidates repository.CandidateRepo, log logging.Logger) *SeedService {
	return &SeedService{
		templates:  templates,
		candidates: candidates,
		log:        log,
	}
}

// Seed inserts seed records into each collection that is empty and returns
// the resulting totals. Non-empty collections are left alone.
func (s *SeedService) Seed(ctx context.Context) (*SeedTotals, error) {
	ts, cs := seed.Records()

	n, err := s.templates.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if err := s.templates.InsertMany(ctx, ts); err != nil {
			return nil, err
		}
		s.log.Info(ctx, "seeded role templates", "count", len(ts))
	}

	n, err = s.candidates.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if err := s.candidates.InsertMany(ctx, cs); err != nil {
			return nil, err
		}
		s.log.Info(ctx, "seeded candidates", "count", len(cs))
	}

	totals := &SeedTotals{}
	if totals.RoleTemplates, err = s.templates.Count(ctx); err != nil {
		return nil, err
	}
	if totals.Candidates, err = s.candidates.Count(ctx); err != nil {
		return nil, err
	}
	return totals, nil
}
