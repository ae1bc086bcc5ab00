package service

import (
	"context"

	"spothire/internal/logging"
	"spothire/internal/model"
)

// FallbackSource serves the static dataset used when the store fails.
type FallbackSource interface {
	Candidates(f model.CandidateFilter) []model.Candidate
	Templates() []model.RoleTemplate
	TemplateByID(id string) (*model.RoleTemplate, bool)
	TemplateByName(name string) (*model.RoleTemplate, bool)
}

// readWithFallback is the two-tier read policy: the persistent store first,
// the static source when the store fails or, if emptyFallsBack is set, finds
// nothing. The bool reports whether the fallback served the result.
func readWithFallback[T any](
	ctx context.Context,
	log logging.Logger,
	op string,
	primary func(context.Context) ([]T, error),
	fallback func() []T,
	emptyFallsBack bool,
) ([]T, bool) {
	items, err := primary(ctx)
	if err != nil {
		log.Warn(ctx, "store read failed, serving seed data", "op", op, "error", err)
		return orEmpty(fallback()), true
	}
	if emptyFallsBack && len(items) == 0 {
		log.Debug(ctx, "store returned nothing, serving seed data", "op", op)
		return orEmpty(fallback()), true
	}
	return orEmpty(items), false
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
