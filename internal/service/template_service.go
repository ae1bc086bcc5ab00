package service

import (
	"context"
	"strings"

	"spothire/internal/common"
	"spothire/internal/logging"
	"spothire/internal/model"
	"spothire/internal/repository"
	"spothire/internal/seed"
)

// TemplateInput is a full template definition. SalaryMin and SalaryMax are
// pointers so a missing value can be told apart from zero.
type TemplateInput struct {
	Name         string
	SalaryMin    *int64
	SalaryMax    *int64
	WorkHours    string
	Requirements []string
}

type TemplateService struct {
	repo     repository.TemplateRepo
	fallback FallbackSource
	log      logging.Logger
}

func NewTemplateService(repo repository.TemplateRepo, fallback FallbackSource, log logging.Logger) *TemplateService {
	return &TemplateService{
		repo:     repo,
		fallback: fallback,
		log:      log,
	}
}

// List returns stored templates, or the seed templates when the store is
// unreachable or empty.
func (s *TemplateService) List(ctx context.Context) []model.RoleTemplate {
	items, _ := readWithFallback(ctx, s.log, "templates.list",
		s.repo.List,
		s.fallback.Templates,
		true,
	)
	return items
}

// Get resolves stored ids and synthetic seed ids.
func (s *TemplateService) Get(ctx context.Context, id string) (*model.RoleTemplate, error) {
	if seed.IsSynthetic(id) {
		if t, ok := s.fallback.TemplateByID(id); ok {
			return t, nil
		}
		return nil, common.NotFound("Template not found")
	}

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if isUnavailable(err) {
			return nil, common.NotFound("Template not found")
		}
		return nil, err
	}
	if t == nil {
		return nil, common.NotFound("Template not found")
	}
	return t, nil
}

// FindByName looks a template up by case-insensitive name in the store, then
// in the seed set. It returns nil when neither has one.
func (s *TemplateService) FindByName(ctx context.Context, name string) *model.RoleTemplate {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	t, err := s.repo.GetByName(ctx, name)
	if err != nil {
		s.log.Warn(ctx, "template lookup failed, trying seed data", "name", name, "error", err)
	}
	if t != nil {
		return t
	}
	if t, ok := s.fallback.TemplateByName(name); ok {
		return t
	}
	return nil
}

// Suggest returns the template for role or a not found error.
func (s *TemplateService) Suggest(ctx context.Context, role string) (*model.RoleTemplate, error) {
	if t := s.FindByName(ctx, role); t != nil {
		return t, nil
	}
	return nil, common.NotFound("Role template not found")
}

func (s *TemplateService) Create(ctx context.Context, in TemplateInput) (*model.RoleTemplate, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.SalaryMin == nil || in.SalaryMax == nil {
		return nil, common.Validation("name, salaryMin, salaryMax required")
	}

	t := &model.RoleTemplate{
		Name:         name,
		SalaryMin:    *in.SalaryMin,
		SalaryMax:    *in.SalaryMax,
		WorkHours:    strings.TrimSpace(in.WorkHours),
		Requirements: cleanRequirements(in.Requirements),
	}
	if err := validateSalary(t); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, common.Conflict("Template name already exists")
	}

	if _, err := s.repo.Create(ctx, t); err != nil {
		if isConflict(err) {
			return nil, common.Conflict("Template name already exists")
		}
		return nil, err
	}
	return t, nil
}

func (s *TemplateService) Update(ctx context.Context, id string, patch model.TemplatePatch) (*model.RoleTemplate, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, common.NotFound("Template not found")
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			patch.Name = nil
		} else {
			patch.Name = &name
		}
	}
	if patch.Requirements != nil {
		patch.Requirements = cleanRequirements(patch.Requirements)
	}

	updated := patch.Apply(*current)
	if err := validateSalary(&updated); err != nil {
		return nil, err
	}

	if !strings.EqualFold(updated.Name, current.Name) {
		other, err := s.repo.GetByName(ctx, updated.Name)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != updated.ID {
			return nil, common.Conflict("Template name already exists")
		}
	}

	if err := s.repo.Replace(ctx, &updated); err != nil {
		if isConflict(err) {
			return nil, common.Conflict("Template name already exists")
		}
		return nil, err
	}
	return &updated, nil
}

func (s *TemplateService) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return common.NotFound("Template not found")
	}
	return nil
}

func validateSalary(t *model.RoleTemplate) error {
	if t.SalaryMin < 0 || t.SalaryMax < 0 {
		return common.Validation("salary values must be non-negative")
	}
	if t.SalaryMin > t.SalaryMax {
		return common.Validation("salaryMin must not exceed salaryMax")
	}
	return nil
}

func cleanRequirements(reqs []string) []string {
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
