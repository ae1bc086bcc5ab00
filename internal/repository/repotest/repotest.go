// Package repotest provides in-memory repositories for tests. Each fake can
// be switched down to simulate an unreachable store.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"spothire/internal/common"
	"spothire/internal/model"
	"spothire/internal/repository"
)

var (
	_ repository.SessionRepo   = (*Sessions)(nil)
	_ repository.CandidateRepo = (*Candidates)(nil)
	_ repository.TemplateRepo  = (*Templates)(nil)
)

type switchable struct {
	mu   sync.Mutex
	down bool
}

// SetDown makes every later call fail with common.ErrUnavailable.
func (s *switchable) SetDown(down bool) {
	s.mu.Lock()
	s.down = down
	s.mu.Unlock()
}

// check must be called with mu held.
func (s *switchable) check() error {
	if s.down {
		return common.Unavailable("database unavailable")
	}
	return nil
}

// Sessions is an in-memory repository.SessionRepo.
type Sessions struct {
	switchable
	items       []*model.QRSession
	ExistsCalls int
}

func NewSessions() *Sessions {
	return &Sessions{}
}

func (r *Sessions) Create(_ context.Context, s *model.QRSession) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(); err != nil {
		return "", err
	}
	for _, existing := range r.items {
		if existing.Code == s.Code {
			return "", common.Conflict("duplicate key")
		}
	}
	s.ID = primitive.NewObjectID().Hex()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	cp := *s
	r.items = append(r.items, &cp)
	return s.ID, nil
}

func (r *Sessions) GetByID(_ context.Context, id string) (*model.QRSession, error) {
	return r.find(func(s *model.QRSession) bool { return s.ID == id })
}

func (r *Sessions) GetByCode(_ context.Context, code string) (*model.QRSession, error) {
	return r.find(func(s *model.QRSession) bool { return s.Code == code })
}

func (r *Sessions) find(match func(*model.QRSession) bool) (*model.QRSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(); err != nil {
		return nil, err
	}
	for _, s := range r.items {
		if match(s) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *Sessions) CodeExists(_ context.Context, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ExistsCalls++
	if err := r.check(); err != nil {
		return false, err
	}
	for _, s := range r.items {
		if s.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *Sessions) List(_ context.Context, f model.SessionFilter) ([]*model.QRSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(); err != nil {
		return nil, err
	}
	out := []*model.QRSession{}
	for _, s := range r.items {
		if f.Active != nil && s.Active != *f.Active {
			continue
		}
		if f.EmployerID != "" && s.EmployerID != f.EmployerID {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *Sessions) Stop(_ context.Context, id string) (*model.QRSession, error) {
	return r.update(func(s *model.QRSession) bool { return s.ID == id }, func(s *model.QRSession) { s.Active = false })
}

func (r *Sessions) IncrementScans(_ context.Context, code string) (*model.QRSession, error) {
	return r.update(func(s *model.QRSession) bool { return s.Code == code }, func(s *model.QRSession) { s.Stats.Scans++ })
}

func (r *Sessions) IncrementRegistrations(_ context.Context, code string) (*model.QRSession, error) {
	return r.update(func(s *model.QRSession) bool { return s.Code == code }, func(s *model.QRSession) { s.Stats.Registrations++ })
}

func (r *Sessions) update(match func(*model.QRSession) bool, apply func(*model.QRSession)) (*model.QRSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(); err != nil {
		return nil, err
	}
	for _, s := range r.items {
		if match(s) {
			apply(s)
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

// Candidates is an in-memory repository.CandidateRepo.
type Candidates struct {
	switchable
	items []model.Candidate
}

func NewCandidates(seed ...model.Candidate) *Candidates {
	r := &Candidates{}
	for _, c := range seed {
		if c.ID == "" {
			c.ID = primitive.NewObjectID().Hex()
		}
		if c.Status == "" {
			c.Status = model.StatusNew
		}
		r.items = append(r.items, c)
	}
	return r
}

// All returns a snapshot of the stored candidates.
func (r *Candidates) All() []model.Candidate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Candidate(nil), r.items...)
}

func (r *Candidates) Find(_ context.Context, f model.CandidateFilter) ([]model.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(); err != nil {
		return nil, err
	}
	out := []model.Candidate{}
	for _, c := range r.items {
		if !f.Matches(c) {
			continue
		}
		out = append(out, c)
		if f.Limit > 0 && int64(len(out)) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (r *Candidates) Create(_ context.Context, c *model.Candidate) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(); err != nil {
		return "", err
	}
	c.ID = primitive.NewObjectID().Hex()
	if c.Status == "" {
		c.Status = model.StatusNew
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	r.items = append(r.items, *c)
	return c.ID, nil
}

func (r *Candidates) UpdateStatus(_ context.Context, id string, status model.CandidateStatus, note *string) (*model.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(); err != nil {
		return nil, err
	}
	for i := range r.items {
		if r.items[i].ID != id {
			continue
		}
		r.items[i].Status = status
		if note != nil {
			r.items[i].Note = *note
		}
		cp := r.items[i]
		return &cp, nil
	}
	return nil, nil
}

func (r *Candidates) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(); err != nil {
		return 0, err
	}
	return int64(len(r.items)), nil
}

func (r *Candidates) InsertMany(ctx context.Context, cs []model.Candidate) error {
	for i := range cs {
		if _, err := r.Create(ctx, &cs[i]); err != nil {
			return err
		}
	}
	return nil
}

// Templates is an in-memory repository.TemplateRepo.
type Templates struct {
	switchable
	items []model.RoleTemplate
}

func NewTemplates() *Templates {
	return &Templates{}
}

func (r *Templates) List(_ context.Context) ([]model.RoleTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(); err != nil {
		return nil, err
	}
	return append([]model.RoleTemplate{}, r.items...), nil
}

func (r *Templates) GetByID(_ context.Context, id string) (*model.RoleTemplate, error) {
	return r.find(func(t model.RoleTemplate) bool { return t.ID == id })
}

func (r *Templates) GetByName(_ context.Context, name string) (*model.RoleTemplate, error) {
	return r.find(func(t model.RoleTemplate) bool { return strings.EqualFold(t.Name, name) })
}

func (r *Templates) find(match func(model.RoleTemplate) bool) (*model.RoleTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(); err != nil {
		return nil, err
	}
	for _, t := range r.items {
		if match(t) {
			return &t, nil
		}
	}
	return nil, nil
}

func (r *Templates) Create(_ context.Context, t *model.RoleTemplate) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(); err != nil {
		return "", err
	}
	for _, existing := range r.items {
		if strings.EqualFold(existing.Name, t.Name) {
			return "", common.Conflict("duplicate key")
		}
	}
	t.ID = primitive.NewObjectID().Hex()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	cp := *t
	cp.Requirements = append([]string(nil), t.Requirements...)
	r.items = append(r.items, cp)
	return t.ID, nil
}

func (r *Templates) Replace(_ context.Context, t *model.RoleTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(); err != nil {
		return err
	}
	for i := range r.items {
		if r.items[i].ID != t.ID && strings.EqualFold(r.items[i].Name, t.Name) {
			return common.Conflict("duplicate key")
		}
	}
	for i := range r.items {
		if r.items[i].ID == t.ID {
			r.items[i] = *t
		}
	}
	return nil
}

func (r *Templates) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(); err != nil {
		return false, err
	}
	for i := range r.items {
		if r.items[i].ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *Templates) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(); err != nil {
		return 0, err
	}
	return int64(len(r.items)), nil
}

func (r *Templates) InsertMany(ctx context.Context, ts []model.RoleTemplate) error {
	for i := range ts {
		if _, err := r.Create(ctx, &ts[i]); err != nil {
			return err
		}
	}
	return nil
}
