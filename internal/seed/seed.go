// Package seed holds the static dataset used when the candidate and template
// stores are unreachable, and as the initial content of an empty store.
package seed

import (
	"fmt"
	"strconv"
	"strings"

	"spothire/internal/model"
)

// IDPrefix marks records that were never persisted.
const IDPrefix = "seed_"

var templates = []model.RoleTemplate{
	{Name: "Delivery Boy", SalaryMin: 15000, SalaryMax: 22000, WorkHours: "10am - 7pm", Requirements: []string{"10th pass", "Android phone", "Two-wheeler preferred"}},
	{Name: "Retail Associate", SalaryMin: 12000, SalaryMax: 18000, WorkHours: "10am - 8pm", Requirements: []string{"12th pass", "Basic English", "POS handling"}},
	{Name: "Helper", SalaryMin: 10000, SalaryMax: 14000, WorkHours: "9am - 6pm", Requirements: []string{"No education requirement", "Physically fit"}},
}

var candidates = []model.Candidate{
	{Name: "Ravi Kumar", Role: "Delivery Boy", Area: "JP Nagar", Education: "10th pass", Phone: "+91-90000-00001", ActiveToday: true, AppliedToSimilar: false},
	{Name: "Sita Devi", Role: "Retail Associate", Area: "BTM Layout", Education: "12th pass", Phone: "+91-90000-00002", ActiveToday: true, AppliedToSimilar: true},
	{Name: "Akash", Role: "Helper", Area: "JP Nagar", Education: "8th pass", Phone: "+91-90000-00003", ActiveToday: false, AppliedToSimilar: true},
	{Name: "Rahul", Role: "Delivery Boy", Area: "JP Nagar", Education: "10th pass", Phone: "+91-90000-00004", ActiveToday: true, AppliedToSimilar: false},
}

// ID returns the synthetic id of the i-th seed record. Ids are positional in
// the full dataset so they stay the same for every query in a process.
func ID(i int) string {
	return IDPrefix + strconv.Itoa(i)
}

func IsSynthetic(id string) bool {
	return strings.HasPrefix(id, IDPrefix)
}

func index(id string) (int, error) {
	if !IsSynthetic(id) {
		return 0, fmt.Errorf("not a seed id: %q", id)
	}
	return strconv.Atoi(strings.TrimPrefix(id, IDPrefix))
}

// Source serves the static dataset with synthetic ids.
type Source struct{}

func NewSource() *Source {
	return &Source{}
}

// Candidates returns the candidates matching f, in dataset order.
func (s *Source) Candidates(f model.CandidateFilter) []model.Candidate {
	out := make([]model.Candidate, 0, len(candidates))
	for i, c := range candidates {
		if !f.Matches(c) {
			continue
		}
		c.ID = ID(i)
		c.Status = model.StatusNew
		out = append(out, c)
		if f.Limit > 0 && int64(len(out)) >= f.Limit {
			break
		}
	}
	return out
}

func (s *Source) Templates() []model.RoleTemplate {
	out := make([]model.RoleTemplate, len(templates))
	for i, t := range templates {
		out[i] = withID(t, i)
	}
	return out
}

func (s *Source) TemplateByID(id string) (*model.RoleTemplate, bool) {
	i, err := index(id)
	if err != nil || i < 0 || i >= len(templates) {
		return nil, false
	}
	t := withID(templates[i], i)
	return &t, true
}

// TemplateByName looks a template up by case-insensitive name.
func (s *Source) TemplateByName(name string) (*model.RoleTemplate, bool) {
	for i, t := range templates {
		if strings.EqualFold(t.Name, strings.TrimSpace(name)) {
			t = withID(t, i)
			return &t, true
		}
	}
	return nil, false
}

// Records returns the raw dataset for inserting into an empty store.
func Records() ([]model.RoleTemplate, []model.Candidate) {
	ts := make([]model.RoleTemplate, len(templates))
	for i, t := range templates {
		t.Requirements = append([]string(nil), t.Requirements...)
		ts[i] = t
	}
	cs := make([]model.Candidate, len(candidates))
	for i, c := range candidates {
		c.Status = model.StatusNew
		cs[i] = c
	}
	return ts, cs
}

func withID(t model.RoleTemplate, i int) model.RoleTemplate {
	t.ID = ID(i)
	t.Requirements = append([]string(nil), t.Requirements...)
	return t
}
