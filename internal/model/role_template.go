package model

import "time"

type RoleTemplate struct {
	ID           string    `json:"id" bson:"_id,omitempty"`
	Name         string    `json:"name" bson:"name"`
	SalaryMin    int64     `json:"salaryMin" bson:"salaryMin"`
	SalaryMax    int64     `json:"salaryMax" bson:"salaryMax"`
	WorkHours    string    `json:"workHours,omitempty" bson:"workHours,omitempty"`
	Requirements []string  `json:"defaultRequirements" bson:"defaultRequirements"`
	CreatedAt    time.Time `json:"createdAt,omitzero" bson:"createdAt"`
}

// TemplateView is the wire shape of a role template.
type TemplateView struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	SalaryRange         [2]int64 `json:"salaryRange"`
	WorkHours           string   `json:"workHours"`
	DefaultRequirements []string `json:"defaultRequirements"`
}

func (t *RoleTemplate) View() TemplateView {
	reqs := t.Requirements
	if reqs == nil {
		reqs = []string{}
	}
	return TemplateView{
		ID:                  t.ID,
		Name:                t.Name,
		SalaryRange:         [2]int64{t.SalaryMin, t.SalaryMax},
		WorkHours:           t.WorkHours,
		DefaultRequirements: reqs,
	}
}

// TemplatePatch carries a partial update; nil fields are left unchanged.
type TemplatePatch struct {
	Name         *string
	SalaryMin    *int64
	SalaryMax    *int64
	WorkHours    *string
	Requirements []string
}

func (p TemplatePatch) Apply(t RoleTemplate) RoleTemplate {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.SalaryMin != nil {
		t.SalaryMin = *p.SalaryMin
	}
	if p.SalaryMax != nil {
		t.SalaryMax = *p.SalaryMax
	}
	if p.WorkHours != nil {
		t.WorkHours = *p.WorkHours
	}
	if p.Requirements != nil {
		t.Requirements = p.Requirements
	}
	return t
}
