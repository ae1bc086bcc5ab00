package model

import (
	"strings"
	"time"
)

type CandidateStatus string

const (
	StatusNew            CandidateStatus = "new"
	StatusNotAvailable   CandidateStatus = "not_available"
	StatusSalaryMismatch CandidateStatus = "salary_mismatch"
	StatusNoAnswer       CandidateStatus = "no_answer"
	StatusHired          CandidateStatus = "hired"
	StatusNextRound      CandidateStatus = "next_round"
)

// DefaultRegistrationRole is used when a QR registration omits the role.
const DefaultRegistrationRole = "Applicant"

// ParseStatusUpdate accepts the statuses a recruiter may set. The initial
// "new" state is not among them.
func ParseStatusUpdate(s string) (CandidateStatus, bool) {
	switch st := CandidateStatus(s); st {
	case StatusNotAvailable, StatusSalaryMismatch, StatusNoAnswer, StatusHired, StatusNextRound:
		return st, true
	default:
		return "", false
	}
}

type Candidate struct {
	ID               string          `json:"id" bson:"_id,omitempty"`
	Name             string          `json:"name" bson:"name"`
	Role             string          `json:"role" bson:"role"`
	Area             string          `json:"area,omitempty" bson:"area,omitempty"`
	Education        string          `json:"education,omitempty" bson:"education,omitempty"`
	Phone            string          `json:"phone,omitempty" bson:"phone,omitempty"`
	ActiveToday      bool            `json:"activeToday" bson:"activeToday"`
	AppliedToSimilar bool            `json:"appliedToSimilar" bson:"appliedToSimilar"`
	Status           CandidateStatus `json:"status" bson:"status"`
	Note             string          `json:"note,omitempty" bson:"note,omitempty"`
	CreatedAt        time.Time       `json:"createdAt,omitzero" bson:"createdAt"`
}

type NewCandidate struct {
	Name             string
	Role             string
	Area             string
	Education        string
	Phone            string
	ActiveToday      bool
	AppliedToSimilar bool
}

// RegisteredCandidate is what a QR registration exposes to observers. ID is
// empty when the candidate could not be persisted.
type RegisteredCandidate struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role"`
	Area  string `json:"area,omitempty"`
}

// CandidateFilter is a conjunction of case-insensitive exact matches.
// Empty strings and nil flags impose no constraint.
type CandidateFilter struct {
	Role             string
	Area             string
	Education        string
	ActiveToday      *bool
	AppliedToSimilar *bool
	Limit            int64
}

// Normalized trims the text filters and lower-cases them.
func (f CandidateFilter) Normalized() CandidateFilter {
	f.Role = NormalizeText(f.Role)
	f.Area = NormalizeText(f.Area)
	f.Education = NormalizeText(f.Education)
	return f
}

// Matches applies the same rule the persistent store applies.
func (f CandidateFilter) Matches(c Candidate) bool {
	if !textMatches(f.Role, c.Role) || !textMatches(f.Area, c.Area) || !textMatches(f.Education, c.Education) {
		return false
	}
	if f.ActiveToday != nil && c.ActiveToday != *f.ActiveToday {
		return false
	}
	if f.AppliedToSimilar != nil && c.AppliedToSimilar != *f.AppliedToSimilar {
		return false
	}
	return true
}

func NormalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func textMatches(want, got string) bool {
	want = strings.TrimSpace(want)
	return want == "" || strings.EqualFold(want, strings.TrimSpace(got))
}

func Bool(v bool) *bool { return &v }
