package model

// MatchResult is a candidate scored for one matching request.
type MatchResult struct {
	Candidate
	MatchScore int `json:"matchScore"`
}

type FeedSnapshot struct {
	Nearby           []Candidate `json:"nearby"`
	ActiveToday      []Candidate `json:"activeToday"`
	RecentApplicants []Candidate `json:"recentApplicants"`
}

type MassHireResult struct {
	Role      string        `json:"role"`
	Suggested []MatchResult `json:"suggested"`
	Template  *TemplateView `json:"template,omitempty"`
}
