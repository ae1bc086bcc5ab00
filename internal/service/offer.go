package service

import "strings"

// OfferRequest holds the fields of an offer message. Empty fields take
// defaults.
type OfferRequest struct {
	CandidateName string `json:"candidateName"`
	Role          string `json:"role"`
	Salary        string `json:"salary"`
	WorkHours     string `json:"workHours"`
	EmployerName  string `json:"employerName"`
}

// BuildOfferMessage renders the plain-text offer sent to a candidate.
func BuildOfferMessage(req OfferRequest) string {
	lines := []string{
		"Hi " + orDefault(req.CandidateName, "Candidate") + ",",
		"We'd like to offer you the role of " + orDefault(req.Role, "Role") + ".",
		"Salary: " + orDefault(req.Salary, "As discussed"),
		"Work hours: " + orDefault(req.WorkHours, "Standard shift"),
		"Reply YES to accept or call us.",
		"- " + orDefault(req.EmployerName, "MSME Employer"),
	}
	return strings.Join(lines, "\n")
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
