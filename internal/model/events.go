package model

// Realtime event names.
const (
	EventSessionCreated = "qr:session:created"
	EventSessionStopped = "qr:session:stopped"
	EventScan           = "qr:scan"
	EventRegistration   = "qr:registration"
)

type SessionCreatedEvent struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

type SessionStoppedEvent struct {
	ID string `json:"id"`
}

type ScanEvent struct {
	Code  string `json:"code"`
	Scans int64  `json:"scans"`
}

type RegistrationEvent struct {
	Code      string              `json:"code"`
	Candidate RegisteredCandidate `json:"candidate"`
}
