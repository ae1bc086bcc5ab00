package model

import "time"

type SessionState string

const (
	SessionActive  SessionState = "active"
	SessionStopped SessionState = "stopped"
)

// GeoPoint is a GeoJSON point; Coordinates are [lng, lat].
type GeoPoint struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
}

func NewGeoPoint(lat, lng float64) *GeoPoint {
	return &GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

type SessionStats struct {
	Scans         int64 `json:"scans" bson:"scans"`
	Registrations int64 `json:"registrations" bson:"registrations"`
	Hires         int64 `json:"hires" bson:"hires"`
}

// QRSession is one walk-in hiring event. Code never changes after creation
// and a stopped session is never reactivated.
type QRSession struct {
	ID         string       `json:"id" bson:"_id,omitempty"`
	Code       string       `json:"code" bson:"code"`
	EmployerID string       `json:"employerId" bson:"employer"`
	TemplateID string       `json:"templateId,omitempty" bson:"template,omitempty"`
	Geo        *GeoPoint    `json:"geo,omitempty" bson:"geo,omitempty"`
	Active     bool         `json:"active" bson:"active"`
	Stats      SessionStats `json:"stats" bson:"stats"`
	CreatedAt  time.Time    `json:"createdAt" bson:"createdAt"`
}

func (s *QRSession) State() SessionState {
	if s.Active {
		return SessionActive
	}
	return SessionStopped
}

// SessionFilter narrows listSessions. Nil Active means any state.
type SessionFilter struct {
	Active     *bool
	EmployerID string
}

type StartSessionParams struct {
	EmployerID string
	TemplateID string
	Lat        *float64
	Lng        *float64
}

// CodeMeta is the hot copy of a session kept in the code registry.
type CodeMeta struct {
	SessionID  string    `json:"sessionId"`
	EmployerID string    `json:"employerId"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
}
