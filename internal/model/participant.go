package model

import "time"

// Participant is the request-scoped view of a respondent and the credentials
// their session carries.
type Participant struct {
	ID                string    `json:"id"`
	SessionID         string    `json:"sessionId"`
	WorldIDVerified   bool      `json:"worldIdVerified"`
	WorldIDSubject    string    `json:"worldIdSubject,omitempty"`
	VerificationLevel string    `json:"verificationLevel,omitempty"`
	QuarkIDVerified   bool      `json:"quarkIdVerified"`
	QuarkIDSubject    string    `json:"quarkIdSubject,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Credential is a verified identity returned by a provider.
type Credential struct {
	Provider          string `json:"provider"`
	Subject           string `json:"subject"`
	VerificationLevel string `json:"verificationLevel,omitempty"`
	Verified          bool   `json:"verified"`
}
