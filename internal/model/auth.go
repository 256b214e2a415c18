package model

import "github.com/golang-jwt/jwt/v5"

// ResearcherClaims are JWT claims for researcher authentication
type ResearcherClaims struct {
	ResearcherID string `json:"researcherId"`
	jwt.RegisteredClaims
}

// ParticipantClaims reference a participant session held in the session cache
type ParticipantClaims struct {
	ParticipantID string `json:"participantId"`
	SessionID     string `json:"sessionId"`
	jwt.RegisteredClaims
}

// LoginRequest is the request body for researcher login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Address  string `json:"address,omitempty"` // wallet address used as survey owner
}

// LoginResponse is returned after successful login
type LoginResponse struct {
	Token        string `json:"token"`
	ResearcherID string `json:"researcherId"`
}

// ParticipantSessionResponse is returned when a participant session starts
type ParticipantSessionResponse struct {
	Token       string       `json:"token"`
	Participant *Participant `json:"participant"`
}
