package service

// Event types pushed to researcher dashboards
const (
	EventAnswerSubmitted = "answer_submitted"
	EventResultsUpdate   = "results_update"
)

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	BroadcastToSurvey(surveyID string, msgType string, payload interface{})
}
